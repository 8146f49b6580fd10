package models

// ImageURIs holds the printable image variants for a card or card face.
// Selection prefers the highest-fidelity format available.
type ImageURIs struct {
	PNG        string `json:"png,omitempty"`
	Large      string `json:"large,omitempty"`
	Normal     string `json:"normal,omitempty"`
	ArtCrop    string `json:"art_crop,omitempty"`
	BorderCrop string `json:"border_crop,omitempty"`
}

// CardFace is one side of a multi-faced card.
type CardFace struct {
	Name      string     `json:"name,omitempty"`
	ImageURIs *ImageURIs `json:"image_uris,omitempty"`
}

// CatalogCard is a single printing of a card. The (Set, CollectorNumber,
// Lang) triple is unique within the catalog; OracleID, when present, links
// every printing and translation of the same logical card.
type CatalogCard struct {
	ID              string     `json:"id"`
	OracleID        string     `json:"oracle_id,omitempty"`
	Name            string     `json:"name"`
	PrintedName     string     `json:"printed_name,omitempty"`
	Lang            string     `json:"lang"`
	Set             string     `json:"set"`
	CollectorNumber string     `json:"collector_number"`
	Layout          string     `json:"layout,omitempty"`
	ReleasedAt      string     `json:"released_at,omitempty"`
	Games           []string   `json:"games,omitempty"`
	ImageStatus     string     `json:"image_status,omitempty"`
	HighresImage    bool       `json:"highres_image,omitempty"`
	ImageURIs       *ImageURIs `json:"image_uris,omitempty"`
	CardFaces       []CardFace `json:"card_faces,omitempty"`
}

// Clone returns a deep copy so callers can never mutate indexed state.
func (c *CatalogCard) Clone() *CatalogCard {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Games != nil {
		clone.Games = append([]string(nil), c.Games...)
	}
	if c.ImageURIs != nil {
		uris := *c.ImageURIs
		clone.ImageURIs = &uris
	}
	if c.CardFaces != nil {
		clone.CardFaces = make([]CardFace, len(c.CardFaces))
		for i, face := range c.CardFaces {
			clone.CardFaces[i] = face
			if face.ImageURIs != nil {
				uris := *face.ImageURIs
				clone.CardFaces[i].ImageURIs = &uris
			}
		}
	}
	return &clone
}

// ResolvedCardInfo is the compact card identity returned to clients.
type ResolvedCardInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Lang            string `json:"lang"`
	Set             string `json:"set"`
	CollectorNumber string `json:"collector_number"`
	Layout          string `json:"layout,omitempty"`
}

// ResolvedFace carries the display data for one face of a card.
type ResolvedFace struct {
	Name    string `json:"name"`
	Image   string `json:"image,omitempty"`
	HighRes bool   `json:"highRes"`
}

// ResolvedCardSummary is a CatalogCard reduced to what the print layout
// needs: identity, the selected image, and per-face images for
// multi-faced layouts.
type ResolvedCardSummary struct {
	Card    ResolvedCardInfo `json:"card"`
	Image   string           `json:"image,omitempty"`
	HighRes bool             `json:"highRes"`
	Faces   []ResolvedFace   `json:"faces,omitempty"`
}
