package scryfall

import (
	"fmt"
	"strings"

	"github.com/mtgproxyprint/server/internal/models"
)

// Layouts that always print as two distinct physical sides.
var doubleSidedLayouts = map[string]bool{
	"transform":          true,
	"modal_dfc":          true,
	"double_faced_token": true,
	"reversible_card":    true,
}

// SelectBestImage picks the printable image for a card: the highest
// fidelity variant on the primary record, or the front face's image when
// the primary record has none.
func SelectBestImage(card *models.CatalogCard) (string, bool) {
	image := selectBestImageFromURIs(card.ImageURIs)
	highRes := card.HighresImage || card.ImageStatus == "highres_scan"

	if image == "" && len(card.CardFaces) > 0 {
		front := card.CardFaces[0]
		if front.ImageURIs != nil && front.ImageURIs.PNG != "" {
			highRes = true
		}
		return selectBestImageFromURIs(front.ImageURIs), highRes
	}

	return image, highRes
}

func selectBestImageFromURIs(uris *models.ImageURIs) string {
	if uris == nil {
		return ""
	}
	switch {
	case uris.PNG != "":
		return uris.PNG
	case uris.Large != "":
		return uris.Large
	case uris.Normal != "":
		return uris.Normal
	case uris.BorderCrop != "":
		return uris.BorderCrop
	default:
		return uris.ArtCrop
	}
}

// SummarizeCard reduces a CatalogCard to the shape the pipeline returns:
// identity, selected image, and a face list when the card prints as two
// or more physical sides.
func SummarizeCard(card *models.CatalogCard) models.ResolvedCardSummary {
	image, highRes := SelectBestImage(card)

	summary := models.ResolvedCardSummary{
		Card: models.ResolvedCardInfo{
			ID:              card.ID,
			Name:            card.Name,
			Lang:            card.Lang,
			Set:             card.Set,
			CollectorNumber: card.CollectorNumber,
			Layout:          card.Layout,
		},
		Image:   image,
		HighRes: highRes,
	}

	if isDoubleSided(card) {
		summary.Faces = make([]models.ResolvedFace, len(card.CardFaces))
		for i, face := range card.CardFaces {
			name := face.Name
			if name == "" {
				name = fmt.Sprintf("%s (Face %d)", card.Name, i+1)
			}
			faceHighRes := highRes
			if face.ImageURIs != nil && face.ImageURIs.PNG != "" {
				faceHighRes = true
			}
			summary.Faces[i] = models.ResolvedFace{
				Name:    name,
				Image:   selectBestImageFromURIs(face.ImageURIs),
				HighRes: faceHighRes,
			}
		}
	}

	return summary
}

// isDoubleSided is permissive: known two-sided layouts qualify, and so
// does any card whose faces all carry their own images.
func isDoubleSided(card *models.CatalogCard) bool {
	if len(card.CardFaces) < 2 {
		return false
	}
	if doubleSidedLayouts[strings.ToLower(card.Layout)] {
		return true
	}
	for _, face := range card.CardFaces {
		if face.ImageURIs == nil {
			return false
		}
	}
	return true
}
