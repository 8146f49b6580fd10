package models

// ResolveLine echoes the parsed decklist line back to the client.
type ResolveLine struct {
	Qty       int    `json:"qty"`
	Name      string `json:"name"`
	Set       string `json:"set,omitempty"`
	Collector string `json:"collector,omitempty"`
	Foil      bool   `json:"foil,omitempty"`
}

// ResolveItemCard is the resolved card attached to a response item.
// Multi-faced cards carry their face list here; the item itself stays a
// single entry so quantities map one-to-one with decklist lines.
type ResolveItemCard struct {
	ResolvedCardInfo
	Faces []ResolvedFace `json:"faces,omitempty"`
}

// ResolveItem is the per-line result of deck resolution. Exactly one item
// is produced per input line, in input order. Error and Warning are
// human-readable; a warning never fails the line.
type ResolveItem struct {
	Line             ResolveLine      `json:"line"`
	Card             *ResolveItemCard `json:"card,omitempty"`
	Image            string           `json:"image,omitempty"`
	HighRes          bool             `json:"highRes,omitempty"`
	FaceName         string           `json:"faceName,omitempty"`
	AllPrintings     []CatalogCard    `json:"allPrintings,omitempty"`
	SelectedPrinting *CatalogCard     `json:"selectedPrinting,omitempty"`
	Error            string           `json:"error,omitempty"`
	Warning          string           `json:"warning,omitempty"`
}
