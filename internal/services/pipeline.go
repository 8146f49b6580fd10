package services

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mtgproxyprint/server/internal/decklist"
	"github.com/mtgproxyprint/server/internal/metrics"
	"github.com/mtgproxyprint/server/internal/models"
	"github.com/mtgproxyprint/server/internal/scryfall"
)

const defaultResolveConcurrency = 12

const (
	unresolvedCollectorMessage = "Unable to resolve this entry. Verify the set code and collector number or drop them to search by name only."
	unresolvedNameMessage      = "Unable to resolve this entry. Verify the card name spelling."
	lookupFailedMessage        = "Card lookup failed. Please try again."
	noImageMessage             = "No printable image was available for this card."
)

// CardSource is the lookup surface the pipeline drives. *Resolver is the
// production implementation.
type CardSource interface {
	FindByCollector(ctx context.Context, set, collector, lang string) (*models.CatalogCard, error)
	FindByName(ctx context.Context, name string, opts FindByNameOptions) (*models.CatalogCard, error)
	GetPrintings(card *models.CatalogCard) []models.CatalogCard
}

// Pipeline resolves parsed decklist lines into response items. Lines are
// resolved concurrently under a limiter wider than the remote call cap,
// and recombined into input order.
type Pipeline struct {
	source      CardSource
	concurrency int
}

// NewPipeline creates a resolution pipeline over the given card source.
func NewPipeline(source CardSource, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = defaultResolveConcurrency
	}
	return &Pipeline{source: source, concurrency: concurrency}
}

// Resolve turns decklist lines into one response item per line, in input
// order. When requestedLang is empty the language is detected from the
// card names. Per-line failures never abort the batch; each item carries
// its own error or warning string.
func (p *Pipeline) Resolve(ctx context.Context, lines []decklist.Line, requestedLang string) ([]models.ResolveItem, error) {
	lang := strings.ToLower(strings.TrimSpace(requestedLang))
	if lang == "" {
		lang = detectLanguage(lines)
	}

	jobID := uuid.NewString()
	log.Printf("[resolve %s] %d lines, lang=%s", jobID, len(lines), lang)

	items := make([]models.ResolveItem, len(lines))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range lines {
		g.Go(func() error {
			items[i] = p.resolveLine(ctx, jobID, lines[i], lang)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return items, nil
}

// resolveLine applies the fallback ladder for one line: collector lookup
// when set and collector are present, then name lookup in the requested
// language, then name lookup forced to English for non-English requests.
func (p *Pipeline) resolveLine(ctx context.Context, jobID string, line decklist.Line, lang string) models.ResolveItem {
	item := models.ResolveItem{
		Line: models.ResolveLine{
			Qty:       line.Qty,
			Name:      line.Name,
			Set:       line.Set,
			Collector: line.Collector,
			Foil:      line.Foil,
		},
		Error: line.ParseError,
	}

	if line.ParseError != "" || line.Name == "" || line.Qty <= 0 {
		metrics.ResolveLinesTotal.WithLabelValues("parse_error").Inc()
		return item
	}

	var card *models.CatalogCard
	var err error

	if line.Set != "" && line.Collector != "" {
		card, err = p.source.FindByCollector(ctx, line.Set, line.Collector, lang)
	}

	if card == nil && err == nil {
		card, err = p.source.FindByName(ctx, line.Name, FindByNameOptions{Set: line.Set, Lang: lang})
	}

	if card == nil && err == nil && lang != "en" {
		card, err = p.source.FindByName(ctx, line.Name, FindByNameOptions{Set: line.Set, Lang: "en"})
	}

	if err != nil {
		log.Printf("[resolve %s] lookup failed for %q: %v", jobID, line.Name, err)
		metrics.ResolveLinesTotal.WithLabelValues("unresolved").Inc()
		item.Error = lookupFailedMessage
		return item
	}

	if card == nil {
		metrics.ResolveLinesTotal.WithLabelValues("unresolved").Inc()
		item.Error = unresolvedMessage(line)
		return item
	}

	metrics.ResolveLinesTotal.WithLabelValues("resolved").Inc()
	p.applyCard(&item, card)
	surfaceLangMismatch(&item, lang)
	return item
}

// applyCard fills the item from a resolved card. A card with two or more
// faces produces a single item carrying the full face list, with the
// front face's image as the default display image.
func (p *Pipeline) applyCard(item *models.ResolveItem, card *models.CatalogCard) {
	summary := scryfall.SummarizeCard(card)
	printings := p.source.GetPrintings(card)

	selected := card.Clone()
	for i := range printings {
		if printings[i].ID == card.ID {
			selected = printings[i].Clone()
			break
		}
	}

	item.Card = &models.ResolveItemCard{ResolvedCardInfo: summary.Card}
	item.AllPrintings = printings
	item.SelectedPrinting = selected

	if len(summary.Faces) >= 2 {
		front := summary.Faces[0]
		item.Card.Faces = summary.Faces
		item.Image = front.Image
		item.HighRes = front.HighRes
		item.FaceName = front.Name
		if front.Image == "" && item.Error == "" {
			item.Error = noImageMessage
		}
		return
	}

	item.Image = summary.Image
	item.HighRes = summary.HighRes
	if summary.Image == "" && item.Error == "" {
		item.Error = noImageMessage
	}
}

func surfaceLangMismatch(item *models.ResolveItem, requestedLang string) {
	if item.Card == nil || requestedLang == "" {
		return
	}
	if strings.ToLower(item.Card.Lang) == requestedLang {
		return
	}
	note := "Localized printing not available in " + requestedLang + "; using " + item.Card.Lang + "."
	if item.Warning != "" {
		item.Warning += " " + note
	} else {
		item.Warning = note
	}
}

func unresolvedMessage(line decklist.Line) string {
	if line.Set != "" && line.Collector != "" {
		return unresolvedCollectorMessage
	}
	return unresolvedNameMessage
}

// Card name fragments common in German printings, used for request
// language detection when the client does not specify one.
var germanNameFragments = []string{
	"kolonie", "blitz", "stein", "wald", "berg", "insel", "ebene",
	"sumpf", "drache", "geist", "zauber", "krieg", "ritter",
}

// detectLanguage guesses the decklist language from card names: German
// when more than 30% of parseable names contain a German fragment,
// English otherwise.
func detectLanguage(lines []decklist.Line) string {
	total := 0
	german := 0
	for _, line := range lines {
		if line.ParseError != "" || line.Name == "" {
			continue
		}
		total++
		lower := strings.ToLower(line.Name)
		for _, fragment := range germanNameFragments {
			if strings.Contains(lower, fragment) {
				german++
				break
			}
		}
	}

	if total > 0 && german > 0 && float64(german)/float64(total) > 0.3 {
		return "de"
	}
	return "en"
}
