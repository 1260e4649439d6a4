package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/lysyi3m/feed-sieve/app/rules"
)

// Extractor turns an HTML fragment of newly inserted feed elements into items.
type Extractor struct {
	cfg rules.ExtractorConfig
}

func NewExtractor(cfg rules.ExtractorConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

func (e *Extractor) Run(data []byte) ([]Item, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	elements := doc.Find(e.cfg.ItemSelector)
	if elements.Length() == 0 {
		// a fragment of inserted nodes without the item class: each top-level
		// element is one item
		elements = doc.Find("body").Children()
	}

	items := make([]Item, 0, elements.Length())
	elements.Each(func(_ int, s *goquery.Selection) {
		items = append(items, e.extractItem(s))
	})

	slog.Debug("Items extracted from HTML", "count", len(items))

	return items, nil
}

func (e *Extractor) extractItem(s *goquery.Selection) Item {
	id, ok := s.Attr(e.cfg.IDAttribute)
	if !ok || strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	class, _ := s.Attr("class")

	content := s.Find(e.cfg.ContentSelector)
	if e.cfg.ExcludeSelector != "" {
		content = content.FilterFunction(func(_ int, c *goquery.Selection) bool {
			if e.cfg.ExcludeTarget != "" && !c.Is(e.cfg.ExcludeTarget) {
				return true
			}
			return c.ParentsFiltered(e.cfg.ExcludeSelector).Length() == 0
		})
	}

	parts := make([]string, 0, content.Length())
	content.Each(func(_ int, c *goquery.Selection) {
		parts = append(parts, c.Text())
	})

	return Item{
		ID:         id,
		Categories: strings.Fields(class),
		Text:       collapseSpace(strings.Join(parts, " ")),
	}
}

// htmlText strips markup from an HTML snippet. Plain text passes through.
func htmlText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return collapseSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseSpace(fragment)
	}
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
