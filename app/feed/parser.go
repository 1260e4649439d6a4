package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Parser reads RSS/Atom documents so polled feeds can act as insertion sources.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Item, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
	}

	items := make([]Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		items = append(items, p.normalizeItem(item))
	}

	return metadata, items, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	parts := make([]string, 0, 3)
	for _, field := range []string{item.Title, item.Description, item.Content} {
		if text := htmlText(field); text != "" {
			parts = append(parts, text)
		}
	}

	var categories []string
	for _, category := range item.Categories {
		if category = strings.TrimSpace(category); category != "" {
			categories = append(categories, category)
		}
	}

	return Item{
		ID:         cmp.Or(item.GUID, item.Link, p.generateContentHash(item)),
		Categories: categories,
		Text:       strings.Join(parts, " "),
	}
}

func (p *Parser) generateContentHash(item *gofeed.Item) string {
	content := fmt.Sprintf("%s|%s",
		item.Title,
		item.Description)

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
