package feed

import (
	"fmt"
	"strings"
	"time"
)

// Item is a read-only view of one feed element. The insertion source owns
// its identity; the pipeline only reads Categories and Text.
type Item struct {
	ID         string   `json:"id"`
	Categories []string `json:"categories"`
	Text       string   `json:"text"`
}

// Validate reports items that carry neither categories nor text.
func (i Item) Validate() error {
	if len(i.Categories) == 0 && strings.TrimSpace(i.Text) == "" {
		return &ClassificationError{ItemID: i.ID, Reason: "item has no categories and no text"}
	}
	return nil
}

type Origin string

const (
	OriginInitial  Origin = "initial"
	OriginInserted Origin = "inserted"
)

func (o Origin) Label() string {
	switch o {
	case OriginInitial:
		return "Initial"
	case OriginInserted:
		return "Inserted"
	default:
		return string(o)
	}
}

type Batch struct {
	ID         string
	Origin     Origin
	Items      []Item
	ReceivedAt time.Time
}

type Decision string

const (
	Keep     Decision = "keep"
	Suppress Decision = "suppress"
)

type Reason string

const (
	ReasonStructuralExclude Reason = "structural_exclude"
	ReasonStructuralInclude Reason = "structural_include"
	ReasonContentMatch      Reason = "content_match"
	ReasonContentNoMatch    Reason = "content_no_match"
	ReasonUnclassifiable    Reason = "unclassifiable"
)

type Verdict struct {
	Decision        Decision `json:"decision"`
	Reason          Reason   `json:"reason"`
	MatchedTerms    []string `json:"matched_terms,omitempty"`
	MatchedCategory string   `json:"matched_category,omitempty"`
}

// Describe renders the verdict the way debug annotations show it.
func (v Verdict) Describe() string {
	switch v.Reason {
	case ReasonStructuralExclude:
		return fmt.Sprintf("Structural exclude: %s", v.MatchedCategory)
	case ReasonStructuralInclude:
		return fmt.Sprintf("Structural include: %s", v.MatchedCategory)
	case ReasonContentMatch:
		return fmt.Sprintf("Content match: %s.", strings.Join(v.MatchedTerms, ", "))
	case ReasonContentNoMatch:
		return "Content no match"
	default:
		return "Unclassifiable"
	}
}

// Effect is the visual state change requested for one item.
type Effect struct {
	Suppressed bool
	Hide       bool
	Dim        bool
	Annotation string
	Reason     Reason
}

type BatchResult struct {
	BatchID        string `json:"batch_id"`
	Origin         Origin `json:"origin"`
	Processed      int    `json:"processed"`
	Suppressed     int    `json:"suppressed"`
	Kept           int    `json:"kept"`
	Unclassifiable int    `json:"unclassifiable"`
	Failed         int    `json:"failed"`
	// Waited is the time between receipt and the start of processing.
	Waited time.Duration `json:"waited"`
}

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
}
