package database

import (
	"time"
)

// ItemEffect is the visibility state the renderer reads back for one item.
type ItemEffect struct {
	ItemID     string    `json:"item_id"`
	Suppressed bool      `json:"suppressed"`
	Hidden     bool      `json:"hidden"`
	Dimmed     bool      `json:"dimmed"`
	Annotation string    `json:"annotation,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ItemStats struct {
	Total      int `json:"total"`
	Suppressed int `json:"suppressed"`
	Hidden     int `json:"hidden"`
	Dimmed     int `json:"dimmed"`
}

type Feed struct {
	Name          string
	FeedURL       string
	Title         string
	Link          string // Homepage URL from feed's <link> element
	Language      string
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
}
