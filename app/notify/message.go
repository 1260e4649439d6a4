package notify

const (
	KindCountChanged = "countChanged"
	KindGetCount     = "getCount"
)

// Message is the envelope exchanged with the badge surface.
type Message struct {
	Kind  string `json:"kind" binding:"required"`
	Count int    `json:"count"`
}

type CountResponse struct {
	Count int `json:"count"`
}
