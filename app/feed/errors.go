package feed

import "fmt"

// ClassificationError marks an item the classifier cannot judge. Such items
// are kept and logged; the error never aborts a batch.
type ClassificationError struct {
	ItemID string
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("cannot classify item %q: %s", e.ItemID, e.Reason)
}
