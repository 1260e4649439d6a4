package feed

import "sync"

// Counters is the session-wide tally shared by the pipeline and readers of
// the badge count. Only the pipeline mutates it, through update.
type Counters struct {
	mu         sync.RWMutex
	processed  int
	suppressed int
}

type Snapshot struct {
	Processed  int `json:"processed"`
	Suppressed int `json:"suppressed"`
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{Processed: c.processed, Suppressed: c.suppressed}
}

// tally is valid only inside update.
type tally struct {
	c *Counters
}

func (t tally) addProcessed(n int) {
	t.c.processed += n
}

// addSuppressed must follow addProcessed for the same batch.
func (t tally) addSuppressed() int {
	t.c.suppressed++
	return t.c.suppressed
}

// update holds the write lock for the whole of fn.
func (c *Counters) update(fn func(t tally)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(tally{c: c})
}
