package rules

import (
	"time"
)

// GetRefreshInterval returns the refresh interval as time.Duration
func (s *FeedSource) GetRefreshInterval() time.Duration {
	if s.RefreshInterval <= 0 {
		return 3600 * time.Second
	}
	return time.Duration(s.RefreshInterval) * time.Second
}

// GetTimeout returns the timeout as time.Duration
func (s *FeedSource) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}

// Lookup returns the list backing a rule kind.
func (rs *RuleSet) Lookup(kind Kind) []string {
	switch kind {
	case KindStructuralExclude:
		return rs.StructuralExclude
	case KindStructuralInclude:
		return rs.StructuralInclude
	case KindContentInclude:
		return rs.ContentInclude
	default:
		return nil
	}
}
