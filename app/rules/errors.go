package rules

import "fmt"

// ConfigError reports a rule file entry that would make classification
// degenerate. It is fatal at load.
type ConfigError struct {
	Field  string // e.g. "rules.content_include[3]"
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
