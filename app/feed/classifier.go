package feed

import (
	"path"
	"regexp"
	"strings"

	"github.com/lysyi3m/feed-sieve/app/rules"
	"golang.org/x/text/unicode/norm"
)

// Rule is one step of the classifier's first-match-wins evaluation.
type Rule interface {
	Kind() rules.Kind
	Patterns() []string
	Evaluate(item Item) (Verdict, bool)
}

type Classifier struct {
	rules []Rule
}

// NewClassifier builds the ordered rule list: structural exclusion outranks
// structural inclusion, which outranks content matching.
func NewClassifier(rs *rules.RuleSet) *Classifier {
	return &Classifier{
		rules: []Rule{
			newStructuralRule(rules.KindStructuralExclude, Suppress, ReasonStructuralExclude, rs.StructuralExclude),
			newStructuralRule(rules.KindStructuralInclude, Keep, ReasonStructuralInclude, rs.StructuralInclude),
			newContentRule(rs.ContentInclude),
		},
	}
}

// Classify is pure: the same item and rule set always yield the same verdict.
func (c *Classifier) Classify(item Item) Verdict {
	if item.Validate() != nil {
		return Verdict{Decision: Keep, Reason: ReasonUnclassifiable}
	}

	for _, rule := range c.rules {
		if verdict, ok := rule.Evaluate(item); ok {
			return verdict
		}
	}

	return Verdict{Decision: Suppress, Reason: ReasonContentNoMatch}
}

func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

type structuralRule struct {
	kind     rules.Kind
	decision Decision
	reason   Reason
	patterns []string
	exact    map[string]bool
	globs    []string
}

func newStructuralRule(kind rules.Kind, decision Decision, reason Reason, patterns []string) *structuralRule {
	r := &structuralRule{
		kind:     kind,
		decision: decision,
		reason:   reason,
		patterns: patterns,
		exact:    make(map[string]bool, len(patterns)),
	}
	for _, p := range patterns {
		if strings.ContainsAny(p, "*?[") {
			r.globs = append(r.globs, p)
		} else {
			r.exact[p] = true
		}
	}
	return r
}

func (r *structuralRule) Kind() rules.Kind   { return r.kind }
func (r *structuralRule) Patterns() []string { return r.patterns }

func (r *structuralRule) Evaluate(item Item) (Verdict, bool) {
	for _, category := range item.Categories {
		if r.matches(category) {
			return Verdict{Decision: r.decision, Reason: r.reason, MatchedCategory: category}, true
		}
	}
	return Verdict{}, false
}

func (r *structuralRule) matches(category string) bool {
	if r.exact[category] {
		return true
	}
	for _, glob := range r.globs {
		// patterns are syntax-checked when the rule set loads
		if ok, _ := path.Match(glob, category); ok {
			return true
		}
	}
	return false
}

type contentRule struct {
	terms   []string
	pattern *regexp.Regexp
}

// newContentRule compiles every term into one case-insensitive alternation so
// a single scan collects all matching terms.
func newContentRule(terms []string) *contentRule {
	r := &contentRule{terms: terms}
	if len(terms) == 0 {
		return r
	}

	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = regexp.QuoteMeta(norm.NFC.String(term))
	}
	r.pattern = regexp.MustCompile("(?i)(?:" + strings.Join(quoted, "|") + ")")
	return r
}

func (r *contentRule) Kind() rules.Kind   { return rules.KindContentInclude }
func (r *contentRule) Patterns() []string { return r.terms }

func (r *contentRule) Evaluate(item Item) (Verdict, bool) {
	if r.pattern == nil || item.Text == "" {
		return Verdict{}, false
	}

	matches := r.pattern.FindAllString(norm.NFC.String(item.Text), -1)
	if len(matches) == 0 {
		return Verdict{}, false
	}

	seen := make(map[string]bool, len(matches))
	terms := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.ToLower(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, m)
	}

	return Verdict{Decision: Keep, Reason: ReasonContentMatch, MatchedTerms: terms}, true
}
