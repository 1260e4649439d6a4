package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of the rules file
type Loader struct {
	path     string
	validate *validator.Validate
}

// NewLoader creates a loader for the rules file at path. An empty path
// yields the built-in configuration.
func NewLoader(path string) *Loader {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Loader{path: path, validate: v}
}

func (l *Loader) Load() (*File, error) {
	if l.path == "" {
		file := DefaultFile()
		slog.Debug("Using built-in rules")
		return file, l.check(file)
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return l.Parse(data)
}

// Parse decodes, normalizes and validates a rules document.
func (l *Loader) Parse(data []byte) (*File, error) {
	// yaml.v3 keeps fields absent from the document, so defaults go in first
	file := File{
		Settings:  DefaultSettings(),
		Extractor: DefaultExtractor(),
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if file.Rules == nil {
		file.Rules = Default()
	}
	l.setDefaults(&file)

	if err := l.check(&file); err != nil {
		return nil, err
	}

	slog.Debug("Rules loaded",
		"structural_exclude", len(file.Rules.StructuralExclude),
		"structural_include", len(file.Rules.StructuralInclude),
		"content_include", len(file.Rules.ContentInclude),
		"feeds", len(file.Feeds))

	return &file, nil
}

func (l *Loader) check(file *File) error {
	normalize(file.Rules)

	if err := l.validate.Struct(file); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ConfigError{
				Field:  strings.TrimPrefix(fe.Namespace(), "File."),
				Value:  fmt.Sprint(fe.Value()),
				Reason: describeTag(fe.Tag()),
			}
		}
		return fmt.Errorf("failed to validate rules: %w", err)
	}

	for _, kind := range []Kind{KindStructuralExclude, KindStructuralInclude} {
		for i, pattern := range file.Rules.Lookup(kind) {
			if _, err := path.Match(pattern, ""); err != nil {
				return &ConfigError{
					Field:  fmt.Sprintf("rules.%s[%d]", kind, i),
					Value:  pattern,
					Reason: "malformed category pattern",
				}
			}
		}
	}

	names := make(map[string]bool, len(file.Feeds))
	for i, source := range file.Feeds {
		if names[source.Name] {
			return &ConfigError{
				Field:  fmt.Sprintf("feeds[%d].name", i),
				Value:  source.Name,
				Reason: "duplicate feed name",
			}
		}
		names[source.Name] = true
	}

	dedupe(file.Rules)
	return nil
}

func (l *Loader) setDefaults(file *File) {
	for i := range file.Feeds {
		if file.Feeds[i].RefreshInterval == 0 {
			file.Feeds[i].RefreshInterval = 3600 // seconds
		}
		if file.Feeds[i].Timeout == 0 {
			file.Feeds[i].Timeout = 30 // seconds
		}
	}
}

// normalize trims entries and strips the selector dot from category patterns
// so ".member-profile-snapshot" and "member-profile-snapshot" are the same rule.
func normalize(rs *RuleSet) {
	for i, p := range rs.StructuralExclude {
		rs.StructuralExclude[i] = strings.TrimPrefix(strings.TrimSpace(p), ".")
	}
	for i, p := range rs.StructuralInclude {
		rs.StructuralInclude[i] = strings.TrimPrefix(strings.TrimSpace(p), ".")
	}
	for i, term := range rs.ContentInclude {
		rs.ContentInclude[i] = strings.TrimSpace(term)
	}
}

func dedupe(rs *RuleSet) {
	rs.StructuralExclude = unique(rs.StructuralExclude, func(s string) string { return s })
	rs.StructuralInclude = unique(rs.StructuralInclude, func(s string) string { return s })
	rs.ContentInclude = unique(rs.ContentInclude, strings.ToLower)
}

func unique(values []string, key func(string) string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		k := key(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

func describeTag(tag string) string {
	switch tag {
	case "required":
		return "must not be empty"
	case "url":
		return "must be a valid URL"
	case "gte":
		return "must be non-negative"
	case "min":
		return "must list at least one entry"
	default:
		return "failed " + tag + " check"
	}
}
