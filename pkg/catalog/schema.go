package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Issue is one validation complaint against a payload, located by a path of
// field/key segments (empty for a whole-value complaint).
type Issue struct {
	Path    []string
	Message string
}

// Schema is the pluggable validation capability spec §9 calls for: the
// catalog never depends on a specific schema library, it only consumes this
// interface. Validate returns an empty slice when value is acceptable.
type Schema interface {
	Validate(value any) []Issue
}

// renderPath joins a path into dotted notation, bracket-escaping any segment
// that itself contains a dot (spec §4.2).
func renderPath(path []string) string {
	parts := make([]string, len(path))
	for i, seg := range path {
		if strings.Contains(seg, ".") {
			parts[i] = fmt.Sprintf("[%q]", seg)
		} else {
			parts[i] = seg
		}
	}
	return strings.Join(parts, ".")
}

// RenderIssues sorts issues by path depth ascending and renders each as a
// human-readable, marker-prefixed line.
func RenderIssues(issues []Issue) []string {
	sorted := make([]Issue, len(issues))
	copy(sorted, issues)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Path) < len(sorted[j].Path)
	})

	lines := make([]string, len(sorted))
	for i, iss := range sorted {
		path := renderPath(iss.Path)
		if path == "" {
			lines[i] = fmt.Sprintf("- %s", iss.Message)
		} else {
			lines[i] = fmt.Sprintf("- %s: %s", path, iss.Message)
		}
	}
	return lines
}

// StructSchema validates a value by running it through go-playground's
// struct-tag validator. It is the catalog's built-in Schema implementation
// for event types whose data/meta payloads are concrete Go structs tagged
// with `validate:"..."`. Payloads shaped as dynamic maps need a different
// Schema implementation supplied by the caller.
type StructSchema struct {
	validate *validator.Validate
}

// NewStructSchema creates a StructSchema backed by a fresh validator
// instance. A validator.Validate is safe for concurrent use and caches
// struct metadata, so one instance should be shared across a catalog.
func NewStructSchema() *StructSchema {
	return &StructSchema{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements Schema.
func (s *StructSchema) Validate(value any) []Issue {
	if value == nil {
		return nil
	}
	err := s.validate.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !asValidationErrors(err, &fieldErrs) {
		// Not a struct-shaped value (e.g. InvalidValidationError) — surface
		// as a single whole-value issue rather than panicking.
		return []Issue{{Message: err.Error()}}
	}

	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, Issue{
			Path:    namespaceSegments(fe.Namespace()),
			Message: fmt.Sprintf("failed %q validation", fe.Tag()),
		})
	}
	return issues
}

func asValidationErrors(err error, out *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	*out = ve
	return true
}

// namespaceSegments turns go-playground's "Struct.Field.SubField" namespace
// into path segments with the leading struct-type segment dropped — the
// caller only cares about field paths within the payload, not its Go type
// name.
func namespaceSegments(namespace string) []string {
	segments := strings.Split(namespace, ".")
	if len(segments) <= 1 {
		return nil
	}
	return segments[1:]
}
