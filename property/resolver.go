package property

import (
	"regexp"
	"strings"
	"sync"
)

// Resolver resolves a canonical attribute against one element's raw
// property set using an ordered candidate-name list. Candidates are tried
// in order and the first hit wins:
//
//  1. A candidate containing "/" matches the full "Category/DisplayName"
//     path exactly.
//  2. A candidate containing "*" is treated as a case-insensitive wildcard
//     pattern over the full path, anchored at both ends.
//  3. Any other candidate matches DisplayName exactly, falling back to a
//     case-insensitive DisplayName match.
//
// Absence is a normal outcome, not an error. Properties whose trimmed value
// is empty are treated as absent and never match.
type Resolver struct {
	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewResolver creates a Resolver with an empty pattern cache.
func NewResolver() *Resolver {
	return &Resolver{patterns: make(map[string]*regexp.Regexp)}
}

// Resolve returns the value of the first property matched by the candidate
// list, in candidate priority order. Within one candidate, the first
// occurrence in the record list wins. The second return is false when no
// candidate matched.
func (r *Resolver) Resolve(candidates []string, records []Record) (string, bool) {
	for _, candidate := range candidates {
		if v, ok := r.resolveOne(candidate, records); ok {
			return v, true
		}
	}
	return "", false
}

func (r *Resolver) resolveOne(candidate string, records []Record) (string, bool) {
	switch {
	case strings.Contains(candidate, "*"):
		re, err := r.pattern(candidate)
		if err != nil {
			return "", false
		}
		for _, rec := range records {
			if v := rec.StringValue(); v != "" && re.MatchString(rec.Path()) {
				return v, true
			}
		}
	case strings.Contains(candidate, "/"):
		for _, rec := range records {
			if v := rec.StringValue(); v != "" && rec.Path() == candidate {
				return v, true
			}
		}
	default:
		for _, rec := range records {
			if v := rec.StringValue(); v != "" && rec.DisplayName == candidate {
				return v, true
			}
		}
		// Case-insensitive fallback for plain display names.
		for _, rec := range records {
			if v := rec.StringValue(); v != "" && strings.EqualFold(rec.DisplayName, candidate) {
				return v, true
			}
		}
	}
	return "", false
}

// pattern compiles a wildcard candidate into an anchored case-insensitive
// regexp, caching the result for reuse across elements.
func (r *Resolver) pattern(candidate string) (*regexp.Regexp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if re, ok := r.patterns[candidate]; ok {
		return re, nil
	}

	expr := "(?i)^" + strings.ReplaceAll(regexp.QuoteMeta(candidate), `\*`, ".*") + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	r.patterns[candidate] = re
	return re, nil
}
