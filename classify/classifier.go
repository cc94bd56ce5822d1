package classify

import (
	"github.com/sitelens/sitelens/property"
)

// Classifier applies the rule table to one element's raw property records
// and decides domain entity versus excluded infrastructure.
//
// The element population mixes a large infrastructure majority sharing
// overlapping property names with a much smaller domain-entity minority.
// Only a primary-rule hit on an identity attribute marks an element as a
// domain entity; a fallback-derived value never does.
type Classifier struct {
	resolver *property.Resolver
	rules    []Rule
}

// NewClassifier creates a Classifier. overrides replaces the default
// candidate-name list for the attributes it names; pass nil to use the
// built-in lists.
func NewClassifier(resolver *property.Resolver, overrides map[Attribute][]string) *Classifier {
	if resolver == nil {
		resolver = property.NewResolver()
	}
	return &Classifier{
		resolver: resolver,
		rules:    Rules(overrides),
	}
}

// Classify extracts canonical attributes from records in a single pass
// over the rule table. The second return is false when the element is
// excluded as infrastructure.
func (c *Classifier) Classify(records []property.Record) (*Attributes, bool) {
	attrs := &Attributes{}
	domain := false

	for _, rule := range c.rules {
		raw, ok := c.resolver.Resolve(rule.Candidates, records)
		if !ok {
			continue
		}
		value, ok := rule.Extract(raw)
		if !ok {
			// Failed extraction (e.g. non-numeric plot) means the
			// attribute is absent, nothing more.
			continue
		}
		rule.Assign(attrs, value)
		if rule.Primary && rule.Identity {
			domain = true
		}
	}

	if !domain {
		return nil, false
	}

	// Zone comes only from infrastructure fallback paths; a domain
	// entity never keeps it.
	attrs.Zone = ""

	if !attrs.HasIdentity() {
		return nil, false
	}
	return attrs, true
}
