package classify

import (
	"regexp"
	"strconv"
	"strings"
)

// Attribute names one canonical attribute family. The names double as
// keys in the configuration's candidate-name map.
type Attribute string

// Canonical attributes.
const (
	AttrBlock         Attribute = "block"
	AttrPlot          Attribute = "plot"
	AttrNeighborhood  Attribute = "neighborhood"
	AttrVillaType     Attribute = "villaType"
	AttrName          Attribute = "name"
	AttrType          Attribute = "type"
	AttrFamily        Attribute = "family"
	AttrCategory      Attribute = "category"
	AttrPhase         Attribute = "phase"
	AttrLevel         Attribute = "level"
	AttrSourceFile    Attribute = "sourceFile"
	AttrPlannedStart  Attribute = "plannedStart"
	AttrPlannedFinish Attribute = "plannedFinish"
	AttrActualStart   Attribute = "actualStart"
	AttrActualFinish  Attribute = "actualFinish"

	// Fallback source attributes. These never mark an element as a
	// domain entity; they only fill gaps the primary rules left.
	AttrActivityCode Attribute = "activityCode"
	AttrNetwork      Attribute = "network"
)

// Rule binds one canonical attribute to its candidate property names, an
// optional value transform, and the assignment into Attributes. Primary
// rules set the domain-entity flag when the attribute is an identity
// attribute; fallback rules never do, and never overwrite a value a
// primary rule already set.
type Rule struct {
	// Attr is the canonical attribute this rule extracts.
	Attr Attribute

	// Candidates is the ordered property-name list tried by the resolver.
	Candidates []string

	// Extract transforms the resolved raw value. Returning false discards
	// the value (e.g. a plot that fails numeric validation).
	Extract func(raw string) (string, bool)

	// Primary marks direct-name extraction rules. Only primary rules on
	// identity attributes may flag an element as a domain entity.
	Primary bool

	// Identity marks the attributes that make an element a domain entity.
	Identity bool

	// Assign writes the extracted value into the attribute record.
	Assign func(a *Attributes, v string)
}

// DefaultCandidates returns the built-in ordered candidate-name lists per
// canonical attribute. Callers may override individual lists through
// configuration; unknown attributes in an override map are ignored.
func DefaultCandidates() map[Attribute][]string {
	return map[Attribute][]string{
		AttrBlock:         {"Element/Block", "Block", "Block No", "BlockNumber"},
		AttrPlot:          {"Element/Plot", "Plot", "Plot No", "PlotNumber", "Element/*Plot*"},
		AttrNeighborhood:  {"Neighborhood", "Neighbourhood", "NBH", "Sector"},
		AttrVillaType:     {"Villa Type", "VillaType", "Unit Type", "Element/*Villa*Type*"},
		AttrName:          {"Name", "Item/Name"},
		AttrType:          {"Type", "Type Name", "Item/Type"},
		AttrFamily:        {"Family", "Family Name", "Item/Family"},
		AttrCategory:      {"Category", "Item/Category"},
		AttrPhase:         {"Phase", "Phase Created", "Construction Phase"},
		AttrLevel:         {"Level", "Reference Level", "Item/Level"},
		AttrSourceFile:    {"Source File", "File Name", "Item/Source File"},
		AttrPlannedStart:  {"Planned Start", "Baseline Start"},
		AttrPlannedFinish: {"Planned Finish", "Baseline Finish"},
		AttrActualStart:   {"Actual Start"},
		AttrActualFinish:  {"Actual Finish"},
		AttrActivityCode:  {"Activity ID", "Activity Code", "Task Name"},
		AttrNetwork:       {"Network", "Network Name", "System Name"},
	}
}

// blockFromActivity extracts a block code from composite activity
// identifiers such as "NBH3-B39-V425-STR".
var blockFromActivity = regexp.MustCompile(`(?i)(?:^|[-_. ])B(?:LK)?[-]?(\d+)(?:[-_. ]|$)`)

// zoneFromNetwork extracts a zone code from infrastructure network names
// such as "IRR-ZONE4-MAIN".
var zoneFromNetwork = regexp.MustCompile(`(?i)ZONE[-_ ]?([A-Z0-9]+)`)

// numericPlot validates a plot value: trimmed, it must parse as a
// number. Whitespace-padded numerics pass, alphanumerics like "425A"
// do not.
func numericPlot(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
		return "", false
	}
	return trimmed, true
}

func identityRaw(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	return trimmed, trimmed != ""
}

// Rules builds the ordered rule table. overrides replaces the default
// candidate list per attribute where present. Primary rules come first so
// fallback rules observe primary assignments.
func Rules(overrides map[Attribute][]string) []Rule {
	candidates := DefaultCandidates()
	for attr, list := range overrides {
		if _, known := candidates[attr]; known && len(list) > 0 {
			candidates[attr] = list
		}
	}

	rules := []Rule{
		{Attr: AttrBlock, Primary: true, Identity: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.Block = v }},
		{Attr: AttrNeighborhood, Primary: true, Identity: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.Neighborhood = v }},
		{Attr: AttrPlot, Primary: true, Identity: true, Extract: numericPlot,
			Assign: func(a *Attributes, v string) { a.Plot = v }},
		{Attr: AttrVillaType, Primary: true, Identity: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.VillaType = v }},
		{Attr: AttrName, Primary: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.Name = v }},
		{Attr: AttrType, Primary: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.Type = v }},
		{Attr: AttrFamily, Primary: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.Family = v }},
		{Attr: AttrCategory, Primary: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.Category = v }},
		{Attr: AttrPhase, Primary: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.Phase = v }},
		{Attr: AttrLevel, Primary: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.Level = v }},
		{Attr: AttrSourceFile, Primary: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.SourceFile = v }},
		{Attr: AttrPlannedStart, Primary: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.PlannedStart = v }},
		{Attr: AttrPlannedFinish, Primary: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.PlannedFinish = v }},
		{Attr: AttrActualStart, Primary: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.ActualStart = v }},
		{Attr: AttrActualFinish, Primary: true, Extract: identityRaw,
			Assign: func(a *Attributes, v string) { a.ActualFinish = v }},

		// Legacy fallbacks. Evaluated after every primary rule.
		{Attr: AttrActivityCode, Extract: extractBlockCode,
			Assign: func(a *Attributes, v string) {
				if a.Block == "" {
					a.Block = v
				}
			}},
		{Attr: AttrNetwork, Extract: extractZone,
			Assign: func(a *Attributes, v string) {
				if a.Zone == "" {
					a.Zone = v
				}
			}},
	}

	for i := range rules {
		rules[i].Candidates = candidates[rules[i].Attr]
	}
	return rules
}

func extractBlockCode(raw string) (string, bool) {
	m := blockFromActivity.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func extractZone(raw string) (string, bool) {
	m := zoneFromNetwork.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}
