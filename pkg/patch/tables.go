// Package patch loads and validates the declarative patch tables that steer
// the grammar transduction: token renames, rule suppressions and type
// overrides, per-alternative replacements, and action addons.
package patch

import "sort"

// AddonKind classifies how an addon entry combines with the synthesized
// action for its matched alternative.
type AddonKind int

const (
	// KindBlock replaces the synthesized action entirely.
	KindBlock AddonKind = iota
	// KindAddon splices extra statements inside the action's opening brace,
	// before the default text-reconstruction logic.
	KindAddon
	// KindRule keeps the default action and appends extra alternatives to
	// the owning rule.
	KindRule
)

func (k AddonKind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindAddon:
		return "addon"
	case KindRule:
		return "rule"
	}
	return "unknown"
}

// ParseAddonKind maps the addon file's kind word to an AddonKind.
func ParseAddonKind(s string) (AddonKind, bool) {
	switch s {
	case "block":
		return KindBlock, true
	case "addon":
		return KindAddon, true
	case "rule":
		return KindRule, true
	}
	return 0, false
}

// SuppressionEntry is one row of the suppression/type table. A nonterminal
// mapped with Ignore set is dropped from the output entirely; otherwise Type
// overrides the default result type of its rule.
type SuppressionEntry struct {
	Type   string // bracketed type tag, e.g. "<str>"; empty means default
	Ignore bool
	Uses   int
}

// OverrideEntry is one row of the alternative-override table, keyed by
// signature. Ignore drops the single matched alternative; otherwise
// Replacement is parsed as the new symbol sequence.
type OverrideEntry struct {
	Replacement string
	Ignore      bool
	Uses        int
}

// AddonEntry is one row of the addon table, keyed by signature.
type AddonEntry struct {
	Kind  AddonKind
	Lines []string
	Uses  int
}

// Tables holds the four patch tables for one run. Entries are built once by
// Load and never mutated afterwards except for their usage counters, which
// the integrity check finalizes.
type Tables struct {
	Renames      map[string]string
	Suppressions map[string]*SuppressionEntry
	Overrides    map[string]*OverrideEntry
	Addons       map[string]*AddonEntry

	// RenameUses counts rename hits per token. Tracked for reporting only;
	// renames carry no exactly-once obligation.
	RenameUses map[string]int
}

// NewTables returns empty tables, ready for use without any patch sources.
func NewTables() *Tables {
	return &Tables{
		Renames:      map[string]string{},
		Suppressions: map[string]*SuppressionEntry{},
		Overrides:    map[string]*OverrideEntry{},
		Addons:       map[string]*AddonEntry{},
		RenameUses:   map[string]int{},
	}
}

// Rename returns the replacement for a token name, or the name unchanged.
func (t *Tables) Rename(name string) string {
	if repl, ok := t.Renames[name]; ok {
		t.RenameUses[name]++
		return repl
	}
	return name
}

// Suppression looks up a nonterminal in the suppression/type table. The same
// lookup serves both the ignore decision and the type override; the caller
// must count a hit exactly once.
func (t *Tables) Suppression(owner string) (*SuppressionEntry, bool) {
	e, ok := t.Suppressions[owner]
	return e, ok
}

// Override looks up an alternative signature in the override table.
func (t *Tables) Override(sig string) (*OverrideEntry, bool) {
	e, ok := t.Overrides[sig]
	return e, ok
}

// Addon looks up an alternative signature in the addon table.
func (t *Tables) Addon(sig string) (*AddonEntry, bool) {
	e, ok := t.Addons[sig]
	return e, ok
}

// sortedKeys returns map keys in a stable order so diagnostics and table
// dumps are deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
