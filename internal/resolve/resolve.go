// Package resolve maps messy spreadsheet headers onto canonical field names.
//
// Source sheets arrive with inconsistent capitalization, punctuation, and
// spacing for the same column ("Invoice Date", "invoice_date",
// "INVOICE.DATE"). The resolver reduces headers and aliases to a normalized
// key and matches in two phases: exact key equality first, then substring
// containment. Exact matches always win over substring matches, and alias
// order breaks ties.
//
// Resolution never fails: a field with no plausible header is simply absent
// from the result, and callers must treat every lookup as optional.
package resolve

import "strings"

// Field is a canonical column identity with its accepted spellings.
// The canonical Name is always tried first; Aliases follow in declared order.
type Field struct {
	Name    string
	Aliases []string
}

// Mapping associates canonical field names with the raw header chosen for
// each. Built once per loaded sheet and never mutated afterward.
type Mapping map[string]string

// Header returns the raw header resolved for a canonical field.
func (m Mapping) Header(field string) (string, bool) {
	h, ok := m[field]
	return h, ok
}

// NormalizeKey reduces a header or alias to its comparison form: lowercase
// with every rune outside [a-z0-9] removed. Two headers name the same field
// when their normalized keys are equal or one contains the other.
func NormalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// candidates returns the spellings to try, canonical name first.
func (f Field) candidates() []string {
	out := make([]string, 0, len(f.Aliases)+1)
	out = append(out, f.Name)
	out = append(out, f.Aliases...)
	return out
}

// Resolve picks the header from headers that most plausibly carries field.
// Returns false when nothing matches.
//
// Phase 1 checks each candidate spelling for an exact normalized-key match.
// When two raw headers normalize to the same key, the later one wins the
// lookup slot. Phase 2, reached only when phase 1 finds nothing, scans
// candidates in order against headers in sheet order and matches on
// substring containment in either direction.
//
// Empty normalized keys never match: a blank or all-punctuation header
// normalizes to "", which is a substring of everything and would otherwise
// claim the first field asked for.
func Resolve(headers []string, field Field) (string, bool) {
	byKey := make(map[string]string, len(headers))
	for _, h := range headers {
		if k := NormalizeKey(h); k != "" {
			byKey[k] = h
		}
	}

	candidates := field.candidates()

	for _, alias := range candidates {
		k := NormalizeKey(alias)
		if k == "" {
			continue
		}
		if h, ok := byKey[k]; ok {
			return h, true
		}
	}

	for _, alias := range candidates {
		ak := NormalizeKey(alias)
		if ak == "" {
			continue
		}
		for _, h := range headers {
			hk := NormalizeKey(h)
			if hk == "" {
				continue
			}
			if strings.Contains(hk, ak) || strings.Contains(ak, hk) {
				return h, true
			}
		}
	}

	return "", false
}

// ResolveAll resolves every field against the same header list, in the
// order given. Fields are independent: matched headers are not removed
// from the pool, so two fields may legally land on the same raw header.
func ResolveAll(headers []string, fields []Field) Mapping {
	m := make(Mapping, len(fields))
	for _, f := range fields {
		if h, ok := Resolve(headers, f); ok {
			m[f.Name] = h
		}
	}
	return m
}
