package pdf

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultSplitWidth is the per-field character budget used when a value is
// distributed across unbounded text fields. It approximates one printed row
// of the supported document family and can be overridden via configuration.
const DefaultSplitWidth = 50

// affirmative is the set of values that check a checkbox.
var affirmative = map[string]bool{
	"yes":  true,
	"true": true,
	"ya":   true,
	"1":    true,
}

// Values resolves a semantic key to its concrete string value. ok is false
// when the value is absent.
type Values func(semanticKey string) (value string, ok bool)

// Plan is the complete set of per-field writes for one fill operation. Raw
// fields not mentioned in the plan are left untouched.
type Plan struct {
	Text     map[string]string // raw field name -> text value
	Checks   map[string]bool   // raw field name -> checked state
	Choices  map[string]string // raw field name -> selected option
	Warnings []string
}

// Fills reports the total number of fields the plan writes to.
func (p *Plan) Fills() int {
	return len(p.Text) + len(p.Checks) + len(p.Choices)
}

// BuildPlan computes which raw field receives what, given a template's field
// map, its introspected raw fields and a value resolver.
//
// Entries mapped to the same semantic key form a group. Groups of more than
// one field are re-sorted by the vertical position of each field's widget,
// top of page first, so that text is distributed in reading order no matter
// how the fields were declared or mapped. Text values are chained across
// length-bounded fields at word boundaries, or split at a fixed width across
// groups of unbounded fields; see distributeText.
func BuildPlan(fieldMap map[string]string, fields []RawField, resolve Values, splitWidth int) *Plan {
	if splitWidth <= 0 {
		splitWidth = DefaultSplitWidth
	}

	plan := &Plan{
		Text:    map[string]string{},
		Checks:  map[string]bool{},
		Choices: map[string]string{},
	}

	byName := make(map[string]*RawField, len(fields))
	for i := range fields {
		byName[fields[i].Name] = &fields[i]
	}

	groups := map[string][]*RawField{}
	for _, rawName := range sortedKeys(fieldMap) {
		semKey := fieldMap[rawName]
		if semKey == "" {
			continue
		}
		field, ok := byName[rawName]
		if !ok {
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("mapped field %q not present in template", rawName))
			continue
		}
		groups[semKey] = append(groups[semKey], field)
	}

	for _, semKey := range sortedKeys(groups) {
		group := groups[semKey]
		orderTopToBottom(group)

		value, ok := resolve(semKey)
		if !ok {
			continue
		}

		var bounded, free []*RawField
		for _, f := range group {
			switch f.Kind {
			case KindCheckbox:
				plan.Checks[f.Name] = affirmative[strings.ToLower(value)]
			case KindRadio, KindDropdown:
				if opt, ok := matchOption(value, f.Options); ok {
					plan.Choices[f.Name] = opt
				}
			case KindText:
				if f.MaxLen > 0 {
					bounded = append(bounded, f)
				} else {
					free = append(free, f)
				}
			default:
				// KindOther is never written to.
			}
		}

		distributeText(plan, value, bounded, free, splitWidth)
	}

	return plan
}

// orderTopToBottom sorts a group of more than one field by descending widget
// Y (PDF Y grows upward, so higher Y means higher on the page). Fields
// without geometry sit out of the ordering: they keep their slots while the
// positioned fields sort among themselves. The sort is stable, so equal-Y
// fields keep their relative order.
func orderTopToBottom(group []*RawField) {
	if len(group) <= 1 {
		return
	}

	var placed []*RawField
	for _, f := range group {
		if f.Geometry != nil {
			placed = append(placed, f)
		}
	}
	sort.SliceStable(placed, func(i, j int) bool {
		return placed[i].Geometry.Y > placed[j].Geometry.Y
	})

	next := 0
	for i, f := range group {
		if f.Geometry != nil {
			group[i] = placed[next]
			next++
		}
	}
}

// matchOption finds the option equal to value, exact first, then
// case-insensitive.
func matchOption(value string, options []string) (string, bool) {
	for _, opt := range options {
		if opt == value {
			return opt, true
		}
	}
	for _, opt := range options {
		if strings.EqualFold(opt, value) {
			return opt, true
		}
	}
	return "", false
}

// distributeText assigns value to the text fields of one group.
//
// Bounded fields always chain: each receives the longest word-bounded chunk
// that fits its own declared maximum length, the remainder flows to the next
// bounded field in order, and whatever is left after the last field is
// dropped. A lone bounded field therefore truncates silently at the last word
// boundary at or before its cap.
//
// Free fields split at splitWidth only when the group is two or more free
// fields with no bounded ones; a single free field, or free fields mixed with
// bounded ones, each receive an independent full copy of the value.
func distributeText(plan *Plan, value string, bounded, free []*RawField, splitWidth int) {
	if len(free) > 0 {
		if len(bounded) > 0 || len(free) == 1 {
			for _, f := range free {
				plan.Text[f.Name] = value
			}
		} else {
			remaining := value
			for _, f := range free {
				if remaining == "" {
					break
				}
				var chunk string
				chunk, remaining = cutAtWidth(remaining, splitWidth)
				plan.Text[f.Name] = chunk
			}
		}
	}

	remaining := value
	for _, f := range bounded {
		if remaining == "" {
			break
		}
		var chunk string
		chunk, remaining = cutAtCap(remaining, f.MaxLen)
		plan.Text[f.Name] = chunk
	}
}

// cutAtWidth cuts at the last space at or before width, hard-cutting when the
// leading run has no space at all. Both the chunk and the remainder are
// trimmed around the cut.
func cutAtWidth(s string, width int) (chunk, remainder string) {
	if len(s) <= width {
		return s, ""
	}
	cut := strings.LastIndex(s[:width+1], " ")
	if cut <= 0 {
		cut = width
	}
	return strings.TrimSpace(s[:cut]), strings.TrimSpace(s[cut:])
}

// cutAtCap cuts so the chunk never exceeds maxLen. When the cut would land
// mid-word, it backs up to the last space inside the chunk; a chunk with no
// space is hard-cut at maxLen.
func cutAtCap(s string, maxLen int) (chunk, remainder string) {
	if len(s) <= maxLen {
		return s, ""
	}

	chunk = s[:maxLen]
	next := s[maxLen]
	if next != ' ' && !strings.HasSuffix(chunk, " ") {
		if lastSpace := strings.LastIndex(chunk, " "); lastSpace > 0 {
			return chunk[:lastSpace], s[lastSpace+1:]
		}
		return chunk, s[maxLen:]
	}
	return strings.TrimRight(chunk, " "), strings.TrimLeft(s[maxLen:], " ")
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
