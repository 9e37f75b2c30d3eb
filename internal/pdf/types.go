// Package pdf implements the form engine's PDF layer: read-only field
// introspection, printed-label hints, and application of a fill plan to a
// template. Templates are never modified in place; filling always produces a
// fresh byte buffer.
package pdf

// FieldKind is the closed set of raw field kinds the filler dispatches on.
// Anything else a PDF may declare (pushbuttons, signatures) is reported as
// KindOther and skipped downstream.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindCheckbox FieldKind = "checkbox"
	KindRadio    FieldKind = "radio"
	KindDropdown FieldKind = "dropdown"
	KindOther    FieldKind = "other"
)

// Geometry locates a field's first widget annotation in PDF user space
// (origin bottom-left, Y grows upward).
type Geometry struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RawField is one fillable element as declared inside a template. It is
// derived fresh from the template binary on every introspection and never
// cached; the binary is the single source of truth for field existence.
type RawField struct {
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind"`
	MaxLen   int       `json:"max_len,omitempty"` // 0 = unbounded; text fields only
	Options  []string  `json:"options,omitempty"` // radio / dropdown choices
	Geometry *Geometry `json:"geometry,omitempty"`
	Label    string    `json:"label,omitempty"` // best-effort printed label near the widget
}
