package pdf

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"
)

// Filler applies a Plan to a template, producing a new document buffer. The
// template file itself is opened read-only and never rewritten.
type Filler struct {
	log *zap.Logger
}

// NewFiller creates a Filler. A nil logger disables logging.
func NewFiller(log *zap.Logger) *Filler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Filler{log: log}
}

// Apply writes the plan's values into the template at path and returns the
// resulting bytes. A field that rejects its value is skipped with a recorded
// warning; it never aborts the fill. With flatten, every form field in the
// output is locked so the document can no longer be edited (pdfcpu offers no
// content-level flattening; locking is the closest irreversible equivalent).
func (fl *Filler) Apply(path string, plan *Plan, flatten bool) ([]byte, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	warnings := append([]string(nil), plan.Warnings...)

	entries, err := formFieldDicts(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, entry := range entries {
		name := ""
		if nameObj, found := entry.dict.Find("T"); found {
			if n, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
				name = n
			}
		}
		if name == "" {
			continue
		}

		if err := fl.applyField(ctx, entry, name, plan); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to fill %q: %v", name, err))
			fl.log.Warn("field fill failed", zap.String("field", name), zap.Error(err))
		}
	}

	// Ask viewers to regenerate text appearances for the values we set.
	if err := setNeedAppearances(ctx); err != nil {
		return nil, nil, err
	}

	var filled bytes.Buffer
	if err := api.WriteContext(ctx, &filled); err != nil {
		return nil, nil, fmt.Errorf("failed to write filled document: %w", err)
	}

	if !flatten {
		return filled.Bytes(), warnings, nil
	}

	var locked bytes.Buffer
	if err := api.LockFormFields(bytes.NewReader(filled.Bytes()), &locked, nil, conf); err != nil {
		return nil, nil, fmt.Errorf("failed to flatten document: %w", err)
	}
	return locked.Bytes(), warnings, nil
}

// applyField writes one field's planned value, dispatching on the plan entry
// rather than re-deriving the field type.
func (fl *Filler) applyField(ctx *model.Context, entry fieldEntry, name string, plan *Plan) error {
	if value, ok := plan.Text[name]; ok {
		if fieldKind(ctx, entry.dict) != KindText {
			return fmt.Errorf("not a text field")
		}
		return setTextValue(entry.dict, value)
	}

	if checked, ok := plan.Checks[name]; ok {
		if fieldKind(ctx, entry.dict) != KindCheckbox {
			return fmt.Errorf("not a checkbox")
		}
		return setCheckboxValue(ctx, entry.dict, checked)
	}

	if option, ok := plan.Choices[name]; ok {
		switch fieldKind(ctx, entry.dict) {
		case KindRadio:
			return setRadioValue(ctx, entry, option)
		case KindDropdown:
			return setTextValue(entry.dict, option)
		default:
			return fmt.Errorf("not a choice field")
		}
	}

	return nil
}

// setTextValue sets the field's V entry to an escaped string literal and
// drops any stale appearance stream.
func setTextValue(fieldDict types.Dict, value string) error {
	escaped, err := types.Escape(value)
	if err != nil {
		return fmt.Errorf("failed to escape value: %w", err)
	}
	fieldDict["V"] = types.StringLiteral(*escaped)
	delete(fieldDict, "AP")
	return nil
}

// setCheckboxValue sets V and AS to the widget's on state, or Off.
func setCheckboxValue(ctx *model.Context, fieldDict types.Dict, checked bool) error {
	state := "Off"
	if checked {
		states := widgetOnStates(ctx, fieldDict)
		if len(states) == 0 {
			states = []string{"Yes"}
		}
		state = states[0]
	}
	fieldDict["V"] = types.Name(state)
	fieldDict["AS"] = types.Name(state)
	return nil
}

// setRadioValue selects the kid widget whose on state equals option.
func setRadioValue(ctx *model.Context, entry fieldEntry, option string) error {
	selected := false
	for _, kid := range entry.fields {
		kidDict, err := ctx.DereferenceDict(kid)
		if err != nil || kidDict == nil {
			continue
		}
		on := false
		for _, state := range widgetOnStates(ctx, kidDict) {
			if state == option {
				on = true
				break
			}
		}
		if on {
			kidDict["AS"] = types.Name(option)
			selected = true
		} else {
			kidDict["AS"] = types.Name("Off")
		}
	}
	if !selected {
		return fmt.Errorf("option %q not offered", option)
	}
	entry.dict["V"] = types.Name(option)
	return nil
}

func setNeedAppearances(ctx *model.Context) error {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}
	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil || acroFormDict == nil {
		return nil
	}
	acroFormDict["NeedAppearances"] = types.Boolean(true)
	return nil
}
