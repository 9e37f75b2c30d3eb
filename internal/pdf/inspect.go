package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"
)

// Inspector enumerates the raw form fields of a PDF template. The source file
// is opened read-only and never written to.
type Inspector struct {
	log *zap.Logger
}

// NewInspector creates an Inspector. A nil logger disables logging.
func NewInspector(log *zap.Logger) *Inspector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inspector{log: log}
}

// ListFields returns every raw field declared in the template's AcroForm,
// with kind, declared maximum length, options and first-widget geometry.
// Fields without a widget placement get a nil Geometry.
func (in *Inspector) ListFields(path string) ([]RawField, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	fieldDicts, err := formFieldDicts(ctx)
	if err != nil {
		return nil, err
	}

	pageIndex := annotationPageIndex(ctx)

	fields := make([]RawField, 0, len(fieldDicts))
	for i, fd := range fieldDicts {
		field := describeField(ctx, fd, pageIndex)
		if field.Name == "" {
			field.Name = fmt.Sprintf("field_%d", i)
		}
		fields = append(fields, field)
	}

	if hints := fieldLabels(path, fields); hints != nil {
		for i := range fields {
			fields[i].Label = hints[fields[i].Name]
		}
	}

	in.log.Debug("introspected template",
		zap.String("path", path),
		zap.Int("fields", len(fields)))

	return fields, nil
}

// fieldEntry pairs a field dictionary with the indirect ref it came from, so
// widget annotations can be matched back to a page.
type fieldEntry struct {
	dict   types.Dict
	objNr  int
	fields types.Array // Kids, if any
}

// formFieldDicts resolves the AcroForm Fields array into field entries.
// A document without an AcroForm simply has no fields.
func formFieldDicts(ctx *model.Context) ([]fieldEntry, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	var entries []fieldEntry
	for _, obj := range fieldsArray {
		objNr := 0
		if ir, ok := obj.(types.IndirectRef); ok {
			objNr = ir.ObjectNumber.Value()
		}
		dict, err := ctx.DereferenceDict(obj)
		if err != nil || dict == nil {
			continue
		}
		entry := fieldEntry{dict: dict, objNr: objNr}
		if kidsObj, found := dict.Find("Kids"); found {
			if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
				entry.fields = kids
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// annotationPageIndex maps annotation object numbers to 1-based page numbers
// by walking each page's Annots array.
func annotationPageIndex(ctx *model.Context) map[int]int {
	index := map[int]int{}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageDict, _, _, err := ctx.PageDict(pageNr, false)
		if err != nil || pageDict == nil {
			continue
		}
		annotsObj, found := pageDict.Find("Annots")
		if !found {
			continue
		}
		annots, err := ctx.DereferenceArray(annotsObj)
		if err != nil {
			continue
		}
		for _, a := range annots {
			if ir, ok := a.(types.IndirectRef); ok {
				index[ir.ObjectNumber.Value()] = pageNr
			}
		}
	}
	return index
}

// describeField turns one field dictionary into a RawField.
func describeField(ctx *model.Context, entry fieldEntry, pageIndex map[int]int) RawField {
	field := RawField{Kind: KindOther}

	if nameObj, found := entry.dict.Find("T"); found {
		if name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			field.Name = name
		}
	}

	field.Kind = fieldKind(ctx, entry.dict)

	if field.Kind == KindText {
		if maxLenObj, found := entry.dict.Find("MaxLen"); found {
			if maxLen, err := ctx.DereferenceInteger(maxLenObj); err == nil && maxLen != nil {
				field.MaxLen = int(*maxLen)
			}
		}
	}

	switch field.Kind {
	case KindDropdown:
		field.Options = choiceOptions(ctx, entry.dict)
	case KindRadio:
		field.Options = radioOptions(ctx, entry.dict)
	}

	field.Geometry = fieldGeometry(ctx, entry, pageIndex)

	return field
}

// fieldKind maps the field's FT entry (with button flags) onto the closed
// FieldKind set, checking the parent chain for an inherited FT.
func fieldKind(ctx *model.Context, fieldDict types.Dict) FieldKind {
	ftObj, found := fieldDict.Find("FT")
	if !found {
		if parentObj, found := fieldDict.Find("Parent"); found {
			if parentDict, err := ctx.DereferenceDict(parentObj); err == nil && parentDict != nil {
				return fieldKind(ctx, parentDict)
			}
		}
		return KindOther
	}

	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return KindOther
	}

	switch ftName {
	case "Tx":
		return KindText
	case "Ch":
		return KindDropdown
	case "Btn":
		if flagsObj, found := fieldDict.Find("Ff"); found {
			if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
				switch {
				case *flags&(1<<15) != 0: // radio
					return KindRadio
				case *flags&(1<<16) != 0: // pushbutton
					return KindOther
				}
			}
		}
		return KindCheckbox
	default:
		return KindOther
	}
}

// choiceOptions reads a choice field's Opt array. Entries may be strings or
// [export, display] pairs; the export value is what fill matches against.
func choiceOptions(ctx *model.Context, fieldDict types.Dict) []string {
	optObj, found := fieldDict.Find("Opt")
	if !found {
		return nil
	}
	optArray, err := ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}

	var options []string
	for _, opt := range optArray {
		if str, err := ctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
			options = append(options, str)
			continue
		}
		if pair, err := ctx.DereferenceArray(opt); err == nil && len(pair) >= 1 {
			if exportVal, err := ctx.DereferenceStringOrHexLiteral(pair[0], model.V10, nil); err == nil {
				options = append(options, exportVal)
			}
		}
	}
	return options
}

// radioOptions collects a radio group's on-state names from its kids'
// appearance dictionaries, falling back to Opt.
func radioOptions(ctx *model.Context, fieldDict types.Dict) []string {
	var options []string
	seen := map[string]bool{}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kids {
				kidDict, err := ctx.DereferenceDict(kid)
				if err != nil || kidDict == nil {
					continue
				}
				for _, state := range widgetOnStates(ctx, kidDict) {
					if !seen[state] {
						seen[state] = true
						options = append(options, state)
					}
				}
			}
		}
	}

	if len(options) == 0 {
		options = choiceOptions(ctx, fieldDict)
	}
	return options
}

// widgetOnStates returns the non-Off state names of a widget's normal
// appearance dictionary.
func widgetOnStates(ctx *model.Context, widgetDict types.Dict) []string {
	apObj, found := widgetDict.Find("AP")
	if !found {
		return nil
	}
	apDict, err := ctx.DereferenceDict(apObj)
	if err != nil || apDict == nil {
		return nil
	}
	nObj, found := apDict.Find("N")
	if !found {
		return nil
	}
	nDict, err := ctx.DereferenceDict(nObj)
	if err != nil || nDict == nil {
		return nil
	}

	var states []string
	for name := range nDict {
		if name != "Off" {
			states = append(states, name)
		}
	}
	return states
}

// fieldGeometry reads the first widget's Rect and page. Merged field/widget
// dictionaries carry their own Rect; otherwise the first kid is used.
func fieldGeometry(ctx *model.Context, entry fieldEntry, pageIndex map[int]int) *Geometry {
	if rectObj, found := entry.dict.Find("Rect"); found {
		return geometryFromRect(ctx, rectObj, pageIndex[entry.objNr])
	}

	for _, kid := range entry.fields {
		objNr := 0
		if ir, ok := kid.(types.IndirectRef); ok {
			objNr = ir.ObjectNumber.Value()
		}
		kidDict, err := ctx.DereferenceDict(kid)
		if err != nil || kidDict == nil {
			continue
		}
		if rectObj, found := kidDict.Find("Rect"); found {
			return geometryFromRect(ctx, rectObj, pageIndex[objNr])
		}
	}
	return nil
}

func geometryFromRect(ctx *model.Context, rectObj types.Object, pageNr int) *Geometry {
	rectArray, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(rectArray) != 4 {
		return nil
	}

	coords := make([]float64, 4)
	for i, coord := range rectArray {
		f, err := ctx.DereferenceNumber(coord)
		if err != nil {
			return nil
		}
		coords[i] = f
	}

	if pageNr == 0 {
		// Widget not matched against any Annots array; form fields most
		// commonly sit on the first page.
		pageNr = 1
	}

	return &Geometry{
		Page:   pageNr,
		X:      coords[0],
		Y:      coords[1],
		Width:  coords[2] - coords[0],
		Height: coords[3] - coords[1],
	}
}
