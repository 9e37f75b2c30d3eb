package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixturePath returns the sample form template, skipping the test when the
// fixture is absent.
func fixturePath(t *testing.T) string {
	t.Helper()
	path := filepath.Join("testdata", "fillable-form.pdf")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("Test file %s not found", path)
	}
	return path
}

func TestListFieldsMissingFile(t *testing.T) {
	inspector := NewInspector(nil)

	_, err := inspector.ListFields(filepath.Join(t.TempDir(), "absent.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open template")
}

func TestListFieldsNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	inspector := NewInspector(nil)
	_, err := inspector.ListFields(path)
	require.Error(t, err)
}

func TestApplyMissingFile(t *testing.T) {
	filler := NewFiller(nil)

	_, _, err := filler.Apply(filepath.Join(t.TempDir(), "absent.pdf"), &Plan{}, false)
	require.Error(t, err)
}

func TestApplyNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	filler := NewFiller(nil)
	_, _, err := filler.Apply(path, &Plan{}, false)
	require.Error(t, err)
}

func TestListFieldsFixture(t *testing.T) {
	path := fixturePath(t)

	inspector := NewInspector(nil)
	fields, err := inspector.ListFields(path)
	require.NoError(t, err)
	require.Len(t, fields, 3)

	byName := map[string]RawField{}
	for _, f := range fields {
		assert.NotEmpty(t, f.Name)
		byName[f.Name] = f
	}

	nama, ok := byName["NamaRow1"]
	require.True(t, ok)
	assert.Equal(t, KindText, nama.Kind)
	assert.Equal(t, 20, nama.MaxLen)
	require.NotNil(t, nama.Geometry)
	assert.Equal(t, 1, nama.Geometry.Page)
	assert.InDelta(t, 120.0, nama.Geometry.X, 0.01)
	assert.InDelta(t, 700.0, nama.Geometry.Y, 0.01)
	assert.InDelta(t, 280.0, nama.Geometry.Width, 0.01)
	assert.InDelta(t, 16.0, nama.Geometry.Height, 0.01)

	alamat, ok := byName["Alamat"]
	require.True(t, ok)
	assert.Equal(t, KindText, alamat.Kind)
	assert.Equal(t, 0, alamat.MaxLen)

	setuju, ok := byName["Setuju"]
	require.True(t, ok)
	assert.Equal(t, KindCheckbox, setuju.Kind)
	require.NotNil(t, setuju.Geometry)
	assert.Equal(t, 1, setuju.Geometry.Page)
}

func TestApplyFixtureRoundTrip(t *testing.T) {
	path := fixturePath(t)

	plan := &Plan{
		Text: map[string]string{
			"NamaRow1": "AHMAD FAIZAL",
			"Alamat":   "NO 8 LORONG DAMAI 3",
		},
		Checks:  map[string]bool{"Setuju": true},
		Choices: map[string]string{},
	}

	filler := NewFiller(nil)
	data, warnings, err := filler.Apply(path, plan, false)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	out := filepath.Join(t.TempDir(), "filled.pdf")
	require.NoError(t, os.WriteFile(out, data, 0o644))

	// The output must introspect like the input.
	inspector := NewInspector(nil)
	fields, err := inspector.ListFields(out)
	require.NoError(t, err)
	require.Len(t, fields, 3)

	ctx := readContext(t, out)

	v, ok := fieldValue(t, ctx, "NamaRow1")
	require.True(t, ok)
	assert.Equal(t, "AHMAD FAIZAL", v)

	v, ok = fieldValue(t, ctx, "Alamat")
	require.True(t, ok)
	assert.Equal(t, "NO 8 LORONG DAMAI 3", v)

	dict := fieldDict(t, ctx, "Setuju")
	assert.Equal(t, types.Name("Ya"), dict["V"])
	assert.Equal(t, types.Name("Ya"), dict["AS"])

	assert.True(t, needAppearances(t, ctx), "NeedAppearances should be set on the output")
}

func TestApplyFixtureFieldKindMismatch(t *testing.T) {
	path := fixturePath(t)

	// A checkbox write aimed at a text field must be skipped with a warning,
	// not abort the fill.
	plan := &Plan{
		Text:    map[string]string{"Alamat": "NO 8 LORONG DAMAI 3"},
		Checks:  map[string]bool{"NamaRow1": true},
		Choices: map[string]string{},
	}

	filler := NewFiller(nil)
	data, warnings, err := filler.Apply(path, plan, false)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "NamaRow1")

	out := filepath.Join(t.TempDir(), "filled.pdf")
	require.NoError(t, os.WriteFile(out, data, 0o644))

	ctx := readContext(t, out)
	v, ok := fieldValue(t, ctx, "Alamat")
	require.True(t, ok)
	assert.Equal(t, "NO 8 LORONG DAMAI 3", v)
}

func TestApplyFixtureFlattenLocksFields(t *testing.T) {
	path := fixturePath(t)

	plan := &Plan{
		Text:    map[string]string{"NamaRow1": "AHMAD FAIZAL"},
		Checks:  map[string]bool{},
		Choices: map[string]string{},
	}

	filler := NewFiller(nil)
	data, warnings, err := filler.Apply(path, plan, true)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	out := filepath.Join(t.TempDir(), "flattened.pdf")
	require.NoError(t, os.WriteFile(out, data, 0o644))

	ctx := readContext(t, out)
	for _, name := range []string{"NamaRow1", "Alamat", "Setuju"} {
		dict := fieldDict(t, ctx, name)
		flagsObj, found := dict.Find("Ff")
		require.True(t, found, "field %s should carry flags after locking", name)
		flags, err := ctx.DereferenceInteger(flagsObj)
		require.NoError(t, err)
		require.NotNil(t, flags)
		assert.NotZero(t, *flags&1, "field %s should be read-only", name)
	}
}

func readContext(t *testing.T, path string) *model.Context {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(file, conf)
	require.NoError(t, err)
	require.NoError(t, ctx.EnsurePageCount())
	return ctx
}

func fieldDict(t *testing.T, ctx *model.Context, name string) types.Dict {
	t.Helper()
	entries, err := formFieldDicts(ctx)
	require.NoError(t, err)
	for _, entry := range entries {
		nameObj, found := entry.dict.Find("T")
		if !found {
			continue
		}
		if n, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil && n == name {
			return entry.dict
		}
	}
	t.Fatalf("field %q not found", name)
	return nil
}

func fieldValue(t *testing.T, ctx *model.Context, name string) (string, bool) {
	t.Helper()
	dict := fieldDict(t, ctx, name)
	valueObj, found := dict.Find("V")
	if !found {
		return "", false
	}
	v, err := ctx.DereferenceStringOrHexLiteral(valueObj, model.V10, nil)
	if err != nil {
		return "", false
	}
	return v, true
}

func needAppearances(t *testing.T, ctx *model.Context) bool {
	t.Helper()
	rootDict, err := ctx.Catalog()
	require.NoError(t, err)
	acroFormObj, found := rootDict.Find("AcroForm")
	require.True(t, found)
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	require.NoError(t, err)
	obj, found := acroFormDict.Find("NeedAppearances")
	if !found {
		return false
	}
	b, ok := obj.(types.Boolean)
	return ok && bool(b)
}

// The label-hint pass is best-effort: it must never fail introspection, even
// for documents whose text cannot be extracted.
func TestFieldLabelsToleratesUnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 garbage"), 0o644))

	hints := fieldLabels(path, []RawField{{Name: "X", Geometry: &Geometry{Page: 1}}})
	assert.Nil(t, hints)
}

func TestFixtureLabelHint(t *testing.T) {
	path := fixturePath(t)

	inspector := NewInspector(nil)
	fields, err := inspector.ListFields(path)
	require.NoError(t, err)

	// The sample prints "Nama :" left of the first row. Text extraction is
	// best-effort, so only check the hint when one was produced.
	for _, f := range fields {
		if f.Name == "NamaRow1" && f.Label != "" {
			assert.True(t, strings.HasPrefix(f.Label, "Nama"),
				"unexpected hint %q", f.Label)
		}
	}
}
