package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(t.TempDir())
	require.NoError(t, err)
	return r
}

func TestCreateAndGet(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Create("pinjaman-peribadi", "PINJAMAN PERIBADI", "pinjaman-peribadi.pdf"))

	got, err := r.Get("pinjaman-peribadi")
	require.NoError(t, err)
	assert.Equal(t, "PINJAMAN PERIBADI", got.Label)
	assert.Equal(t, "pinjaman-peribadi.pdf", got.File)
	assert.Empty(t, got.FieldMap)
}

func TestCreateDuplicateKey(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Create("prod", "PROD", "prod.pdf"))
	err := r.Create("prod", "PROD AGAIN", "prod2.pdf")
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestGetUnknown(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestSaveFieldMapRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Create("prod", "PROD", "prod.pdf"))

	stored, err := r.SaveFieldMap("prod", map[string]string{
		"Text1":    "pemohon_nama",
		"Text2":    "pemohon_alamat",
		"Text3":    "not_a_real_key", // dropped
		"Text4":    "  pasangan_ic  ",
		"Checkbox": "",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stored)

	got, err := r.Get("prod")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Text1": "pemohon_nama",
		"Text2": "pemohon_alamat",
		"Text4": "pasangan_ic",
	}, got.FieldMap)
}

func TestSaveFieldMapReplacesWholesale(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Create("prod", "PROD", "prod.pdf"))

	_, err := r.SaveFieldMap("prod", map[string]string{"A": "pemohon_nama", "B": "pemohon_ic"})
	require.NoError(t, err)
	_, err = r.SaveFieldMap("prod", map[string]string{"C": "saudara_tel"})
	require.NoError(t, err)

	got, err := r.Get("prod")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"C": "saudara_tel"}, got.FieldMap)
}

func TestSaveFieldMapUnknownTemplate(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.SaveFieldMap("ghost", map[string]string{"A": "pemohon_nama"})
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestDeleteRemovesBinaryAndIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)

	pdfPath := filepath.Join(r.Dir(), "prod.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o640))
	require.NoError(t, r.Create("prod", "PROD", "prod.pdf"))

	require.NoError(t, r.Delete("prod"))
	_, err := os.Stat(pdfPath)
	assert.True(t, os.IsNotExist(err))

	// Second delete of the same key is a no-op.
	require.NoError(t, r.Delete("prod"))

	templates, err := r.List()
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestListSurvivesReopenInCreationOrder(t *testing.T) {
	dir := t.TempDir()

	r, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, r.Create("b-prod", "B", "b.pdf"))
	require.NoError(t, r.Create("a-prod", "A", "a.pdf"))
	require.NoError(t, r.Create("c-prod", "C", "c.pdf"))

	// A later mutation rewrites the document; order must still hold.
	_, err = r.SaveFieldMap("a-prod", map[string]string{"Text1": "pemohon_nama"})
	require.NoError(t, err)

	reopened, err := New(dir)
	require.NoError(t, err)
	templates, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, templates, 3)
	assert.Equal(t, "b-prod", templates[0].Key)
	assert.Equal(t, "a-prod", templates[1].Key)
	assert.Equal(t, "c-prod", templates[2].Key)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		wantKey   string
		wantLabel string
	}{
		{
			name:      "underscores_and_hyphens",
			filename:  "Pinjaman_Peribadi-2024.pdf",
			wantKey:   "pinjaman-peribadi-2024",
			wantLabel: "PINJAMAN PERIBADI 2024",
		},
		{
			name:      "path_is_stripped",
			filename:  "/tmp/uploads/Borang Koperasi.pdf",
			wantKey:   "borang-koperasi",
			wantLabel: "BORANG KOPERASI",
		},
		{
			name:      "special_chars_dropped_from_key",
			filename:  "Loan (v2).pdf",
			wantKey:   "loan-v2",
			wantLabel: "LOAN (V2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, label := Slugify(tt.filename)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}
