package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsStandard(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{name: "applicant_name", key: "pemohon_nama", want: true},
		{name: "spouse_ic", key: "pasangan_ic", want: true},
		{name: "reference_relationship", key: "saudara_pertalian", want: true},
		{name: "unknown_key", key: "pemohon_xyz", want: false},
		{name: "empty_key", key: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStandard(tt.key))
		})
	}
}

func TestStandardGroups(t *testing.T) {
	validGroups := map[string]bool{
		GroupPemohon:   true,
		GroupPasangan:  true,
		GroupPekerjaan: true,
		GroupSaudara:   true,
	}

	for key, field := range Standard {
		assert.NotEmpty(t, field.Label, "key %s should have a label", key)
		assert.True(t, validGroups[field.Group], "key %s has unexpected group %s", key, field.Group)
	}
}

func TestKeysStableAndComplete(t *testing.T) {
	keys := Keys()
	assert.Len(t, keys, len(Standard))
	assert.Equal(t, keys, Keys(), "ordering should be deterministic")

	// Applicant keys come before reference keys.
	pos := make(map[string]int, len(keys))
	for i, k := range keys {
		pos[k] = i
	}
	assert.Less(t, pos["pemohon_nama"], pos["saudara_nama"])
	assert.Less(t, pos["pasangan_ic"], pos["pekerjaan_majikan"])
}
