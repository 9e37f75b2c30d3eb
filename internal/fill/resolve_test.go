package fill

import (
	"strconv"
	"testing"
	"time"

	"github.com/kiraworks/borang/internal/ic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBundle() Bundle {
	return Bundle{
		Applicant: map[string]string{
			"name":    "Ahmad Faizal bin Osman",
			"ic":      "780413-07-6789",
			"phone":   "012-3456789",
			"address": "no 8 lorong damai 3",
		},
		Spouse: map[string]string{
			"name": "Siti Aminah",
			"ic":   "800101-08-1234",
			"gaji": "3200",
		},
		Job: map[string]string{
			"employer": "Jabatan Kastam",
			"salary":   "4500",
		},
		Reference: map[string]string{
			"name":         "Rahim bin Osman",
			"relationship": "Abang",
		},
	}
}

func TestResolveDirectValuesAreUpperCased(t *testing.T) {
	b := testBundle()

	tests := []struct {
		key  string
		want string
	}{
		{key: "pemohon_nama", want: "AHMAD FAIZAL BIN OSMAN"},
		{key: "pemohon_ic", want: "780413-07-6789"},
		{key: "pemohon_alamat", want: "NO 8 LORONG DAMAI 3"},
		{key: "pasangan_gaji", want: "3200"},
		{key: "pekerjaan_majikan", want: "JABATAN KASTAM"},
		{key: "saudara_pertalian", want: "ABANG"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := Resolve(tt.key, b)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDerivedFromIC(t *testing.T) {
	b := testBundle()

	dob, ok := Resolve("pemohon_tarikh_lahir", b)
	require.True(t, ok)
	assert.Equal(t, "13/04/1978", dob)

	sex, ok := Resolve("pemohon_jantina", b)
	require.True(t, ok)
	assert.Equal(t, ic.GenderMale, sex)

	age, ok := Resolve("pemohon_umur", b)
	require.True(t, ok)
	derived, derivedOK := ic.ParseAt("780413-07-6789", time.Now())
	require.True(t, derivedOK)
	assert.Equal(t, strconv.Itoa(derived.Age), age)

	spouseDOB, ok := Resolve("pasangan_tarikh_lahir", b)
	require.True(t, ok)
	assert.Equal(t, "01/01/1980", spouseDOB)
}

func TestResolveNationalityConstant(t *testing.T) {
	got, ok := Resolve("pemohon_warganegara", Bundle{})
	require.True(t, ok)
	assert.Equal(t, "MALAYSIA", got)
}

func TestResolveAbsent(t *testing.T) {
	b := Bundle{
		Applicant: map[string]string{
			"email": "   ",
			"ic":    "780413", // too short to derive from
		},
	}

	tests := []string{
		"pemohon_email",        // whitespace only
		"pemohon_tel",          // missing
		"pemohon_tarikh_lahir", // underivable IC
		"pasangan_umur",        // no spouse data at all
		"not_a_key",
	}

	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			_, ok := Resolve(key, b)
			assert.False(t, ok)
		})
	}
}

func TestResolveCoversEntireDirectTable(t *testing.T) {
	// Every entry in the direct table resolves when its source field is set.
	for key, src := range directSources {
		b := Bundle{
			Applicant: map[string]string{},
			Spouse:    map[string]string{},
			Job:       map[string]string{},
			Reference: map[string]string{},
		}
		b.section(src.section)[src.field] = "some value"

		got, ok := Resolve(key, b)
		require.True(t, ok, "key %s should resolve", key)
		assert.Equal(t, "SOME VALUE", got)
	}
}
