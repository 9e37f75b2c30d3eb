// Package catalog defines the fixed set of semantic field keys that raw PDF
// form fields can be mapped to. The catalog matches exactly what the
// submission form collects and is never mutated at runtime.
package catalog

import "sort"

// Field describes one semantic key's display metadata.
type Field struct {
	Label string `json:"label"`
	Group string `json:"group"`
}

// Display groups, in form order.
const (
	GroupPemohon   = "Pemohon"
	GroupPasangan  = "Pasangan"
	GroupPekerjaan = "Pekerjaan"
	GroupSaudara   = "Saudara"
)

// Standard maps every semantic key to its label and group.
var Standard = map[string]Field{
	// PEMOHON (Applicant)
	"pemohon_nama":           {Label: "Nama Pemohon", Group: GroupPemohon},
	"pemohon_ic":             {Label: "No KP Pemohon", Group: GroupPemohon},
	"pemohon_tarikh_lahir":   {Label: "Tarikh Lahir Pemohon", Group: GroupPemohon},
	"pemohon_jantina":        {Label: "Jantina (L/P)", Group: GroupPemohon},
	"pemohon_umur":           {Label: "Umur Pemohon", Group: GroupPemohon},
	"pemohon_warganegara":    {Label: "Warganegara", Group: GroupPemohon},
	"pemohon_tel":            {Label: "No Tel Pemohon", Group: GroupPemohon},
	"pemohon_email":          {Label: "Email Pemohon", Group: GroupPemohon},
	"pemohon_alamat":         {Label: "Alamat Pemohon", Group: GroupPemohon},
	"pemohon_tanggungan":     {Label: "Bil Tanggungan", Group: GroupPemohon},
	"pemohon_pendidikan":     {Label: "Taraf Pendidikan", Group: GroupPemohon},
	"pemohon_jenis_kediaman": {Label: "Jenis Kediaman", Group: GroupPemohon},
	"pemohon_tempoh_menetap": {Label: "Tempoh Menetap", Group: GroupPemohon},
	"pemohon_nama_ibu":       {Label: "Nama Ibu", Group: GroupPemohon},
	"pemohon_ic_ibu":         {Label: "No KP Ibu", Group: GroupPemohon},
	"pemohon_alamat_ibu":     {Label: "Alamat Ibu", Group: GroupPemohon},

	// PASANGAN (Spouse)
	"pasangan_nama":           {Label: "Nama Pasangan", Group: GroupPasangan},
	"pasangan_ic":             {Label: "No KP Pasangan", Group: GroupPasangan},
	"pasangan_tarikh_lahir":   {Label: "Tarikh Lahir Pasangan", Group: GroupPasangan},
	"pasangan_umur":           {Label: "Umur Pasangan", Group: GroupPasangan},
	"pasangan_jawatan":        {Label: "Jawatan Pasangan", Group: GroupPasangan},
	"pasangan_alamat_majikan": {Label: "Alamat Majikan Pasangan", Group: GroupPasangan},
	"pasangan_tel_pejabat":    {Label: "Tel Pejabat Pasangan", Group: GroupPasangan},
	"pasangan_tel":            {Label: "Tel Bimbit Pasangan", Group: GroupPasangan},
	"pasangan_gaji":           {Label: "Gaji Pasangan", Group: GroupPasangan},

	// PEKERJAAN (Job)
	"pekerjaan_majikan":          {Label: "Nama Majikan", Group: GroupPekerjaan},
	"pekerjaan_alamat":           {Label: "Alamat Majikan", Group: GroupPekerjaan},
	"pekerjaan_jawatan":          {Label: "Jawatan Pemohon", Group: GroupPekerjaan},
	"pekerjaan_tarikh_mula":      {Label: "Tarikh Mula Berkhidmat", Group: GroupPekerjaan},
	"pekerjaan_tel":              {Label: "Tel Pejabat", Group: GroupPekerjaan},
	"pekerjaan_gaji":             {Label: "Gaji Pemohon", Group: GroupPekerjaan},
	"pekerjaan_payslip_password": {Label: "ANM/Payslip Password", Group: GroupPekerjaan},
	"pekerjaan_hrmis_password":   {Label: "HRMIS Password", Group: GroupPekerjaan},

	// SAUDARA TERDEKAT (Reference)
	"saudara_nama":      {Label: "Nama Saudara", Group: GroupSaudara},
	"saudara_alamat":    {Label: "Alamat Saudara", Group: GroupSaudara},
	"saudara_ic":        {Label: "No KP Saudara", Group: GroupSaudara},
	"saudara_tel":       {Label: "Tel Saudara", Group: GroupSaudara},
	"saudara_pertalian": {Label: "Pertalian/Hubungan", Group: GroupSaudara},
}

// IsStandard reports whether key is part of the catalog.
func IsStandard(key string) bool {
	_, ok := Standard[key]
	return ok
}

// Keys returns all semantic keys in a stable order, grouped by display group.
func Keys() []string {
	groupOrder := map[string]int{
		GroupPemohon:   0,
		GroupPasangan:  1,
		GroupPekerjaan: 2,
		GroupSaudara:   3,
	}
	keys := make([]string, 0, len(Standard))
	for k := range Standard {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		gi, gj := groupOrder[Standard[keys[i]].Group], groupOrder[Standard[keys[j]].Group]
		if gi != gj {
			return gi < gj
		}
		return keys[i] < keys[j]
	})
	return keys
}
