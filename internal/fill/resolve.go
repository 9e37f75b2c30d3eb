package fill

import (
	"strconv"
	"strings"

	"github.com/kiraworks/borang/internal/ic"
)

const (
	sectionApplicant = "applicant"
	sectionSpouse    = "spouse"
	sectionJob       = "job"
	sectionReference = "reference"

	// Every applicant in this system is a Malaysian citizen; the source form
	// does not even ask.
	nationality = "MALAYSIA"
)

// source locates a directly-resolved semantic key inside the bundle.
type source struct {
	section string
	field   string
}

var directSources = map[string]source{
	"pemohon_nama":           {sectionApplicant, "name"},
	"pemohon_ic":             {sectionApplicant, "ic"},
	"pemohon_tel":            {sectionApplicant, "phone"},
	"pemohon_email":          {sectionApplicant, "email"},
	"pemohon_alamat":         {sectionApplicant, "address"},
	"pemohon_tanggungan":     {sectionApplicant, "tanggungan"},
	"pemohon_pendidikan":     {sectionApplicant, "pendidikan"},
	"pemohon_jenis_kediaman": {sectionApplicant, "jenis_kediaman"},
	"pemohon_tempoh_menetap": {sectionApplicant, "tempoh_menetap"},
	"pemohon_nama_ibu":       {sectionApplicant, "nama_ibu"},
	"pemohon_ic_ibu":         {sectionApplicant, "ic_ibu"},
	"pemohon_alamat_ibu":     {sectionApplicant, "alamat_ibu"},

	"pasangan_nama":           {sectionSpouse, "name"},
	"pasangan_ic":             {sectionSpouse, "ic"},
	"pasangan_jawatan":        {sectionSpouse, "jawatan"},
	"pasangan_alamat_majikan": {sectionSpouse, "alamat_majikan"},
	"pasangan_tel_pejabat":    {sectionSpouse, "tel_pejabat"},
	"pasangan_tel":            {sectionSpouse, "phone"},
	"pasangan_gaji":           {sectionSpouse, "gaji"},

	"pekerjaan_majikan":          {sectionJob, "employer"},
	"pekerjaan_alamat":           {sectionJob, "alamat_majikan"},
	"pekerjaan_jawatan":          {sectionJob, "position"},
	"pekerjaan_tarikh_mula":      {sectionJob, "tarikh_mula"},
	"pekerjaan_tel":              {sectionJob, "tel_pejabat"},
	"pekerjaan_gaji":             {sectionJob, "salary"},
	"pekerjaan_payslip_password": {sectionJob, "payslip_password"},
	"pekerjaan_hrmis_password":   {sectionJob, "hrmis_password"},

	"saudara_nama":      {sectionReference, "name"},
	"saudara_ic":        {sectionReference, "ic"},
	"saudara_alamat":    {sectionReference, "address"},
	"saudara_tel":       {sectionReference, "phone"},
	"saudara_pertalian": {sectionReference, "relationship"},
}

// Resolve returns the concrete, upper-cased string value for a semantic key,
// or ok=false when the value is absent. Values are recomputed on every call;
// derived values (age in particular) must reflect the current date.
func Resolve(key string, b Bundle) (string, bool) {
	switch key {
	case "pemohon_warganegara":
		return nationality, true
	case "pemohon_tarikh_lahir":
		if d, ok := ic.Parse(b.Applicant["ic"]); ok {
			return d.DateOfBirth, true
		}
		return "", false
	case "pemohon_jantina":
		if d, ok := ic.Parse(b.Applicant["ic"]); ok {
			return d.Gender, true
		}
		return "", false
	case "pemohon_umur":
		if d, ok := ic.Parse(b.Applicant["ic"]); ok {
			return strconv.Itoa(d.Age), true
		}
		return "", false
	case "pasangan_tarikh_lahir":
		if d, ok := ic.Parse(b.Spouse["ic"]); ok {
			return d.DateOfBirth, true
		}
		return "", false
	case "pasangan_umur":
		if d, ok := ic.Parse(b.Spouse["ic"]); ok {
			return strconv.Itoa(d.Age), true
		}
		return "", false
	}

	src, ok := directSources[key]
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(b.section(src.section)[src.field])
	if value == "" {
		return "", false
	}
	return strings.ToUpper(value), true
}
