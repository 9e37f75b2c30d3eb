// Package fill resolves semantic keys against a submission's data bundle and
// orchestrates document generation from registered templates.
package fill

// Bundle is the fill-relevant slice of a submission's decrypted record: four
// flat sub-records keyed by form field name. It is owned by the submission
// layer and read-only to this engine.
type Bundle struct {
	Applicant map[string]string `json:"applicant_data"`
	Spouse    map[string]string `json:"spouse_data"`
	Job       map[string]string `json:"job_data"`
	Reference map[string]string `json:"reference_data"`
}

func (b Bundle) section(name string) map[string]string {
	switch name {
	case sectionApplicant:
		return b.Applicant
	case sectionSpouse:
		return b.Spouse
	case sectionJob:
		return b.Job
	case sectionReference:
		return b.Reference
	}
	return nil
}
