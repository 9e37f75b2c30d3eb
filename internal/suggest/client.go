package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kiraworks/borang/internal/catalog"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiAnalyzer asks a Gemini vision model which catalog key each form
// field on a page image collects.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// NewGeminiAnalyzer connects to the Gemini API. baseURL may be empty for the
// default endpoint; an empty apiKey is rejected.
func NewGeminiAnalyzer(apiKey, model, baseURL string, log *zap.Logger) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("suggestion API key is required")
	}
	if model == "" {
		model = "gemini-2.5-pro"
	}
	if log == nil {
		log = zap.NewNop()
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	return &GeminiAnalyzer{client: client, model: model, log: log}, nil
}

// AnalyzeRegion sends the page image and its field inventory to the model
// and parses the returned mapping. A failed call is retried once.
func (a *GeminiAnalyzer) AnalyzeRegion(ctx context.Context, region Region) (map[string]string, error) {
	mime := region.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(regionPrompt(region.Fields)),
			genai.NewPartFromBytes(region.Image, mime),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: 16384,
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		a.log.Warn("model call failed, retrying", zap.Error(err))
		resp, err = a.client.Models.GenerateContent(ctx, a.model, contents, config)
	}
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	mapping, err := parseMapping(resp.Text())
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

// regionPrompt explains the reading conventions of Malaysian loan forms so
// the model matches each fillable box to the printed label beside or above
// it, then resolves the label to a catalog key.
func regionPrompt(fields []FieldRef) string {
	var standard strings.Builder
	for _, key := range catalog.Keys() {
		fmt.Fprintf(&standard, "  %s - %s\n", key, catalog.Standard[key].Label)
	}

	var inventory strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&inventory, "  %q at position (x:%.0f, y:%.0f, w:%.0f, h:%.0f)\n",
			f.Name, f.X, f.Y, f.Width, f.Height)
	}

	return fmt.Sprintf(`You are an expert at reading Malaysian loan/financial PDF forms. You must identify what data each form field collects.

IMAGE: The form page image is attached.

FORM FIELDS on this page (with positions):
%s
STANDARD FIELD NAMES (use ONLY these):
%s
HOW TO READ THE FORM:
1. LABELS are printed TEXT on the LEFT. FILLABLE FIELDS (boxes) are on the RIGHT of the label.
   Example: "Jawatan : [____]" means the field on the right is for Jawatan (job title)
2. Match each fillable field to the LABEL on its LEFT or directly ABOVE it
3. "Nama" label = Name field, so pemohon_nama (NOT alamat!)
4. "Alamat" label = Address field, so pemohon_alamat
5. When multiple rows of boxes appear under ONE label (e.g. "Nama" followed by 3 rows of boxes), ALL those rows belong to that same label
6. Fields in the "Nama" section are ALWAYS before "Alamat" on the form (top = nama, below = alamat)

SECTION RULES, determine which section each field is in:
- "Pemohon" / "Applicant" / "Keterangan Peribadi" section: pemohon_ prefix
- "Pasangan" / "Suami/Isteri" section: pasangan_ prefix
- "Saudara" / "Waris" section: saudara_ prefix
- "Pekerjaan" / "Majikan" / "Employer" section: pekerjaan_ prefix

SPECIFIC MAPPINGS:
- "Nama" / "Nama Pemohon": pemohon_nama
- "Alamat" / "Alamat Kediaman": pemohon_alamat
- "No KP Baru" / "No K/P Baru" (applicant): pemohon_ic
- "No KP Baru" (spouse section): pasangan_ic
- SKIP "No KP Lama" / "No K/P Lama" (not used)
- "Tel Pejabat": pekerjaan_tel or pasangan_tel_pejabat
- "Tel Bimbit" / "Tel Rumah": pemohon_tel or pasangan_tel
- "Nama dan Alamat Majikan" / "Nama Majikan": pekerjaan_majikan (name rows), pekerjaan_alamat (address rows)

IMPORTANT:
- Multiple fields CAN map to the same key (e.g. 3 address rows all map to pemohon_alamat)
- Only map fields you are CONFIDENT about
- Skip fields not in the standard list

Return ONLY valid JSON (no markdown, no code fences):
{ "fieldMapping": { "FieldName": "standard_key" } }`, inventory.String(), standard.String())
}

// parseMapping extracts the fieldMapping object from the model's reply. The
// reply sometimes arrives wrapped in code fences or surrounded by prose, so
// the first balanced JSON object is taken.
func parseMapping(text string) (map[string]string, error) {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model reply: %.200s", text)
	}

	var payload struct {
		FieldMapping map[string]string `json:"fieldMapping"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}
	if payload.FieldMapping == nil {
		return nil, errors.New("model reply missing fieldMapping")
	}
	return payload.FieldMapping, nil
}
