package fill

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kiraworks/borang/internal/pdf"
	"github.com/kiraworks/borang/internal/registry"
	"go.uber.org/zap"
)

var (
	// ErrNoMapping means the template has no field mappings configured yet.
	ErrNoMapping = errors.New("no field mappings configured")
	// ErrTemplateMissing means the template's source binary cannot be located.
	ErrTemplateMissing = errors.New("template file not found")
)

// Service generates filled documents from registered templates.
type Service struct {
	reg        *registry.Registry
	inspector  *pdf.Inspector
	filler     *pdf.Filler
	splitWidth int
	log        *zap.Logger
}

// NewService wires the registry with the PDF layer. splitWidth <= 0 falls
// back to pdf.DefaultSplitWidth.
func NewService(reg *registry.Registry, inspector *pdf.Inspector, filler *pdf.Filler, splitWidth int, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		reg:        reg,
		inspector:  inspector,
		filler:     filler,
		splitWidth: splitWidth,
		log:        log,
	}
}

// Request describes one fill operation.
type Request struct {
	TemplateKey string
	Bundle      Bundle
	Flatten     bool
}

// Result carries the generated document.
type Result struct {
	Bytes    []byte
	Filename string
	Fills    int
	Warnings []string
}

// Fill renders the template identified by req.TemplateKey with values
// resolved from the bundle. The template binary is never modified; the result
// is a fresh buffer plus a download filename derived from the template key
// and the applicant's name.
func (s *Service) Fill(req Request) (*Result, error) {
	tmpl, err := s.reg.Get(req.TemplateKey)
	if err != nil {
		return nil, err
	}
	if len(tmpl.FieldMap) == 0 {
		return nil, fmt.Errorf("template %q: %w", req.TemplateKey, ErrNoMapping)
	}

	path := s.reg.TemplatePath(tmpl)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", tmpl.File, ErrTemplateMissing)
	}

	fields, err := s.inspector.ListFields(path)
	if err != nil {
		return nil, err
	}

	plan := pdf.BuildPlan(tmpl.FieldMap, fields, func(key string) (string, bool) {
		return Resolve(key, req.Bundle)
	}, s.splitWidth)

	data, warnings, err := s.filler.Apply(path, plan, req.Flatten)
	if err != nil {
		return nil, err
	}

	s.log.Info("document filled",
		zap.String("template", req.TemplateKey),
		zap.Int("fills", plan.Fills()),
		zap.Int("warnings", len(warnings)),
		zap.Bool("flatten", req.Flatten))

	return &Result{
		Bytes:    data,
		Filename: SuggestFilename(req.TemplateKey, req.Bundle.Applicant["name"]),
		Fills:    plan.Fills(),
		Warnings: warnings,
	}, nil
}

// SuggestFilename builds a download filename from the template key and the
// applicant's name, replacing every non-alphanumeric character.
func SuggestFilename(templateKey, applicantName string) string {
	name := strings.TrimSpace(applicantName)
	if name == "" {
		name = "unknown"
	}
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return fmt.Sprintf("%s_%s.pdf", templateKey, b.String())
}
