// Package suggest proposes field mappings for a template by showing page
// images of the form to a vision model. Each page is analyzed independently
// and the per-page proposals are merged into a single mapping restricted to
// the standard catalog keys.
package suggest

import (
	"context"
	"time"

	"github.com/kiraworks/borang/internal/catalog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FieldRef describes one form field visible in a region image. Coordinates
// are in PDF points from the bottom-left of the page.
type FieldRef struct {
	Name   string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Region is one page image plus the form fields that appear on it.
type Region struct {
	Image    []byte
	MIMEType string
	Fields   []FieldRef
}

// Analyzer maps the fields of a single region to standard catalog keys.
// The returned map goes from raw field name to catalog key.
type Analyzer interface {
	AnalyzeRegion(ctx context.Context, region Region) (map[string]string, error)
}

// Result is the merged outcome of a suggestion run.
type Result struct {
	FieldMapping map[string]string
	RegionsTotal int
	RegionsOK    int
}

const (
	defaultConcurrency = 3
	defaultTimeout     = 2 * time.Minute
)

// Service fans regions out to the analyzer with bounded concurrency. A
// failed region contributes nothing; it never fails the run.
type Service struct {
	analyzer    Analyzer
	concurrency int
	timeout     time.Duration
	log         *zap.Logger
}

// NewService builds a Service. Non-positive concurrency or timeout fall back
// to the defaults.
func NewService(analyzer Analyzer, concurrency int, timeout time.Duration, log *zap.Logger) *Service {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		analyzer:    analyzer,
		concurrency: concurrency,
		timeout:     timeout,
		log:         log,
	}
}

// Suggest analyzes every region and merges the proposals in region order.
// Each region runs under its own deadline, detached from the caller's
// context, so one slow page cannot cancel its siblings.
func (s *Service) Suggest(regions []Region) *Result {
	proposals := make([]map[string]string, len(regions))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, region := range regions {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			mapping, err := s.analyzer.AnalyzeRegion(ctx, region)
			if err != nil {
				s.log.Warn("region analysis failed",
					zap.Int("region", i+1),
					zap.Int("fields", len(region.Fields)),
					zap.Error(err))
				return nil
			}
			proposals[i] = mapping
			return nil
		})
	}
	g.Wait()

	merged, ok := Merge(proposals)
	return &Result{
		FieldMapping: merged,
		RegionsTotal: len(regions),
		RegionsOK:    ok,
	}
}

// Merge unions the proposals in order, later entries overriding earlier ones
// for the same field name. Entries whose value is not a standard catalog key
// are dropped. The second return value counts non-nil proposals.
func Merge(proposals []map[string]string) (map[string]string, int) {
	merged := make(map[string]string)
	ok := 0
	for _, proposal := range proposals {
		if proposal == nil {
			continue
		}
		ok++
		for name, key := range proposal {
			if !catalog.IsStandard(key) {
				continue
			}
			merged[name] = key
		}
	}
	return merged, ok
}
