package pdf

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Label hints are a convenience for the manual-mapping surface: forms in this
// domain print the label text to the left of (or directly above) each box, so
// the nearest printed text is usually the field's meaning.

const (
	labelRowTolerance = 7.0  // max vertical distance to count as the same row
	labelAboveReach   = 30.0 // how far above the widget to look for a heading
	labelMaxLen       = 60
)

type textRun struct {
	y        float64
	x        float64
	endX     float64
	contents string
}

// fieldLabels extracts positioned text and assigns each field the closest
// printed run left of or above its widget. Hints are best-effort; any failure
// yields nil and introspection proceeds without labels.
func fieldLabels(path string, fields []RawField) map[string]string {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	runsByPage := map[int][]textRun{}
	for pageNr := 1; pageNr <= reader.NumPage(); pageNr++ {
		page := reader.Page(pageNr)
		if page.V.IsNull() {
			continue
		}
		runsByPage[pageNr] = buildRuns(page.Content().Text)
	}

	hints := map[string]string{}
	for _, f := range fields {
		if f.Geometry == nil {
			continue
		}
		if label := labelForGeometry(runsByPage[f.Geometry.Page], f.Geometry); label != "" {
			hints[f.Name] = label
		}
	}
	return hints
}

// buildRuns groups glyph-level text into horizontal runs by row.
func buildRuns(texts []pdf.Text) []textRun {
	sort.SliceStable(texts, func(i, j int) bool {
		if math.Abs(texts[i].Y-texts[j].Y) > labelRowTolerance {
			return texts[i].Y > texts[j].Y
		}
		return texts[i].X < texts[j].X
	})

	var runs []textRun
	for _, t := range texts {
		s := strings.TrimRight(t.S, "\n")
		if s == "" {
			continue
		}
		if len(runs) > 0 {
			last := &runs[len(runs)-1]
			sameRow := math.Abs(last.y-t.Y) <= labelRowTolerance
			adjacent := t.X-last.endX < 2*t.W+4
			if sameRow && adjacent {
				last.contents += s
				last.endX = t.X + t.W
				continue
			}
		}
		runs = append(runs, textRun{y: t.Y, x: t.X, endX: t.X + t.W, contents: s})
	}
	return runs
}

// labelForGeometry picks the closest run that ends left of the widget on the
// same row, falling back to the nearest run directly above it.
func labelForGeometry(runs []textRun, geo *Geometry) string {
	midY := geo.Y + geo.Height/2

	var best *textRun
	for i := range runs {
		r := &runs[i]
		if math.Abs(r.y-midY) <= labelRowTolerance && r.endX <= geo.X+2 {
			if best == nil || r.endX > best.endX {
				best = r
			}
		}
	}
	if best == nil {
		topY := geo.Y + geo.Height
		for i := range runs {
			r := &runs[i]
			above := r.y > topY && r.y-topY <= labelAboveReach
			overlaps := r.x < geo.X+geo.Width && r.endX > geo.X-2
			if above && overlaps {
				if best == nil || r.y < best.y {
					best = r
				}
			}
		}
	}
	if best == nil {
		return ""
	}

	label := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(best.contents), ":"))
	if len(label) > labelMaxLen {
		label = label[len(label)-labelMaxLen:]
	}
	return label
}
