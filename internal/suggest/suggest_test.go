package suggest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMergeDisjoint(t *testing.T) {
	merged, ok := Merge([]map[string]string{
		{"Text1": "pemohon_nama"},
		{"Text2": "pemohon_alamat"},
	})
	assert.Equal(t, 2, ok)
	assert.Equal(t, map[string]string{
		"Text1": "pemohon_nama",
		"Text2": "pemohon_alamat",
	}, merged)
}

func TestMergeLaterWins(t *testing.T) {
	merged, _ := Merge([]map[string]string{
		{"Text1": "pemohon_nama"},
		{"Text1": "pemohon_alamat"},
	})
	assert.Equal(t, "pemohon_alamat", merged["Text1"])
}

func TestMergeDropsUnknownKeys(t *testing.T) {
	merged, ok := Merge([]map[string]string{
		{"Text1": "pemohon_nama", "Text2": "made_up_key", "Text3": ""},
	})
	assert.Equal(t, 1, ok)
	assert.Equal(t, map[string]string{"Text1": "pemohon_nama"}, merged)
}

func TestMergeSkipsNilProposals(t *testing.T) {
	merged, ok := Merge([]map[string]string{
		nil,
		{"Text1": "pemohon_ic"},
		nil,
	})
	assert.Equal(t, 1, ok)
	assert.Len(t, merged, 1)
}

type stubAnalyzer struct {
	mu       sync.Mutex
	calls    int
	failOn   int
	mappings []map[string]string
}

func (s *stubAnalyzer) AnalyzeRegion(_ context.Context, _ Region) (map[string]string, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	s.mu.Unlock()

	if idx == s.failOn {
		return nil, errors.New("model unavailable")
	}
	return s.mappings[idx], nil
}

func TestSuggestToleratesRegionFailure(t *testing.T) {
	stub := &stubAnalyzer{
		failOn: 1,
		mappings: []map[string]string{
			{"Page1Field": "pemohon_nama"},
			nil,
			{"Page3Field": "saudara_nama"},
		},
	}
	svc := NewService(stub, 1, time.Second, zap.NewNop())

	res := svc.Suggest([]Region{
		{Fields: []FieldRef{{Name: "Page1Field"}}},
		{Fields: []FieldRef{{Name: "Page2Field"}}},
		{Fields: []FieldRef{{Name: "Page3Field"}}},
	})

	assert.Equal(t, 3, res.RegionsTotal)
	assert.Equal(t, 2, res.RegionsOK)
	assert.Equal(t, map[string]string{
		"Page1Field": "pemohon_nama",
		"Page3Field": "saudara_nama",
	}, res.FieldMapping)
}

func TestSuggestEmpty(t *testing.T) {
	svc := NewService(&stubAnalyzer{}, 0, 0, nil)
	res := svc.Suggest(nil)
	assert.Equal(t, 0, res.RegionsTotal)
	assert.Equal(t, 0, res.RegionsOK)
	assert.Empty(t, res.FieldMapping)
}

func TestParseMapping(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "plain",
			text: `{"fieldMapping": {"Text1": "pemohon_nama"}}`,
			want: map[string]string{"Text1": "pemohon_nama"},
		},
		{
			name: "fenced",
			text: "```json\n{\"fieldMapping\": {\"Text1\": \"pemohon_ic\"}}\n```",
			want: map[string]string{"Text1": "pemohon_ic"},
		},
		{
			name: "surrounded_by_prose",
			text: "Here is the mapping:\n{\"fieldMapping\": {\"A\": \"pemohon_tel\"}}\nDone.",
			want: map[string]string{"A": "pemohon_tel"},
		},
		{
			name:    "no_json",
			text:    "I cannot read this form.",
			wantErr: true,
		},
		{
			name:    "missing_field_mapping",
			text:    `{"mapping": {}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMapping(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
