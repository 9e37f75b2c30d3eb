package ic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAt(t *testing.T) {
	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		number  string
		wantDOB string
		wantSex string
		wantAge int
	}{
		{
			name:    "hyphenated_male",
			number:  "780413-07-6789",
			wantDOB: "13/04/1978",
			wantSex: GenderMale,
			wantAge: 48,
		},
		{
			name:    "plain_digits_female",
			number:  "880225105432",
			wantDOB: "25/02/1988",
			wantSex: GenderFemale,
			wantAge: 38,
		},
		{
			name:    "century_cutoff_2000s",
			number:  "010203-14-5678",
			wantDOB: "03/02/2001",
			wantSex: GenderFemale,
			wantAge: 25,
		},
		{
			name:    "century_cutoff_1900s",
			number:  "300102-08-1235",
			wantDOB: "02/01/1930",
			wantSex: GenderMale,
			wantAge: 96,
		},
		{
			name:    "birthday_not_yet_occurred",
			number:  "781101-07-6789",
			wantDOB: "01/11/1978",
			wantSex: GenderMale,
			wantAge: 47,
		},
		{
			name:    "birthday_today",
			number:  "780829-07-6789",
			wantDOB: "29/08/1978",
			wantSex: GenderMale,
			wantAge: 48,
		},
		{
			name:    "spaces_as_separators",
			number:  "780413 07 6789",
			wantDOB: "13/04/1978",
			wantSex: GenderMale,
			wantAge: 48,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAt(tt.number, now)
			require.True(t, ok)
			assert.Equal(t, tt.wantDOB, got.DateOfBirth)
			assert.Equal(t, tt.wantSex, got.Gender)
			assert.Equal(t, tt.wantAge, got.Age)
		})
	}
}

func TestParseAtNotDerivable(t *testing.T) {
	now := time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		number string
	}{
		{name: "empty", number: ""},
		{name: "too_short", number: "780413-07"},
		{name: "eleven_digits", number: "78041307678"},
		{name: "letters", number: "780413-07-67AB"},
		{name: "only_separators", number: "-- --"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseAt(tt.number, now)
			assert.False(t, ok)
		})
	}
}
