package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // RFC3339, "" for nil
	}{
		{"rfc3339", "2026-03-15T10:30:00Z", "2026-03-15T10:30:00Z"},
		{"date only", "2026-03-15", "2026-03-15T00:00:00Z"},
		{"slash date", "2026/03/15", "2026-03-15T00:00:00Z"},
		{"us date", "03/15/2026", "2026-03-15T00:00:00Z"},
		{"long form", "March 15, 2026", "2026-03-15T00:00:00Z"},
		{"garbage", "posted yesterday", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.input)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			want, err := time.Parse(time.RFC3339, tt.want)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s want %s", got, want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}
