package city

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Paris", "paris"},
		{"  Saint   Étienne ", "saint étienne"},
		{"LYON", "lyon"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestReportParsed(t *testing.T) {
	assert.False(t, Report{Raw: "oops"}.Parsed())
	assert.True(t, Report{Insights: &Insights{City: "Lyon"}}.Parsed())
}
