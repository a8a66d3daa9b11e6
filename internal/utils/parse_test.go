package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   string
	}{
		{"valid object untouched", `{"city":"Rome"}`, true, `{"city":"Rome"}`},
		{"surrounding whitespace trimmed", "  {\"a\":1}\n", true, `{"a":1}`},
		{"truncated object repaired", `{"city":"Rome"`, true, ""},
		{"single quotes repaired", `{'city': 'Rome'}`, true, ""},
		{"empty input rejected", "   ", false, "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RepairJSON(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
			}
			if ok {
				assert.True(t, json.Valid([]byte(got)), "repaired output must be valid JSON: %s", got)
			}
		})
	}
}
