package utils

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// RepairJSON returns content as valid JSON. Valid input is returned as-is;
// malformed input (truncated objects, single quotes, trailing commas) is
// passed through jsonrepair. ok is false when the content could not be
// repaired, in which case the original string is returned.
func RepairJSON(content string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return content, false
	}
	if json.Valid([]byte(trimmed)) {
		return trimmed, true
	}

	repaired, err := jsonrepair.JSONRepair(trimmed)
	if err != nil || !json.Valid([]byte(repaired)) {
		return content, false
	}
	return repaired, true
}
