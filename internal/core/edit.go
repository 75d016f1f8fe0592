package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

type editPayload struct {
	URL string `json:"url"`
}

// DecodeEditReference extracts the edit resource URL from the JSON payload a
// line item carries in its modal metadata, e.g. {"url":"/auto-deliveries/..."}.
func DecodeEditReference(payload string) (string, error) {
	var p editPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEditReference, err)
	}
	u := strings.TrimSpace(p.URL)
	if u == "" {
		return "", fmt.Errorf("%w: missing url", ErrInvalidEditReference)
	}
	return u, nil
}
