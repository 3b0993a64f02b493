package calendar

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseServiceAccount decodes the service-account credential payload.
// The documented contract is base64-encoded JSON; raw JSON is accepted as
// a migration fallback. Literal `\n` sequences in the private key (a
// common artifact of copy-pasting credentials into env vars) are
// normalized to real newlines.
func ParseServiceAccount(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty credential payload")
	}

	raw := []byte(value)
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		raw = decoded
	}

	var creds map[string]any
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("credential payload is neither base64 nor JSON: %w", err)
	}

	if pk, ok := creds["private_key"].(string); ok {
		creds["private_key"] = strings.ReplaceAll(pk, `\n`, "\n")
	}

	out, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("re-encode credentials: %w", err)
	}
	return out, nil
}
