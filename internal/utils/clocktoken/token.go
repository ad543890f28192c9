package clocktoken

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/trestleworks/planledger/internal/core/domain"
)

// Encode creates a base64 encoded token carrying a clock, suitable for query
// parameters. Clients pass the token back verbatim to pin later reads.
func Encode(clock domain.Clock) (string, error) {
	raw, err := json.Marshal(clock)
	if err != nil {
		return "", fmt.Errorf("failed to encode clock token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Decode parses a clock token back into a clock. An empty token decodes to
// the zero clock, which readers treat as latest.
func Decode(token string) (domain.Clock, error) {
	if token == "" {
		return domain.Clock{}, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return domain.Clock{}, fmt.Errorf("invalid clock token format (base64 decode): %w", err)
	}
	var clock domain.Clock
	if err := json.Unmarshal(raw, &clock); err != nil {
		return domain.Clock{}, fmt.Errorf("invalid clock token format (json decode): %w", err)
	}
	return clock, nil
}
