// Package snapshot reads and writes the persisted rotation state.
//
// Decoding is the single entry point for outside data: it upgrades older
// schema versions, validates the document and normalizes it against the
// formation in use. A document that fails validation is rejected whole.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/omarshaarawi/flagcoach/internal/models"
)

const CurrentVersion = 2

// ValidationError reports why a snapshot was refused.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid snapshot: " + e.Reason
	}
	return fmt.Sprintf("invalid snapshot: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func Encode(state *models.State) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Decode parses data, upgrading legacy documents to the current schema.
func Decode(data []byte, formation models.Formation) (*models.State, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, invalid("", "empty document")
	}

	var header struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, invalid("", "malformed JSON: %v", err)
	}

	version := 1
	if header.Version != nil {
		version = *header.Version
	}

	var state *models.State
	switch version {
	case 1:
		legacy, err := upgradeV1(data, formation)
		if err != nil {
			return nil, err
		}
		state = legacy
	case CurrentVersion:
		state = &models.State{}
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(state); err != nil {
			return nil, invalid("", "malformed JSON: %v", err)
		}
	default:
		return nil, invalid("version", "unsupported version %d", version)
	}

	if err := Validate(state, formation); err != nil {
		return nil, err
	}
	Normalize(state, formation)
	return state, nil
}
