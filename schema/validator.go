// Package payloadschema validates candidate event payloads submitted by
// producers before they reach the resolution core.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed candidate.schema.json
var candidateSchemaJSON string

// CandidatePayload is the wire shape of a candidate event. Venue and genre are
// expected to arrive already normalized; date must be RFC3339 with timezone.
type CandidatePayload struct {
	PayloadVersion string  `json:"payload_version"`
	Name           string  `json:"name"`
	Artist         string  `json:"artist"`
	Venue          string  `json:"venue"`
	Date           string  `json:"date"`
	Time           *string `json:"time,omitempty"`
	Genre          *string `json:"genre,omitempty"`
	Price          *string `json:"price,omitempty"`
	TicketURL      string  `json:"ticket_url"`
	SourcePlatform string  `json:"source_platform"`
	SourceID       string  `json:"source_id"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

func ValidateCandidatePayload(payload json.RawMessage) (*CandidatePayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var candidate CandidatePayload
	if err := json.Unmarshal(normalized, &candidate); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&candidate); err != nil {
		return nil, err
	}

	return &candidate, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("candidate.schema.json", strings.NewReader(candidateSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("candidate.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(candidate *CandidatePayload) error {
	if candidate == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(candidate.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if strings.TrimSpace(candidate.Artist) == "" {
		return fmt.Errorf("artist must not be empty")
	}
	if strings.TrimSpace(candidate.Venue) == "" {
		return fmt.Errorf("venue must not be empty")
	}
	if strings.TrimSpace(candidate.SourcePlatform) == "" {
		return fmt.Errorf("source_platform must not be empty")
	}
	if strings.TrimSpace(candidate.SourceID) == "" {
		return fmt.Errorf("source_id must not be empty")
	}
	if strings.TrimSpace(candidate.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}

	if _, err := time.Parse(time.RFC3339, strings.TrimSpace(candidate.Date)); err != nil {
		return fmt.Errorf("date must be RFC3339: %w", err)
	}

	trimmedURL := strings.TrimSpace(candidate.TicketURL)
	if trimmedURL == "" {
		return fmt.Errorf("ticket_url must not be empty")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return fmt.Errorf("ticket_url is not a valid URI: %w", err)
	}

	return nil
}
