package queue

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure TriggerCodec implements the interface.
var _ driven.TriggerCodec = (*TriggerCodec)(nil)

//go:embed trigger.schema.json
var triggerSchema []byte

const triggerSchemaURL = "https://schemas.sercha.dev/ingest/trigger.schema.json"

// TriggerCodec encodes triggers as JSON and validates inbound payloads
// against the trigger schema before decoding.
type TriggerCodec struct {
	schema *jsonschema.Schema
}

// NewTriggerCodec compiles the embedded trigger schema.
func NewTriggerCodec() (*TriggerCodec, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(triggerSchema))
	if err != nil {
		return nil, fmt.Errorf("parse trigger schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(triggerSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add trigger schema: %w", err)
	}
	schema, err := c.Compile(triggerSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile trigger schema: %w", err)
	}
	return &TriggerCodec{schema: schema}, nil
}

// Encode serialises a trigger.
func (c *TriggerCodec) Encode(trigger domain.Trigger) ([]byte, error) {
	if err := trigger.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(trigger)
}

// Decode validates and deserialises a trigger payload.
func (c *TriggerCodec) Decode(payload []byte) (domain.Trigger, error) {
	var trigger domain.Trigger

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return trigger, fmt.Errorf("%w: trigger is not JSON: %w", domain.ErrInvalidInput, err)
	}
	if err := c.schema.Validate(inst); err != nil {
		return trigger, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(payload, &trigger); err != nil {
		return trigger, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := trigger.Validate(); err != nil {
		return trigger, err
	}
	return trigger, nil
}
