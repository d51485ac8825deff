package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/household-extractor/constants"
)

const ymdPattern = `^\d{4}-\d{2}-\d{2}$`

// EmailSchema is the JSON-Schema for extract.ExtractedEmailData.
func EmailSchema() map[string]any {
	contact := object(map[string]any{
		"name":    str(),
		"email":   str(),
		"phone":   str(),
		"company": str(),
		"role":    str(),
	})
	price := object(map[string]any{
		"amount":   map[string]any{"type": "number", "minimum": 0},
		"currency": str(),
		"type":     enum("quote", "estimate", "mention"),
		"context":  str(),
	}, "amount", "type")
	date := object(map[string]any{
		"date":    map[string]any{"type": "string", "pattern": ymdPattern},
		"text":    str(),
		"kind":    enum("absolute", "relative"),
		"context": str(),
	}, "date")
	followUp := object(map[string]any{
		"action":  map[string]any{"type": "string", "minLength": 1},
		"dueDate": map[string]any{"type": "string", "pattern": ymdPattern},
	}, "action")

	return object(map[string]any{
		"contacts":  array(contact),
		"prices":    array(price),
		"dates":     array(date),
		"followUps": array(followUp),
		"topics":    array(str()),
		"summary":   map[string]any{"type": "string"},
	}, "contacts", "prices", "dates", "followUps", "topics", "summary")
}

// QuoteSchema is the JSON-Schema for QuoteFields.
func QuoteSchema() map[string]any {
	item := object(map[string]any{
		"description": map[string]any{"type": "string", "minLength": 1},
		"category":    enum(constants.AsStringSlice()...),
		"quantity":    map[string]any{"type": "number", "exclusiveMinimum": 0},
		"unitPrice":   map[string]any{"type": "number"},
		"amount":      map[string]any{"type": "number"},
	}, "description", "amount")

	return object(map[string]any{
		"contractorName": str(),
		"company":        str(),
		"contact":        str(),
		"phone":          str(),
		"email":          str(),
		"address":        str(),
		"date":           map[string]any{"type": "string", "pattern": ymdPattern},
		"lineItems":      array(item),
		"vatRate":        map[string]any{"type": "number", "minimum": 0, "exclusiveMaximum": 1},
		"total":          map[string]any{"type": "number", "minimum": 0},
	}, "lineItems")
}

func object(props map[string]any, required ...string) map[string]any {
	m := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
	if len(required) > 0 {
		m["required"] = required
	}
	return m
}

func array(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func str() map[string]any {
	return map[string]any{"type": "string", "minLength": 1}
}

func enum(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
