// Package schemas performs structural validation of inbound record
// payloads before they are indexed. Validation is deliberately
// shallow: a payload must carry its own collection as $type and the
// fields the deployment declares required. Anything deeper is the
// publishing client's problem.
package schemas

import (
	"fmt"
)

const typeField = "$type"

// Validator checks payloads against per-collection required fields.
// Collections without a declared schema pass as-is.
type Validator struct {
	required map[string][]string
}

func NewValidator(required map[string][]string) *Validator {
	return &Validator{required: required}
}

func (v *Validator) ValidateRecord(collection string, value map[string]any) error {
	if value == nil {
		return fmt.Errorf("empty payload")
	}

	if t, ok := value[typeField]; ok {
		if s, ok := t.(string); !ok || s != collection {
			return fmt.Errorf("payload type %v does not match collection %s", t, collection)
		}
	}

	for _, field := range v.required[collection] {
		raw, ok := value[field]
		if !ok || raw == nil {
			return fmt.Errorf("missing required field %s", field)
		}
		if s, ok := raw.(string); ok && s == "" {
			return fmt.Errorf("required field %s is empty", field)
		}
	}
	return nil
}
