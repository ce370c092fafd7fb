package config

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError describes one schema violation inside a bot's behavior
// block.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateBehavior checks a free-form behavior block against the JSON schema
// a behavior kind publishes. An empty schema accepts anything. The returned
// slice is nil when the block conforms; a non-nil error means the schema
// itself could not be evaluated.
func ValidateBehavior(schema []byte, behavior map[string]any) ([]ValidationError, error) {
	if len(schema) == 0 {
		return nil, nil
	}
	if behavior == nil {
		behavior = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewGoLoader(behavior),
	)
	if err != nil {
		return nil, fmt.Errorf("evaluate behavior schema: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return violations, nil
}
