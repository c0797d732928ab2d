// Package operations holds the closed set of backend operations the model
// may request, the registry that describes them, and the dispatcher that
// authorizes and executes model-requested calls.
package operations

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"github.com/primaai/agent-gateway/pkg/models"
)

// Operation is one backend capability. Execute receives arguments that have
// already passed the dispatcher's checks, performs exactly one backend call
// and never returns a failure other than through the FunctionResult.
type Operation interface {
	Definition() models.FunctionDefinition
	Execute(ctx context.Context, args map[string]interface{}) models.FunctionResult
}

// Backend is the subset of backend.Client the operations use.
type Backend interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
}

// decodeArgs copies the model's loosely typed arguments into a params
// struct. Fields absent from args keep the values already set on out.
func decodeArgs(args map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		TagName:    "json",
		DecodeHook: integralFloatHook,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

// integralFloatHook refuses to truncate a fractional JSON number into an
// integer field.
func integralFloatHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.Float64 && from.Kind() != reflect.Float32 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not a whole number", data)
	}
	return data, nil
}

// validEmail accepts a bare addr-spec only; display-name forms such as
// "Ana <ana@x.com>" are rejected.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// Shared schema fragments.
var (
	datePattern = `^\d{4}-\d{2}-\d{2}$`
	timePattern = `^\d{2}:\d{2}$`

	venueIDProperty = map[string]interface{}{
		"type":        "string",
		"description": "Unique identifier for the venue",
	}
	dateProperty = map[string]interface{}{
		"type":        "string",
		"pattern":     datePattern,
		"description": "Date in YYYY-MM-DD format",
	}
	timeProperty = map[string]interface{}{
		"type":        "string",
		"pattern":     timePattern,
		"description": "Time in HH:MM format (24-hour)",
	}
	partySizeProperty = map[string]interface{}{
		"type":        "integer",
		"minimum":     1,
		"maximum":     20,
		"description": "Number of people in the party",
	}
)
