package operations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/primaai/agent-gateway/pkg/models"
)

var (
	// ErrUnknownOperation is returned for names absent from the registry.
	ErrUnknownOperation = errors.New("unknown function")
	// ErrNotPermitted is returned when the caller's role may not invoke the operation.
	ErrNotPermitted = errors.New("function not permitted")
	// ErrMalformedArguments is returned when the model's argument payload is not a JSON object.
	ErrMalformedArguments = errors.New("malformed function arguments")
	// ErrInvalidArguments is returned when arguments violate the operation's schema.
	ErrInvalidArguments = errors.New("invalid function arguments")
)

// MissingArgumentsError lists the required arguments absent from a call.
type MissingArgumentsError struct {
	Missing []string
}

func (e *MissingArgumentsError) Error() string {
	return "Missing required arguments: " + strings.Join(e.Missing, ", ")
}

func (e *MissingArgumentsError) Unwrap() error { return ErrInvalidArguments }

// ValidateArguments checks that name is registered and that every field its
// schema marks required is present in args. Only presence is checked.
func (r *Registry) ValidateArguments(name string, args map[string]interface{}) error {
	entry, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}

	var missing []string
	for _, field := range entry.def.Required() {
		if _, present := args[field]; !present {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &MissingArgumentsError{Missing: missing}
	}
	return nil
}

// validateSchema runs the compiled JSON schema for name against args.
func (r *Registry) validateSchema(name string, args map[string]interface{}) error {
	entry, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	result := entry.schema.Validate(args)
	if !result.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidArguments, result.Error())
	}
	return nil
}

func invalidArguments(name string, err error) models.FunctionResult {
	return models.Failure(fmt.Sprintf("Invalid arguments for %s: %v", name, err))
}
