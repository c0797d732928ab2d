package operations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/primaai/agent-gateway/internal/permissions"
	"github.com/primaai/agent-gateway/internal/redact"
	"github.com/primaai/agent-gateway/pkg/models"
)

// DefaultCallTimeout bounds a single operation's backend call.
const DefaultCallTimeout = 15 * time.Second

var tracer = otel.Tracer("agent-gateway/operations")

// Dispatcher authorizes and executes model-requested calls.
type Dispatcher struct {
	registry *Registry
	policy   permissions.Policy
	timeout  time.Duration
}

// NewDispatcher creates a dispatcher. A zero timeout uses DefaultCallTimeout.
func NewDispatcher(r *Registry, p permissions.Policy, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Dispatcher{registry: r, policy: p, timeout: timeout}
}

// Registry returns the registry the dispatcher executes against.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Offered returns the definitions role may be shown, in registry order.
// It is the same policy Execute enforces.
func (d *Dispatcher) Offered(role models.Role) []models.FunctionDefinition {
	return permissions.Filter(d.policy, role, d.registry.Definitions())
}

// Execute runs call on behalf of role. Every failure, including a panic in
// the handler, is folded into an unsuccessful FunctionResult.
//
// Checks, in order: registered, permitted, required fields present, schema
// valid. The handler is only reached when all pass.
func (d *Dispatcher) Execute(ctx context.Context, call models.FunctionCall, role models.Role) (result models.FunctionResult) {
	ctx, span := tracer.Start(ctx, "operations.dispatch")
	span.SetAttributes(
		attribute.String("operation.name", call.Name),
		attribute.String("caller.role", string(role)),
	)
	defer func() {
		span.SetAttributes(attribute.Bool("operation.success", result.Success))
		if !result.Success {
			span.SetStatus(codes.Error, result.Error)
		}
		span.End()
	}()

	log.Info().
		Str("function", call.Name).
		Str("role", string(role)).
		Interface("args", redact.Map(call.Arguments)).
		Msg("Executing function")

	if err := d.Authorize(call, role); err != nil {
		log.Warn().Err(err).Str("function", call.Name).Str("role", string(role)).Msg("Function call rejected")
		return models.Failure(userMessage(err, call.Name, role))
	}

	args := call.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := d.registry.ValidateArguments(call.Name, args); err != nil {
		return models.Failure(userMessage(err, call.Name, role))
	}
	if err := d.registry.validateSchema(call.Name, args); err != nil {
		log.Warn().Err(err).Str("function", call.Name).Msg("Function arguments failed schema validation")
		return invalidArguments(call.Name, err)
	}

	op, _ := d.registry.Get(call.Name)

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("function", call.Name).
				Interface("panic", rec).
				Interface("args", redact.Map(args)).
				Msg("Error executing function")
			result = models.Failure(fmt.Sprintf("Failed to execute %s", call.Name))
		}
	}()

	result = op.Execute(callCtx, args)
	if result.Success {
		log.Info().Str("function", call.Name).Msg("Function executed successfully")
	} else {
		log.Warn().Str("function", call.Name).Str("error", result.Error).Msg("Function returned failure")
	}
	return result
}

// Authorize reports whether role may invoke call without executing it.
func (d *Dispatcher) Authorize(call models.FunctionCall, role models.Role) error {
	if !d.registry.Has(call.Name) {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, call.Name)
	}
	if !d.policy.IsPermitted(role, call.Name) {
		return fmt.Errorf("%w: %s for role %s", ErrNotPermitted, call.Name, role)
	}
	return nil
}

// userMessage maps dispatch errors to the text narrated back to the caller.
func userMessage(err error, name string, role models.Role) string {
	var missing *MissingArgumentsError
	switch {
	case errors.Is(err, ErrUnknownOperation):
		return "Unknown function: " + name
	case errors.Is(err, ErrNotPermitted):
		return fmt.Sprintf("Function %s is not permitted for role %s", name, role)
	case errors.As(err, &missing):
		return missing.Error()
	default:
		return fmt.Sprintf("Failed to execute %s", name)
	}
}
