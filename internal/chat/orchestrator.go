// Package chat runs one conversational turn: ask the model, optionally
// dispatch the operation it requests, and narrate the outcome.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/primaai/agent-gateway/internal/audit"
	"github.com/primaai/agent-gateway/internal/llm"
	"github.com/primaai/agent-gateway/internal/operations"
	"github.com/primaai/agent-gateway/internal/redact"
	"github.com/primaai/agent-gateway/pkg/models"
)

// DefaultTurnTimeout bounds a whole turn, both model calls included.
const DefaultTurnTimeout = 60 * time.Second

// ErrNoModelReply is returned when a model call fails or yields nothing.
var ErrNoModelReply = errors.New("no response from model")

var tracer = otel.Tracer("agent-gateway/chat")

// Orchestrator drives turns. It holds no per-turn state and is safe for
// concurrent use.
type Orchestrator struct {
	model       llm.Model
	dispatcher  *operations.Dispatcher
	recorder    *audit.Recorder
	turnTimeout time.Duration
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTurnTimeout overrides DefaultTurnTimeout.
func WithTurnTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.turnTimeout = d
		}
	}
}

// WithRecorder enables the audit trail.
func WithRecorder(r *audit.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(model llm.Model, dispatcher *operations.Dispatcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		model:       model,
		dispatcher:  dispatcher,
		turnTimeout: DefaultTurnTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ── Turn state machine ──────────────────────────────────────

type state int

const (
	stateInit state = iota
	stateFirstCall
	stateDirectReply
	stateFunctionRequested
	stateDispatch
	stateFollowUp
	stateApology
	stateDone
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateFirstCall:
		return "first_call"
	case stateDirectReply:
		return "direct_reply"
	case stateFunctionRequested:
		return "function_requested"
	case stateDispatch:
		return "dispatch"
	case stateFollowUp:
		return "follow_up_call"
	case stateApology:
		return "apology"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// turn is the scratch state of one Handle call.
type turn struct {
	req     models.ChatRequest
	role    models.Role
	offered []models.FunctionDefinition
	history []llm.Message

	first  *llm.Reply
	call   models.FunctionCall
	result models.FunctionResult

	message string
	records []models.FunctionCallRecord
}

// Handle runs one turn. Operation failures are narrated in the reply; only
// model failures surface as an error.
func (o *Orchestrator) Handle(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "chat.turn")
	defer span.End()

	t := &turn{req: req}
	st := stateInit
	for st != stateDone {
		next, err := o.step(ctx, st, t)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, st.String())
			log.Error().Err(err).Str("state", st.String()).Str("role", string(t.role)).Msg("Chat turn failed")
			return nil, err
		}
		log.Debug().Str("from", st.String()).Str("to", next.String()).Msg("Turn transition")
		st = next
	}

	span.SetAttributes(
		attribute.String("caller.role", string(t.role)),
		attribute.Int("chat.function_calls", len(t.records)),
	)

	sessionID := req.SessionID
	now := o.now()
	if sessionID == "" {
		sessionID = fmt.Sprintf("session_%d", now.UnixMilli())
	}

	log.Info().
		Str("user_id", req.UserID).
		Str("session_id", sessionID).
		Int("response_length", len(t.message)).
		Int("function_calls", len(t.records)).
		Msg("Chat response sent")

	return &models.ChatResponse{
		Message:       t.message,
		FunctionCalls: t.records,
		SessionID:     sessionID,
		Timestamp:     models.FormatTimestamp(now),
	}, nil
}

func (o *Orchestrator) step(ctx context.Context, st state, t *turn) (state, error) {
	switch st {
	case stateInit:
		t.role = t.req.Role()
		t.offered = o.dispatcher.Offered(t.role)
		t.history = []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt(t.role)},
			{Role: llm.RoleUser, Content: t.req.Message},
		}
		log.Info().
			Str("user_id", t.req.UserID).
			Str("session_id", t.req.SessionID).
			Str("role", string(t.role)).
			Int("message_length", len(t.req.Message)).
			Int("functions_offered", len(t.offered)).
			Msg("Chat request received")
		return stateFirstCall, nil

	case stateFirstCall:
		reply, err := o.complete(ctx, llm.Request{Messages: t.history, Functions: t.offered})
		if err != nil {
			return st, err
		}
		t.first = reply
		if reply.FunctionCall == nil {
			return stateDirectReply, nil
		}
		return stateFunctionRequested, nil

	case stateDirectReply:
		t.message = t.first.Content
		return stateDone, nil

	case stateFunctionRequested:
		name := t.first.FunctionCall.Name
		args, err := ParseArguments(t.first.FunctionCall.Arguments)
		if err != nil {
			log.Warn().Err(err).Str("function", name).Msg("Model sent malformed function arguments")
			t.call = models.FunctionCall{Name: name, Arguments: map[string]interface{}{}}
			t.result = models.Failure("Malformed arguments for function " + name)
			o.record(ctx, t, 0)
			return stateApology, nil
		}
		t.call = models.FunctionCall{Name: name, Arguments: args}
		log.Info().
			Str("function", name).
			Str("role", string(t.role)).
			Interface("args", redact.Map(args)).
			Msg("Function call requested")
		return stateDispatch, nil

	case stateDispatch:
		start := time.Now()
		t.result = o.dispatcher.Execute(ctx, t.call, t.role)
		o.record(ctx, t, time.Since(start))
		if t.result.Success {
			return stateFollowUp, nil
		}
		return stateApology, nil

	case stateFollowUp:
		payload, err := json.Marshal(t.result)
		if err != nil {
			return st, fmt.Errorf("encode function result: %w", err)
		}
		msgs := make([]llm.Message, 0, len(t.history)+2)
		msgs = append(msgs, t.history...)
		msgs = append(msgs,
			llm.Message{Role: llm.RoleAssistant, FunctionCall: t.first.FunctionCall},
			llm.Message{Role: llm.RoleFunction, Name: t.call.Name, Content: string(payload)},
		)
		reply, err := o.complete(ctx, llm.Request{Messages: msgs})
		if err != nil {
			return st, err
		}
		t.message = reply.Content
		if t.message == "" {
			t.message = t.first.Content
		}
		return stateDone, nil

	case stateApology:
		t.message = "I apologize, but I encountered an error: " + t.result.Error
		return stateDone, nil
	}
	return st, fmt.Errorf("invalid turn state %d", st)
}

func (o *Orchestrator) complete(ctx context.Context, req llm.Request) (*llm.Reply, error) {
	reply, err := o.model.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoModelReply, err)
	}
	if reply == nil {
		return nil, ErrNoModelReply
	}
	return reply, nil
}

// record appends the attempted call to the response and the audit trail.
func (o *Orchestrator) record(ctx context.Context, t *turn, elapsed time.Duration) {
	t.records = append(t.records, models.FunctionCallRecord{
		Name:      t.call.Name,
		Arguments: t.call.Arguments,
		Result:    t.result,
	})
	o.recorder.Record(ctx, audit.Entry{
		SessionID: t.req.SessionID,
		UserID:    t.req.UserID,
		Role:      t.role,
		Call:      t.call,
		Result:    t.result,
		Duration:  elapsed,
	})
}

// ParseArguments decodes the model's argument payload. An empty payload is
// an empty object; anything that is not a JSON object is rejected.
func ParseArguments(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", operations.ErrMalformedArguments, err)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return args, nil
}
