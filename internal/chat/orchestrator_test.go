package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primaai/agent-gateway/internal/audit"
	"github.com/primaai/agent-gateway/internal/backend"
	"github.com/primaai/agent-gateway/internal/chat"
	"github.com/primaai/agent-gateway/internal/llm"
	"github.com/primaai/agent-gateway/internal/operations"
	"github.com/primaai/agent-gateway/internal/permissions"
	"github.com/primaai/agent-gateway/pkg/models"
)

// scriptedModel replays replies in order and keeps every request it saw.
type scriptedModel struct {
	replies  []*llm.Reply
	err      error
	requests []llm.Request
}

func (m *scriptedModel) Complete(ctx context.Context, req llm.Request) (*llm.Reply, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.requests) > len(m.replies) {
		return nil, errors.New("unexpected model call")
	}
	return m.replies[len(m.requests)-1], nil
}

type fakeBackend struct {
	srv   *httptest.Server
	calls int32
	last  map[string]interface{}
}

func newFakeBackend(t *testing.T, resp interface{}) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fb.calls, 1)
		_ = json.NewDecoder(r.Body).Decode(&fb.last)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(fb.srv.Close)
	return fb
}

func newOrchestrator(t *testing.T, model llm.Model, fb *fakeBackend, store audit.Store) *chat.Orchestrator {
	t.Helper()
	client := backend.New(backend.Config{BaseURL: fb.srv.URL, Token: "tok"})
	d := operations.NewDispatcher(operations.Default(client), permissions.Default(), time.Second)
	fixed := time.UnixMilli(1700000000123)
	return chat.New(model, d,
		chat.WithRecorder(audit.NewRecorder(store)),
		chat.WithClock(func() time.Time { return fixed }),
	)
}

func request(msg string, role models.Role) models.ChatRequest {
	return models.ChatRequest{
		Message: msg,
		UserID:  "u1",
		Context: map[string]interface{}{"role": string(role)},
	}
}

func TestHandle_DirectReply(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Reply{{Content: "Hello! How can I help?"}}}
	o := newOrchestrator(t, model, newFakeBackend(t, nil), nil)

	resp, err := o.Handle(context.Background(), models.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", resp.Message)
	assert.Empty(t, resp.FunctionCalls)
	assert.Equal(t, "session_1700000000123", resp.SessionID)
	assert.Equal(t, "2023-11-14T22:13:20.123Z", resp.Timestamp)

	require.Len(t, model.requests, 1)
	first := model.requests[0]
	require.Len(t, first.Messages, 2)
	assert.Equal(t, llm.RoleSystem, first.Messages[0].Role)
	assert.Contains(t, first.Messages[0].Content, "Current user role: user")
	assert.Equal(t, "hi", first.Messages[1].Content)
}

func TestHandle_KeepsSessionID(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Reply{{Content: "ok"}}}
	o := newOrchestrator(t, model, newFakeBackend(t, nil), nil)

	resp, err := o.Handle(context.Background(), models.ChatRequest{Message: "hi", SessionID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.SessionID)
}

func TestHandle_OffersOnlyPermittedFunctions(t *testing.T) {
	for _, role := range models.Roles {
		model := &scriptedModel{replies: []*llm.Reply{{Content: "ok"}}}
		o := newOrchestrator(t, model, newFakeBackend(t, nil), nil)

		_, err := o.Handle(context.Background(), request("hi", role))
		require.NoError(t, err)

		offered := model.requests[0].Functions
		assert.Len(t, offered, len(permissions.Default().Permitted(role)), role)
		for _, def := range offered {
			assert.True(t, permissions.Default().IsPermitted(role, def.Name), "%s offered %s", role, def.Name)
		}
	}
}

func TestHandle_UnknownRoleOffersNothing(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Reply{{Content: "ok"}}}
	o := newOrchestrator(t, model, newFakeBackend(t, nil), nil)

	_, err := o.Handle(context.Background(), request("hi", models.Role("superuser")))
	require.NoError(t, err)
	assert.Empty(t, model.requests[0].Functions)
	assert.Contains(t, model.requests[0].Messages[0].Content, "Current user role: superuser")
	assert.Contains(t, model.requests[0].Messages[0].Content, "cannot make bookings for others")
}

func TestHandle_GuestBookingDenied(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Reply{{
		FunctionCall: &llm.FunctionCall{
			Name:      "create_booking",
			Arguments: `{"venueId":"v1","date":"2026-11-01","time":"19:00","partySize":2,"guestName":"Ada","guestEmail":"ada@example.com"}`,
		},
	}}}
	fb := newFakeBackend(t, map[string]interface{}{"id": "bk_1"})
	store := audit.NewMemoryStore(10)
	o := newOrchestrator(t, model, fb, store)

	resp, err := o.Handle(context.Background(), request("book a table", models.RoleGuest))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Message, "I apologize, but I encountered an error: "))
	assert.Contains(t, resp.Message, "not permitted")
	require.Len(t, resp.FunctionCalls, 1)
	assert.Equal(t, "create_booking", resp.FunctionCalls[0].Name)
	assert.False(t, resp.FunctionCalls[0].Result.Success)
	assert.Zero(t, atomic.LoadInt32(&fb.calls))
	assert.Len(t, model.requests, 1)

	events, err := store.ListAuditEvents(context.Background(), models.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	assert.Equal(t, models.RoleGuest, events[0].Role)
	assert.Equal(t, "[REDACTED]", events[0].Arguments["guestEmail"])
}

func TestHandle_StaffAvailabilityFollowUp(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Reply{
		{FunctionCall: &llm.FunctionCall{
			Name:      "check_availability",
			Arguments: `{"venueId":"v1","date":"2026-11-01","time":"19:00","partySize":4}`,
		}},
		{Content: "Good news, a table for 4 is available at 19:00."},
	}}
	fb := newFakeBackend(t, map[string]interface{}{"available": true})
	o := newOrchestrator(t, model, fb, nil)

	resp, err := o.Handle(context.Background(), request("table for 4 tomorrow 7pm?", models.RoleStaff))
	require.NoError(t, err)

	assert.Equal(t, "Good news, a table for 4 is available at 19:00.", resp.Message)
	require.Len(t, resp.FunctionCalls, 1)
	assert.True(t, resp.FunctionCalls[0].Result.Success)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fb.calls))
	assert.Equal(t, float64(4), fb.last["party_size"])

	require.Len(t, model.requests, 2)
	follow := model.requests[1]
	assert.Empty(t, follow.Functions)
	require.Len(t, follow.Messages, 4)
	assert.Equal(t, llm.RoleAssistant, follow.Messages[2].Role)
	assert.Equal(t, "check_availability", follow.Messages[2].FunctionCall.Name)
	assert.Equal(t, llm.RoleFunction, follow.Messages[3].Role)
	assert.Equal(t, "check_availability", follow.Messages[3].Name)

	var payload models.FunctionResult
	require.NoError(t, json.Unmarshal([]byte(follow.Messages[3].Content), &payload))
	assert.True(t, payload.Success)
}

func TestHandle_EmptyFollowUpFallsBackToFirstText(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Reply{
		{Content: "Let me look.", FunctionCall: &llm.FunctionCall{Name: "search_venues", Arguments: ""}},
		{Content: ""},
	}}
	o := newOrchestrator(t, model, newFakeBackend(t, []interface{}{}), nil)

	resp, err := o.Handle(context.Background(), request("anything?", models.RoleGuest))
	require.NoError(t, err)
	assert.Equal(t, "Let me look.", resp.Message)
	assert.Empty(t, resp.FunctionCalls[0].Arguments)
}

func TestHandle_MissingArgumentNarrated(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Reply{{
		FunctionCall: &llm.FunctionCall{
			Name:      "check_availability",
			Arguments: `{"venueId":"v1","time":"19:00","partySize":2}`,
		},
	}}}
	fb := newFakeBackend(t, nil)
	o := newOrchestrator(t, model, fb, nil)

	resp, err := o.Handle(context.Background(), request("table?", models.RoleUser))
	require.NoError(t, err)
	assert.Equal(t, "I apologize, but I encountered an error: Missing required arguments: date", resp.Message)
	assert.Zero(t, atomic.LoadInt32(&fb.calls))
}

func TestHandle_MalformedArgumentsNeverDispatch(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Reply{{
		FunctionCall: &llm.FunctionCall{Name: "search_venues", Arguments: `{"cuisine":`},
	}}}
	fb := newFakeBackend(t, []interface{}{})
	o := newOrchestrator(t, model, fb, nil)

	resp, err := o.Handle(context.Background(), request("thai", models.RoleGuest))
	require.NoError(t, err)
	assert.Equal(t, "I apologize, but I encountered an error: Malformed arguments for function search_venues", resp.Message)
	require.Len(t, resp.FunctionCalls, 1)
	assert.False(t, resp.FunctionCalls[0].Result.Success)
	assert.Zero(t, atomic.LoadInt32(&fb.calls))
	assert.Len(t, model.requests, 1)
}

func TestHandle_ModelErrorFailsTurn(t *testing.T) {
	model := &scriptedModel{err: errors.New("rate limited")}
	o := newOrchestrator(t, model, newFakeBackend(t, nil), nil)

	_, err := o.Handle(context.Background(), request("hi", models.RoleUser))
	assert.ErrorIs(t, err, chat.ErrNoModelReply)
}

func TestHandle_FollowUpErrorFailsTurn(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Reply{
		{FunctionCall: &llm.FunctionCall{Name: "search_venues", Arguments: "{}"}},
	}}
	o := newOrchestrator(t, model, newFakeBackend(t, []interface{}{}), nil)

	_, err := o.Handle(context.Background(), request("hi", models.RoleGuest))
	assert.ErrorIs(t, err, chat.ErrNoModelReply)
}

func TestParseArguments(t *testing.T) {
	args, err := chat.ParseArguments("  ")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = chat.ParseArguments(`{"limit":5}`)
	require.NoError(t, err)
	assert.Equal(t, float64(5), args["limit"])

	_, err = chat.ParseArguments(`[1,2]`)
	assert.ErrorIs(t, err, operations.ErrMalformedArguments)

	_, err = chat.ParseArguments(`{"a":`)
	assert.ErrorIs(t, err, operations.ErrMalformedArguments)
}

func TestSystemPrompt(t *testing.T) {
	assert.Contains(t, chat.SystemPrompt(models.RoleAdmin), "full access to all functions")
	assert.Contains(t, chat.SystemPrompt(models.RoleGuest), "sign up for full booking")
	assert.Contains(t, chat.SystemPrompt(models.Role("x")), "cannot make bookings for others")
}
