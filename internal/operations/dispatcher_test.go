package operations_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primaai/agent-gateway/internal/operations"
	"github.com/primaai/agent-gateway/internal/permissions"
	"github.com/primaai/agent-gateway/pkg/models"
)

func newFakeDispatcher(t *testing.T, ops ...operations.Operation) *operations.Dispatcher {
	t.Helper()
	r, err := operations.NewRegistry(ops...)
	require.NoError(t, err)
	return operations.NewDispatcher(r, permissions.Default(), time.Second)
}

func TestDispatch_UnknownFunction(t *testing.T) {
	search := &fakeOperation{name: "search_venues", result: models.FunctionResult{Success: true}}
	d := newFakeDispatcher(t, search)

	for _, role := range models.Roles {
		res := d.Execute(context.Background(), models.FunctionCall{Name: "launch_rockets"}, role)
		assert.False(t, res.Success)
		assert.Equal(t, "Unknown function: launch_rockets", res.Error)
	}
	assert.Zero(t, search.calls)
}

func TestDispatch_NotPermittedNeverReachesHandler(t *testing.T) {
	booking := &fakeOperation{name: "create_booking", result: models.FunctionResult{Success: true}}
	d := newFakeDispatcher(t, booking)

	for _, role := range []models.Role{models.RoleUser, models.RoleGuest, models.Role("intruder")} {
		res := d.Execute(context.Background(), models.FunctionCall{Name: "create_booking"}, role)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "not permitted")
	}
	assert.Zero(t, booking.calls)

	res := d.Execute(context.Background(), models.FunctionCall{Name: "create_booking"}, models.RoleStaff)
	assert.True(t, res.Success)
	assert.Equal(t, 1, booking.calls)
}

func TestDispatch_MissingRequired(t *testing.T) {
	op := &fakeOperation{name: "check_availability", required: []interface{}{"venueId", "date"}}
	d := newFakeDispatcher(t, op)

	res := d.Execute(context.Background(), models.FunctionCall{
		Name:      "check_availability",
		Arguments: map[string]interface{}{"venueId": "v1"},
	}, models.RoleAdmin)

	assert.False(t, res.Success)
	assert.Equal(t, "Missing required arguments: date", res.Error)
	assert.Zero(t, op.calls)
}

func TestDispatch_NilArgumentsTreatedAsEmpty(t *testing.T) {
	op := &fakeOperation{name: "search_venues", result: models.FunctionResult{Success: true, Message: "ok"}}
	d := newFakeDispatcher(t, op)

	res := d.Execute(context.Background(), models.FunctionCall{Name: "search_venues"}, models.RoleGuest)
	assert.True(t, res.Success)
	assert.Equal(t, 1, op.calls)
}

func TestDispatch_HandlerPanicIsContained(t *testing.T) {
	op := &fakeOperation{name: "search_venues", panicMsg: "boom: guest@example.com"}
	d := newFakeDispatcher(t, op)

	res := d.Execute(context.Background(), models.FunctionCall{Name: "search_venues"}, models.RoleGuest)
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to execute search_venues", res.Error)
	assert.NotContains(t, res.Error, "guest@example.com")
}

func TestDispatch_SchemaViolation(t *testing.T) {
	d := operations.NewDispatcher(operations.Default(nil), permissions.Default(), time.Second)

	res := d.Execute(context.Background(), models.FunctionCall{
		Name: "check_availability",
		Arguments: map[string]interface{}{
			"venueId":   "v1",
			"date":      "tomorrow",
			"time":      "19:00",
			"partySize": float64(2),
		},
	}, models.RoleStaff)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Invalid arguments for check_availability")
}

func TestDispatch_PartySizeOutOfRange(t *testing.T) {
	d := operations.NewDispatcher(operations.Default(nil), permissions.Default(), time.Second)

	res := d.Execute(context.Background(), models.FunctionCall{
		Name: "check_availability",
		Arguments: map[string]interface{}{
			"venueId":   "v1",
			"date":      "2026-11-01",
			"time":      "19:00",
			"partySize": float64(40),
		},
	}, models.RoleStaff)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Invalid arguments")
}

func TestDispatch_FractionalPartySizeNeverReachesBackend(t *testing.T) {
	b, reqs := newBackend(t, http.StatusOK, map[string]interface{}{"available": true})
	d := operations.NewDispatcher(operations.Default(b), permissions.Default(), time.Second)

	res := d.Execute(context.Background(), models.FunctionCall{
		Name: "check_availability",
		Arguments: map[string]interface{}{
			"venueId":   "v1",
			"date":      "2026-11-01",
			"time":      "19:00",
			"partySize": 2.5,
		},
	}, models.RoleStaff)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Invalid arguments for check_availability")
	assert.Empty(t, *reqs)
}

func TestDispatch_WholeFloatPartySizeAccepted(t *testing.T) {
	b, reqs := newBackend(t, http.StatusOK, map[string]interface{}{"available": true})
	d := operations.NewDispatcher(operations.Default(b), permissions.Default(), time.Second)

	res := d.Execute(context.Background(), models.FunctionCall{
		Name: "check_availability",
		Arguments: map[string]interface{}{
			"venueId":   "v1",
			"date":      "2026-11-01",
			"time":      "19:00",
			"partySize": float64(4),
		},
	}, models.RoleStaff)

	require.True(t, res.Success, res.Error)
	require.Len(t, *reqs, 1)
	assert.Equal(t, float64(4), (*reqs)[0].Body["party_size"])
}

func TestDispatch_FractionalSearchLimit(t *testing.T) {
	b, reqs := newBackend(t, http.StatusOK, []interface{}{})
	d := operations.NewDispatcher(operations.Default(b), permissions.Default(), time.Second)

	res := d.Execute(context.Background(), models.FunctionCall{
		Name:      "search_venues",
		Arguments: map[string]interface{}{"limit": 7.9},
	}, models.RoleGuest)

	assert.False(t, res.Success)
	assert.Empty(t, *reqs)
}

func TestAuthorize(t *testing.T) {
	d := operations.NewDispatcher(operations.Default(nil), permissions.Default(), 0)

	assert.NoError(t, d.Authorize(models.FunctionCall{Name: "get_user_info"}, models.RoleAdmin))
	assert.ErrorIs(t, d.Authorize(models.FunctionCall{Name: "get_user_info"}, models.RoleManager), operations.ErrNotPermitted)
	assert.ErrorIs(t, d.Authorize(models.FunctionCall{Name: "nope"}, models.RoleAdmin), operations.ErrUnknownOperation)
}

func TestOffered_IffPermitted(t *testing.T) {
	d := operations.NewDispatcher(operations.Default(nil), permissions.Default(), 0)

	for _, role := range append(models.Roles, models.Role("ghost")) {
		offered := d.Offered(role)
		names := map[string]bool{}
		for _, def := range offered {
			names[def.Name] = true
		}
		for _, name := range d.Registry().Names() {
			assert.Equal(t, permissions.Default().IsPermitted(role, name), names[name], "%s/%s", role, name)
		}
	}
	assert.Empty(t, d.Offered(models.Role("ghost")))
	assert.Len(t, d.Offered(models.RoleAdmin), 5)
}
