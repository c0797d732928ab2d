package operations

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/primaai/agent-gateway/internal/permissions"
	"github.com/primaai/agent-gateway/internal/redact"
	"github.com/primaai/agent-gateway/pkg/models"
)

// CheckAvailabilityParams are the arguments of check_availability.
type CheckAvailabilityParams struct {
	VenueID   string `json:"venueId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	PartySize int    `json:"partySize"`
}

var checkAvailabilityDefinition = models.FunctionDefinition{
	Name:        permissions.CheckAvailability,
	Description: "Check table availability for a specific venue, date, time, and party size",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"venueId":   venueIDProperty,
			"date":      dateProperty,
			"time":      timeProperty,
			"partySize": partySizeProperty,
		},
		"required": []interface{}{"venueId", "date", "time", "partySize"},
	},
}

type checkAvailability struct {
	backend Backend
}

// NewCheckAvailability returns the check_availability operation.
func NewCheckAvailability(b Backend) Operation { return &checkAvailability{backend: b} }

func (op *checkAvailability) Definition() models.FunctionDefinition {
	return checkAvailabilityDefinition
}

func (op *checkAvailability) Execute(ctx context.Context, args map[string]interface{}) models.FunctionResult {
	var params CheckAvailabilityParams
	if err := decodeArgs(args, &params); err != nil {
		return invalidArguments(permissions.CheckAvailability, err)
	}

	log.Info().Interface("params", redact.Map(args)).Msg("Checking availability")

	body := map[string]interface{}{
		"date":       params.Date,
		"time":       params.Time,
		"party_size": params.PartySize,
	}
	var resp map[string]interface{}
	path := "/venues/" + url.PathEscape(params.VenueID) + "/availability"
	if err := op.backend.Post(ctx, path, body, &resp); err != nil {
		log.Error().Err(err).Str("venue_id", params.VenueID).Msg("Error checking availability")
		return models.Failure("Failed to check availability. Please try again.")
	}

	available, _ := resp["available"].(bool)
	msg := fmt.Sprintf("Unfortunately, no availability for %d people on %s at %s.", params.PartySize, params.Date, params.Time)
	if available {
		msg = fmt.Sprintf("Table is available for %d people on %s at %s.", params.PartySize, params.Date, params.Time)
	}

	return models.FunctionResult{
		Success: true,
		Data:    resp,
		Message: msg,
	}
}
