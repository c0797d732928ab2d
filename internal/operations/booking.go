package operations

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/primaai/agent-gateway/internal/permissions"
	"github.com/primaai/agent-gateway/internal/redact"
	"github.com/primaai/agent-gateway/pkg/models"
)

// CreateBookingParams are the arguments of create_booking.
type CreateBookingParams struct {
	VenueID         string `json:"venueId"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PartySize       int    `json:"partySize"`
	GuestName       string `json:"guestName"`
	GuestEmail      string `json:"guestEmail"`
	GuestPhone      string `json:"guestPhone,omitempty"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

var createBookingDefinition = models.FunctionDefinition{
	Name:        permissions.CreateBooking,
	Description: "Create a new restaurant reservation/booking",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"venueId":   venueIDProperty,
			"date":      dateProperty,
			"time":      timeProperty,
			"partySize": partySizeProperty,
			"guestName": map[string]interface{}{
				"type":        "string",
				"minLength":   1,
				"description": "Full name of the primary guest",
			},
			"guestEmail": map[string]interface{}{
				"type":        "string",
				"format":      "email",
				"description": "Email address for confirmation",
			},
			"guestPhone": map[string]interface{}{
				"type":        "string",
				"description": "Phone number (optional)",
			},
			"specialRequests": map[string]interface{}{
				"type":        "string",
				"description": "Any special requests or dietary restrictions",
			},
		},
		"required": []interface{}{"venueId", "date", "time", "partySize", "guestName", "guestEmail"},
	},
}

type createBooking struct {
	backend Backend
}

// NewCreateBooking returns the create_booking operation.
func NewCreateBooking(b Backend) Operation { return &createBooking{backend: b} }

func (op *createBooking) Definition() models.FunctionDefinition { return createBookingDefinition }

func (op *createBooking) Execute(ctx context.Context, args map[string]interface{}) models.FunctionResult {
	var params CreateBookingParams
	if err := decodeArgs(args, &params); err != nil {
		return invalidArguments(permissions.CreateBooking, err)
	}
	if !validEmail(params.GuestEmail) {
		return invalidArguments(permissions.CreateBooking, fmt.Errorf("%w: guestEmail is not a valid email address", ErrInvalidArguments))
	}

	log.Info().Interface("params", redact.Map(args)).Msg("Creating booking")

	body := map[string]interface{}{
		"venue_id":         params.VenueID,
		"date":             params.Date,
		"time":             params.Time,
		"party_size":       params.PartySize,
		"guest_name":       params.GuestName,
		"guest_email":      params.GuestEmail,
		"guest_phone":      params.GuestPhone,
		"special_requests": params.SpecialRequests,
	}
	var resp map[string]interface{}
	if err := op.backend.Post(ctx, "/bookings", body, &resp); err != nil {
		log.Error().Err(err).Str("venue_id", params.VenueID).Msg("Error creating booking")
		return models.Failure("Failed to create booking. Please try again or contact the restaurant directly.")
	}

	return models.FunctionResult{
		Success: true,
		Data:    resp,
		Message: fmt.Sprintf("Booking confirmed! Reservation ID: %v. Confirmation details have been sent to %s.",
			resp["id"], redact.MaskEmail(params.GuestEmail)),
	}
}
