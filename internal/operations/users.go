package operations

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/primaai/agent-gateway/internal/permissions"
	"github.com/primaai/agent-gateway/internal/redact"
	"github.com/primaai/agent-gateway/pkg/models"
)

// UserQueryParams are the arguments of get_user_info.
type UserQueryParams struct {
	UserID             string `json:"userId,omitempty"`
	Email              string `json:"email,omitempty"`
	IncludeBookings    bool   `json:"includeBookings"`
	IncludePreferences bool   `json:"includePreferences"`
}

var getUserInfoDefinition = models.FunctionDefinition{
	Name:        permissions.GetUserInfo,
	Description: "Retrieve user information including bookings and preferences",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"userId": map[string]interface{}{
				"type":        "string",
				"description": "Unique user identifier",
			},
			"email": map[string]interface{}{
				"type":        "string",
				"format":      "email",
				"description": "User email address",
			},
			"includeBookings": map[string]interface{}{
				"type":        "boolean",
				"default":     false,
				"description": "Include user booking history",
			},
			"includePreferences": map[string]interface{}{
				"type":        "boolean",
				"default":     false,
				"description": "Include user dining preferences",
			},
		},
	},
}

type getUserInfo struct {
	backend Backend
}

// NewGetUserInfo returns the get_user_info operation.
func NewGetUserInfo(b Backend) Operation { return &getUserInfo{backend: b} }

func (op *getUserInfo) Definition() models.FunctionDefinition { return getUserInfoDefinition }

func (op *getUserInfo) Execute(ctx context.Context, args map[string]interface{}) models.FunctionResult {
	var params UserQueryParams
	if err := decodeArgs(args, &params); err != nil {
		return invalidArguments(permissions.GetUserInfo, err)
	}
	if params.Email != "" && !validEmail(params.Email) {
		return invalidArguments(permissions.GetUserInfo, fmt.Errorf("%w: email is not a valid email address", ErrInvalidArguments))
	}

	log.Info().Interface("params", redact.Map(args)).Msg("Fetching user info")

	query := url.Values{}
	query.Set("user_id", params.UserID)
	query.Set("email", params.Email)
	query.Set("include_bookings", strconv.FormatBool(params.IncludeBookings))
	query.Set("include_preferences", strconv.FormatBool(params.IncludePreferences))

	var data interface{}
	if err := op.backend.Get(ctx, "/users", query, &data); err != nil {
		log.Error().Err(err).Msg("Error fetching user info")
		return models.Failure("Failed to retrieve user information. Please try again.")
	}

	return models.FunctionResult{
		Success: true,
		Data:    data,
		Message: "User information retrieved successfully.",
	}
}
