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

// DateRange bounds an analytics query (inclusive, YYYY-MM-DD).
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AnalyticsQueryParams are the arguments of get_analytics.
type AnalyticsQueryParams struct {
	Metric    string    `json:"metric"`
	DateRange DateRange `json:"dateRange"`
	VenueID   string    `json:"venueId,omitempty"`
	GroupBy   string    `json:"groupBy,omitempty"`
}

var getAnalyticsDefinition = models.FunctionDefinition{
	Name:        permissions.GetAnalytics,
	Description: "Retrieve analytics data for bookings, revenue, occupancy, or popular venues",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"metric": map[string]interface{}{
				"type":        "string",
				"enum":        []interface{}{"bookings", "revenue", "occupancy", "popular_venues"},
				"description": "Type of analytics data to retrieve",
			},
			"dateRange": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"start": map[string]interface{}{
						"type":        "string",
						"pattern":     datePattern,
						"description": "Start date in YYYY-MM-DD format",
					},
					"end": map[string]interface{}{
						"type":        "string",
						"pattern":     datePattern,
						"description": "End date in YYYY-MM-DD format",
					},
				},
				"required":    []interface{}{"start", "end"},
				"description": "Date range for analytics query",
			},
			"venueId": map[string]interface{}{
				"type":        "string",
				"description": "Optional venue ID to filter analytics for specific venue",
			},
			"groupBy": map[string]interface{}{
				"type":        "string",
				"enum":        []interface{}{"day", "week", "month"},
				"description": "How to group the analytics data",
			},
		},
		"required": []interface{}{"metric", "dateRange"},
	},
}

type getAnalytics struct {
	backend Backend
}

// NewGetAnalytics returns the get_analytics operation.
func NewGetAnalytics(b Backend) Operation { return &getAnalytics{backend: b} }

func (op *getAnalytics) Definition() models.FunctionDefinition { return getAnalyticsDefinition }

func (op *getAnalytics) Execute(ctx context.Context, args map[string]interface{}) models.FunctionResult {
	var params AnalyticsQueryParams
	if err := decodeArgs(args, &params); err != nil {
		return invalidArguments(permissions.GetAnalytics, err)
	}

	log.Info().Interface("params", redact.Map(args)).Msg("Fetching analytics")

	query := url.Values{}
	query.Set("start_date", params.DateRange.Start)
	query.Set("end_date", params.DateRange.End)
	query.Set("venue_id", params.VenueID)
	query.Set("group_by", params.GroupBy)

	var data interface{}
	if err := op.backend.Get(ctx, "/analytics/"+url.PathEscape(params.Metric), query, &data); err != nil {
		log.Error().Err(err).Str("metric", params.Metric).Msg("Error fetching analytics")
		return models.Failure("Failed to retrieve analytics data. Please try again.")
	}

	return models.FunctionResult{
		Success: true,
		Data:    data,
		Message: fmt.Sprintf("Analytics data retrieved for %s from %s to %s.",
			params.Metric, params.DateRange.Start, params.DateRange.End),
	}
}
