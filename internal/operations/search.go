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

// SearchVenuesParams are the arguments of search_venues.
type SearchVenuesParams struct {
	Query      string `json:"query,omitempty"`
	Location   string `json:"location,omitempty"`
	Cuisine    string `json:"cuisine,omitempty"`
	PriceRange string `json:"priceRange,omitempty"`
	Limit      int    `json:"limit"`
}

var searchVenuesDefinition = models.FunctionDefinition{
	Name:        permissions.SearchVenues,
	Description: "Search for venues/restaurants based on various criteria like location, cuisine, price range",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "General search query (restaurant name, cuisine type, etc.)",
			},
			"location": map[string]interface{}{
				"type":        "string",
				"description": "Location to search in (city, neighborhood, address)",
			},
			"cuisine": map[string]interface{}{
				"type":        "string",
				"description": "Type of cuisine (Italian, Mexican, Asian, etc.)",
			},
			"priceRange": map[string]interface{}{
				"type":        "string",
				"enum":        []interface{}{"$", "$$", "$$$", "$$$$"},
				"description": "Price range from $ (budget) to $$$$ (fine dining)",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"minimum":     1,
				"maximum":     50,
				"default":     10,
				"description": "Maximum number of results to return (1-50)",
			},
		},
	},
}

type searchVenues struct {
	backend Backend
}

// NewSearchVenues returns the search_venues operation.
func NewSearchVenues(b Backend) Operation { return &searchVenues{backend: b} }

func (op *searchVenues) Definition() models.FunctionDefinition { return searchVenuesDefinition }

func (op *searchVenues) Execute(ctx context.Context, args map[string]interface{}) models.FunctionResult {
	params := SearchVenuesParams{Limit: 10}
	if err := decodeArgs(args, &params); err != nil {
		return invalidArguments(permissions.SearchVenues, err)
	}

	log.Info().Interface("params", redact.Map(args)).Msg("Searching venues")

	query := url.Values{}
	query.Set("query", params.Query)
	query.Set("location", params.Location)
	query.Set("cuisine", params.Cuisine)
	query.Set("priceRange", params.PriceRange)
	query.Set("limit", strconv.Itoa(params.Limit))

	var venues interface{}
	if err := op.backend.Get(ctx, "/venues/search", query, &venues); err != nil {
		log.Error().Err(err).Msg("Error searching venues")
		return models.Failure("Failed to search venues. Please try again.")
	}

	return models.FunctionResult{
		Success: true,
		Data:    venues,
		Message: fmt.Sprintf("Found %d venues matching your criteria.", countResults(venues)),
	}
}

// countResults handles both bare arrays and paginated {"data": [...]} bodies.
func countResults(v interface{}) int {
	switch t := v.(type) {
	case []interface{}:
		return len(t)
	case map[string]interface{}:
		if inner, ok := t["data"].([]interface{}); ok {
			return len(inner)
		}
	}
	return 0
}
