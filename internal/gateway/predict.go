package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type PredictRequest struct {
	Age           int     `json:"age"`
	Weight        float64 `json:"weight"`
	Height        float64 `json:"height"`
	Gender        string  `json:"gender"`
	ActivityLevel string  `json:"activity_level"`
}

// RecommendationParams are the optional query parameters of
// GET /predict/recommend.
type RecommendationParams struct {
	DietaryPreference string
	Allergens         []string
	MaxResults        int
}

// PredictCalories estimates caloric needs. The response schema varies by
// deployed model version, so it is surfaced as a generic document.
func (c *Client) PredictCalories(ctx context.Context, req PredictRequest) (map[string]any, error) {
	var out map[string]any
	err := c.doJSON(ctx, http.MethodPost, "/predict/", req, &out)
	return out, err
}

func (c *Client) FoodRecommendations(ctx context.Context, params RecommendationParams) (map[string]any, error) {
	q := url.Values{}
	if params.DietaryPreference != "" {
		q.Set("dietary_preference", params.DietaryPreference)
	}
	if len(params.Allergens) > 0 {
		q.Set("allergens", strings.Join(params.Allergens, ","))
	}
	if params.MaxResults > 0 {
		q.Set("max_results", strconv.Itoa(params.MaxResults))
	}
	path := "/predict/recommend"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out map[string]any
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) ExampleInput(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.doJSON(ctx, http.MethodGet, "/predict/example", nil, &out)
	return out, err
}
