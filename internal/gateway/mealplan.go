package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type MealPlanRequest struct {
	Name             string   `json:"name"`
	Age              int      `json:"age"`
	HealthConditions []string `json:"health_conditions"`
	PreferredFoods   []string `json:"preferred_foods"`
}

type MealPlanResponse struct {
	Success      bool           `json:"success"`
	PatientName  string         `json:"patient_name"`
	CaloricNeeds int            `json:"caloric_needs"`
	MealPlan     map[string]any `json:"meal_plan"`
	ShoppingList []string       `json:"shopping_list"`
	Tips         []string       `json:"tips"`
	GeneratedAt  string         `json:"generated_at"`
	ModelUsed    string         `json:"model_used"`
}

func (c *Client) GenerateMealPlan(ctx context.Context, req MealPlanRequest) (MealPlanResponse, error) {
	var resp MealPlanResponse
	err := c.doJSON(ctx, http.MethodPost, "/meal-plan/generate", req, &resp)
	return resp, err
}

// PDFFilename derives the client-side filename for a downloaded plan:
// meal_plan_<name-with-underscores>_<YYYY-MM-DD>.pdf.
func PDFFilename(patientName string, now time.Time) string {
	name := strings.ReplaceAll(patientName, " ", "_")
	return fmt.Sprintf("meal_plan_%s_%s.pdf", name, now.Format("2006-01-02"))
}

// DownloadPDF generates a meal plan server-side and returns the binary PDF.
func (c *Client) DownloadPDF(ctx context.Context, req MealPlanRequest) ([]byte, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/meal-plan/generate/pdf", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("POST /meal-plan/generate/pdf: %w", err)
	}
	defer func(b io.ReadCloser) {
		err := b.Close()
		if err != nil {
		}
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pdf body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, c.apiError(resp.StatusCode, data)
	}
	return data, nil
}
