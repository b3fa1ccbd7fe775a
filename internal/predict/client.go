// Package predict wraps the external AI failure-prediction API. The service
// degrades gracefully: any failure to obtain a real prediction (network
// error, timeout, non-2xx status, undecodable body) yields a simulated
// pseudo-random result flagged Simulated. The fallback is explicit product
// behavior, not an error: the dashboard always shows a prediction.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Request carries the equipment attributes submitted for analysis.
type Request struct {
	EquipmentID         string  `json:"equipment_id"`
	Type                string  `json:"type"`
	Temperature         float64 `json:"temperature"`
	AgeYears            float64 `json:"age_years"`
	LastMaintenanceDays int     `json:"last_maintenance_days"`
}

// Result is one prediction, real or simulated.
type Result struct {
	FailureRisk       float64 `json:"failure_risk"`
	PredictedType     string  `json:"predicted_type"`
	Confidence        float64 `json:"confidence"`
	RecommendedAction string  `json:"recommended_action"`
	Simulated         bool    `json:"simulated"`
}

// Client calls POST {base}/predict and falls back to simulation.
type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

// NewClient returns a prediction client. An empty baseURL disables the
// remote call entirely: every prediction is simulated. A timeout of 0 falls
// back to 5 seconds.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log.With().Str("component", "predict").Logger(),
	}
}

// Predict returns a prediction for req. It never returns an error: failure
// paths produce a simulated result instead.
func (c *Client) Predict(ctx context.Context, req Request) Result {
	if c.base == "" {
		return c.simulate(req)
	}
	res, err := c.call(ctx, req)
	if err != nil {
		c.log.Warn().Str("equipment_id", req.EquipmentID).Err(err).
			Msg("prediction API unavailable, using simulated result")
		return c.simulate(req)
	}
	res.Simulated = false
	return res
}

// call performs the actual HTTP round trip.
func (c *Client) call(ctx context.Context, req Request) (Result, error) {
	var res Result
	b, err := json.Marshal(req)
	if err != nil {
		return res, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/predict", bytes.NewReader(b))
	if err != nil {
		return res, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return res, fmt.Errorf("prediction API returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return res, err
	}
	return res, nil
}

// failureTypes are the categories the simulation draws from.
var failureTypes = []string{
	"Compresseur",
	"Fuite de gaz réfrigérant",
	"Thermostat défaillant",
	"Givrage excessif",
	"Ventilateur bloqué",
}

// simulate produces a plausible pseudo-random prediction. The risk skews
// higher for warmer units and longer maintenance gaps so simulated output
// still reads sensibly on the dashboard. It draws from the package-level
// math/rand source, which is safe under concurrent Predict calls.
func (c *Client) simulate(req Request) Result {
	risk := 15 + rand.Float64()*40
	if req.Temperature > 8 {
		risk += 15
	}
	if req.LastMaintenanceDays > 90 {
		risk += 10
	}
	if risk > 95 {
		risk = 95
	}

	kind := failureTypes[rand.Intn(len(failureTypes))]
	action := "Surveillance de routine recommandée"
	if risk > 60 {
		action = "Planifier une intervention préventive sous 7 jours"
	}
	return Result{
		FailureRisk:       float64(int(risk*10)) / 10,
		PredictedType:     kind,
		Confidence:        50 + rand.Float64()*30,
		RecommendedAction: action,
		Simulated:         true,
	}
}
