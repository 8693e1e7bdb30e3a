package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"lgcms/internal/config"
)

// Charts served by the analytics backend.
var Charts = []string{
	"complaint_status_distribution",
	"complaint_trends",
	"complaint_department_distribution",
	"user_role_distribution",
	"resolution_time_distribution",
	"complaint_category_trends",
	"complaint_heatmap_data",
}

var (
	ErrUnknownChart = errors.New("analytics: unknown chart")
	ErrUnavailable  = errors.New("analytics: backend unavailable")
	ErrRejected     = errors.New("analytics: request rejected")
)

const maxBody = 4 << 20

func KnownChart(name string) bool {
	for _, c := range Charts {
		if c == name {
			return true
		}
	}
	return false
}

type PredictInput struct {
	DescriptionLength int `json:"complaint_description_length"`
	EvidenceCount     int `json:"num_evidence_files"`
}

type Prediction struct {
	Days        float64         `json:"predicted_resolution_time_days"`
	Explanation json.RawMessage `json:"explanation,omitempty"`
}

// Client talks to the analytics backend through a circuit breaker so a slow
// or failing backend does not tie up request goroutines.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

func NewClient(cfg config.AnalyticsConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	logger := log.With().Str("component", "analytics").Logger()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "analytics",
		MaxRequests: cfg.BreakerHalfOpen,
		Timeout:     cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("analytics breaker state changed")
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		log:     logger,
	}
}

// Chart fetches the raw payload for one chart.
func (c *Client) Chart(ctx context.Context, name string) (json.RawMessage, error) {
	if !KnownChart(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChart, name)
	}
	body, err := c.do(ctx, http.MethodGet, "/"+name, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: chart %s returned invalid json", ErrUnavailable, name)
	}
	return json.RawMessage(body), nil
}

func (c *Client) PredictResolution(ctx context.Context, input PredictInput) (Prediction, error) {
	body, err := c.do(ctx, http.MethodPost, "/predict/resolution_time", input)
	if err != nil {
		return Prediction{}, err
	}
	var p Prediction
	if err := json.Unmarshal(body, &p); err != nil {
		return Prediction{}, fmt.Errorf("%w: decode prediction: %v", ErrUnavailable, err)
	}
	return p, nil
}

// Retrain asks the backend to rebuild its model from current data.
func (c *Client) Retrain(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/retrain_model", nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: no base url configured", ErrUnavailable)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		var body io.Reader
		if payload != nil {
			buf, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("%w: encode: %v", ErrRejected, err)
			}
			body = bytes.NewReader(buf)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRejected, err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
		}
		switch {
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: %s %s returned %d", ErrUnavailable, method, path, resp.StatusCode)
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("%w: %s %s returned %d", ErrRejected, method, path, resp.StatusCode)
		}
		return data, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return out.([]byte), nil
}
