package api

import (
	"context"
	"encoding/json"
	"fmt"
	"scrimhub/internal/config"
	"scrimhub/internal/domain"
	"time"

	"github.com/valyala/fasthttp"
)

// TrackerClient reads recorded game sessions from the external telemetry
// service. The service is read-only and may be unreachable; every failure
// maps to domain.ErrTelemetryUnavailable so rating processing can abort
// cleanly and retry later.
type TrackerClient struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
}

func NewTrackerClient(cfg *config.Config) *TrackerClient {
	return &TrackerClient{
		baseURL: cfg.TrackerAPIURL,
		apiKey:  cfg.TrackerAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

type SessionResponse struct {
	Status int         `json:"status"`
	Data   SessionData `json:"data"`
}

type SessionData struct {
	SessionID string          `json:"session_id"`
	Map       string          `json:"map"`
	StartedAt time.Time       `json:"started_at"`
	Players   []SessionPlayer `json:"players"`
}

type SessionPlayer struct {
	Name   string `json:"name"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
}

func (c *TrackerClient) GetSession(ctx context.Context, sessionID string) (*SessionResponse, error) {
	url := fmt.Sprintf("%s/api/v1/sessions/%s", c.baseURL, sessionID)
	return doRequest[SessionResponse](ctx, c, url)
}

func doRequest[T any](ctx context.Context, client *TrackerClient, url string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if client.apiKey != "" {
		req.Header.Set("Authorization", client.apiKey)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTelemetryUnavailable, err)
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTelemetryUnavailable, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrTelemetryUnavailable, resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTelemetryUnavailable, err)
	}
	return &result, nil
}
