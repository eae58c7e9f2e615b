// Package honeycomb reports best-effort usage events to the Lacework alliances
// Honeycomb dataset. Failures are logged at warn level and never surfaced to
// the caller.
package honeycomb

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

// Build-time values, substituted via -ldflags on release builds.
var (
	Dataset = "$DATASET"
	TeamKey = "$HONEY_KEY"
	Version = "$BUILD"
)

const defaultSubAccount = "000000"

type event struct {
	Account         string          `json:"account"`
	SubAccount      string          `json:"sub-account"`
	TechPartner     string          `json:"tech-partner"`
	IntegrationName string          `json:"integration-name"`
	Version         string          `json:"version"`
	Service         string          `json:"service"`
	InstallMethod   string          `json:"install-method"`
	Function        string          `json:"function"`
	Event           string          `json:"event"`
	EventData       json.RawMessage `json:"event-data"`
}

// Client posts usage events to a fixed Honeycomb endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	teamKey    string
	logger     *log.Logger
}

// NewClient creates a Client using the build-time dataset and team key. A nil
// logger falls back to the stdlib default logger.
func NewClient(logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   "https://api.honeycomb.io/1/events/" + Dataset,
		teamKey:    TeamKey,
		logger:     logger,
	}
}

// Emit sends one usage event. It never returns an error and never retries;
// any failure is logged as a warning and dropped.
func (c *Client) Emit(ctx context.Context, account, eventName, subAccount string, eventData json.RawMessage) {
	if c == nil {
		return
	}
	if subAccount == "" {
		subAccount = defaultSubAccount
	}
	if len(eventData) == 0 {
		eventData = json.RawMessage("{}")
	}

	payload, err := json.Marshal(event{
		Account:         account,
		SubAccount:      subAccount,
		TechPartner:     "AWS",
		IntegrationName: "lacework-aws-control-tower-cloudformation",
		Version:         Version,
		Service:         "AWS Control Tower",
		InstallMethod:   "cloudformation",
		Function:        "account",
		Event:           eventName,
		EventData:       eventData,
	})
	if err != nil {
		c.logger.Printf("[WARN] honeycomb: marshal event: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		c.logger.Printf("[WARN] honeycomb: build request: %v", err)
		return
	}
	req.Header.Set("X-Honeycomb-Team", c.teamKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("[WARN] honeycomb: send event: %v", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Printf("[WARN] honeycomb: unexpected status %d", resp.StatusCode)
		return
	}
	c.logger.Printf("honeycomb: event %q sent for %s", eventName, account)
}
