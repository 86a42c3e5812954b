// Package simclient talks to the device simulator's HTTP control surface.
//
// # Operations
//
//   - Status: read the running flag and the active event map
//   - ListConfigs / SaveConfig / DeleteConfig: connection profile CRUD
//   - Start / Stop: control the simulated data feed
//   - TriggerEvent: flip one fault condition, or clear all with "none"
//   - RequestPublish: ask the simulator to publish a frame immediately
package simclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"subsim-ctl/internal/config"
	"subsim-ctl/internal/state"
)

// Client communicates with the simulator.
type Client struct {
	baseURL    string
	paths      config.Paths
	userAgent  string
	httpClient *http.Client
}

// Config for the client.
type Config struct {
	BaseURL    string
	Paths      config.Paths
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// FromServerConfig maps the file configuration onto a client Config.
func FromServerConfig(s config.Server) Config {
	return Config{BaseURL: s.BaseURL, Paths: s.Paths, UserAgent: s.UserAgent, Timeout: s.Timeout}
}

// NewClient creates a new simulator client. A zero Timeout leaves request
// lifetime to the caller's context and the transport defaults.
func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "subsim-ctl/1.0"
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		paths:      cfg.Paths,
		userAgent:  cfg.UserAgent,
		httpClient: cfg.HTTPClient,
	}
}

// BaseURL returns the simulator address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status fetches the current simulation state.
func (c *Client) Status(ctx context.Context) (state.SimulationState, error) {
	const op = "status"
	resp, err := c.doRequest(ctx, http.MethodGet, c.paths.Status, nil)
	if err != nil {
		return state.SimulationState{}, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if !ok(resp) {
		return state.SimulationState{}, c.readError(op, resp, "")
	}

	var payload struct {
		Running      *bool              `json:"simulation_running"`
		ActiveEvents state.ActiveEvents `json:"active_events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return state.SimulationState{}, &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if payload.Running == nil {
		return state.SimulationState{}, &TransportError{Op: op, Err: errors.New("decoding response: simulation_running missing")}
	}
	s := state.SimulationState{Running: *payload.Running, ActiveEvents: payload.ActiveEvents}
	if s.ActiveEvents == nil {
		s.ActiveEvents = state.ActiveEvents{}
	}
	for target, events := range s.ActiveEvents {
		if events == nil {
			s.ActiveEvents[target] = map[string]bool{}
		}
	}
	return s, nil
}

// ListConfigs fetches the stored connection profiles in server order.
func (c *Client) ListConfigs(ctx context.Context) ([]ConfigProfile, error) {
	const op = "list configs"
	resp, err := c.doRequest(ctx, http.MethodGet, c.paths.Configs, nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if !ok(resp) {
		return nil, c.readError(op, resp, "could not fetch the configuration list")
	}

	var result []ConfigProfile
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return result, nil
}

// Start asks the simulator to begin publishing.
func (c *Client) Start(ctx context.Context, req StartRequest) (CommandResult, error) {
	res, _, err := c.command(ctx, "start", http.MethodPost, c.paths.Start, req, "")
	return res, err
}

// Stop asks the simulator to stop publishing.
func (c *Client) Stop(ctx context.Context) (CommandResult, error) {
	res, _, err := c.command(ctx, "stop", http.MethodPost, c.paths.Stop, nil, "")
	return res, err
}

// TriggerEvent flips one composite event key, or clears every active event
// when event is "none". The client carries no toggle direction.
func (c *Client) TriggerEvent(ctx context.Context, event string) (CommandResult, error) {
	res, _, err := c.command(ctx, "trigger event", http.MethodPost, c.paths.Trigger, triggerRequest{Event: event}, "")
	return res, err
}

// RequestPublish asks the simulator to publish a data frame immediately.
func (c *Client) RequestPublish(ctx context.Context) (CommandResult, error) {
	res, _, err := c.command(ctx, "publish", http.MethodPost, c.paths.Publish, nil, "")
	return res, err
}

// SaveConfig creates a new connection profile.
func (c *Client) SaveConfig(ctx context.Context, in ProfileInput) (SaveResult, error) {
	res, r, err := c.command(ctx, "save config", http.MethodPost, c.paths.Configs, in, "unknown error while saving")
	if err != nil {
		return SaveResult{}, err
	}
	return SaveResult{CommandResult: res, ID: string(r.ID)}, nil
}

// DeleteConfig removes the profile with the given id.
func (c *Client) DeleteConfig(ctx context.Context, id string) (CommandResult, error) {
	path := c.paths.Configs + "/" + url.PathEscape(id)
	res, _, err := c.command(ctx, "delete config", http.MethodDelete, path, nil, "unknown error while deleting")
	return res, err
}

func (c *Client) command(ctx context.Context, op, method, path string, body any, fallback string) (CommandResult, reply, error) {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return CommandResult{}, reply{}, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if !ok(resp) {
		return CommandResult{}, reply{}, c.readError(op, resp, fallback)
	}

	var r reply
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return CommandResult{}, reply{}, &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return CommandResult{OK: true, Message: r.text()}, r, nil
}

// doRequest performs an HTTP request with standard headers.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	return c.httpClient.Do(req)
}

// readError extracts the server's message from a failed response.
func (c *Client) readError(op string, resp *http.Response, fallback string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var r reply
	msg := ""
	if err := json.Unmarshal(body, &r); err == nil {
		msg = r.text()
	}
	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return &RejectionError{Op: op, Status: resp.StatusCode, Message: msg}
}

func ok(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
