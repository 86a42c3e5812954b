package simclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// flexString decodes a JSON string or number into a string. The simulator
// stores ids and ports as integers but the client treats them as opaque.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// ConfigProfile is one named MQTT connection profile held by the server.
type ConfigProfile struct {
	ID       string `json:"id"`
	Note     string `json:"note"`
	Broker   string `json:"broker"`
	Port     string `json:"port"`
	Topic    string `json:"topic"`
	Username string `json:"username"`
}

// UnmarshalJSON accepts numeric id and port values.
func (p *ConfigProfile) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       flexString `json:"id"`
		Note     string     `json:"note"`
		Broker   string     `json:"broker"`
		Port     flexString `json:"port"`
		Topic    string     `json:"topic"`
		Username *string    `json:"username"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = ConfigProfile{
		ID:     string(raw.ID),
		Note:   raw.Note,
		Broker: raw.Broker,
		Port:   string(raw.Port),
		Topic:  raw.Topic,
	}
	if raw.Username != nil {
		p.Username = *raw.Username
	}
	return nil
}

// ProfileInput is the body of a save-config request.
type ProfileInput struct {
	Note     string `json:"note"`
	Broker   string `json:"broker"`
	Port     string `json:"port"`
	Topic    string `json:"topic"`
	Username string `json:"username"`
}

// CommandResult is the uniform outcome of a control endpoint.
type CommandResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// SaveResult is returned by a successful save-config request.
type SaveResult struct {
	CommandResult
	ID string `json:"id"`
}

// StartRequest is the body of a start request.
type StartRequest struct {
	ConfigID string `json:"config_id,omitempty"`
	Interval int    `json:"interval"`
}

type triggerRequest struct {
	Event string `json:"event"`
}

// reply captures the fields any endpoint may answer with.
type reply struct {
	ID      flexString `json:"id"`
	Status  string     `json:"status"`
	Message string     `json:"message"`
	Error   string     `json:"error"`
}

func (r reply) text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}
