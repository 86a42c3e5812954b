package simclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subsim-ctl/internal/config"
	"subsim-ctl/internal/testutil/fakesim"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(FromServerConfig(config.Server{BaseURL: baseURL, Paths: config.Default().Server.Paths}))
}

func TestStatus(t *testing.T) {
	sim := fakesim.New()
	defer sim.Close()
	sim.SetRunning(true)
	sim.Activate("BATTERY", "input_voltage_low")

	c := newTestClient(t, sim.URL+"/")
	assert.Equal(t, sim.URL, c.BaseURL())
	s, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Running)
	assert.Equal(t, 1, s.Count())
	assert.True(t, s.ActiveEvents["BATTERY"]["input_voltage_low"])
}

func TestStatusFailures(t *testing.T) {
	sim := fakesim.New()
	defer sim.Close()
	c := newTestClient(t, sim.URL)

	sim.FailStatus(http.StatusInternalServerError, "boom")
	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.True(t, IsRejection(err))

	sim.FailStatus(http.StatusOK, "{not json")
	_, err = c.Status(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))

	sim.FailStatus(http.StatusOK, `{"active_events": {}}`)
	_, err = c.Status(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))

	down := newTestClient(t, "http://127.0.0.1:1")
	_, err = down.Status(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestStartStopTrigger(t *testing.T) {
	sim := fakesim.New()
	defer sim.Close()
	id := sim.AddProfile("lab", "broker.local", 1883, "plant/data", "")
	c := newTestClient(t, sim.URL)
	ctx := context.Background()

	res, err := c.Start(ctx, StartRequest{ConfigID: strconv.Itoa(id), Interval: 5})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "Simulation started.", res.Message)
	assert.Equal(t, 5, sim.Interval())
	assert.Equal(t, float64(5), sim.LastStart()["interval"])

	res, err = c.TriggerEvent(ctx, "T3_overload")
	require.NoError(t, err)
	assert.Contains(t, res.Message, "activated")

	_, err = c.TriggerEvent(ctx, "bogus")
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, http.StatusBadRequest, rej.Status)
	assert.Contains(t, rej.Message, "bogus")

	res, err = c.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Simulation stopped.", res.Message)
	assert.False(t, sim.Running())
}

func TestStartUnknownConfigIsRejected(t *testing.T) {
	sim := fakesim.New()
	defer sim.Close()
	c := newTestClient(t, sim.URL)

	_, err := c.Start(context.Background(), StartRequest{ConfigID: "99", Interval: 5})
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Configuration not found.", rej.Message)
}

func TestConfigCRUD(t *testing.T) {
	sim := fakesim.New()
	defer sim.Close()
	c := newTestClient(t, sim.URL)
	ctx := context.Background()

	saved, err := c.SaveConfig(ctx, ProfileInput{Note: "plant", Broker: "mqtt.local", Port: "1883", Topic: "plant/t"})
	require.NoError(t, err)
	assert.Equal(t, "1", saved.ID)

	_, err = c.SaveConfig(ctx, ProfileInput{Note: "plant", Broker: "mqtt.local", Port: "1883", Topic: "plant/t"})
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Contains(t, rej.Message, "already exists")

	list, err := c.ListConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ConfigProfile{ID: "1", Note: "plant", Broker: "mqtt.local", Port: "1883", Topic: "plant/t"}, list[0])

	res, err := c.DeleteConfig(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Configuration deleted.", res.Message)

	_, err = c.DeleteConfig(ctx, "1")
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, http.StatusNotFound, rej.Status)
}

func TestRequestPublish(t *testing.T) {
	sim := fakesim.New()
	defer sim.Close()
	c := newTestClient(t, sim.URL)

	res, err := c.RequestPublish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Immediate refresh triggered", res.Message)
	assert.Equal(t, 1, sim.Publishes())
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.TriggerEvent(context.Background(), "none")
	require.NoError(t, err)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "subsim-ctl/1.0", got.Get("User-Agent"))
	_, err = uuid.Parse(got.Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestProfileDecodingToleratesNumbers(t *testing.T) {
	var p ConfigProfile
	require.NoError(t, json.Unmarshal([]byte(`{"id": 7, "note": "n", "broker": "b", "port": 1883, "topic": "t", "username": null}`), &p))
	assert.Equal(t, ConfigProfile{ID: "7", Note: "n", Broker: "b", Port: "1883", Topic: "t"}, p)

	require.NoError(t, json.Unmarshal([]byte(`{"id": "abc", "port": "8883", "username": "op"}`), &p))
	assert.Equal(t, "abc", p.ID)
	assert.Equal(t, "8883", p.Port)
	assert.Equal(t, "op", p.Username)
}
