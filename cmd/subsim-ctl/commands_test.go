package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subsim-ctl/internal/sink"
	"subsim-ctl/internal/state"
	"subsim-ctl/internal/testutil/fakesim"
)

// execute runs the CLI against sim with stdin as input and returns stdout.
// Without --config the missing default file falls back to defaults.
func execute(t *testing.T, sim *fakesim.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SUBSIM_SERVER", "")
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	if sim != nil {
		args = append(args, "--server", sim.URL)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func executeDefaultConfig(t *testing.T, sim *fakesim.Server, args ...string) (string, error) {
	t.Helper()
	return execute(t, sim, "", args...)
}

func executeWithInput(t *testing.T, sim *fakesim.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	return execute(t, sim, stdin, args...)
}

func newSim(t *testing.T) *fakesim.Server {
	sim := fakesim.New()
	t.Cleanup(sim.Close)
	return sim
}

func TestExplicitMissingConfigFails(t *testing.T) {
	_, err := execute(t, nil, "", "events", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot read config")
}

func TestStatusCommand(t *testing.T) {
	sim := newSim(t)
	sim.SetRunning(true)
	sim.Activate("BATTERY", "input_voltage_low")

	out, err := executeDefaultConfig(t, sim, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: Running (1 active event(s))")
	assert.Contains(t, out, "Battery: Input Voltage Low")
	assert.Contains(t, out, "[x] Input Voltage Low")
}

func TestStatusUnreachable(t *testing.T) {
	sim := fakesim.New()
	sim.Close()

	out, err := executeDefaultConfig(t, sim, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulator unreachable")
	assert.Contains(t, out, "Status: Disconnected")
}

func TestStartWithoutProfileSendsNothing(t *testing.T) {
	sim := newSim(t)

	out, err := executeDefaultConfig(t, sim, "start", "--interval", "5")
	require.Error(t, err)
	assert.Contains(t, out, "config_id: select or save a configuration before starting")
	assert.Zero(t, sim.Requests("POST /start"))
	assert.False(t, sim.Running())
}

func TestStartStopWithProfile(t *testing.T) {
	sim := newSim(t)
	id := sim.AddProfile("lab", "mqtt.local", 1883, "plant/data", "")

	out, err := executeDefaultConfig(t, sim, "start", "--config-id", strconv.Itoa(id), "--interval", "5")
	require.NoError(t, err)
	assert.True(t, sim.Running())
	assert.Equal(t, 5, sim.Interval())
	assert.Contains(t, out, "Simulation started.")
	assert.Contains(t, out, "Status: Running (normal operation)")

	out, err = executeDefaultConfig(t, sim, "stop")
	require.NoError(t, err)
	assert.False(t, sim.Running())
	assert.Contains(t, out, "Status: Stopped")
}

func TestTriggerAndClearCommands(t *testing.T) {
	sim := newSim(t)
	sim.SetRunning(true)

	out, err := executeDefaultConfig(t, sim, "trigger", "T3_overload")
	require.NoError(t, err)
	assert.Contains(t, out, "Event 'overload' activated for target 'T3'.")
	assert.Contains(t, out, "T3: Overload")

	out, err = executeDefaultConfig(t, sim, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Connected - no active events")

	_, err = executeDefaultConfig(t, sim, "trigger", "overload")
	require.Error(t, err)
	assert.Equal(t, 2, sim.Requests("POST /trigger_event"))
}

func TestPublishCommand(t *testing.T) {
	sim := newSim(t)
	out, err := executeDefaultConfig(t, sim, "publish")
	require.NoError(t, err)
	assert.Equal(t, 1, sim.Publishes())
	assert.Contains(t, out, "Immediate refresh triggered")
}

func TestConfigsLifecycle(t *testing.T) {
	sim := newSim(t)

	out, err := executeDefaultConfig(t, sim, "configs", "save", "--note", "lab", "--broker", "mqtt.local", "--topic", "plant/data")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration 'lab' saved.")

	out, err = executeDefaultConfig(t, sim, "configs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "mqtt.local")
	assert.Contains(t, out, "plant/data")

	out, err = executeDefaultConfig(t, sim, "configs", "select", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected configuration")

	_, err = executeDefaultConfig(t, sim, "configs", "select", "42")
	assert.Error(t, err)

	out, err = executeWithInput(t, sim, "n\n", "configs", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	assert.Zero(t, sim.Requests("DELETE /api/mqtt_configs/1"))

	out, err = executeWithInput(t, sim, "y\n", "configs", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration deleted.")
	assert.Equal(t, 1, sim.Requests("DELETE /api/mqtt_configs/1"))
}

func TestConfigsSaveValidation(t *testing.T) {
	sim := newSim(t)
	_, err := executeDefaultConfig(t, sim, "configs", "save", "--note", "lab", "--broker", "b", "--topic", "t", "--port", "70000")
	require.Error(t, err)
	assert.Zero(t, sim.Requests("POST /api/mqtt_configs"))
}

func TestEventsCommand(t *testing.T) {
	out, err := executeDefaultConfig(t, nil, "events")
	require.NoError(t, err)
	assert.Contains(t, out, "BATTERY_input_voltage_low")
	assert.Contains(t, out, "T3_overload")
}

func TestReplayCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	fw, err := sink.NewFileWriter(path, "http://sim")
	require.NoError(t, err)
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, fw.WriteSnapshot(state.Snapshot{Seq: 1, State: state.Stopped(), Link: state.LinkConnected, ReceivedAt: ts}))
	require.NoError(t, fw.WriteSnapshot(state.Snapshot{
		Seq:        2,
		State:      state.SimulationState{Running: true, ActiveEvents: state.ActiveEvents{"T3": {"overload": true}}},
		Link:       state.LinkConnected,
		ReceivedAt: ts.Add(time.Hour),
	}))
	require.NoError(t, fw.Close())

	out, err := executeDefaultConfig(t, nil, "replay", path, "--speed", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: Stopped")
	assert.Contains(t, out, "Status: Running (1 active event(s))")
}

func TestDashboardCommand(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	dir := t.TempDir()
	out, err := executeDefaultConfig(t, nil, "dashboard", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "grafana-dashboard.json"))
}

func TestWatchHeadless(t *testing.T) {
	t.Setenv("SUBSIM_SERVER", "")
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	sim := newSim(t)
	sim.SetRunning(true)
	record := filepath.Join(t.TempDir(), "history.jsonl")

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	opts := &globalOptions{configPath: "subsim.yaml", server: sim.URL}
	wo := &watchOptions{asJSON: true, record: record, adminAddr: "127.0.0.1:0"}
	require.NoError(t, runWatch(ctx, cmd, opts, wo, false))

	assert.Contains(t, out.String(), `"simulation_running":true`)
	assert.NotContains(t, out.String(), `"link":"disconnected"`, "a clean exit is not a link loss")
	recorded, err := os.ReadFile(record)
	require.NoError(t, err)
	assert.NotEmpty(t, recorded)
	assert.NotContains(t, string(recorded), `"link":"disconnected"`)
	assert.GreaterOrEqual(t, sim.Requests("GET /api/mqtt_configs"), 1)
}

func TestStatusJSONIncludesProfiles(t *testing.T) {
	sim := newSim(t)
	sim.AddProfile("lab", "mqtt.local", 1883, "plant/data", "")

	out, err := executeDefaultConfig(t, sim, "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"label": "lab (mqtt.local:1883)"`)
	assert.Contains(t, out, `"text": "Status: Stopped"`)
}
