// Package dispatch turns operator intents into simulator requests. No
// command mutates local simulator state: the effect of start, stop and
// trigger becomes visible through the forced poll that follows them.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"subsim-ctl/internal/catalog"
	"subsim-ctl/internal/journal"
	"subsim-ctl/internal/logging"
	"subsim-ctl/internal/metrics"
	"subsim-ctl/internal/registry"
	"subsim-ctl/internal/simclient"
	"subsim-ctl/internal/state"
)

// API is the part of the simulator client the dispatcher needs.
type API interface {
	Start(ctx context.Context, req simclient.StartRequest) (simclient.CommandResult, error)
	Stop(ctx context.Context) (simclient.CommandResult, error)
	TriggerEvent(ctx context.Context, event string) (simclient.CommandResult, error)
	RequestPublish(ctx context.Context) (simclient.CommandResult, error)
	ListConfigs(ctx context.Context) ([]simclient.ConfigProfile, error)
	SaveConfig(ctx context.Context, in simclient.ProfileInput) (simclient.SaveResult, error)
	DeleteConfig(ctx context.Context, id string) (simclient.CommandResult, error)
}

// Ticker forces an out-of-band status poll.
type Ticker interface {
	Tick(ctx context.Context) (state.Snapshot, bool)
}

// Confirmer asks the operator to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// ErrDeclined is returned when the operator declines a confirmation.
var ErrDeclined = errors.New("declined by operator")

// Command outcomes reported to metrics.
const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeInvalid  = "invalid"
	outcomeDeclined = "declined"
)

// Options wires optional collaborators.
type Options struct {
	Ticker    Ticker
	Collector metrics.Collector
}

// Dispatcher executes operator commands. Every command writes exactly one
// journal line, except a declined delete which writes none.
type Dispatcher struct {
	api      API
	journal  *journal.Journal
	registry *registry.Registry
	ticker   Ticker
	metrics  metrics.Collector
	forms    *formValidator
}

// New creates a Dispatcher.
func New(api API, j *journal.Journal, reg *registry.Registry, opts Options) *Dispatcher {
	d := &Dispatcher{
		api:      api,
		journal:  j,
		registry: reg,
		ticker:   opts.Ticker,
		metrics:  opts.Collector,
		forms:    newFormValidator(),
	}
	if d.metrics == nil {
		d.metrics = metrics.Noop()
	}
	return d
}

// Start begins the simulated feed with the selected configuration.
func (d *Dispatcher) Start(ctx context.Context, interval int) error {
	const cmd = "start"
	profile, ok := d.registry.Selected()
	if !ok {
		return d.invalid(cmd, &ValidationError{Field: "config_id", Reason: "select or save a configuration before starting"})
	}
	if interval <= 0 {
		return d.invalid(cmd, &ValidationError{Field: "interval", Reason: "must be a positive number of seconds"})
	}
	res, err := d.api.Start(ctx, simclient.StartRequest{ConfigID: profile.ID, Interval: interval})
	d.report(cmd, res, err, "Simulation started.")
	d.tick(ctx)
	return err
}

// Stop halts the simulated feed.
func (d *Dispatcher) Stop(ctx context.Context) error {
	res, err := d.api.Stop(ctx)
	d.report("stop", res, err, "Simulation stopped.")
	d.tick(ctx)
	return err
}

// Trigger asks the simulator to flip the condition identified by key.
// The request carries the identity only; whether that activates or clears
// the condition is the simulator's call.
func (d *Dispatcher) Trigger(ctx context.Context, key string) error {
	const cmd = "trigger"
	if key != catalog.ClearAll {
		if _, err := catalog.ParseKey(key); err != nil {
			return d.invalid(cmd, &ValidationError{Field: "event", Reason: err.Error()})
		}
	}
	res, err := d.api.TriggerEvent(ctx, key)
	fallback := fmt.Sprintf("Event '%s' triggered.", key)
	if key == catalog.ClearAll {
		fallback = "All events cleared."
	}
	d.report(cmd, res, err, fallback)
	d.tick(ctx)
	return err
}

// ClearAll clears every active event on every target.
func (d *Dispatcher) ClearAll(ctx context.Context) error {
	return d.Trigger(ctx, catalog.ClearAll)
}

// RequestPublish asks the simulator to publish a data frame now.
func (d *Dispatcher) RequestPublish(ctx context.Context) error {
	res, err := d.api.RequestPublish(ctx)
	d.report("publish", res, err, "Immediate publish requested.")
	return err
}

// RefreshConfigs reloads the profile list into the registry.
func (d *Dispatcher) RefreshConfigs(ctx context.Context) error {
	const cmd = "refresh"
	view, err := d.refresh(ctx)
	if err != nil {
		d.fail(cmd, err)
		return err
	}
	d.metrics.ObserveCommand(cmd, outcomeOK)
	d.journal.Info(fmt.Sprintf("Loaded %d configuration(s).", len(view.Profiles)))
	return nil
}

// SelectConfig makes id the selected configuration. An empty id clears
// the selection.
func (d *Dispatcher) SelectConfig(id string) error {
	const cmd = "select"
	if id == "" {
		d.registry.Clear()
		d.metrics.ObserveCommand(cmd, outcomeOK)
		d.journal.Info("Configuration selection cleared.")
		return nil
	}
	if err := d.registry.Select(id); err != nil {
		return d.invalid(cmd, &ValidationError{Field: "config_id", Reason: err.Error()})
	}
	p, _ := d.registry.Selected()
	d.metrics.ObserveCommand(cmd, outcomeOK)
	d.journal.Info(fmt.Sprintf("Selected configuration '%s'.", p.Note))
	return nil
}

// SaveConfig validates and stores a new profile, reloads the list and
// selects the new profile.
func (d *Dispatcher) SaveConfig(ctx context.Context, in simclient.ProfileInput) (string, error) {
	const cmd = "save"
	in, verr := d.forms.profile(in)
	if verr != nil {
		return "", d.invalid(cmd, verr)
	}
	res, err := d.api.SaveConfig(ctx, in)
	if err != nil {
		d.fail(cmd, err)
		return "", err
	}
	d.metrics.ObserveCommand(cmd, outcomeOK)
	msg := fmt.Sprintf("Configuration '%s' saved.", in.Note)
	if _, rerr := d.refresh(ctx); rerr != nil {
		d.journal.Warn(fmt.Sprintf("%s Reloading the list failed: %v", msg, rerr))
		return res.ID, nil
	}
	if res.ID != "" {
		_ = d.registry.Select(res.ID)
	}
	d.journal.Info(msg)
	return res.ID, nil
}

// DeleteConfig removes the selected profile after the operator confirms.
func (d *Dispatcher) DeleteConfig(ctx context.Context, c Confirmer) error {
	const cmd = "delete"
	profile, ok := d.registry.Selected()
	if !ok {
		d.metrics.ObserveCommand(cmd, outcomeInvalid)
		d.journal.Warn("No configuration selected for deletion.")
		return &ValidationError{Field: "config_id", Reason: "no configuration selected"}
	}
	if c == nil {
		return d.invalid(cmd, &ValidationError{Field: "confirm", Reason: "deletion requires operator confirmation"})
	}
	yes, err := c.Confirm(ctx, fmt.Sprintf("Delete configuration '%s'?", profile.Note))
	if err != nil {
		d.fail(cmd, err)
		return err
	}
	if !yes {
		d.metrics.ObserveCommand(cmd, outcomeDeclined)
		return ErrDeclined
	}
	res, err := d.api.DeleteConfig(ctx, profile.ID)
	if err != nil {
		d.fail(cmd, err)
		return err
	}
	d.metrics.ObserveCommand(cmd, outcomeOK)
	msg := res.Message
	if msg == "" {
		msg = fmt.Sprintf("Configuration '%s' deleted.", profile.Note)
	}
	if _, rerr := d.refresh(ctx); rerr != nil {
		d.journal.Warn(fmt.Sprintf("%s Reloading the list failed: %v", msg, rerr))
		return nil
	}
	d.journal.Info(msg)
	return nil
}

func (d *Dispatcher) refresh(ctx context.Context) (registry.View, error) {
	list, err := d.api.ListConfigs(ctx)
	if err != nil {
		return registry.View{}, err
	}
	return d.registry.Replace(list), nil
}

// report logs the outcome of a command that reached (or tried to reach)
// the simulator.
func (d *Dispatcher) report(cmd string, res simclient.CommandResult, err error, fallback string) {
	if err != nil {
		d.fail(cmd, err)
		return
	}
	d.metrics.ObserveCommand(cmd, outcomeOK)
	msg := res.Message
	if msg == "" {
		msg = fallback
	}
	d.journal.Info(msg)
}

func (d *Dispatcher) fail(cmd string, err error) {
	d.metrics.ObserveCommand(cmd, outcomeError)
	d.journal.Error(err.Error())
}

func (d *Dispatcher) invalid(cmd string, err *ValidationError) error {
	d.metrics.ObserveCommand(cmd, outcomeInvalid)
	d.journal.Error(err.Error())
	return err
}

func (d *Dispatcher) tick(ctx context.Context) {
	if d.ticker == nil {
		return
	}
	snap, applied := d.ticker.Tick(ctx)
	logging.FromContext(ctx).Debug().
		Uint64("seq", snap.Seq).
		Bool("applied", applied).
		Str("link", string(snap.Link)).
		Msg("forced status tick")
}
