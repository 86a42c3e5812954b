// Package reconcile maps an applied snapshot onto the full description of
// what the dashboard should show. Render is a pure function: the same
// input always produces the same View, so it can run after every poll and
// every command without accumulating anything.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"subsim-ctl/internal/catalog"
	"subsim-ctl/internal/registry"
	"subsim-ctl/internal/state"
)

// BannerClass is the visual class of the status banner.
type BannerClass string

const (
	BannerStopped BannerClass = "stopped"
	BannerRunning BannerClass = "running"
	BannerEvents  BannerClass = "events"
)

// Input is everything Render looks at.
type Input struct {
	Snapshot state.Snapshot
	Catalog  *catalog.Catalog
	Registry registry.View
}

// Controls says which operator controls are usable.
type Controls struct {
	StartEnabled   bool `json:"start_enabled"`
	StopEnabled    bool `json:"stop_enabled"`
	TriggerEnabled bool `json:"trigger_enabled"`
	// ConfigLocked disables the selector, interval input and save form.
	ConfigLocked  bool `json:"config_locked"`
	DeleteEnabled bool `json:"delete_enabled"`
}

// Banner is the headline status.
type Banner struct {
	Class        BannerClass `json:"class"`
	Disconnected bool        `json:"disconnected"`
	Text         string      `json:"text"`
	Count        int         `json:"count"`
}

// EventLine is one entry of the active-event listing.
type EventLine struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Toggle is one trigger control and its active flag.
type Toggle struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// ToggleGroup is a fault category within a target.
type ToggleGroup struct {
	Name    string   `json:"name"`
	Toggles []Toggle `json:"toggles"`
}

// TargetPanel holds the toggle groups of one target.
type TargetPanel struct {
	ID     string        `json:"id"`
	Label  string        `json:"label"`
	Groups []ToggleGroup `json:"groups"`
}

// ProfileOption is one entry of the configuration selector.
type ProfileOption struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// View is the rendered dashboard description.
type View struct {
	Seq      uint64          `json:"seq"`
	Controls Controls        `json:"controls"`
	Banner   Banner          `json:"banner"`
	Events   []EventLine     `json:"events"`
	System   string          `json:"system"`
	Targets  []TargetPanel   `json:"targets"`
	Profiles []ProfileOption `json:"profiles"`
}

// Render computes the view for in.
func Render(in Input) View {
	cat := in.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	st := in.Snapshot.State
	running := st.Running
	count := st.Count()
	selected := in.Registry.Selected

	v := View{Seq: in.Snapshot.Seq}
	v.Controls = Controls{
		StartEnabled:   !running && selected != "",
		StopEnabled:    running,
		TriggerEnabled: true,
		ConfigLocked:   running,
		DeleteEnabled:  !running && !in.Registry.Empty() && selected != "",
	}
	v.Banner = banner(in.Snapshot, count)
	v.Events, v.System = eventLines(cat, st)
	v.Targets = toggles(cat, st)
	v.Profiles = profileOptions(in.Registry)
	return v
}

func banner(s state.Snapshot, count int) Banner {
	b := Banner{Count: count}
	switch {
	case s.Disconnected():
		b.Class = BannerStopped
		b.Disconnected = true
		b.Text = "Status: Disconnected"
	case !s.State.Running:
		b.Class = BannerStopped
		b.Text = "Status: Stopped"
	case count == 0:
		b.Class = BannerRunning
		b.Text = "Status: Running (normal operation)"
	default:
		b.Class = BannerEvents
		b.Text = fmt.Sprintf("Status: Running (%d active event(s))", count)
	}
	return b
}

// eventLines lists active pairs in catalog order, then unknown pairs
// sorted, followed by the connection line.
func eventLines(cat *catalog.Catalog, st state.SimulationState) ([]EventLine, string) {
	conn := "Disconnected"
	if st.Running {
		conn = "Connected"
	}
	pairs := st.Pairs()
	if len(pairs) == 0 {
		return []EventLine{}, conn + " - no active events"
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		pi, iok := cat.Position(pairs[i])
		pj, jok := cat.Position(pairs[j])
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		}
		return false
	})
	lines := make([]EventLine, 0, len(pairs))
	for _, k := range pairs {
		lines = append(lines, EventLine{
			Key:  k.String(),
			Text: cat.TargetLabel(k.Target) + ": " + cat.EventLabel(k),
		})
	}
	return lines, "System: " + conn
}

func toggles(cat *catalog.Catalog, st state.SimulationState) []TargetPanel {
	panels := make([]TargetPanel, 0, len(cat.Targets()))
	for _, t := range cat.Targets() {
		p := TargetPanel{ID: t.ID, Label: t.Label}
		for _, g := range t.Groups {
			tg := ToggleGroup{Name: g.Name}
			for _, d := range g.Events {
				key := d.Key().String()
				// identity comes back from the wire form, the same way a
				// trigger key is read
				k, err := catalog.ParseKey(key)
				tg.Toggles = append(tg.Toggles, Toggle{
					Key:    key,
					Label:  d.Label,
					Active: err == nil && st.IsActive(k),
				})
			}
			p.Groups = append(p.Groups, tg)
		}
		panels = append(panels, p)
	}
	return panels
}

func profileOptions(v registry.View) []ProfileOption {
	out := make([]ProfileOption, 0, len(v.Profiles))
	for _, p := range v.Profiles {
		out = append(out, ProfileOption{
			ID:       p.ID,
			Label:    fmt.Sprintf("%s (%s:%s)", p.Note, p.Broker, p.Port),
			Selected: p.ID == v.Selected,
		})
	}
	return out
}

// ActiveToggles returns the keys of every active toggle.
func (v View) ActiveToggles() []string {
	var keys []string
	for _, t := range v.Targets {
		for _, g := range t.Groups {
			for _, tg := range g.Toggles {
				if tg.Active {
					keys = append(keys, tg.Key)
				}
			}
		}
	}
	return keys
}

// Toggle looks up a toggle by key.
func (v View) Toggle(key string) (Toggle, bool) {
	for _, t := range v.Targets {
		for _, g := range t.Groups {
			for _, tg := range g.Toggles {
				if tg.Key == key {
					return tg, true
				}
			}
		}
	}
	return Toggle{}, false
}

// Lines renders the banner and the active-event listing as plain text.
func (v View) Lines() []string {
	lines := []string{v.Banner.Text}
	for _, e := range v.Events {
		lines = append(lines, "  "+e.Text)
	}
	lines = append(lines, "  "+v.System)
	return lines
}

// String renders the whole view, toggle matrix included.
func (v View) String() string {
	var b strings.Builder
	for _, l := range v.Lines() {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	for _, t := range v.Targets {
		fmt.Fprintf(&b, "%s\n", t.Label)
		for _, g := range t.Groups {
			fmt.Fprintf(&b, "  %s:", g.Name)
			for _, tg := range g.Toggles {
				mark := " "
				if tg.Active {
					mark = "x"
				}
				fmt.Fprintf(&b, " [%s] %s", mark, tg.Label)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
