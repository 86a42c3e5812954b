// Package catalog holds the static table of simulated targets and the
// fault/event conditions that can be toggled on each of them.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"subsim-ctl/internal/config"
)

// KeySeparator joins a target and an event type into a composite key.
const KeySeparator = "_"

// ClearAll is the sentinel trigger key that clears every active event.
const ClearAll = "none"

//go:embed default.yaml
var defaultYAML []byte

//go:embed schema.cue
var schemaCUE []byte

// Key identifies one (target, event type) pair.
type Key struct {
	Target string
	Event  string
}

// String returns the composite wire form, e.g. "BATTERY_input_voltage_low".
func (k Key) String() string {
	return k.Target + KeySeparator + k.Event
}

// ParseKey splits a composite key on the first separator only. Event types
// may contain the separator themselves, so "BATTERY_input_voltage_low"
// yields target "BATTERY" and event "input_voltage_low".
func ParseKey(s string) (Key, error) {
	target, event, ok := strings.Cut(s, KeySeparator)
	if !ok || target == "" || event == "" {
		return Key{}, fmt.Errorf("invalid event key %q: want <target>%s<event>", s, KeySeparator)
	}
	return Key{Target: target, Event: event}, nil
}

// Descriptor describes one toggle control.
type Descriptor struct {
	Target string `json:"target"`
	Event  string `json:"event"`
	Group  string `json:"group"`
	Label  string `json:"label"`
}

// Key returns the descriptor's composite key.
func (d Descriptor) Key() Key {
	return Key{Target: d.Target, Event: d.Event}
}

// Group is an ordered set of descriptors sharing a fault category.
type Group struct {
	Name   string
	Events []Descriptor
}

// Target is a simulated device with its grouped events.
type Target struct {
	ID     string
	Label  string
	Groups []Group
}

// Catalog is the read-only target -> group -> event table.
type Catalog struct {
	targets      []Target
	order        map[Key]int
	index        map[Key]Descriptor
	targetLabels map[string]string
}

type fileEvent struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

type fileGroup struct {
	Name   string      `yaml:"name"`
	Events []fileEvent `yaml:"events"`
}

type fileTarget struct {
	ID     string      `yaml:"id"`
	Label  string      `yaml:"label"`
	Groups []fileGroup `yaml:"groups"`
}

type fileCatalog struct {
	Targets []fileTarget `yaml:"targets"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in table is invalid: %v", err))
	}
	return c
}

// Load reads a catalog override from path. An empty path yields Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the catalog schema and builds a Catalog.
func Parse(data []byte) (*Catalog, error) {
	if err := config.ValidateBytes("catalog.yaml", data, schemaCUE, "#Catalog"); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return build(fc)
}

func build(fc fileCatalog) (*Catalog, error) {
	c := &Catalog{
		order:        make(map[Key]int),
		index:        make(map[Key]Descriptor),
		targetLabels: make(map[string]string),
	}
	for _, ft := range fc.Targets {
		if _, dup := c.targetLabels[ft.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate target %q", ft.ID)
		}
		label := ft.Label
		if label == "" {
			label = ft.ID
		}
		c.targetLabels[ft.ID] = label
		t := Target{ID: ft.ID, Label: label}
		for _, fg := range ft.Groups {
			g := Group{Name: fg.Name}
			for _, fe := range fg.Events {
				d := Descriptor{Target: ft.ID, Event: fe.ID, Group: fg.Name, Label: fe.Label}
				if d.Label == "" {
					d.Label = Humanize(fe.ID)
				}
				k := d.Key()
				if _, dup := c.index[k]; dup {
					return nil, fmt.Errorf("catalog: duplicate event %q", k)
				}
				c.order[k] = len(c.order)
				c.index[k] = d
				g.Events = append(g.Events, d)
			}
			t.Groups = append(t.Groups, g)
		}
		c.targets = append(c.targets, t)
	}
	return c, nil
}

// Targets returns the targets in table order.
func (c *Catalog) Targets() []Target {
	return c.targets
}

// Descriptors returns every descriptor in table order.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(c.index))
	for _, t := range c.targets {
		for _, g := range t.Groups {
			out = append(out, g.Events...)
		}
	}
	return out
}

// Lookup returns the descriptor for k.
func (c *Catalog) Lookup(k Key) (Descriptor, bool) {
	d, ok := c.index[k]
	return d, ok
}

// Position returns the table order of k, used for stable listings.
func (c *Catalog) Position(k Key) (int, bool) {
	i, ok := c.order[k]
	return i, ok
}

// TargetLabel returns the display name of a target, falling back to the
// raw identifier.
func (c *Catalog) TargetLabel(id string) string {
	if l, ok := c.targetLabels[id]; ok {
		return l
	}
	return id
}

// EventLabel returns the display label of k, falling back to the raw event
// identifier with underscores read as word separators.
func (c *Catalog) EventLabel(k Key) string {
	if d, ok := c.index[k]; ok {
		return d.Label
	}
	return Humanize(k.Event)
}

// Humanize turns an identifier such as "oil_pressure_low" into words.
func Humanize(id string) string {
	return strings.ReplaceAll(id, KeySeparator, " ")
}
