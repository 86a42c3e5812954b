package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"subsim-ctl/internal/catalog"
	"subsim-ctl/internal/dispatch"
	"subsim-ctl/internal/journal"
	"subsim-ctl/internal/reconcile"
	"subsim-ctl/internal/registry"
	"subsim-ctl/internal/simclient"
	"subsim-ctl/internal/state"
)

// Commands is the operator command surface the dashboard drives.
// *dispatch.Dispatcher satisfies it.
type Commands interface {
	Start(ctx context.Context, interval int) error
	Stop(ctx context.Context) error
	Trigger(ctx context.Context, key string) error
	ClearAll(ctx context.Context) error
	RequestPublish(ctx context.Context) error
	RefreshConfigs(ctx context.Context) error
	SelectConfig(id string) error
	SaveConfig(ctx context.Context, in simclient.ProfileInput) (string, error)
	DeleteConfig(ctx context.Context, c dispatch.Confirmer) error
}

const maxLogLines = 1000

type snapshotMsg struct{ state.Snapshot }

type registryMsg struct{ registry.View }

type logMsg struct{ journal.Entry }

type adminMsg struct{ addr string }

// confirmMsg asks the operator a yes/no question; the answer goes back on
// reply.
type confirmMsg struct {
	prompt string
	reply  chan bool
}

var formFields = []string{"note", "broker", "port", "topic", "username"}

type model struct {
	ctx       context.Context
	cmds      Commands
	confirmer dispatch.Confirmer
	catalog   *catalog.Catalog

	snap state.Snapshot
	reg  registry.View
	view reconcile.View

	cursor   int
	interval textinput.Model
	editing  bool

	form     []textinput.Model
	formOpen bool
	focus    int

	confirm *confirmMsg

	vp         viewport.Model
	logs       []journal.Entry
	wrap       bool
	autoscroll bool
	width      int
	height     int
	admin      string
}

func newModel(ctx context.Context, cmds Commands, confirmer dispatch.Confirmer, cat *catalog.Catalog, interval int) model {
	in := textinput.New()
	in.Placeholder = "seconds"
	in.CharLimit = 6
	in.SetValue(strconv.Itoa(interval))

	m := model{
		ctx:        ctx,
		cmds:       cmds,
		confirmer:  confirmer,
		catalog:    cat,
		interval:   in,
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
	m.render()
	return m
}

func (m model) Init() tea.Cmd { return nil }

// render recomputes the view from the latest snapshot and registry view.
func (m *model) render() {
	m.view = reconcile.Render(reconcile.Input{Snapshot: m.snap, Catalog: m.catalog, Registry: m.reg})
	if n := len(m.toggleKeys()); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) toggleKeys() []string {
	var keys []string
	for _, t := range m.view.Targets {
		for _, g := range t.Groups {
			for _, tg := range g.Toggles {
				keys = append(keys, tg.Key)
			}
		}
	}
	return keys
}

// run executes fn off the event loop. Outcomes come back through the
// journal and the poller.
func (m model) run(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		_ = fn(ctx)
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.updateViewportHeight()
		m.refreshViewport()
	case snapshotMsg:
		m.snap = msg.Snapshot
		m.render()
		m.updateViewportHeight()
	case registryMsg:
		m.reg = msg.View
		m.render()
		m.updateViewportHeight()
	case adminMsg:
		m.admin = msg.addr
	case logMsg:
		m.logs = append(m.logs, msg.Entry)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case confirmMsg:
		c := msg
		m.confirm = &c
		m.updateViewportHeight()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		switch msg.String() {
		case "y", "Y":
			m.answer(true)
		case "n", "N", "esc":
			m.answer(false)
		}
		return m, nil
	}
	if m.formOpen {
		return m.handleFormKey(msg)
	}
	if m.editing {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.editing = false
			m.interval.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.interval, cmd = m.interval.Update(msg)
		return m, cmd
	}

	c := m.view.Controls
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "s":
		if m.snap.State.Running {
			return m, nil
		}
		interval, _ := strconv.Atoi(strings.TrimSpace(m.interval.Value()))
		return m, m.run(func(ctx context.Context) error { return m.cmds.Start(ctx, interval) })
	case "x":
		if !c.StopEnabled {
			return m, nil
		}
		return m, m.run(m.cmds.Stop)
	case "enter", " ":
		keys := m.toggleKeys()
		if len(keys) == 0 {
			return m, nil
		}
		key := keys[m.cursor]
		return m, m.run(func(ctx context.Context) error { return m.cmds.Trigger(ctx, key) })
	case "c":
		return m, m.run(m.cmds.ClearAll)
	case "p":
		return m, m.run(m.cmds.RequestPublish)
	case "r":
		return m, m.run(m.cmds.RefreshConfigs)
	case "tab":
		if c.ConfigLocked || m.reg.Empty() {
			return m, nil
		}
		id := m.nextProfile()
		return m, m.run(func(context.Context) error { return m.cmds.SelectConfig(id) })
	case "n":
		if c.ConfigLocked {
			return m, nil
		}
		return m.openForm()
	case "d":
		if c.ConfigLocked {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error { return m.cmds.DeleteConfig(ctx, m.confirmer) })
	case "i":
		if c.ConfigLocked {
			return m, nil
		}
		m.editing = true
		m.interval.CursorEnd()
		return m, m.interval.Focus()
	case "w":
		m.wrap = !m.wrap
		m.refreshViewport()
		return m, nil
	case "a":
		m.autoscroll = !m.autoscroll
		if m.autoscroll {
			m.vp.GotoBottom()
		}
		return m, nil
	case "up", "k", "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j", "right", "l":
		if m.cursor < len(m.toggleKeys())-1 {
			m.cursor++
		}
		return m, nil
	case "pgup":
		m.autoscroll = false
		m.vp.LineUp(5)
		return m, nil
	case "pgdown":
		m.vp.LineDown(5)
		return m, nil
	}
	return m, nil
}

func (m *model) answer(yes bool) {
	if m.confirm == nil {
		return
	}
	// reply is buffered, the sender may already have given up
	select {
	case m.confirm.reply <- yes:
	default:
	}
	m.confirm = nil
	m.updateViewportHeight()
}

func (m model) nextProfile() string {
	profiles := m.reg.Profiles
	for i, p := range profiles {
		if p.ID == m.reg.Selected {
			return profiles[(i+1)%len(profiles)].ID
		}
	}
	return profiles[0].ID
}

func (m model) openForm() (tea.Model, tea.Cmd) {
	m.form = make([]textinput.Model, len(formFields))
	for i, name := range formFields {
		in := textinput.New()
		in.Placeholder = name
		in.CharLimit = 255
		m.form[i] = in
	}
	m.form[2].SetValue("1883")
	m.focus = 0
	m.formOpen = true
	m.updateViewportHeight()
	return m, m.form[0].Focus()
}

func (m model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.formOpen = false
		m.updateViewportHeight()
		return m, nil
	case "tab", "down":
		return m, m.moveFocus(1)
	case "shift+tab", "up":
		return m, m.moveFocus(-1)
	case "enter":
		if m.focus < len(m.form)-1 {
			return m, m.moveFocus(1)
		}
		fallthrough
	case "ctrl+s":
		in := simclient.ProfileInput{
			Note:     m.form[0].Value(),
			Broker:   m.form[1].Value(),
			Port:     m.form[2].Value(),
			Topic:    m.form[3].Value(),
			Username: m.form[4].Value(),
		}
		m.formOpen = false
		m.updateViewportHeight()
		return m, m.run(func(ctx context.Context) error {
			_, err := m.cmds.SaveConfig(ctx, in)
			return err
		})
	}
	var cmd tea.Cmd
	m.form[m.focus], cmd = m.form[m.focus].Update(msg)
	return m, cmd
}

func (m *model) moveFocus(delta int) tea.Cmd {
	m.form[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.form)) % len(m.form)
	return m.form[m.focus].Focus()
}

func (m *model) updateViewportHeight() {
	if m.height == 0 {
		return
	}
	h := m.height - lipgloss.Height(m.renderTop()) - lipgloss.Height(m.renderBottom()) - 2
	if h < 1 {
		h = 1
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *model) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, e := range m.logs {
		l := e.Format()
		if m.wrap && m.vp.Width > 0 {
			l = wordwrap.String(l, m.vp.Width)
		}
		lines = append(lines, levelStyles[e.Level].Render(l))
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m model) View() string {
	divider := dividerStyle.Render(strings.Repeat("─", max(m.width, 1)))
	return strings.Join([]string{
		m.renderTop(),
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}, "\n")
}

func (m model) renderTop() string {
	var b strings.Builder
	b.WriteString(bannerStyle(m.view.Banner.Class).Render(m.view.Banner.Text))
	b.WriteString("  ")
	b.WriteString(m.renderConfigLine())
	b.WriteString("\n\n")
	b.WriteString(m.renderToggles())
	b.WriteString("\nActive events:\n")
	for _, e := range m.view.Events {
		b.WriteString("  " + e.Text + "\n")
	}
	b.WriteString("  " + systemStyle.Render(m.view.System))
	return b.String()
}

func (m model) renderConfigLine() string {
	cfg := "none selected"
	for _, p := range m.view.Profiles {
		if p.Selected {
			cfg = p.Label
		}
	}
	interval := m.interval.Value() + "s"
	if m.editing {
		interval = m.interval.View()
	}
	line := fmt.Sprintf("Config: %s (%d)  Interval: %s", cfg, len(m.view.Profiles), interval)
	if m.admin != "" {
		line += "  admin: " + m.admin
	}
	if m.view.Controls.ConfigLocked {
		return disabledStyle.Render(line)
	}
	return line
}

func (m model) renderToggles() string {
	var b strings.Builder
	i := 0
	for _, t := range m.view.Targets {
		b.WriteString(targetStyle.Render(t.Label) + "\n")
		for _, g := range t.Groups {
			b.WriteString("  " + groupStyle.Render(g.Name+":"))
			for _, tg := range g.Toggles {
				label := tg.Label
				if tg.Active {
					label = activeStyle.Render(label)
				}
				if i == m.cursor {
					label = cursorStyle.Render(label)
				}
				b.WriteString(" " + label)
				i++
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m model) renderBottom() string {
	if m.confirm != nil {
		return dialogStyle.Render(m.confirm.prompt + " [y/n]")
	}
	if m.formOpen {
		rows := make([]string, 0, len(m.form)+1)
		rows = append(rows, "New configuration (enter: next/save, esc: cancel)")
		for i, in := range m.form {
			rows = append(rows, fmt.Sprintf("%-9s %s", formFields[i]+":", in.View()))
		}
		return dialogStyle.Render(strings.Join(rows, "\n"))
	}
	c := m.view.Controls
	keys := []struct {
		key, label string
		enabled    bool
	}{
		{"s", "start", c.StartEnabled},
		{"x", "stop", c.StopEnabled},
		{"enter", "toggle", c.TriggerEnabled},
		{"c", "clear", c.TriggerEnabled},
		{"p", "publish", true},
		{"tab", "config", !c.ConfigLocked && len(m.view.Profiles) > 0},
		{"n", "new", !c.ConfigLocked},
		{"d", "delete", c.DeleteEnabled},
		{"i", "interval", !c.ConfigLocked},
		{"r", "reload", true},
		{"w", "wrap", true},
		{"q", "quit", true},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		s := k.key + " " + k.label
		if !k.enabled {
			s = disabledStyle.Render(s)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " • ")
}
