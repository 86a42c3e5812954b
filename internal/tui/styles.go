package tui

import (
	"github.com/charmbracelet/lipgloss"

	"subsim-ctl/internal/journal"
	"subsim-ctl/internal/reconcile"
)

var (
	bannerBase = lipgloss.NewStyle().Bold(true).Padding(0, 1)

	bannerStyles = map[reconcile.BannerClass]lipgloss.Style{
		reconcile.BannerStopped: bannerBase.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")),
		reconcile.BannerRunning: bannerBase.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("2")),
		reconcile.BannerEvents:  bannerBase.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")),
	}

	targetStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	groupStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214"))
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	systemStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
	dialogStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("4")).Padding(0, 1)
	dividerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	levelStyles = map[journal.Level]lipgloss.Style{
		journal.Info:  lipgloss.NewStyle(),
		journal.Warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		journal.Error: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

func bannerStyle(c reconcile.BannerClass) lipgloss.Style {
	if s, ok := bannerStyles[c]; ok {
		return s
	}
	return bannerBase
}
