// Package tui provides the terminal UI for browsing HiveMQ REST resources.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	colorBrand    = lipgloss.Color("#F5C518")
	colorAccent   = lipgloss.Color("#06B6D4")
	colorOK       = lipgloss.Color("#10B981")
	colorWarn     = lipgloss.Color("#F59E0B")
	colorFail     = lipgloss.Color("#EF4444")
	colorDim      = lipgloss.Color("#6B7280")
	colorFocus    = lipgloss.Color("#3B82F6")
	colorCursor   = lipgloss.Color("#1E40AF")
	colorText     = lipgloss.Color("#E5E7EB")
	colorBright   = lipgloss.Color("#FFFFFF")
	colorInk      = lipgloss.Color("#111827")
	colorSlate    = lipgloss.Color("#94A3B8")
	colorBackdrop = lipgloss.Color("#1F2937")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

func boxed(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(c)
}

var (
	styleAppTitle    = fg(colorInk).Background(colorBrand).Bold(true).Padding(0, 1)
	styleTabActive   = fg(colorBright).Background(colorFocus).Bold(true)
	styleTabInactive = fg(colorDim)

	styleBorderNormal      = boxed(colorDim)
	styleBorderFocused     = boxed(colorFocus)
	stylePanelTitle        = fg(colorAccent).Bold(true)
	stylePanelTitleFocused = fg(colorFocus).Bold(true)
	styleCount             = fg(colorDim)

	styleItemNormal   = fg(colorText)
	styleItemSelected = fg(colorBright).Background(colorCursor).Bold(true)

	styleStatusOK  = fg(colorOK)
	styleStatusErr = fg(colorFail)
	styleStatusUnk = fg(colorDim)
	styleStatusMsg = fg(colorOK)
	styleErrMsg    = fg(colorFail)

	styleDetailKey     = fg(colorDim).Bold(true)
	styleDetailValue   = fg(colorText)
	styleFilterActive  = fg(colorWarn)
	styleJSONModeBadge = fg(colorSlate)

	styleHelpKey  = fg(colorAccent).Bold(true)
	styleHelpDesc = fg(colorDim)

	styleModal      = boxed(colorBrand).Padding(1, 2)
	styleModalTitle = fg(colorBrand).Bold(true)
)

// Document highlighting, shared by the JSON and YAML views.
var (
	styleDocKey    = fg(lipgloss.Color("#7DD3FC"))
	styleDocString = fg(lipgloss.Color("#86EFAC"))
	styleDocNumber = fg(lipgloss.Color("#FDE68A"))
	styleDocBool   = fg(lipgloss.Color("#C4B5FD"))
	styleDocNull   = fg(colorDim)
	styleDocPunct  = fg(colorSlate)
)

// stateBadge renders the lifecycle state of backups and trace recordings.
func stateBadge(state string) string {
	switch strings.ToUpper(state) {
	case "":
		return ""
	case "COMPLETED", "STOPPED", "RUNNING", "ACTIVE":
		return styleStatusOK.Render("✓")
	case "FAILED", "ABORTED":
		return styleStatusErr.Render("✗")
	default:
		return styleStatusUnk.Render("…")
	}
}
