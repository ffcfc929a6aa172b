package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mqtt-tools/hivemq-tui/internal/browser"
)

// View implements tea.Model. It renders the current screen state.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if len(m.tabs) == 0 {
		return styleErrMsg.Render("no resources configured")
	}

	leftW := m.listWidth()
	rightW := m.width - leftW
	bodyH := m.bodyHeight()

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewList(leftW, bodyH),
		m.viewDetail(rightW, bodyH),
	)
	screen := lipgloss.JoinVertical(lipgloss.Left, m.viewHeader(), body, m.viewHelp())

	if modal := m.viewModal(); modal != "" {
		return m.overlayModal(screen, modal)
	}
	return screen
}

// ─── Header ───────────────────────────────────────────────────────────────────

func (m Model) viewHeader() string {
	parts := []string{styleAppTitle.Render("HiveMQ")}
	for i, t := range m.tabs {
		label := fmt.Sprintf(" %s ", t.Title)
		if i == m.active {
			parts = append(parts, styleTabActive.Render(label))
		} else {
			parts = append(parts, styleTabInactive.Render(label))
		}
	}
	header := strings.Join(parts, " ")
	if m.endpoint != "" {
		header += "  " + styleHelpDesc.Render(m.endpoint)
	}
	return header
}

// ─── List panel ───────────────────────────────────────────────────────────────

func (m Model) viewList(w, h int) string {
	t := m.tabs[m.active]
	isFocused := m.mode == browser.ModeNavigate || m.mode == browser.ModeFilterInput

	title := t.Title
	if isFocused {
		title = stylePanelTitleFocused.Render(title)
	} else {
		title = stylePanelTitle.Render(title)
	}

	innerW := w - 4
	var filterRow string
	var rows []string

	switch st := t.Controller.State().(type) {
	case browser.Loading:
		filterRow = styleHelpDesc.Render(fmt.Sprintf("load #%d", st.Generation))
		rows = append(rows, "  "+m.spinner.View()+" "+styleStatusUnk.Render("loading..."))
	case browser.Errored:
		filterRow = styleErrMsg.Render("load failed")
		rows = append(rows,
			styleErrMsg.Render(wrap(st.Message, innerW)),
			"",
			styleHelpDesc.Render("[r] retry"),
		)
	case browser.Loaded:
		v := st.View
		title += " " + styleCount.Render(fmt.Sprintf("(%d)", len(v.IDs)))
		if v.Filter != "" {
			filterRow = styleFilterActive.Render("[/] "+t.Controller.FilterPath()+" ~ ") + v.Filter
		} else {
			filterRow = styleHelpDesc.Render("[/] filter " + t.Controller.FilterPath())
		}
		selected := v.Selected()
		limit := t.offset + m.listRows()
		for i := t.offset; i < len(v.IDs) && i < limit; i++ {
			id := v.IDs[i]
			badge := ""
			if item, ok, err := t.Controller.Item(id); err != nil {
				badge = styleStatusErr.Render("!")
			} else if ok {
				badge = stateBadge(documentState(item.Document))
			}
			label := padRight(truncate(id, innerW-6), innerW-6)
			if badge != "" {
				label += " " + badge
			}
			if i == selected {
				rows = append(rows, styleItemSelected.Render("> "+padRight(label, innerW-2)))
			} else {
				rows = append(rows, "  "+styleItemNormal.Render(label))
			}
		}
		if len(v.IDs) == 0 {
			rows = append(rows, styleStatusUnk.Render("  (no items)"))
		}
	}

	bs := styleBorderNormal
	if isFocused {
		bs = styleBorderFocused
	}
	return bs.Width(w - 2).Height(h - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, filterRow, strings.Join(rows, "\n")),
	)
}

// ─── Detail panel ─────────────────────────────────────────────────────────────

func (m Model) viewDetail(w, h int) string {
	t := m.tabs[m.active]
	v, loaded := m.currentView()
	isFocused := m.mode == browser.ModeEditor || m.mode == browser.ModeViewer

	modeTag := styleJSONModeBadge.Render("[" + m.detailViewMode.String() + "]")
	heading := "Detail"
	var editing *browser.Editing
	if ed, ok := v.Focus.(browser.Editing); loaded && ok {
		editing = &ed
		switch {
		case ed.IsNew():
			heading = "New " + strings.TrimSuffix(t.Title, "s")
		case ed.Writable:
			heading = "Edit " + ed.ItemID
		default:
			heading = ed.ItemID
		}
	} else if id := v.SelectedID(); id != "" {
		heading = id
	}

	var title string
	if isFocused {
		title = stylePanelTitleFocused.Render(heading)
	} else {
		title = stylePanelTitle.Render(heading)
	}
	if editing == nil || !editing.Writable {
		title += " " + modeTag
	}
	if m.busy() {
		title += " " + m.spinner.View()
	}

	statusLine := m.statusLine(v, editing)

	var content string
	if editing != nil && editing.Writable && m.mode == browser.ModeEditor {
		content = m.editor.View()
	} else {
		content = m.viewport.View()
	}

	bs := styleBorderNormal
	if isFocused {
		bs = styleBorderFocused
	}
	return bs.Width(w - 2).Height(h - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, statusLine, content),
	)
}

func (m Model) statusLine(v browser.View, editing *browser.Editing) string {
	switch {
	case editing != nil && editing.Invalid != "":
		return styleErrMsg.Render("Invalid: " + editing.Invalid)
	case editing != nil && editing.Saving:
		return styleStatusMsg.Render("Saving...")
	case m.tabs[m.active].Controller.Busy():
		return styleStatusMsg.Render("Request in progress...")
	case v.Status != "":
		return styleStatusMsg.Render(v.Status)
	}
	return ""
}

func (m Model) viewHelp() string {
	v, _ := m.currentView()
	return " " + m.help.View(m.keys.help(m.mode, v.Popup))
}

// ─── Modals ───────────────────────────────────────────────────────────────────

func (m Model) viewModal() string {
	v, ok := m.currentView()
	if !ok {
		return ""
	}
	t := m.tabs[m.active]

	switch p := v.Popup.(type) {
	case browser.DeleteConfirm:
		footer := styleHelpDesc.Render("[y] confirm  [Esc] cancel")
		if p.Pending {
			footer = m.spinner.View() + " " + styleHelpDesc.Render("Deleting...")
		}
		return modal("Confirm Delete", styleDetailValue.Render(fmt.Sprintf("Delete %s %q?", t.Title, p.ItemID)), footer)
	case browser.ErrorPopup:
		return modal(p.Title, styleErrMsg.Render(wrap(p.Message, 46)), styleHelpDesc.Render("[Enter] dismiss"))
	case browser.FilterPopup:
		return modal("Filter "+t.Title,
			styleDetailKey.Render(t.Controller.FilterPath())+"\n"+m.filterInput.View(),
			styleHelpDesc.Render("[Enter] apply  [Esc] cancel  (empty clears)"))
	}
	if d, ok := v.Focus.(browser.DetailsError); ok {
		return modal(d.Title, styleErrMsg.Render(wrap(d.Message, 46)),
			styleHelpDesc.Render("[Enter] back to editor  [Esc] discard"))
	}
	return ""
}

func modal(title, body, footer string) string {
	content := strings.Join([]string{
		styleModalTitle.Render(title),
		"",
		body,
		"",
		footer,
	}, "\n")
	return styleModal.Width(50).Render(content)
}

func (m Model) overlayModal(_ string, modal string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal,
		lipgloss.WithWhitespaceBackground(colorBackdrop),
	)
}

// ─── Utility functions ────────────────────────────────────────────────────────

func padRight(s string, n int) string {
	vis := lipgloss.Width(s)
	if vis >= n {
		return s
	}
	return s + strings.Repeat(" ", n-vis)
}

func truncate(s string, n int) string {
	if n <= 1 || lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) > n-1 {
		r = r[:n-1]
	}
	return string(r) + "…"
}

func wrap(s string, w int) string {
	if w < 10 {
		return s
	}
	return lipgloss.NewStyle().Width(w).Render(s)
}

// documentState returns the lifecycle field HiveMQ documents carry, if any.
func documentState(doc []byte) string {
	var v struct {
		State string `json:"state"`
	}
	if json.Unmarshal(doc, &v) != nil {
		return ""
	}
	return v.State
}
