// Package browser implements the paginated-collection browser: the state
// machine that turns user actions and background completions into cache
// mutations and UI-visible state.
package browser

// NoSelection marks a view without a selected item.
const NoSelection = -1

// LoadingState is one of Errored, Loading or Loaded.
type LoadingState interface {
	loadingState()
}

// Errored replaces the whole list with a retryable error panel.
type Errored struct {
	Message string
}

// Loading is shown while the collection is being drained.
type Loading struct {
	Generation uint64
}

// Loaded carries the browsable view.
type Loaded struct {
	View View
}

func (Errored) loadingState() {}
func (Loading) loadingState() {}
func (Loaded) loadingState()  {}

// View is the loaded, browsable state of one collection.
type View struct {
	IDs    []string  // visible ids, in display order
	Focus  FocusMode // never nil
	Popup  Popup     // nil when no popup is open
	Filter string    // active filter pattern, "" when unfiltered
	Status string    // transient status line
}

// Selected returns the selected index, or NoSelection.
func (v View) Selected() int {
	switch f := v.Focus.(type) {
	case Scrolling:
		return f.Selected
	case Editing:
		return f.Selected
	case DetailsError:
		if f.Resume != nil {
			return f.Resume.Selected
		}
	}
	return NoSelection
}

// SelectedID returns the id at the selected index, or "".
func (v View) SelectedID() string {
	idx := v.Selected()
	if idx < 0 || idx >= len(v.IDs) {
		return ""
	}
	return v.IDs[idx]
}

func (v View) clone() View {
	out := v
	out.IDs = append([]string(nil), v.IDs...)
	if d, ok := v.Focus.(DetailsError); ok && d.Resume != nil {
		resume := *d.Resume
		d.Resume = &resume
		out.Focus = d
	}
	return out
}

// FocusMode is the sub-view that owns keyboard input: Scrolling, Editing or
// DetailsError.
type FocusMode interface {
	focusMode()
}

// Scrolling is list navigation.
type Scrolling struct {
	Selected int
}

// Editing shows an item document. A new, not yet created item has an empty
// ItemID. Read-only resources get a non-writable buffer.
type Editing struct {
	Selected int
	ItemID   string
	Buffer   string
	Writable bool
	Saving   bool   // a create/update for this buffer is in flight
	Invalid  string // last validation error of Buffer
}

// IsNew reports whether the buffer is not backed by a server item yet.
func (e Editing) IsNew() bool { return e.ItemID == "" }

// DetailsError reports a failed create/update. Resume holds the editor the
// failure came from so the buffer is not lost.
type DetailsError struct {
	Title   string
	Message string
	Resume  *Editing
}

func (Scrolling) focusMode()    {}
func (Editing) focusMode()      {}
func (DetailsError) focusMode() {}

// Popup is an overlay that intercepts input: DeleteConfirm, ErrorPopup or
// FilterPopup.
type Popup interface {
	popup()
}

// DeleteConfirm asks before deleting ItemID. Pending is set once the delete
// request has been sent.
type DeleteConfirm struct {
	ItemID  string
	Pending bool
}

// ErrorPopup shows an item-level failure.
type ErrorPopup struct {
	Title   string
	Message string
}

// FilterPopup edits the filter pattern.
type FilterPopup struct {
	Input string
}

func (DeleteConfirm) popup() {}
func (ErrorPopup) popup()    {}
func (FilterPopup) popup()   {}

// InputMode tells the caller where key input should go next.
type InputMode int

const (
	ModeNavigate InputMode = iota
	ModeEditor
	ModeViewer
	ModeFilterInput
	ModePopup
)

func (m InputMode) String() string {
	switch m {
	case ModeEditor:
		return "editor"
	case ModeViewer:
		return "viewer"
	case ModeFilterInput:
		return "filter"
	case ModePopup:
		return "popup"
	default:
		return "navigate"
	}
}
