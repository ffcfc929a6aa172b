package browser

import (
	"context"

	"github.com/mqtt-tools/hivemq-tui/internal/resource"
)

// Action is a message consumed by Controller.Handle: a user action or the
// completion of a background task.
type Action interface {
	action()
}

// User actions.
type (
	LoadAllItems struct{}
	NextItem     struct{}
	PrevItem     struct{}
	Enter        struct{}
	Escape       struct{}
	NewItem      struct{}
	Submit       struct{}
	Delete       struct{}
	ConfirmPopup struct{}
	ClosePopup   struct{}
	Filter       struct{}
	Copy         struct{}
	// Refresh re-fetches the selected item when the resource supports Get.
	Refresh struct{}
	// SetBuffer replaces the editor buffer.
	SetBuffer struct{ Text string }
	// SetFilterInput replaces the filter popup input.
	SetFilterInput struct{ Text string }
)

// Completion actions, posted by tasks. Generation is the load cycle the
// request was issued in.
type (
	ItemsLoaded struct {
		Generation uint64
		Items      []resource.Item
		Err        error
	}
	ItemSaved struct {
		Generation uint64
		PrevID     string // "" for a create
		Created    bool
		Item       resource.Item
		Err        error
	}
	ItemDeleted struct {
		Generation uint64
		ID         string
		Err        error
	}
	ItemFetched struct {
		Generation uint64
		ID         string
		Item       resource.Item
		Err        error
	}
	CopyDone struct {
		Err error
	}
)

func (LoadAllItems) action()   {}
func (NextItem) action()       {}
func (PrevItem) action()       {}
func (Enter) action()          {}
func (Escape) action()         {}
func (NewItem) action()        {}
func (Submit) action()         {}
func (Delete) action()         {}
func (ConfirmPopup) action()   {}
func (ClosePopup) action()     {}
func (Filter) action()         {}
func (Copy) action()           {}
func (Refresh) action()        {}
func (SetBuffer) action()      {}
func (SetFilterInput) action() {}
func (ItemsLoaded) action()    {}
func (ItemSaved) action()      {}
func (ItemDeleted) action()    {}
func (ItemFetched) action()    {}
func (CopyDone) action()       {}

// Task is a background operation. It must not touch controller state and
// returns exactly one completion action.
type Task func(ctx context.Context) Action

// Effects is what Handle asks its caller to do.
type Effects struct {
	Tasks []Task
	// SelectionChanged is set when the selected id differs from before the
	// action; Selected is the new id ("" when nothing is selected).
	SelectionChanged bool
	Selected         string
	// Mode is the input mode the caller should switch to.
	Mode InputMode
}

// Clipboard receives copied documents.
type Clipboard interface {
	WriteAll(text string) error
}

// ClipboardFunc adapts a function to Clipboard.
type ClipboardFunc func(text string) error

// WriteAll calls f.
func (f ClipboardFunc) WriteAll(text string) error { return f(text) }
