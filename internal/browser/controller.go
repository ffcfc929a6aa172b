package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/mqtt-tools/hivemq-tui/internal/cache"
	"github.com/mqtt-tools/hivemq-tui/internal/pagination"
	"github.com/mqtt-tools/hivemq-tui/internal/resource"
	"github.com/mqtt-tools/hivemq-tui/pkg/logger"
)

type phase int

const (
	phaseLoaded phase = iota
	phaseLoading
	phaseErrored
)

type mutationKind int

const (
	mutationCreate mutationKind = iota
	mutationUpdate
	mutationDelete
)

// mutation is the single create/update/delete request allowed in flight.
type mutation struct {
	kind       mutationKind
	id         string
	generation uint64
}

// Capabilities lists the optional operations of the browsed resource.
type Capabilities struct {
	Get, Create, Update, Delete bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithFilterPath sets the document path the filter is applied to.
func WithFilterPath(path string) Option {
	return func(c *Controller) { c.filterPath = path }
}

// WithMatchOptions sets the filter semantics.
func WithMatchOptions(opts cache.MatchOptions) Option {
	return func(c *Controller) { c.matchOpts = opts }
}

// WithPageSize sets the page-size hint used when draining.
func WithPageSize(n int) Option {
	return func(c *Controller) { c.pageSize = n }
}

// WithMaxPages bounds the number of pages one load may fetch.
func WithMaxPages(n int) Option {
	return func(c *Controller) { c.maxPages = n }
}

// WithClipboard sets the clipboard used by Copy.
func WithClipboard(cb Clipboard) Option {
	return func(c *Controller) { c.clipboard = cb }
}

// WithTemplate sets the initial buffer of NewItem.
func WithTemplate(doc string) Option {
	return func(c *Controller) { c.template = doc }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller owns the browsing state of one resource type. It is driven from
// a single goroutine through Handle; tasks it returns run elsewhere and only
// report back through completion actions.
type Controller struct {
	name  string
	ops   resource.Ops
	store cache.Store

	filterPath string
	matchOpts  cache.MatchOptions
	pageSize   int
	maxPages   int
	clipboard  Clipboard
	template   string
	log        *logger.Logger
	logCtx     context.Context

	phase      phase
	errMsg     string
	generation uint64
	view       View
	pending    *mutation
}

// NewController returns a controller over an empty store, in the loaded
// state with nothing selected.
func NewController(name string, ops resource.Ops, store cache.Store, opts ...Option) *Controller {
	c := &Controller{
		name:       name,
		ops:        ops,
		store:      store,
		filterPath: "$.id",
		view:       View{Focus: Scrolling{Selected: NoSelection}},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}
	c.logCtx = logger.WithFields(context.Background(), logger.Fields{"resource": name})
	return c
}

// Name returns the resource name the controller browses.
func (c *Controller) Name() string { return c.name }

// FilterPath returns the document path filters are applied to.
func (c *Controller) FilterPath() string { return c.filterPath }

// Capabilities reports which optional operations are available.
func (c *Controller) Capabilities() Capabilities {
	return Capabilities{
		Get:    c.ops.Get != nil,
		Create: c.ops.Create != nil,
		Update: c.ops.Update != nil,
		Delete: c.ops.Delete != nil,
	}
}

// State returns a snapshot of the current state.
func (c *Controller) State() LoadingState {
	switch c.phase {
	case phaseLoading:
		return Loading{Generation: c.generation}
	case phaseErrored:
		return Errored{Message: c.errMsg}
	default:
		return Loaded{View: c.view.clone()}
	}
}

// Mode returns the input mode for the current state.
func (c *Controller) Mode() InputMode {
	if c.phase != phaseLoaded {
		return ModeNavigate
	}
	switch c.view.Popup.(type) {
	case FilterPopup:
		return ModeFilterInput
	case DeleteConfirm, ErrorPopup:
		return ModePopup
	}
	switch f := c.view.Focus.(type) {
	case Editing:
		if f.Writable {
			return ModeEditor
		}
		return ModeViewer
	case DetailsError:
		return ModePopup
	}
	return ModeNavigate
}

// Busy reports whether a create, update or delete is in flight.
func (c *Controller) Busy() bool { return c.pending != nil }

// Item returns the cached item for id. A storage failure is returned as is;
// absence is (Item{}, false, nil).
func (c *Controller) Item(id string) (resource.Item, bool, error) {
	item, ok, err := c.store.Get(id)
	if err != nil {
		return resource.Item{}, false, fmt.Errorf("read %s %q: %w", c.name, id, err)
	}
	return item, ok, nil
}

// Handle applies one action and returns the resulting effects.
func (c *Controller) Handle(a Action) Effects {
	prev := c.selectedID()
	var eff Effects

	if isUserAction(a) && c.phase == phaseLoaded {
		c.view.Status = ""
	}

	switch a := a.(type) {
	case LoadAllItems:
		eff.Tasks = c.loadAll()
	case ItemsLoaded:
		c.itemsLoaded(a)
	case ItemSaved:
		c.itemSaved(a)
	case ItemDeleted:
		c.itemDeleted(a)
	case ItemFetched:
		c.itemFetched(a)
	case CopyDone:
		c.copyDone(a)
	default:
		if c.phase == phaseLoaded {
			if c.view.Popup != nil {
				eff.Tasks = c.handlePopup(a)
			} else {
				eff.Tasks = c.handleFocus(a)
			}
		}
	}

	if cur := c.selectedID(); cur != prev {
		eff.SelectionChanged = true
		eff.Selected = cur
	}
	eff.Mode = c.Mode()
	return eff
}

func isUserAction(a Action) bool {
	switch a.(type) {
	case ItemsLoaded, ItemSaved, ItemDeleted, ItemFetched, CopyDone, SetBuffer, SetFilterInput:
		return false
	}
	return true
}

func (c *Controller) selectedID() string {
	if c.phase != phaseLoaded {
		return ""
	}
	return c.view.SelectedID()
}

// ─── Load cycle ───────────────────────────────────────────────────────────────

func (c *Controller) loadAll() []Task {
	if c.phase == phaseLoading {
		c.log.Debug(c.logCtx, "Load already in flight, ignoring", logger.Fields{"generation": c.generation})
		return nil
	}
	c.generation++
	c.view = View{Focus: Scrolling{Selected: NoSelection}}
	if err := c.store.Clear(); err != nil {
		c.fail(err)
		return nil
	}
	c.phase = phaseLoading
	c.log.Info(c.logCtx, "Loading all items", logger.Fields{"generation": c.generation})

	gen := c.generation
	fetch := pagination.FetchFunc(c.ops.ListPage)
	opts := pagination.Options{PageSize: c.pageSize, MaxPages: c.maxPages}
	return []Task{func(ctx context.Context) Action {
		items, err := pagination.Drain(ctx, fetch, opts)
		return ItemsLoaded{Generation: gen, Items: items, Err: err}
	}}
}

func (c *Controller) itemsLoaded(a ItemsLoaded) {
	if a.Generation != c.generation || c.phase != phaseLoading {
		c.log.Debug(c.logCtx, "Dropping stale load result", logger.Fields{
			"generation": a.Generation, "current": c.generation,
		})
		return
	}
	if a.Err != nil {
		c.log.Warn(c.logCtx, "Load failed", logger.Fields{"error": a.Err.Error()})
		c.phase = phaseErrored
		c.errMsg = resource.Message(a.Err)
		return
	}
	for _, item := range a.Items {
		if err := c.store.Put(item.ID, item); err != nil {
			c.fail(err)
			return
		}
	}
	ids, err := c.store.ListIDs()
	if err != nil {
		c.fail(err)
		return
	}
	c.phase = phaseLoaded
	c.view = View{
		IDs:    ids,
		Focus:  Scrolling{Selected: NoSelection},
		Status: fmt.Sprintf("%d item(s) loaded", len(ids)),
	}
	c.log.Info(c.logCtx, "Load complete", logger.Fields{"items": len(ids), "generation": c.generation})
}

// fail moves to the list-level error state. Used for storage failures.
func (c *Controller) fail(err error) {
	c.log.Error(c.logCtx, "Cache failure", logger.Fields{"error": err.Error()})
	c.phase = phaseErrored
	c.errMsg = err.Error()
}

// ─── Focus dispatch ───────────────────────────────────────────────────────────

func (c *Controller) handleFocus(a Action) []Task {
	switch f := c.view.Focus.(type) {
	case Scrolling:
		return c.handleScrolling(f, a)
	case Editing:
		return c.handleEditing(f, a)
	case DetailsError:
		c.handleDetailsError(f, a)
	}
	return nil
}

func (c *Controller) handleScrolling(f Scrolling, a Action) []Task {
	switch a.(type) {
	case NextItem:
		c.moveSelection(f, +1)
	case PrevItem:
		c.moveSelection(f, -1)
	case Enter:
		c.inspect(f)
	case Escape:
		switch {
		case f.Selected != NoSelection:
			c.view.Focus = Scrolling{Selected: NoSelection}
		case c.view.Filter != "":
			c.clearFilter()
		}
	case NewItem:
		if c.ops.Create == nil {
			c.view.Status = c.name + " cannot be created"
			return nil
		}
		c.view.Focus = Editing{Selected: f.Selected, Buffer: c.template, Writable: true}
	case Delete:
		id := c.view.SelectedID()
		switch {
		case id == "":
		case c.ops.Delete == nil:
			c.view.Status = c.name + " cannot be deleted"
		case c.pending != nil:
			c.view.Status = "Another change is still in progress"
		default:
			c.view.Popup = DeleteConfirm{ItemID: id}
		}
	case Filter:
		c.view.Popup = FilterPopup{Input: c.view.Filter}
	case Copy:
		if id := c.view.SelectedID(); id != "" {
			if item, ok := c.lookup(id); ok {
				return c.copyText(item.Pretty())
			}
		}
	case Refresh:
		return c.refresh(c.view.SelectedID())
	}
	return nil
}

func (c *Controller) moveSelection(f Scrolling, delta int) {
	n := len(c.view.IDs)
	if n == 0 {
		return
	}
	if f.Selected == NoSelection {
		c.view.Focus = Scrolling{Selected: 0}
		return
	}
	next := f.Selected + delta
	if next < 0 || next >= n {
		return
	}
	c.view.Focus = Scrolling{Selected: next}
}

func (c *Controller) inspect(f Scrolling) {
	id := c.view.SelectedID()
	if id == "" {
		return
	}
	item, ok := c.lookup(id)
	if !ok {
		return
	}
	c.view.Focus = Editing{
		Selected: f.Selected,
		ItemID:   id,
		Buffer:   item.Pretty(),
		Writable: c.ops.Update != nil,
	}
}

// lookup reads id from the store; a storage failure moves to Errored.
func (c *Controller) lookup(id string) (resource.Item, bool) {
	item, ok, err := c.store.Get(id)
	if err != nil {
		c.fail(err)
		return resource.Item{}, false
	}
	return item, ok
}

func (c *Controller) handleEditing(f Editing, a Action) []Task {
	switch a := a.(type) {
	case Escape:
		c.leaveDetails(f.Selected)
	case SetBuffer:
		if f.Writable && !f.Saving {
			f.Buffer = a.Text
			f.Invalid = ""
			c.view.Focus = f
		}
	case Submit:
		return c.submit(f)
	case Copy:
		return c.copyText(f.Buffer)
	}
	return nil
}

func (c *Controller) handleDetailsError(f DetailsError, a Action) {
	switch a.(type) {
	case Escape:
		sel := NoSelection
		if f.Resume != nil {
			sel = f.Resume.Selected
		}
		c.leaveDetails(sel)
	case Enter, ClosePopup:
		if f.Resume != nil {
			c.view.Focus = *f.Resume
		} else {
			c.view.Focus = Scrolling{Selected: NoSelection}
		}
	}
}

// leaveDetails returns to the list. With nothing selected an active filter
// is dropped as well.
func (c *Controller) leaveDetails(selected int) {
	c.view.Focus = Scrolling{Selected: selected}
	if selected == NoSelection && c.view.Filter != "" {
		c.clearFilter()
	}
}

// ─── Create / update ─────────────────────────────────────────────────────────

func (c *Controller) submit(f Editing) []Task {
	if !f.Writable || f.Saving {
		return nil
	}
	if c.pending != nil {
		c.view.Status = "Another change is still in progress"
		return nil
	}
	if err := resource.ValidateDocument(f.Buffer); err != nil {
		f.Invalid = err.Error()
		c.view.Focus = f
		return nil
	}

	gen := c.generation
	doc := f.Buffer
	var task Task
	if f.IsNew() {
		create := c.ops.Create
		if create == nil {
			return nil
		}
		c.pending = &mutation{kind: mutationCreate, generation: gen}
		task = func(ctx context.Context) Action {
			item, err := create(ctx, doc)
			return ItemSaved{Generation: gen, Created: true, Item: item, Err: err}
		}
	} else {
		update := c.ops.Update
		if update == nil {
			return nil
		}
		id := f.ItemID
		c.pending = &mutation{kind: mutationUpdate, id: id, generation: gen}
		task = func(ctx context.Context) Action {
			item, err := update(ctx, id, doc)
			return ItemSaved{Generation: gen, PrevID: id, Item: item, Err: err}
		}
	}
	f.Saving = true
	f.Invalid = ""
	c.view.Focus = f
	c.log.Debug(c.logCtx, "Submitting document", logger.Fields{"id": f.ItemID, "new": f.IsNew()})
	return []Task{task}
}

// release frees the in-flight mutation slot held by a completion.
func (c *Controller) release(kind mutationKind, id string, gen uint64) {
	if c.pending == nil || c.pending.kind != kind || c.pending.generation != gen {
		return
	}
	if kind != mutationCreate && c.pending.id != id {
		return
	}
	c.pending = nil
}

func (c *Controller) itemSaved(a ItemSaved) {
	kind := mutationUpdate
	title := "Update failed"
	if a.Created {
		kind = mutationCreate
		title = "Create failed"
	}
	c.release(kind, a.PrevID, a.Generation)
	if a.Generation != c.generation || c.phase != phaseLoaded {
		c.log.Debug(c.logCtx, "Dropping stale save result", logger.Fields{"id": a.PrevID})
		return
	}

	editing, ownsFocus := c.view.Focus.(Editing)
	ownsFocus = ownsFocus && editing.Saving && editing.ItemID == a.PrevID

	if a.Err != nil {
		c.log.Warn(c.logCtx, title, logger.Fields{"id": a.PrevID, "error": a.Err.Error()})
		msg := resource.Message(a.Err)
		if ownsFocus {
			editing.Saving = false
			c.view.Focus = DetailsError{Title: title, Message: msg, Resume: &editing}
		} else if c.view.Popup == nil {
			c.view.Popup = ErrorPopup{Title: title, Message: msg}
		}
		return
	}

	item := a.Item
	if err := c.store.Put(item.ID, item); err != nil {
		c.fail(err)
		return
	}
	if !a.Created && a.PrevID != "" && a.PrevID != item.ID {
		if err := c.store.Remove(a.PrevID); err != nil {
			c.fail(err)
			return
		}
		c.view.IDs = replaceID(c.view.IDs, a.PrevID, item.ID)
	}
	idx := indexOf(c.view.IDs, item.ID)
	if idx < 0 {
		c.view.IDs = append(c.view.IDs, item.ID)
		idx = len(c.view.IDs) - 1
	}
	if ownsFocus {
		c.view.Focus = Scrolling{Selected: idx}
	}
	verb := "Updated"
	if a.Created {
		verb = "Created"
	}
	c.view.Status = fmt.Sprintf("%s %s", verb, item.ID)
}

// ─── Delete ───────────────────────────────────────────────────────────────────

func (c *Controller) handlePopup(a Action) []Task {
	switch p := c.view.Popup.(type) {
	case DeleteConfirm:
		switch a.(type) {
		case ConfirmPopup, Enter:
			return c.confirmDelete(p)
		case ClosePopup, Escape:
			if !p.Pending {
				c.view.Popup = nil
			}
		}
	case FilterPopup:
		switch a := a.(type) {
		case SetFilterInput:
			c.view.Popup = FilterPopup{Input: a.Text}
		case ConfirmPopup, Enter:
			c.applyFilter(p.Input)
		case ClosePopup, Escape:
			c.view.Popup = nil
		}
	case ErrorPopup:
		switch a.(type) {
		case ConfirmPopup, ClosePopup, Enter, Escape:
			c.view.Popup = nil
		}
	}
	return nil
}

func (c *Controller) confirmDelete(p DeleteConfirm) []Task {
	if p.Pending {
		return nil
	}
	if c.pending != nil {
		c.view.Status = "Another change is still in progress"
		return nil
	}
	del := c.ops.Delete
	if del == nil {
		c.view.Popup = nil
		return nil
	}
	gen := c.generation
	id := p.ItemID
	c.pending = &mutation{kind: mutationDelete, id: id, generation: gen}
	c.view.Popup = DeleteConfirm{ItemID: id, Pending: true}
	c.log.Debug(c.logCtx, "Deleting item", logger.Fields{"id": id})
	return []Task{func(ctx context.Context) Action {
		_, err := del(ctx, id)
		return ItemDeleted{Generation: gen, ID: id, Err: err}
	}}
}

func (c *Controller) itemDeleted(a ItemDeleted) {
	c.release(mutationDelete, a.ID, a.Generation)
	if a.Generation != c.generation || c.phase != phaseLoaded {
		c.log.Debug(c.logCtx, "Dropping stale delete result", logger.Fields{"id": a.ID})
		return
	}
	confirm, isConfirm := c.view.Popup.(DeleteConfirm)
	ownsPopup := isConfirm && confirm.ItemID == a.ID

	if a.Err != nil {
		c.log.Warn(c.logCtx, "Delete failed", logger.Fields{"id": a.ID, "error": a.Err.Error()})
		if ownsPopup || c.view.Popup == nil {
			c.view.Popup = ErrorPopup{Title: "Delete failed", Message: resource.Message(a.Err)}
		}
		return
	}

	if err := c.store.Remove(a.ID); err != nil {
		c.fail(err)
		return
	}
	if ownsPopup {
		c.view.Popup = nil
	}
	idx := indexOf(c.view.IDs, a.ID)
	if idx >= 0 {
		c.view.IDs = append(c.view.IDs[:idx], c.view.IDs[idx+1:]...)
		if s, ok := c.view.Focus.(Scrolling); ok {
			c.view.Focus = Scrolling{Selected: adjustAfterRemoval(s.Selected, idx, len(c.view.IDs))}
		}
	}
	c.view.Status = "Deleted " + a.ID
}

// adjustAfterRemoval keeps the selection on the same position after the item
// at removed was taken out of a list that now has n entries.
func adjustAfterRemoval(selected, removed, n int) int {
	switch {
	case n == 0 || selected == NoSelection:
		return NoSelection
	case removed < selected:
		return selected - 1
	case selected >= n:
		return n - 1
	default:
		return selected
	}
}

// ─── Filter ───────────────────────────────────────────────────────────────────

func (c *Controller) applyFilter(pattern string) {
	if pattern == "" {
		c.view.Popup = nil
		c.clearFilter()
		return
	}
	m, err := cache.NewMatcher(pattern, c.matchOpts)
	if err != nil {
		c.view.Popup = ErrorPopup{Title: "Invalid filter", Message: err.Error()}
		return
	}
	items, err := c.store.Query(c.filterPath, m)
	if err != nil {
		if errors.Is(err, resource.ErrInvalidFilter) {
			c.view.Popup = ErrorPopup{Title: "Invalid filter", Message: err.Error()}
			return
		}
		c.fail(err)
		return
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	c.view.IDs = ids
	c.view.Filter = pattern
	c.view.Popup = nil
	c.view.Focus = Scrolling{Selected: NoSelection}
	c.view.Status = fmt.Sprintf("%d match(es) for %q", len(ids), pattern)
}

func (c *Controller) clearFilter() {
	ids, err := c.store.ListIDs()
	if err != nil {
		c.fail(err)
		return
	}
	c.view.IDs = ids
	c.view.Filter = ""
	c.view.Focus = Scrolling{Selected: NoSelection}
}

// ─── Copy / refresh ───────────────────────────────────────────────────────────

func (c *Controller) copyText(text string) []Task {
	cb := c.clipboard
	if cb == nil {
		c.view.Popup = ErrorPopup{Title: "Copy failed", Message: "no clipboard available"}
		return nil
	}
	return []Task{func(context.Context) Action {
		return CopyDone{Err: cb.WriteAll(text)}
	}}
}

func (c *Controller) copyDone(a CopyDone) {
	if c.phase != phaseLoaded {
		return
	}
	if a.Err != nil {
		if c.view.Popup == nil {
			c.view.Popup = ErrorPopup{Title: "Copy failed", Message: a.Err.Error()}
		} else {
			c.view.Status = "Copy failed: " + a.Err.Error()
		}
		return
	}
	c.view.Status = "Copied to clipboard"
}

func (c *Controller) refresh(id string) []Task {
	get := c.ops.Get
	if id == "" || get == nil {
		return nil
	}
	gen := c.generation
	return []Task{func(ctx context.Context) Action {
		item, err := get(ctx, id)
		return ItemFetched{Generation: gen, ID: id, Item: item, Err: err}
	}}
}

func (c *Controller) itemFetched(a ItemFetched) {
	if a.Generation != c.generation || c.phase != phaseLoaded {
		return
	}
	if a.Err != nil {
		c.view.Status = fmt.Sprintf("Refresh of %s failed: %s", a.ID, resource.Message(a.Err))
		return
	}
	// A mutation in flight for the same item wins over the fetched copy.
	if c.pending != nil && c.pending.id == a.ID {
		return
	}
	if _, ok := c.lookup(a.ID); !ok {
		return
	}
	if err := c.store.Put(a.ID, a.Item); err != nil {
		c.fail(err)
	}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func replaceID(ids []string, from, to string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		switch v {
		case from:
			out = append(out, to)
		case to:
		default:
			out = append(out, v)
		}
	}
	return out
}
