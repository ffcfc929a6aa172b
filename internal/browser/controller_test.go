package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/mqtt-tools/hivemq-tui/internal/cache"
	"github.com/mqtt-tools/hivemq-tui/internal/resource"
)

// fakeServer is an in-memory remote collection behind resource.Ops.
type fakeServer struct {
	items     []resource.Item
	pageSize  int
	listErr   error
	createErr error
	updateErr error
	deleteErr error
	created   int
	deleted   []string
}

func newFakeServer(names ...string) *fakeServer {
	s := &fakeServer{pageSize: 1000}
	for _, n := range names {
		s.items = append(s.items, item(n, n))
	}
	return s
}

func item(id, name string) resource.Item {
	return resource.Item{ID: id, Document: []byte(fmt.Sprintf(`{"id":%q,"name":%q}`, id, name))}
}

func (s *fakeServer) ops() resource.Ops {
	return resource.Ops{
		ListPage: func(_ context.Context, cursor string, _ int) (resource.Page, error) {
			if s.listErr != nil {
				return resource.Page{}, s.listErr
			}
			start := 0
			if cursor != "" {
				fmt.Sscanf(cursor, "%d", &start)
			}
			end := start + s.pageSize
			if end >= len(s.items) {
				return resource.Page{Items: append([]resource.Item(nil), s.items[start:]...)}, nil
			}
			return resource.Page{Items: append([]resource.Item(nil), s.items[start:end]...), Next: fmt.Sprint(end)}, nil
		},
		Get: func(_ context.Context, id string) (resource.Item, error) {
			for _, it := range s.items {
				if it.ID == id {
					return it, nil
				}
			}
			return resource.Item{}, apierrors.NewNotFound(schema.GroupResource{Resource: "policies"}, id)
		},
		Create: func(_ context.Context, doc string) (resource.Item, error) {
			if s.createErr != nil {
				return resource.Item{}, s.createErr
			}
			s.created++
			it, err := resource.NewItem([]byte(doc), "id")
			if err != nil {
				return resource.Item{}, err
			}
			s.items = append(s.items, it)
			return it, nil
		},
		Update: func(_ context.Context, id, doc string) (resource.Item, error) {
			if s.updateErr != nil {
				return resource.Item{}, s.updateErr
			}
			it, err := resource.NewItem([]byte(doc), "id")
			if err != nil {
				return resource.Item{}, err
			}
			for i := range s.items {
				if s.items[i].ID == id {
					s.items[i] = it
				}
			}
			return it, nil
		},
		Delete: func(_ context.Context, id string) (string, error) {
			if s.deleteErr != nil {
				return "", s.deleteErr
			}
			s.deleted = append(s.deleted, id)
			for i := range s.items {
				if s.items[i].ID == id {
					s.items = append(s.items[:i], s.items[i+1:]...)
					break
				}
			}
			return id, nil
		},
	}
}

// drive handles a and runs every emitted task to completion, feeding the
// completions back in order. It returns the effects of the first action.
func drive(c *Controller, a Action) Effects {
	eff := c.Handle(a)
	queue := append([]Task(nil), eff.Tasks...)
	for len(queue) > 0 {
		task := queue[0]
		queue = queue[1:]
		next := c.Handle(task(context.Background()))
		queue = append(queue, next.Tasks...)
	}
	return eff
}

func loaded(t *testing.T, c *Controller) View {
	t.Helper()
	st, ok := c.State().(Loaded)
	require.True(t, ok, "state is %T", c.State())
	return st.View
}

func newLoadedController(t *testing.T, srv *fakeServer, opts ...Option) *Controller {
	t.Helper()
	c := NewController("policies", srv.ops(), cache.NewMemory(), opts...)
	drive(c, LoadAllItems{})
	loaded(t, c)
	return c
}

func cached(t *testing.T, c *Controller, id string) (resource.Item, bool) {
	t.Helper()
	it, ok, err := c.Item(id)
	require.NoError(t, err)
	return it, ok
}

func TestInitialState(t *testing.T) {
	c := NewController("policies", newFakeServer().ops(), cache.NewMemory())
	v := loaded(t, c)
	assert.Empty(t, v.IDs)
	assert.Equal(t, Scrolling{Selected: NoSelection}, v.Focus)
	assert.Nil(t, v.Popup)
	assert.Equal(t, ModeNavigate, c.Mode())
}

func TestLoadAllItemsEmitsOneDrainTask(t *testing.T) {
	srv := newFakeServer("a", "b", "c")
	c := NewController("policies", srv.ops(), cache.NewMemory())

	eff := c.Handle(LoadAllItems{})
	require.Len(t, eff.Tasks, 1)
	assert.Equal(t, Loading{Generation: 1}, c.State())

	again := c.Handle(LoadAllItems{})
	assert.Empty(t, again.Tasks, "a second load while loading is rejected")

	c.Handle(eff.Tasks[0](context.Background()))
	v := loaded(t, c)
	assert.Equal(t, []string{"a", "b", "c"}, v.IDs)
	assert.Equal(t, NoSelection, v.Selected())
}

func TestLoadDrainsEveryPage(t *testing.T) {
	srv := newFakeServer()
	for i := 0; i < 25; i++ {
		srv.items = append(srv.items, item(fmt.Sprintf("p%02d", i), "x"))
	}
	srv.pageSize = 10
	c := newLoadedController(t, srv, WithPageSize(10))
	v := loaded(t, c)
	require.Len(t, v.IDs, 25)
	assert.Equal(t, "p00", v.IDs[0])
	assert.Equal(t, "p24", v.IDs[24])
}

func TestLoadFailureIsErrored(t *testing.T) {
	srv := newFakeServer("a")
	srv.listErr = fmt.Errorf("%w: connection refused", resource.ErrTransport)
	c := NewController("policies", srv.ops(), cache.NewMemory())
	drive(c, LoadAllItems{})

	st, ok := c.State().(Errored)
	require.True(t, ok)
	assert.Contains(t, st.Message, "connection refused")

	srv.listErr = nil
	drive(c, LoadAllItems{})
	assert.Equal(t, []string{"a"}, loaded(t, c).IDs)
}

func TestReloadStartsFromEmptyCache(t *testing.T) {
	srv := newFakeServer("a", "b")
	store := cache.NewMemory()
	c := NewController("policies", srv.ops(), store)
	drive(c, LoadAllItems{})

	srv.items = srv.items[1:]
	eff := c.Handle(LoadAllItems{})
	n, err := store.Len()
	require.NoError(t, err)
	assert.Zero(t, n)

	c.Handle(eff.Tasks[0](context.Background()))
	assert.Equal(t, []string{"b"}, loaded(t, c).IDs)
}

func TestStaleLoadCompletionIsDropped(t *testing.T) {
	srv := newFakeServer("a")
	c := NewController("policies", srv.ops(), cache.NewMemory())
	first := c.Handle(LoadAllItems{})
	c.Handle(first.Tasks[0](context.Background()))

	c.Handle(LoadAllItems{})
	c.Handle(ItemsLoaded{Generation: 1, Items: []resource.Item{item("zzz", "old")}})
	assert.Equal(t, Loading{Generation: 2}, c.State())
}

func TestNavigationAcrossOneHundredItems(t *testing.T) {
	srv := newFakeServer()
	for i := 0; i < 100; i++ {
		srv.items = append(srv.items, item(fmt.Sprintf("item-%03d", i), "x"))
	}
	c := newLoadedController(t, srv)

	eff := c.Handle(NextItem{})
	assert.True(t, eff.SelectionChanged)
	assert.Equal(t, "item-000", eff.Selected)

	for i := 0; i < 9; i++ {
		c.Handle(NextItem{})
	}
	v := loaded(t, c)
	assert.Equal(t, 9, v.Selected())
	assert.Equal(t, "item-009", v.SelectedID())

	for i := 0; i < 20; i++ {
		c.Handle(PrevItem{})
	}
	assert.Equal(t, 0, loaded(t, c).Selected())
	eff = c.Handle(PrevItem{})
	assert.False(t, eff.SelectionChanged)
	assert.Equal(t, 0, loaded(t, c).Selected())
}

func TestNextItemStopsAtEnd(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a", "b"))
	c.Handle(NextItem{})
	c.Handle(NextItem{})
	c.Handle(NextItem{})
	assert.Equal(t, "b", loaded(t, c).SelectedID())
}

func TestNavigationOnEmptyList(t *testing.T) {
	c := newLoadedController(t, newFakeServer())
	eff := c.Handle(NextItem{})
	assert.False(t, eff.SelectionChanged)
	assert.Equal(t, NoSelection, loaded(t, c).Selected())
}

func TestEnterOpensEditor(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a", "b"))
	c.Handle(NextItem{})
	eff := c.Handle(Enter{})
	assert.Equal(t, ModeEditor, eff.Mode)

	ed, ok := loaded(t, c).Focus.(Editing)
	require.True(t, ok)
	assert.Equal(t, "a", ed.ItemID)
	assert.True(t, ed.Writable)
	assert.JSONEq(t, `{"id":"a","name":"a"}`, ed.Buffer)
}

func TestEnterOnReadOnlyResourceOpensViewer(t *testing.T) {
	ops := newFakeServer("a").ops()
	ops.Create, ops.Update, ops.Delete = nil, nil, nil
	c := NewController("clients", ops, cache.NewMemory())
	drive(c, LoadAllItems{})
	c.Handle(NextItem{})

	eff := c.Handle(Enter{})
	assert.Equal(t, ModeViewer, eff.Mode)
	assert.Empty(t, c.Handle(Submit{}).Tasks)

	c.Handle(Escape{})
	c.Handle(NewItem{})
	assert.IsType(t, Scrolling{}, loaded(t, c).Focus)
	assert.Contains(t, loaded(t, c).Status, "cannot be created")

	c.Handle(Delete{})
	assert.Nil(t, loaded(t, c).Popup)
	assert.Equal(t, Capabilities{Get: true}, c.Capabilities())
}

func TestEscapeFromEditorKeepsSelection(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a", "b"))
	c.Handle(NextItem{})
	c.Handle(NextItem{})
	c.Handle(Enter{})
	eff := c.Handle(Escape{})
	assert.Equal(t, ModeNavigate, eff.Mode)
	assert.Equal(t, Scrolling{Selected: 1}, loaded(t, c).Focus)
}

func TestEscapeClearsSelection(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a"))
	c.Handle(NextItem{})
	eff := c.Handle(Escape{})
	assert.True(t, eff.SelectionChanged)
	assert.Equal(t, "", eff.Selected)
	assert.Equal(t, NoSelection, loaded(t, c).Selected())
}

func TestCreateSuccessSelectsNewItem(t *testing.T) {
	srv := newFakeServer("a", "b")
	c := newLoadedController(t, srv)

	eff := c.Handle(NewItem{})
	assert.Equal(t, ModeEditor, eff.Mode)
	c.Handle(SetBuffer{Text: `{"id":"new","name":"fresh"}`})
	eff = drive(c, Submit{})
	require.Len(t, eff.Tasks, 1)

	v := loaded(t, c)
	assert.Equal(t, []string{"a", "b", "new"}, v.IDs)
	assert.Equal(t, "new", v.SelectedID())
	assert.IsType(t, Scrolling{}, v.Focus)
	assert.Equal(t, 1, srv.created)
	assert.False(t, c.Busy())

	got, ok := cached(t, c, "new")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"new","name":"fresh"}`, string(got.Document))
}

func TestCreateFailurePreservesBuffer(t *testing.T) {
	srv := newFakeServer("a")
	srv.createErr = apierrors.NewConflict(schema.GroupResource{Resource: "policies"}, "new", errors.New("already exists"))
	c := newLoadedController(t, srv)

	const text = `{"id":"new","name":"draft"}`
	c.Handle(NewItem{})
	c.Handle(SetBuffer{Text: text})
	eff := drive(c, Submit{})
	assert.Equal(t, ModeEditor, eff.Mode, "submit keeps the editor while saving")

	de, ok := loaded(t, c).Focus.(DetailsError)
	require.True(t, ok, "focus is %T", loaded(t, c).Focus)
	assert.Equal(t, "Create failed", de.Title)
	assert.Contains(t, de.Message, "already exists")
	assert.Equal(t, ModePopup, c.Mode())

	eff = c.Handle(ClosePopup{})
	assert.Equal(t, ModeEditor, eff.Mode)
	ed, ok := loaded(t, c).Focus.(Editing)
	require.True(t, ok)
	assert.Equal(t, text, ed.Buffer)
	assert.False(t, ed.Saving)
	assert.Equal(t, []string{"a"}, loaded(t, c).IDs)
}

func TestDetailsErrorEscapeReturnsToList(t *testing.T) {
	srv := newFakeServer("a")
	srv.createErr = fmt.Errorf("%w: timeout", resource.ErrTransport)
	c := newLoadedController(t, srv)
	c.Handle(NewItem{})
	c.Handle(SetBuffer{Text: `{"id":"x"}`})
	drive(c, Submit{})

	c.Handle(Escape{})
	assert.Equal(t, Scrolling{Selected: NoSelection}, loaded(t, c).Focus)
}

func TestEscapeFromNewItemClearsFilter(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a", "b", "c"), WithFilterPath("$.name"))
	c.Handle(Filter{})
	c.Handle(SetFilterInput{Text: "b"})
	c.Handle(ConfirmPopup{})
	require.Equal(t, []string{"b"}, loaded(t, c).IDs)

	c.Handle(NewItem{})
	eff := c.Handle(Escape{})
	assert.Equal(t, ModeNavigate, eff.Mode)
	v := loaded(t, c)
	assert.Equal(t, []string{"a", "b", "c"}, v.IDs)
	assert.Empty(t, v.Filter)
	assert.Equal(t, Scrolling{Selected: NoSelection}, v.Focus)
}

func TestDetailsErrorEscapeClearsFilter(t *testing.T) {
	srv := newFakeServer("a", "b", "c")
	srv.createErr = fmt.Errorf("%w: timeout", resource.ErrTransport)
	c := newLoadedController(t, srv, WithFilterPath("$.name"))
	c.Handle(Filter{})
	c.Handle(SetFilterInput{Text: "b"})
	c.Handle(ConfirmPopup{})

	c.Handle(NewItem{})
	c.Handle(SetBuffer{Text: `{"id":"x","name":"x"}`})
	drive(c, Submit{})
	require.IsType(t, DetailsError{}, loaded(t, c).Focus)

	c.Handle(Escape{})
	v := loaded(t, c)
	assert.Equal(t, []string{"a", "b", "c"}, v.IDs)
	assert.Empty(t, v.Filter)
	assert.Equal(t, Scrolling{Selected: NoSelection}, v.Focus)
}

func TestSubmitInvalidJSONStaysInEditor(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a"))
	c.Handle(NewItem{})
	c.Handle(SetBuffer{Text: `{"id": `})
	eff := c.Handle(Submit{})
	assert.Empty(t, eff.Tasks)

	ed, ok := loaded(t, c).Focus.(Editing)
	require.True(t, ok)
	assert.NotEmpty(t, ed.Invalid)
	assert.Equal(t, `{"id": `, ed.Buffer)

	c.Handle(SetBuffer{Text: `{"id":"ok"}`})
	ed = loaded(t, c).Focus.(Editing)
	assert.Empty(t, ed.Invalid)
}

func TestUpdateReplacesInPlace(t *testing.T) {
	srv := newFakeServer("a", "b", "c")
	c := newLoadedController(t, srv)
	c.Handle(NextItem{})
	c.Handle(NextItem{})
	c.Handle(Enter{})
	c.Handle(SetBuffer{Text: `{"id":"b","name":"renamed"}`})
	drive(c, Submit{})

	v := loaded(t, c)
	assert.Equal(t, []string{"a", "b", "c"}, v.IDs)
	assert.Equal(t, Scrolling{Selected: 1}, v.Focus)
	got, _ := cached(t, c, "b")
	assert.Contains(t, string(got.Document), "renamed")
}

func TestSecondMutationWhilePendingIsRejected(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a", "b"))
	c.Handle(NextItem{})
	c.Handle(Delete{})
	eff := c.Handle(ConfirmPopup{})
	require.Len(t, eff.Tasks, 1)
	assert.True(t, c.Busy())

	// Confirming again does nothing while the delete is pending.
	assert.Empty(t, c.Handle(ConfirmPopup{}).Tasks)
	assert.Empty(t, c.Handle(ClosePopup{}).Tasks)
	assert.Equal(t, DeleteConfirm{ItemID: "a", Pending: true}, loaded(t, c).Popup)

	c.Handle(eff.Tasks[0](context.Background()))
	assert.False(t, c.Busy())
	assert.Equal(t, []string{"b"}, loaded(t, c).IDs)
}

func TestUpdateFinishingAfterReloadIsDropped(t *testing.T) {
	srv := newFakeServer("a", "b")
	c := newLoadedController(t, srv)
	c.Handle(NextItem{})
	c.Handle(NextItem{})
	c.Handle(Enter{})
	c.Handle(SetBuffer{Text: `{"id":"b","name":"renamed"}`})
	eff := c.Handle(Submit{})
	require.Len(t, eff.Tasks, 1)
	require.True(t, c.Busy())

	drive(c, LoadAllItems{})
	before := loaded(t, c)
	assert.Equal(t, []string{"a", "b"}, before.IDs)

	c.Handle(eff.Tasks[0](context.Background()))
	assert.False(t, c.Busy())
	assert.Equal(t, before, loaded(t, c))
	got, ok := cached(t, c, "b")
	require.True(t, ok)
	assert.NotContains(t, string(got.Document), "renamed")
}

func TestDeleteFinishingAfterReloadIsDropped(t *testing.T) {
	srv := newFakeServer("a", "b")
	c := newLoadedController(t, srv)
	c.Handle(NextItem{})
	c.Handle(Delete{})
	eff := c.Handle(ConfirmPopup{})
	require.Len(t, eff.Tasks, 1)
	require.True(t, c.Busy())

	drive(c, LoadAllItems{})
	before := loaded(t, c)

	c.Handle(eff.Tasks[0](context.Background()))
	assert.False(t, c.Busy())
	assert.Equal(t, before, loaded(t, c))
	assert.Equal(t, []string{"a", "b"}, loaded(t, c).IDs)
	_, ok := cached(t, c, "a")
	assert.True(t, ok)

	// The slot is free again.
	c.Handle(NextItem{})
	c.Handle(Delete{})
	assert.Len(t, c.Handle(ConfirmPopup{}).Tasks, 1)
}

func TestDeleteOnlyItem(t *testing.T) {
	srv := newFakeServer("only")
	c := newLoadedController(t, srv)
	c.Handle(NextItem{})

	eff := c.Handle(Delete{})
	assert.Equal(t, ModePopup, eff.Mode)
	assert.Equal(t, DeleteConfirm{ItemID: "only"}, loaded(t, c).Popup)

	drive(c, ConfirmPopup{})

	v := loaded(t, c)
	assert.Empty(t, v.IDs)
	assert.Nil(t, v.Popup)
	assert.Equal(t, NoSelection, v.Selected())
	assert.Equal(t, []string{"only"}, srv.deleted)
	_, ok := cached(t, c, "only")
	assert.False(t, ok)
}

func TestDeleteSelectionAdjustment(t *testing.T) {
	tests := []struct {
		name     string
		selected int
		wantIDs  []string
		wantSel  string
	}{
		{"first", 0, []string{"b", "c"}, "b"},
		{"middle", 1, []string{"a", "c"}, "c"},
		{"last", 2, []string{"a", "b"}, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newLoadedController(t, newFakeServer("a", "b", "c"))
			for i := 0; i <= tt.selected; i++ {
				c.Handle(NextItem{})
			}
			c.Handle(Delete{})
			drive(c, ConfirmPopup{})
			v := loaded(t, c)
			assert.Equal(t, tt.wantIDs, v.IDs)
			assert.Equal(t, tt.wantSel, v.SelectedID())
		})
	}
}

func TestAdjustAfterRemoval(t *testing.T) {
	assert.Equal(t, NoSelection, adjustAfterRemoval(0, 0, 0))
	assert.Equal(t, NoSelection, adjustAfterRemoval(NoSelection, 1, 3))
	assert.Equal(t, 1, adjustAfterRemoval(2, 0, 3))
	assert.Equal(t, 2, adjustAfterRemoval(2, 2, 4))
	assert.Equal(t, 1, adjustAfterRemoval(2, 2, 2))
}

func TestDeleteFailureShowsErrorPopup(t *testing.T) {
	srv := newFakeServer("a")
	srv.deleteErr = apierrors.NewNotFound(schema.GroupResource{Resource: "policies"}, "a")
	c := newLoadedController(t, srv)
	c.Handle(NextItem{})
	c.Handle(Delete{})
	drive(c, ConfirmPopup{})

	v := loaded(t, c)
	p, ok := v.Popup.(ErrorPopup)
	require.True(t, ok)
	assert.Equal(t, "Delete failed", p.Title)
	assert.Contains(t, p.Message, "not found")
	assert.Equal(t, []string{"a"}, v.IDs)

	c.Handle(ClosePopup{})
	assert.Nil(t, loaded(t, c).Popup)
	assert.False(t, c.Busy())
}

func TestDeleteCancel(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a"))
	c.Handle(NextItem{})
	c.Handle(Delete{})
	eff := c.Handle(ClosePopup{})
	assert.Empty(t, eff.Tasks)
	assert.Equal(t, ModeNavigate, eff.Mode)
	assert.Equal(t, []string{"a"}, loaded(t, c).IDs)
}

func TestFilterAndEscapeRestores(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a", "b", "c"), WithFilterPath("$.name"))

	eff := c.Handle(Filter{})
	assert.Equal(t, ModeFilterInput, eff.Mode)
	c.Handle(SetFilterInput{Text: "b"})
	c.Handle(ConfirmPopup{})

	v := loaded(t, c)
	assert.Equal(t, []string{"b"}, v.IDs)
	assert.Equal(t, "b", v.Filter)
	assert.Nil(t, v.Popup)

	c.Handle(Escape{})
	v = loaded(t, c)
	assert.Equal(t, []string{"a", "b", "c"}, v.IDs)
	assert.Empty(t, v.Filter)
}

func TestFilterPopupIsSeededAndClosable(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a", "b"), WithFilterPath("$.name"))
	c.Handle(Filter{})
	c.Handle(SetFilterInput{Text: "a"})
	c.Handle(ConfirmPopup{})

	c.Handle(Filter{})
	assert.Equal(t, FilterPopup{Input: "a"}, loaded(t, c).Popup)
	c.Handle(SetFilterInput{Text: "zzz"})
	c.Handle(ClosePopup{})
	v := loaded(t, c)
	assert.Equal(t, []string{"a"}, v.IDs, "closing the popup leaves the view untouched")
	assert.Equal(t, "a", v.Filter)

	c.Handle(Filter{})
	c.Handle(SetFilterInput{Text: ""})
	c.Handle(ConfirmPopup{})
	assert.Equal(t, []string{"a", "b"}, loaded(t, c).IDs)
}

func TestFilterInvalidRegex(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a"),
		WithMatchOptions(cache.MatchOptions{Mode: cache.MatchRegex}))
	c.Handle(Filter{})
	c.Handle(SetFilterInput{Text: "(["})
	c.Handle(ConfirmPopup{})

	p, ok := loaded(t, c).Popup.(ErrorPopup)
	require.True(t, ok)
	assert.Equal(t, "Invalid filter", p.Title)
	assert.Equal(t, []string{"a"}, loaded(t, c).IDs)
}

func TestFilterRegexMode(t *testing.T) {
	c := newLoadedController(t, newFakeServer("alpha", "beta", "gamma"),
		WithFilterPath("$.name"),
		WithMatchOptions(cache.MatchOptions{Mode: cache.MatchRegex}))
	c.Handle(Filter{})
	c.Handle(SetFilterInput{Text: "^(alpha|gamma)$"})
	c.Handle(ConfirmPopup{})
	assert.Equal(t, []string{"alpha", "gamma"}, loaded(t, c).IDs)
}

func TestFilteredViewEveryIDIsCached(t *testing.T) {
	c := newLoadedController(t, newFakeServer("ab", "b", "cb", "d"), WithFilterPath("$.name"))
	c.Handle(Filter{})
	c.Handle(SetFilterInput{Text: "b"})
	c.Handle(ConfirmPopup{})
	for _, id := range loaded(t, c).IDs {
		_, ok := cached(t, c, id)
		assert.True(t, ok, id)
	}
}

type recordingClipboard struct {
	text string
	err  error
}

func (r *recordingClipboard) WriteAll(text string) error {
	r.text = text
	return r.err
}

func TestCopySelectedItem(t *testing.T) {
	cb := &recordingClipboard{}
	c := newLoadedController(t, newFakeServer("a"), WithClipboard(cb))
	c.Handle(NextItem{})
	drive(c, Copy{})

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(cb.text), &v))
	assert.Equal(t, "a", v["id"])
	assert.Equal(t, "Copied to clipboard", loaded(t, c).Status)
}

func TestCopyFailureShowsErrorPopup(t *testing.T) {
	cb := &recordingClipboard{err: errors.New("no display")}
	c := newLoadedController(t, newFakeServer("a"), WithClipboard(cb))
	c.Handle(NextItem{})
	c.Handle(Enter{})
	drive(c, Copy{})

	p, ok := loaded(t, c).Popup.(ErrorPopup)
	require.True(t, ok)
	assert.Equal(t, "Copy failed", p.Title)
	assert.IsType(t, Editing{}, loaded(t, c).Focus)
}

func TestCopyWithoutClipboard(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a"))
	c.Handle(NextItem{})
	eff := c.Handle(Copy{})
	assert.Empty(t, eff.Tasks)
	assert.IsType(t, ErrorPopup{}, loaded(t, c).Popup)
}

func TestRefreshUpdatesCachedItem(t *testing.T) {
	srv := newFakeServer("a")
	c := newLoadedController(t, srv)
	c.Handle(NextItem{})

	srv.items[0] = item("a", "changed")
	drive(c, Refresh{})
	got, ok := cached(t, c, "a")
	require.True(t, ok)
	assert.Contains(t, string(got.Document), "changed")
}

func TestRefreshOfVanishedItem(t *testing.T) {
	srv := newFakeServer("a")
	c := newLoadedController(t, srv)
	c.Handle(NextItem{})
	srv.items = nil
	drive(c, Refresh{})
	assert.Contains(t, loaded(t, c).Status, "Refresh of a failed")
	assert.Equal(t, []string{"a"}, loaded(t, c).IDs)
}

type failingStore struct {
	cache.Store
	failGet bool
}

func (f *failingStore) Get(id string) (resource.Item, bool, error) {
	if f.failGet {
		return resource.Item{}, false, fmt.Errorf("%w: disk I/O error", resource.ErrStorage)
	}
	return f.Store.Get(id)
}

func TestStorageFailureIsErrored(t *testing.T) {
	store := &failingStore{Store: cache.NewMemory()}
	c := NewController("policies", newFakeServer("a").ops(), store)
	drive(c, LoadAllItems{})
	c.Handle(NextItem{})

	store.failGet = true
	c.Handle(Enter{})
	st, ok := c.State().(Errored)
	require.True(t, ok)
	assert.Contains(t, st.Message, "disk I/O error")
}

func TestItemReturnsStorageError(t *testing.T) {
	store := &failingStore{Store: cache.NewMemory()}
	c := NewController("policies", newFakeServer("a").ops(), store)
	drive(c, LoadAllItems{})

	store.failGet = true
	_, ok, err := c.Item("a")
	require.Error(t, err)
	assert.ErrorIs(t, err, resource.ErrStorage)
	assert.False(t, ok)
}

func TestStatusClearedOnNextUserAction(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a"))
	assert.NotEmpty(t, loaded(t, c).Status)
	c.Handle(NextItem{})
	assert.Empty(t, loaded(t, c).Status)
}

func TestStateSnapshotIsIndependent(t *testing.T) {
	c := newLoadedController(t, newFakeServer("a", "b"))
	snap := loaded(t, c)
	snap.IDs[0] = "mutated"
	assert.Equal(t, "a", loaded(t, c).IDs[0])
}
