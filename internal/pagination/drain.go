// Package pagination drains cursor-paginated remote collections.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mqtt-tools/hivemq-tui/internal/resource"
)

// DefaultPageSize is the page-size hint used when Options.PageSize is unset.
const DefaultPageSize = 500

var (
	// ErrCursorLoop is returned when the server hands back the cursor it was
	// just called with.
	ErrCursorLoop = errors.New("pagination cursor did not advance")
	// ErrTooManyPages is returned when Options.MaxPages is exceeded.
	ErrTooManyPages = errors.New("pagination exceeded page limit")
)

// FetchFunc fetches one page starting at cursor ("" for the first page).
type FetchFunc func(ctx context.Context, cursor string, limit int) (resource.Page, error)

// Options tunes a drain.
type Options struct {
	PageSize int // page-size hint passed to every fetch
	MaxPages int // 0 means unbounded
}

// Drain calls fetch until a page carries no usable cursor and returns every
// item in arrival order. A failing page aborts the drain and no items are
// returned. Drain does not retry.
func Drain(ctx context.Context, fetch FetchFunc, opts Options) ([]resource.Item, error) {
	limit := opts.PageSize
	if limit <= 0 {
		limit = DefaultPageSize
	}

	var (
		items  []resource.Item
		cursor string
		pages  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.MaxPages > 0 && pages >= opts.MaxPages {
			return nil, fmt.Errorf("%w (%d)", ErrTooManyPages, opts.MaxPages)
		}
		page, err := fetch(ctx, cursor, limit)
		pages++
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", pages, err)
		}
		items = append(items, page.Items...)

		next := NextCursor(page.Next)
		if next == "" {
			return items, nil
		}
		if next == cursor {
			return nil, fmt.Errorf("%w: %q", ErrCursorLoop, next)
		}
		cursor = next
	}
}

// NextCursor derives the cursor for the following call from a page's Next
// value. Bare tokens are returned as-is. URL forms yield their "cursor" query
// parameter; a URL that does not parse or has no cursor yields "".
func NextCursor(next string) string {
	next = strings.TrimSpace(next)
	if next == "" {
		return ""
	}
	if !looksLikeURL(next) {
		return next
	}
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get("cursor")
}

func looksLikeURL(s string) bool {
	return strings.Contains(s, "?") || strings.Contains(s, "://") || strings.HasPrefix(s, "/")
}
