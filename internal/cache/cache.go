// Package cache is the local, queryable copy of one remote collection.
package cache

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mqtt-tools/hivemq-tui/internal/resource"
)

// Store is a keyed store of items for a single resource type.
// Ids are unique; listing order is insertion order and replacing an item keeps
// its original position.
type Store interface {
	Put(id string, item resource.Item) error
	Get(id string) (resource.Item, bool, error)
	ListIDs() ([]string, error)
	Remove(id string) error
	// Query returns the items whose value at path satisfies m, in listing
	// order. Items where path does not resolve are skipped.
	Query(path string, m Matcher) ([]resource.Item, error)
	Clear() error
	Len() (int, error)
	Close() error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQLite)(nil)
)

// scalarText renders a JSON value the way the matcher sees it: strings
// unquoted, everything else as compact JSON.
func scalarText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case []byte:
		return string(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// normalizePath turns "$.a.b", ".a.b" and "a.b" into the "$"-rooted form.
func normalizePath(path string) (string, error) {
	p := strings.TrimSpace(path)
	switch {
	case p == "" || p == "$":
		return "$", nil
	case strings.HasPrefix(p, "$.") || strings.HasPrefix(p, "$["):
		return p, nil
	case strings.HasPrefix(p, "."):
		return "$" + p, nil
	case strings.HasPrefix(p, "$"):
		return "", fmt.Errorf("%w: path %q", resource.ErrInvalidFilter, path)
	default:
		return "$." + p, nil
	}
}
