package cache

import (
	"encoding/json"
	"fmt"
	"strings"

	"k8s.io/client-go/util/jsonpath"

	"github.com/mqtt-tools/hivemq-tui/internal/resource"
)

// Memory is an in-process Store. It is not safe for concurrent use; the
// browser controller owns it exclusively.
type Memory struct {
	order []string
	items map[string]resource.Item
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]resource.Item)}
}

func (m *Memory) Put(id string, item resource.Item) error {
	if _, ok := m.items[id]; !ok {
		m.order = append(m.order, id)
	}
	item.ID = id
	m.items[id] = item
	return nil
}

func (m *Memory) Get(id string) (resource.Item, bool, error) {
	item, ok := m.items[id]
	return item, ok, nil
}

func (m *Memory) ListIDs() ([]string, error) {
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids, nil
}

func (m *Memory) Remove(id string) error {
	if _, ok := m.items[id]; !ok {
		return nil
	}
	delete(m.items, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Query(path string, matcher Matcher) ([]resource.Item, error) {
	resolve, err := compilePath(path)
	if err != nil {
		return nil, err
	}
	var out []resource.Item
	for _, id := range m.order {
		item := m.items[id]
		values, ok := resolve(item.Document)
		if !ok {
			continue
		}
		for _, v := range values {
			if matcher.Match(v) {
				out = append(out, item)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) Clear() error {
	m.order = nil
	m.items = make(map[string]resource.Item)
	return nil
}

func (m *Memory) Len() (int, error) {
	return len(m.order), nil
}

func (m *Memory) Close() error { return nil }

// compilePath returns a resolver yielding the text of every value found at
// path in a document, and false when the path does not resolve.
func compilePath(path string) (func(doc []byte) ([]string, bool), error) {
	p, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	if p == "$" {
		return func(doc []byte) ([]string, bool) {
			var v interface{}
			if json.Unmarshal(doc, &v) != nil {
				return nil, false
			}
			return []string{scalarText(v)}, true
		}, nil
	}

	jp := jsonpath.New("filter")
	jp.AllowMissingKeys(false)
	if err := jp.Parse("{" + strings.TrimPrefix(p, "$") + "}"); err != nil {
		return nil, fmt.Errorf("%w: path %q: %v", resource.ErrInvalidFilter, path, err)
	}
	return func(doc []byte) ([]string, bool) {
		var data interface{}
		if json.Unmarshal(doc, &data) != nil {
			return nil, false
		}
		results, err := jp.FindResults(data)
		if err != nil {
			return nil, false
		}
		var values []string
		for _, set := range results {
			for _, rv := range set {
				if !rv.IsValid() {
					continue
				}
				values = append(values, scalarText(rv.Interface()))
			}
		}
		return values, len(values) > 0
	}, nil
}
