// Package resource holds the types shared by the cache, the pagination drainer,
// the browser controller and the REST client.
package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Item is one document of a remote collection. Identity is ID only.
type Item struct {
	ID       string
	Document json.RawMessage
}

// Page is one response of a paginated list call. An empty Next marks the last
// page; Next is either a bare cursor token or a full "next" URL.
type Page struct {
	Items []Item
	Next  string
}

// Ops is the capability record of one resource type. ListPage is required;
// a nil optional operation means the resource does not support it.
type Ops struct {
	ListPage func(ctx context.Context, cursor string, limit int) (Page, error)
	Get      func(ctx context.Context, id string) (Item, error)
	Create   func(ctx context.Context, doc string) (Item, error)
	Update   func(ctx context.Context, id, doc string) (Item, error)
	Delete   func(ctx context.Context, id string) (string, error)
}

// NewItem builds an Item from raw JSON, reading the identity from idField.
func NewItem(raw []byte, idField string) (Item, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Item{}, fmt.Errorf("%w: decode document: %v", ErrSerialization, err)
	}
	rawID, ok := fields[idField]
	if !ok {
		return Item{}, fmt.Errorf("%w: document has no %q field", ErrSerialization, idField)
	}
	id, err := scalarText(rawID)
	if err != nil || id == "" {
		return Item{}, fmt.Errorf("%w: field %q is not a usable id", ErrSerialization, idField)
	}
	doc := make([]byte, len(raw))
	copy(doc, raw)
	return Item{ID: id, Document: doc}, nil
}

// Pretty returns the document indented for display and editing.
func (i Item) Pretty() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, i.Document, "", "  "); err != nil {
		return string(i.Document)
	}
	return buf.String()
}

// ValidateDocument checks that doc is a single JSON object.
func ValidateDocument(doc string) error {
	trimmed := strings.TrimSpace(doc)
	if trimmed == "" {
		return fmt.Errorf("%w: document is empty", ErrSerialization)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

func scalarText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
