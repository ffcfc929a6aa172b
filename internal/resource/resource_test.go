package resource

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestNewItemReadsIDField(t *testing.T) {
	item, err := NewItem([]byte(`{"name":"trace-1","state":"RUNNING"}`), "name")
	require.NoError(t, err)
	assert.Equal(t, "trace-1", item.ID)
	assert.JSONEq(t, `{"name":"trace-1","state":"RUNNING"}`, string(item.Document))
}

func TestNewItemNumericID(t *testing.T) {
	item, err := NewItem([]byte(`{"id":42}`), "id")
	require.NoError(t, err)
	assert.Equal(t, "42", item.ID)
}

func TestNewItemRejectsMissingID(t *testing.T) {
	_, err := NewItem([]byte(`{"other":"x"}`), "id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSerialization))

	_, err = NewItem([]byte(`not json`), "id")
	assert.True(t, errors.Is(err, ErrSerialization))
}

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument(` {"id":"a"} `))
	assert.ErrorIs(t, ValidateDocument(""), ErrSerialization)
	assert.ErrorIs(t, ValidateDocument(`[1,2]`), ErrSerialization)
	assert.ErrorIs(t, ValidateDocument(`{"id":`), ErrSerialization)
}

func TestPretty(t *testing.T) {
	item := Item{ID: "a", Document: []byte(`{"id":"a","n":1}`)}
	assert.Equal(t, "{\n  \"id\": \"a\",\n  \"n\": 1\n}", item.Pretty())
}

func TestMessageAndIsTransport(t *testing.T) {
	notFound := apierrors.NewNotFound(schema.GroupResource{Resource: "schemas"}, "s1")
	wrapped := fmt.Errorf("get schema: %w", notFound)
	assert.True(t, IsTransport(wrapped))
	assert.Equal(t, notFound.ErrStatus.Message, Message(wrapped))

	netErr := fmt.Errorf("%w: connection refused", ErrTransport)
	assert.True(t, IsTransport(netErr))
	assert.False(t, IsTransport(ErrStorage))
	assert.Equal(t, "", Message(nil))
}
