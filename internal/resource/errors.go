package resource

import (
	"errors"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Error kinds surfaced by collaborators. API status failures are reported as
// *apierrors.StatusError values and count as transport errors.
var (
	ErrTransport     = errors.New("transport error")
	ErrSerialization = errors.New("invalid document")
	ErrStorage       = errors.New("cache storage error")
	ErrInvalidFilter = errors.New("invalid filter")
)

// IsTransport reports whether err came from the network or the remote API.
func IsTransport(err error) bool {
	if errors.Is(err, ErrTransport) {
		return true
	}
	var status apierrors.APIStatus
	return errors.As(err, &status)
}

// Message returns the text shown to the user for err. API status errors show
// the server message rather than the wrapped chain.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var status apierrors.APIStatus
	if errors.As(err, &status) {
		if msg := status.Status().Message; msg != "" {
			return msg
		}
	}
	return err.Error()
}
