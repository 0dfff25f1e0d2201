package integrations

import (
	"errors"
	"net/http"
	"time"

	perrors "github.com/matzehuels/podkit/pkg/errors"
)

const httpTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when a pod or version does not exist in the source.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for transport failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client with the standard metadata timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// LookupFailed wraps a source error as a METADATA_LOOKUP error naming the pod.
// The original error stays reachable through errors.Is.
func LookupFailed(name, version string, err error) error {
	if err == nil {
		return nil
	}
	if version != "" {
		return perrors.Wrap(perrors.ErrCodeMetadataLookup, err, "look up %s %s", name, version)
	}
	return perrors.Wrap(perrors.ErrCodeMetadataLookup, err, "look up %s", name)
}
