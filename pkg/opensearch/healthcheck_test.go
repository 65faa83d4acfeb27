package opensearch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/opensearch"
)

func TestNew(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":{"number":"2.11.0","distribution":"opensearch"}}`))
	}))
	t.Cleanup(srv.Close)

	client, err := opensearch.New(context.Background(), opensearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestNew_Unhealthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, err := opensearch.New(context.Background(), opensearch.Config{Addresses: []string{srv.URL}, DisableRetry: true})
	assert.ErrorIs(t, err, opensearch.ErrHealthcheckFailed)
}

func TestNew_Disabled(t *testing.T) {
	t.Parallel()
	_, err := opensearch.New(context.Background(), opensearch.Config{})
	assert.ErrorIs(t, err, opensearch.ErrNoAddresses)
}
