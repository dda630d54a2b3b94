package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_RunStopsOnCancel(t *testing.T) {
	h := newTestHandler(t, &mockRouter{}, &mockCatalog{}, Options{})
	srv := NewServer("127.0.0.1:0", h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_ListenError(t *testing.T) {
	srv := NewServer("256.0.0.1:bad", http.NotFoundHandler())

	err := srv.Run(context.Background())

	assert.Error(t, err)
}
