package microservice_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/illmade-knight/go-doccache/pkg/microservice"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseServer_Healthz(t *testing.T) {
	// Arrange
	server := microservice.NewBaseServer(zerolog.Nop(), "127.0.0.1:0")
	var unhealthy atomic.Bool
	server.AddHealthCheck("cache", func() error {
		if unhealthy.Load() {
			return errors.New("cleanup worker stopped")
		}
		return nil
	})
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })
	url := "http://" + server.Addr() + "/healthz"

	// Act & Assert: healthy.
	resp, err := http.Get(url)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	// Act & Assert: unhealthy.
	unhealthy.Store(true)
	resp, err = http.Get(url)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "cache: cleanup worker stopped")
}

func TestBaseServer_Addr(t *testing.T) {
	server := microservice.NewBaseServer(zerolog.Nop(), "127.0.0.1:0")
	assert.Equal(t, "127.0.0.1:0", server.Addr(), "configured address before Start")

	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })

	host, port, err := net.SplitHostPort(server.Addr())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.NotEqual(t, "0", port, "the bound port replaces the ephemeral one")
}

func TestBaseServer_ShutdownRunsHooksInReverse(t *testing.T) {
	server := microservice.NewBaseServer(zerolog.Nop(), ":0")
	require.NoError(t, server.Start())

	var order []string
	hookErr := errors.New("stop timed out")
	server.OnShutdown(func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	server.OnShutdown(func(context.Context) error {
		order = append(order, "second")
		return hookErr
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := server.Shutdown(ctx)

	assert.ErrorIs(t, err, hookErr)
	assert.Equal(t, []string{"second", "first"}, order, "all hooks run even when one fails")
}
