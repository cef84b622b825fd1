package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/server/config"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRun_ServesUntilCanceled(t *testing.T) {
	addr := freeAddr(t)
	app := &App{
		config: &config.Config{EndpointAddr: addr, ShutdownTimeout: time.Second},
		logger: logging.Discard(),
		handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusTeapot
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	app := &App{
		config:  &config.Config{EndpointAddr: l.Addr().String(), ShutdownTimeout: time.Second},
		logger:  logging.Discard(),
		handler: http.NotFoundHandler(),
	}

	require.Error(t, app.Run(context.Background()))
}

func TestNewApp_BadDSN(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewApp(ctx, &config.Config{DatabaseDSN: "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"}, logging.Discard())
	require.Error(t, err)
}
