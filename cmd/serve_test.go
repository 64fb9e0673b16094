package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWithShutdownDrainsInFlightRequests(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /slow", func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, "done")
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: mux}

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- serveWithShutdown(ctx, srv, ln)
	}()

	// Start a request that is still in flight when shutdown begins.
	respCh := make(chan *http.Response, 1)
	go func() {
		resp, rerr := http.Get("http://" + ln.Addr().String() + "/slow")
		if rerr != nil {
			t.Error(rerr)
			respCh <- nil
			return
		}
		respCh <- resp
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)

	// The in-flight request finishes despite the canceled serve context.
	resp := <-respCh
	require.NotNil(t, resp)
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "done", string(body))

	select {
	case err := <-serveErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
