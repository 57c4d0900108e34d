package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/lyzr/chainquery/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := New("test", 0, http.NotFoundHandler(), 0, logger.Discard())
	assert.Equal(t, ":0", srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_ListenError(t *testing.T) {
	srv := New("test", -1, http.NotFoundHandler(), time.Second, logger.Discard())

	err := srv.Run(context.Background())
	assert.Error(t, err)
}
