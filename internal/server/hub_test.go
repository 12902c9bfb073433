package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubWaitsForPumps(t *testing.T) {
	var h hub
	require.True(t, h.track())

	release := make(chan struct{})
	h.run(func() { <-release })
	h.run(func() { <-release })

	require.True(t, h.close())
	assert.False(t, h.close(), "second close reports false")
	assert.False(t, h.track(), "no tracking after close")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.wait(ctx), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, h.wait(context.Background()))
}

func TestHubUntrack(t *testing.T) {
	var h hub
	require.True(t, h.track())
	h.untrack()

	h.close()
	assert.NoError(t, h.wait(context.Background()))
}
