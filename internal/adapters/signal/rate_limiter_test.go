package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJoinRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewJoinRateLimiter(2, 100*time.Millisecond)

	assert.True(t, rl.Allow("conn-a"))
	assert.True(t, rl.Allow("conn-a"))
	assert.False(t, rl.Allow("conn-a"))

	// Another connection has its own window.
	assert.True(t, rl.Allow("conn-b"))
}

func TestJoinRateLimiterWindowSlides(t *testing.T) {
	rl := NewJoinRateLimiter(1, 50*time.Millisecond)

	assert.True(t, rl.Allow("conn-a"))
	assert.False(t, rl.Allow("conn-a"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("conn-a"))
}

func TestJoinRateLimiterForget(t *testing.T) {
	rl := NewJoinRateLimiter(1, time.Minute)

	assert.True(t, rl.Allow("conn-a"))
	assert.False(t, rl.Allow("conn-a"))

	rl.Forget("conn-a")
	assert.True(t, rl.Allow("conn-a"))
}

func TestJoinRateLimiterDisabled(t *testing.T) {
	rl := NewJoinRateLimiter(0, time.Minute)

	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("conn-a"))
	}
}
