package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnreadCache_KeysAreVersioned(t *testing.T) {
	assert.Equal(t, "tasknest:notify:unread:U1:ver", versionKey("U1"))
	assert.Equal(t, "tasknest:notify:unread:U1:0", countKey("U1", 0))
	assert.Equal(t, "tasknest:notify:unread:U1:7", countKey("U1", 7))
}

func TestUnreadCache_DisconnectedIsUncacheable(t *testing.T) {
	c := NewUnreadCache(time.Minute)
	ctx := context.Background()

	n, version, ok := c.Get(ctx, "U1")
	assert.False(t, ok)
	assert.Zero(t, n)
	assert.Negative(t, version)

	assert.NotPanics(t, func() {
		c.Set(ctx, "U1", 0, 3)
		c.Invalidate(ctx, "U1")
	})
}
