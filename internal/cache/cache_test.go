package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type summary struct {
	FR, EN string
}

func TestSetGet(t *testing.T) {
	c := New[summary](time.Minute, time.Minute)
	c.Set("k", summary{FR: "bonjour", EN: "hello"})

	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "hello", got.EN)
	assert.Equal(t, 1, c.Len())

	_, ok = c.Get("missing")
	assert.False(t, ok)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New[string](10*time.Millisecond, time.Minute)
	c.Set("k", "v")
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}
