package listeners

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistrar counts registrations and removals.
type fakeRegistrar struct {
	added   int
	removed int
}

func (f *fakeRegistrar) AddHandler(handler interface{}) func() {
	f.added++
	return func() { f.removed++ }
}

func TestActivateIsIdempotent(t *testing.T) {
	reg := &fakeRegistrar{}
	c := NewController()
	l := New(Config{})

	n := c.Activate(reg, l)
	require.Greater(t, n, 0)
	assert.Equal(t, n, reg.added)
	assert.True(t, c.Active())

	// A repeat backfill completion must not double-register the set.
	assert.Zero(t, c.Activate(reg, l))
	assert.Equal(t, n, reg.added)
}

func TestDeactivateRemovesEverything(t *testing.T) {
	reg := &fakeRegistrar{}
	c := NewController()
	l := New(Config{})

	n := c.Activate(reg, l)
	c.Deactivate()
	assert.Equal(t, n, reg.removed)
	assert.False(t, c.Active())

	// The set can come back after a deactivation cycle.
	assert.Equal(t, n, c.Activate(reg, l))
}
