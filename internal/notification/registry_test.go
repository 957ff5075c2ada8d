package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/subtrackr/subtrackr/internal/errors"
)

func TestStatusRegistrySeed(t *testing.T) {
	t.Parallel()

	r := NewStatusRegistry()

	email := r.Get(ChannelEmail)
	assert.True(t, email.Initialized, "email starts initialized")
	assert.True(t, email.Enabled, "email starts enabled")

	for _, ch := range []Channel{ChannelWebPush, ChannelPushbullet, ChannelPushover} {
		st := r.Get(ch)
		assert.False(t, st.Initialized, "%s should start uninitialized", ch)
		assert.False(t, st.Enabled, "%s should start disabled", ch)
	}
}

func TestStatusRegistrySetInitialized(t *testing.T) {
	t.Parallel()

	r := NewStatusRegistry()

	r.SetInitialized(ChannelPushbullet, nil)
	st := r.Get(ChannelPushbullet)
	assert.True(t, st.Initialized)
	assert.True(t, st.Enabled)
	assert.Empty(t, st.Error)

	initErr := errors.Newf("token rejected").
		Component("notification").
		Category(errors.CategoryValidation).
		Build()
	r.SetInitialized(ChannelPushbullet, initErr)
	st = r.Get(ChannelPushbullet)
	assert.False(t, st.Initialized, "failed init resets the flag")
	assert.False(t, st.Enabled, "failed init disables the channel")
	assert.Contains(t, st.Error, "token rejected")
}

func TestStatusRegistryEnabledRequiresInitialized(t *testing.T) {
	t.Parallel()

	r := NewStatusRegistry()

	r.SetEnabled(ChannelPushover, true)
	assert.False(t, r.Get(ChannelPushover).Enabled, "enable before init is a no-op")

	r.SetInitialized(ChannelPushover, nil)
	r.SetEnabled(ChannelPushover, false)
	st := r.Get(ChannelPushover)
	assert.True(t, st.Initialized, "disable keeps the initialized flag")
	assert.False(t, st.Enabled)

	r.SetEnabled(ChannelPushover, true)
	assert.True(t, r.Get(ChannelPushover).Enabled)
}

func TestStatusRegistrySnapshotIsolation(t *testing.T) {
	t.Parallel()

	r := NewStatusRegistry()
	snap := r.Snapshot()
	assert.Len(t, snap, len(AllChannels()))

	snap[ChannelEmail] = Status{}
	assert.True(t, r.Get(ChannelEmail).Enabled, "mutating a snapshot must not affect the registry")
}
