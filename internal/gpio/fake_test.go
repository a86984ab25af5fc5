package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeReceiverLevels(t *testing.T) {
	f := NewFakeReceiver(1, 0, 1)

	for i, want := range []int{1, 0, 1, 1, 1} {
		v, err := f.Level()
		require.NoError(t, err)
		assert.Equal(t, want, v, "read %d", i)
	}

	f.Script(0)
	v, _ := f.Level()
	assert.Equal(t, 0, v)
}

func TestFakeReceiverLevelError(t *testing.T) {
	f := NewFakeReceiver(1)
	f.LevelError = errors.New("gpio fault")

	_, err := f.Level()
	assert.EqualError(t, err, "gpio fault")
}

func TestFakeReceiverEdges(t *testing.T) {
	f := NewFakeReceiver()
	assert.False(t, f.Edge(1), "no handler installed")

	var got []uint32
	require.NoError(t, f.OnRisingEdge(func(ticks uint32) { got = append(got, ticks) }))
	assert.True(t, f.Listening())
	assert.True(t, f.Edge(1000))
	assert.True(t, f.Edge(2000))

	require.NoError(t, f.ClearEdge())
	assert.False(t, f.Listening())
	assert.False(t, f.Edge(3000))
	assert.Equal(t, []uint32{1000, 2000}, got)
}

func TestFakeReceiverEnable(t *testing.T) {
	f := NewFakeReceiver()
	f.SetEnabled(true)
	f.SetEnabled(false)
	assert.False(t, f.Enabled)
	assert.Equal(t, []bool{true, false}, f.EnableCalls)
}

func TestFakeReceiverClose(t *testing.T) {
	f := NewFakeReceiver()
	f.OnRisingEdge(func(uint32) {})
	require.NoError(t, f.Close())
	assert.True(t, f.Closed)
	assert.False(t, f.Listening())
	assert.Error(t, f.Close())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no chip", func(c *Config) { c.Chip = "" }},
		{"negative data pin", func(c *Config) { c.DataPin = -1 }},
		{"same pins", func(c *Config) { c.EnablePin = c.DataPin }},
		{"bad bias", func(c *Config) { c.Bias = "float" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	c := DefaultConfig()
	c.EnablePin = -1
	assert.NoError(t, c.Validate(), "enable pin is optional")
}

func TestEnableValue(t *testing.T) {
	c := Config{EnableActiveLow: true}
	assert.Equal(t, 0, c.enableValue(true))
	assert.Equal(t, 1, c.enableValue(false))

	c.EnableActiveLow = false
	assert.Equal(t, 1, c.enableValue(true))
	assert.Equal(t, 0, c.enableValue(false))
}
