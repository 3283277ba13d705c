package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncreasingDelayClamps(t *testing.T) {
	next, err := IncreasingDelay(DelayConfig{InitialDelay: 100, Variation: 50, Limit: 220})
	require.NoError(t, err)

	want := []time.Duration{100, 150, 200, 220, 220, 220}
	for i, w := range want {
		assert.Equal(t, w, next(), "call %d", i)
	}
}

func TestDecreasingDelayClamps(t *testing.T) {
	next, err := DecreasingDelay(DelayConfig{InitialDelay: 300, Variation: 100, Limit: 50})
	require.NoError(t, err)

	want := []time.Duration{300, 200, 100, 50, 50}
	for i, w := range want {
		assert.Equal(t, w, next(), "call %d", i)
	}
}

func TestConstDelay(t *testing.T) {
	next, err := ConstDelay(time.Second)
	require.NoError(t, err)
	for range 3 {
		assert.Equal(t, time.Second, next())
	}
}

func TestDelayConstructionRejectsBadParams(t *testing.T) {
	testCases := []struct {
		name string
		ctor func() (DelayFunc, error)
	}{
		{"increasing negative initial", func() (DelayFunc, error) {
			return IncreasingDelay(DelayConfig{InitialDelay: -1, Limit: 10})
		}},
		{"increasing negative variation", func() (DelayFunc, error) {
			return IncreasingDelay(DelayConfig{Variation: -1, Limit: 10})
		}},
		{"increasing initial above limit", func() (DelayFunc, error) {
			return IncreasingDelay(DelayConfig{InitialDelay: 20, Limit: 10})
		}},
		{"decreasing initial below limit", func() (DelayFunc, error) {
			return DecreasingDelay(DelayConfig{InitialDelay: 5, Limit: 10})
		}},
		{"decreasing negative limit", func() (DelayFunc, error) {
			return DecreasingDelay(DelayConfig{InitialDelay: 5, Limit: -10})
		}},
		{"const negative", func() (DelayFunc, error) {
			return ConstDelay(-time.Millisecond)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fn, err := tc.ctor()
			assert.ErrorIs(t, err, ErrInvalidDelay)
			assert.Nil(t, fn)
		})
	}
}
