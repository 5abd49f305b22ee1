package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_ActiveIsHighestMomentary(t *testing.T) {
	m := New(3, 0)
	assert.Equal(t, 0, m.Active())

	assert.True(t, m.ActivateMomentary(1))
	assert.Equal(t, 1, m.Active())

	assert.True(t, m.ActivateMomentary(2))
	assert.Equal(t, 2, m.Active())

	assert.True(t, m.DeactivateMomentary(2))
	assert.Equal(t, 1, m.Active())

	assert.True(t, m.DeactivateMomentary(1))
	assert.Equal(t, 0, m.Active())
}

func TestManager_MomentaryIsIdempotent(t *testing.T) {
	m := New(3, 0)
	assert.True(t, m.ActivateMomentary(1))
	assert.False(t, m.ActivateMomentary(1))
	assert.True(t, m.DeactivateMomentary(1))
	assert.False(t, m.DeactivateMomentary(1))
}

func TestManager_OutOfRangeIsNoop(t *testing.T) {
	m := New(3, 0)
	for _, n := range []int{-1, 3, MaxLayers, 255} {
		assert.False(t, m.ActivateMomentary(n))
		assert.False(t, m.DeactivateMomentary(n))
		m.ToggleBase(n)
		assert.Equal(t, 0, m.Active())
		assert.Equal(t, 0, m.Base())
	}
}

func TestManager_ToggleBase(t *testing.T) {
	m := New(3, 0)

	m.ToggleBase(2)
	assert.Equal(t, 2, m.Base())
	assert.Equal(t, 2, m.Active())

	m.ToggleBase(1)
	assert.Equal(t, 1, m.Base())

	m.ToggleBase(1)
	assert.Equal(t, 0, m.Base())
}

func TestManager_MomentaryOverridesBase(t *testing.T) {
	m := New(3, 0)
	m.ToggleBase(2)
	m.ActivateMomentary(1)

	assert.Equal(t, 1, m.Active())
}

func TestNew_Clamps(t *testing.T) {
	m := New(0, 5)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, 0, m.Default())

	m = New(100, 2)
	assert.Equal(t, MaxLayers, m.Count())
	assert.Equal(t, 2, m.Base())
}

func TestManager_Reset(t *testing.T) {
	m := New(3, 1)
	m.ToggleBase(2)
	m.ActivateMomentary(2)

	m.Reset()

	assert.Equal(t, 1, m.Active())
	assert.False(t, m.IsMomentary(2))
}
