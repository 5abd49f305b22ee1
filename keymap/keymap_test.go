package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ystepanoff/splitkb/hid"
)

func TestResolve_TransparentFallsThrough(t *testing.T) {
	k := New(3, 1, 2)
	k.Set(0, 0, 0, Key(hid.KeyA))
	k.Set(1, 0, 0, Trns())
	k.Set(2, 0, 0, Trns())
	k.Set(0, 0, 1, Key(hid.KeyB))
	k.Set(1, 0, 1, Key(hid.KeyC))
	k.Set(2, 0, 1, Trns())

	assert.Equal(t, Key(hid.KeyA), k.Resolve(2, 0, 0))
	assert.Equal(t, Key(hid.KeyC), k.Resolve(2, 0, 1))
	assert.Equal(t, Key(hid.KeyB), k.Resolve(0, 0, 1))
}

func TestResolve_TransparentAllTheWayDown(t *testing.T) {
	k := New(2, 1, 1)
	k.Set(0, 0, 0, Trns())
	k.Set(1, 0, 0, Trns())

	assert.Equal(t, No(), k.Resolve(1, 0, 0))
}

func TestResolve_ActiveBeyondLayersIsClamped(t *testing.T) {
	k := New(2, 1, 1)
	k.Set(1, 0, 0, Key(hid.KeyZ))

	assert.Equal(t, Key(hid.KeyZ), k.Resolve(7, 0, 0))
}

func TestAt_OutOfRange(t *testing.T) {
	k := New(1, 2, 2)
	assert.Equal(t, No(), k.At(1, 0, 0))
	assert.Equal(t, No(), k.At(0, 2, 0))
	assert.Equal(t, No(), k.At(0, 0, -1))
}

func TestValidate(t *testing.T) {
	k := New(2, 1, 2)
	require.NoError(t, k.Validate())

	k.Set(0, 0, 0, MO(2))
	require.ErrorIs(t, k.Validate(), ErrLayerRange)

	k.Set(0, 0, 0, MO(1))
	k.Set(0, 0, 1, Macro(3))
	require.ErrorIs(t, k.Validate(), ErrUnknownMacro)

	k.SetMacro(3, []uint8{hid.KeyH, hid.KeyI})
	require.NoError(t, k.Validate())
}

func TestDefaults(t *testing.T) {
	for name, k := range map[string]*Keymap{"left": DefaultLeft(), "right": DefaultRight()} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, k.Validate())
			assert.Equal(t, DefaultLayers, k.Layers())
			assert.Equal(t, DefaultRows, k.Rows())
			assert.Equal(t, DefaultCols, k.Cols())
		})
	}

	left := DefaultLeft()
	assert.Equal(t, LTTimeout(1, hid.KeyTab, 100), left.At(0, 4, 4))
	assert.Equal(t, Key(hid.KeyEsc), left.Resolve(1, 1, 0), "layer 1 Esc is transparent")

	right := DefaultRight()
	assert.Equal(t, MTTimeout(hid.ModRightShift, hid.KeyEnter, 130), right.At(0, 4, 0))
	assert.Equal(t, Key(hid.KeyUp), right.Resolve(2, 1, 2))
}

func TestDef_HoldTimeout(t *testing.T) {
	assert.Equal(t, uint32(150), LT(1, hid.KeyTab).HoldTimeout(150))
	assert.Equal(t, uint32(100), LTTimeout(1, hid.KeyTab, 100).HoldTimeout(150))
	assert.True(t, MT(hid.ModLeftGUI, hid.KeySpace).DualFunction())
	assert.False(t, MO(1).DualFunction())
}
