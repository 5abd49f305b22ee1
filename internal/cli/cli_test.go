package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ystepanoff/splitkb/keymap"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "splitkb-sim", cmd.Use)

	for _, name := range []string{"run", "keymap", "encode", "decode"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "c", cfg.Shorthand)
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "layer sync",
			args: []string{"encode", "layer-sync", "1", "--origin", "secondary"},
			want: "record  01 03 01 00 00 00 00 00 00 00\nmessage secondary/layer-sync layer=1\n",
		},
		{
			name: "tap with modifier",
			args: []string{"encode", "tap", "LShift", "A"},
			want: "record  00 01 02 00 04 00 00 00 00 00\nmessage primary/tap mods=02 keys=04 00 00 00 00 00\n",
		},
		{
			name: "connection",
			args: []string{"encode", "conn", "on"},
			want: "record  00 00 01 00 00 00 00 00 00 00\nmessage primary/conn on=true\n",
		},
		{
			name: "heartbeat",
			args: []string{"encode", "hb-req", "--origin", "left"},
			want: "record  01 07 00 00 00 00 00 00 00 00\nmessage secondary/hb-req\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := [][]string{
		{"encode", "wiggle"},
		{"encode", "layer-sync"},
		{"encode", "layer-sync", "x"},
		{"encode", "mod-sync", "A"},
		{"encode", "tap", "MO(1)"},
		{"encode", "hb-res", "extra"},
		{"encode", "conn", "maybe"},
		{"encode", "conn", "on", "--origin", "middle"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args[1:], " "), func(t *testing.T) {
			_, err := execute(t, args...)
			require.Error(t, err)
		})
	}
}

func TestEncodeDecodeFrame(t *testing.T) {
	out, err := execute(t, "encode", "mod-sync", "LGui", "--origin", "secondary", "--frame", "--seq", "7")
	require.NoError(t, err)

	var frame string
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "frame   "); ok {
			frame = rest
		}
	}
	require.NotEmpty(t, frame)

	out, err = execute(t, "decode", "--frame", frame)
	require.NoError(t, err)
	assert.Equal(t, "sender  0x534b0002\nseq     7\nmessage secondary/mod-sync mask=08\n", out)
}

func TestDecode(t *testing.T) {
	out, err := execute(t, "decode", "01 02 00 00 2c 00 00 00 00 00")
	require.NoError(t, err)
	assert.Equal(t, "message secondary/brief-tap mods=00 keys=2c 00 00 00 00 00\n", out)

	_, err = execute(t, "decode", "zz")
	require.ErrorIs(t, err, errArgs)

	_, err = execute(t, "decode", "--frame", "0102")
	require.ErrorIs(t, err, errArgs)

	_, err = execute(t, "decode", "01 63 00 00 00 00 00 00 00 00")
	require.Error(t, err)
}

func TestKeymapShowAndCheck(t *testing.T) {
	out, err := execute(t, "keymap", "show", "--half", "left")
	require.NoError(t, err)

	km, err := keymap.Load(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, keymap.DefaultLeft().At(0, 4, 5), km.At(0, 4, 5))

	path := filepath.Join(t.TempDir(), "left.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))

	out, err = execute(t, "keymap", "check", path)
	require.NoError(t, err)
	assert.Equal(t, path+": 3 layers of 5x6, 0 macros\n", out)

	_, err = execute(t, "keymap", "show", "--half", "middle")
	require.Error(t, err)
}

func TestKeymapShowConfiguredRole(t *testing.T) {
	out, err := execute(t, "keymap", "show")
	require.NoError(t, err)

	want, err := keymap.Marshal(keymap.DefaultRight())
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestRunScript(t *testing.T) {
	script := filepath.Join("..", "sim", "testdata", "basic.yaml")
	golden, err := os.ReadFile(filepath.Join("..", "sim", "testdata", "golden", "basic.golden"))
	require.NoError(t, err)

	out, err := execute(t, "run", script)
	require.NoError(t, err)
	assert.Equal(t, string(golden), out)

	out, err = execute(t, "run", "--stats", script)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, string(golden)))
	assert.Contains(t, out, "# run ")
	assert.Contains(t, out, "# secondary ")
}

func TestRunScriptErrors(t *testing.T) {
	script := filepath.Join("..", "sim", "testdata", "basic.yaml")

	_, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.toml"), script)
	require.Error(t, err)

	_, err = execute(t, "run", "--log-level", "loud", script)
	require.Error(t, err)
}
