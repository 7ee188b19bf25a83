package purity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const synthPatch = `obj 10 10 osc~ 440;
obj 10 50 *~ 0.1;
obj 10 90 dac~;

connect 0 0 1 0;
connect 1 0 2 0;
connect 1 0 2 1;
`

func TestParsePatch(t *testing.T) {
	patch, err := ParsePatch(strings.NewReader(synthPatch))
	require.NoError(t, err)
	require.Len(t, patch, 6)

	assert.Equal(t, NewMessage("obj", Int(10), Int(10), String("osc~"), Int(440)), patch[0])
	// Float-looking tokens keep their spelling.
	assert.Equal(t, "obj 10 50 *~ 0.1", patch[1].String())
	assert.Equal(t, "connect 1 0 2 1", patch.Messages()[5].String())
}

func TestParsePatch_Empty(t *testing.T) {
	patch, err := ParsePatch(strings.NewReader(" ;\n;"))
	require.NoError(t, err)
	assert.Empty(t, patch)
}

func TestReadPatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synth.fudi")
	require.NoError(t, os.WriteFile(path, []byte(synthPatch), 0o600))

	patch, err := ReadPatchFile(path)
	require.NoError(t, err)
	assert.Len(t, patch, 6)

	_, err = ReadPatchFile(filepath.Join(t.TempDir(), "missing.fudi"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMessageList_Add(t *testing.T) {
	var patch MessageList

	patch = patch.Add("obj", String("loadbang")).Add("msg", Int(1))

	require.Len(t, patch, 2)
	assert.Equal(t, "obj loadbang", patch[0].String())
	assert.Equal(t, "msg 1", patch[1].String())
}
