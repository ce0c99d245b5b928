package crossmap

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/scimodom/internal/toolexec"
)

type fakeRunner struct {
	args []string
	err  error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer) error {
	f.args = append([]string{name}, args...)
	if f.err != nil {
		return f.err
	}
	// Emulate CrossMap writing the lifted file (last argument).
	return os.WriteFile(args[len(args)-1], []byte("1\t100\t101\tm6A\t0\t+\n"), 0o644)
}

func writeInputs(t *testing.T) (raw, chain string) {
	t.Helper()
	dir := t.TempDir()
	raw = filepath.Join(dir, "in.bed")
	chain = filepath.Join(dir, "GRCh37_to_GRCh38.chain.gz")
	require.NoError(t, os.WriteFile(raw, []byte("1\t10\t11\tm6A\t0\t+\n"), 0o644))
	require.NoError(t, os.WriteFile(chain, []byte("chain"), 0o644))
	return raw, chain
}

func TestLiftover_BuildsCommandAndReturnsFiles(t *testing.T) {
	t.Parallel()
	raw, chain := writeInputs(t)
	r := &fakeRunner{}
	tmp := t.TempDir()
	s, err := NewService(tmp, WithRunner(r))
	require.NoError(t, err)

	res, err := s.Liftover(context.Background(), LiftoverRequest{RawFile: raw, ChainFile: chain})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"CrossMap", "bed", "--chromid", "s", "--unmap-file", res.Unmapped, chain, raw, res.Lifted,
	}, r.args)
	assert.Equal(t, tmp, filepath.Dir(res.Lifted))
	assert.Equal(t, tmp, filepath.Dir(res.Unmapped))

	data, err := os.ReadFile(res.Lifted)
	require.NoError(t, err)
	assert.Equal(t, "1\t100\t101\tm6A\t0\t+\n", string(data))
}

func TestLiftover_ExplicitUnmappedAndChromID(t *testing.T) {
	t.Parallel()
	raw, chain := writeInputs(t)
	r := &fakeRunner{}
	s, err := NewService(t.TempDir(), WithRunner(r), WithBinary("/opt/bin/CrossMap"))
	require.NoError(t, err)
	unmapped := filepath.Join(t.TempDir(), "unmapped.bed")

	res, err := s.Liftover(context.Background(), LiftoverRequest{
		RawFile: raw, ChainFile: chain, Unmapped: unmapped, ChromID: "l",
	})
	require.NoError(t, err)
	assert.Equal(t, unmapped, res.Unmapped)
	assert.Equal(t, "/opt/bin/CrossMap", r.args[0])
	assert.Equal(t, "l", r.args[3])
}

func TestLiftover_FailureCleansUp(t *testing.T) {
	t.Parallel()
	raw, chain := writeInputs(t)
	r := &fakeRunner{err: &toolexec.ToolError{Tool: "CrossMap", Stderr: "chain file corrupt", Err: errors.New("exit status 1")}}
	tmp := t.TempDir()
	s, err := NewService(tmp, WithRunner(r))
	require.NoError(t, err)

	_, err = s.Liftover(context.Background(), LiftoverRequest{RawFile: raw, ChainFile: chain})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain file corrupt")

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLiftover_MissingInput(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{}
	s, err := NewService(t.TempDir(), WithRunner(r))
	require.NoError(t, err)

	_, err = s.Liftover(context.Background(), LiftoverRequest{RawFile: "/nonexistent.bed", ChainFile: "/nonexistent.chain"})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, r.args, "tool is not invoked")
}
