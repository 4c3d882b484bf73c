package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournals(t *testing.T) {
	cases := []struct {
		name    string
		backend Backend
	}{
		{"memdb", BackendMemDB},
		{"goleveldb", BackendGoLevelDB},
		{"pebble", BackendPebble},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dir, err := os.MkdirTemp("", "journal")
			require.NoError(t, err)
			defer os.RemoveAll(dir)

			j, err := Open(Config{Backend: c.backend, Dir: dir}, "pipeline")
			require.NoError(t, err)
			defer j.Close()

			ok, err := j.IsReported("equivocation/1/7/alice")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, j.MarkReported("equivocation/1/7/alice"))
			ok, err = j.IsReported("equivocation/1/7/alice")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = j.IsReported("equivocation/1/7/bob")
			require.NoError(t, err)
			assert.False(t, ok)

			v, err := j.GetMark("scan_from")
			require.NoError(t, err)
			assert.Zero(t, v)

			require.NoError(t, j.SetMark("scan_from", 42))
			require.NoError(t, j.SetMark("scan_from", 43))
			v, err = j.GetMark("scan_from")
			require.NoError(t, err)
			assert.EqualValues(t, 43, v)

			// marks and reported keys do not collide
			ok, err = j.IsReported("scan_from")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestJournalPersistence(t *testing.T) {
	dir, err := os.MkdirTemp("", "journal")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cfg := Config{Backend: BackendPebble, Dir: dir}
	j, err := Open(cfg, "eq")
	require.NoError(t, err)
	require.NoError(t, j.MarkReported("k"))
	require.NoError(t, j.SetMark("m", 9))
	require.NoError(t, j.Close())

	j, err = Open(cfg, "eq")
	require.NoError(t, err)
	defer j.Close()
	ok, err := j.IsReported("k")
	require.NoError(t, err)
	assert.True(t, ok)
	v, err := j.GetMark("m")
	require.NoError(t, err)
	assert.EqualValues(t, 9, v)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Backend: BackendMemDB}.Validate())
	assert.Error(t, Config{Backend: BackendPebble}.Validate())
	assert.Error(t, Config{Backend: "rocksdb", Dir: "/tmp"}.Validate())
}
