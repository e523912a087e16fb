package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativePaths(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "HG002", "bams"), RelBams("HG002"))
	assert.Equal(t, filepath.Join("data", "HG002", "igv_sessions"), RelSessions("HG002"))
	assert.Equal(t, filepath.Join("data", "HG002", "images"), RelImages("HG002"))

	assert.Equal(t,
		filepath.Join("data", "HG002-trio", "bams", "HG003_smn1.bam"),
		SplitBAM("HG002-trio", "HG003", "smn1"))
	assert.Equal(t,
		filepath.Join("data", "HG002", "images", "HG002_smn1.png"),
		Image("HG002", "HG002", "smn1"))
	assert.Equal(t,
		filepath.Join("data", "HG002", "igv_sessions", "smn1_igv.xml"),
		Session("HG002", "smn1"))
	assert.Equal(t,
		filepath.Join("data", "HG002", "bams", ".smn1_igv.xml"),
		TransientSession("HG002", "smn1"))
}

func TestPrepare(t *testing.T) {
	t.Run("fresh directory passes", func(t *testing.T) {
		assert.NoError(t, Prepare(t.TempDir(), false))
	})

	t.Run("refuses filesystem root", func(t *testing.T) {
		err := Prepare("/", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "root or home")
	})

	t.Run("refuses home directory", func(t *testing.T) {
		home, err := os.UserHomeDir()
		require.NoError(t, err)
		require.Error(t, Prepare(home, false))
	})

	t.Run("existing data directory needs clobber", func(t *testing.T) {
		outdir := t.TempDir()
		require.NoError(t, os.MkdirAll(DataDir(outdir), 0o755))

		err := Prepare(outdir, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--clobber")

		assert.NoError(t, Prepare(outdir, true))
	})
}

func TestMakeSubjectDirs(t *testing.T) {
	outdir := t.TempDir()
	require.NoError(t, MakeSubjectDirs(outdir, "HG002"))

	for _, rel := range []string{RelBams("HG002"), RelSessions("HG002"), RelImages("HG002")} {
		info, err := os.Stat(filepath.Join(outdir, rel))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// creating them twice is fine
	assert.NoError(t, MakeSubjectDirs(outdir, "HG002"))
}

func TestCopy(t *testing.T) {
	outdir := t.TempDir()
	require.NoError(t, MakeSubjectDirs(outdir, "HG002"))
	require.NoError(t, MakeSubjectDirs(outdir, "HG002-trio"))

	src := SplitBAM("HG002", "HG002", "smn1")
	require.NoError(t, os.WriteFile(filepath.Join(outdir, src), []byte("payload"), 0o644))

	dst := SplitBAM("HG002-trio", "HG002", "smn1")
	require.NoError(t, Copy(outdir, src, dst))

	got, err := os.ReadFile(filepath.Join(outdir, dst))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	t.Run("missing source errors", func(t *testing.T) {
		err := Copy(outdir, SplitBAM("HG002", "HG002", "absent"), dst)
		assert.Error(t, err)
	})
}
