package treediff

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()

	b, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)
	return string(b)
}

func TestCompare(t *testing.T) {
	t.Run("added file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "staging/a.txt", "hello")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "production"), 0755))

		set, err := Compare(osfs.New(dir), "staging", "production", Options{})
		require.NoError(t, err)

		require.Equal(t, []Change{{Path: "a.txt", Kind: Added}}, set.Changes)
	})

	t.Run("identical file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "staging/b.txt", "same")
		writeFile(t, dir, "production/b.txt", "same")

		set, err := Compare(osfs.New(dir), "staging", "production", Options{})
		require.NoError(t, err)

		require.True(t, set.Empty())
	})

	t.Run("modified file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "staging/c.txt", "v2")
		writeFile(t, dir, "production/c.txt", "v1")

		set, err := Compare(osfs.New(dir), "staging", "production", Options{})
		require.NoError(t, err)

		require.Equal(t, []Change{{Path: "c.txt", Kind: Modified}}, set.Changes)
	})

	t.Run("same size different content", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "staging/c.txt", "aaa")
		writeFile(t, dir, "production/c.txt", "bbb")

		set, err := Compare(osfs.New(dir), "staging", "production", Options{})
		require.NoError(t, err)

		require.Equal(t, []Change{{Path: "c.txt", Kind: Modified}}, set.Changes)
	})

	t.Run("excluded subtree drift is invisible", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "staging/specific/x.txt", "new")
		writeFile(t, dir, "production/specific/x.txt", "old")

		set, err := Compare(osfs.New(dir), "staging", "production", Options{Exclude: []string{"specific"}})
		require.NoError(t, err)

		require.True(t, set.Empty())
	})

	t.Run("removed file is reported", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "staging"), 0755))
		writeFile(t, dir, "production/gone.txt", "still here")

		set, err := Compare(osfs.New(dir), "staging", "production", Options{})
		require.NoError(t, err)

		require.Equal(t, []Change{{Path: "gone.txt", Kind: Removed}}, set.Changes)
	})

	t.Run("nested trees", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "staging/clusters/kafka/main.tf", "resource a")
		writeFile(t, dir, "staging/clusters/kafka/vars.tf", "variable b")
		writeFile(t, dir, "production/clusters/kafka/main.tf", "resource a")

		set, err := Compare(osfs.New(dir), "staging", "production", Options{})
		require.NoError(t, err)

		require.Equal(t, []Change{{Path: "clusters/kafka/vars.tf", Kind: Added}}, set.Changes)
	})

	t.Run("missing target is an empty tree", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "staging/a.txt", "hello")

		set, err := Compare(osfs.New(dir), "staging", "production", Options{})
		require.NoError(t, err)

		require.Equal(t, []Change{{Path: "a.txt", Kind: Added}}, set.Changes)
	})

	t.Run("missing source is an error", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "production"), 0755))

		_, err := Compare(osfs.New(dir), "staging", "production", Options{})
		require.Error(t, err)
	})

	t.Run("deterministic", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "staging/a.txt", "1")
		writeFile(t, dir, "staging/b/c.txt", "2")
		writeFile(t, dir, "staging/specific/d.txt", "3")
		writeFile(t, dir, "production/a.txt", "0")
		writeFile(t, dir, "production/e.txt", "4")

		opts := Options{Exclude: []string{"specific"}}

		first, err := Compare(osfs.New(dir), "staging", "production", opts)
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			again, err := Compare(osfs.New(dir), "staging", "production", opts)
			require.NoError(t, err)
			require.Equal(t, first, again)
		}

		require.Equal(t, []Change{
			{Path: "a.txt", Kind: Modified},
			{Path: "b/c.txt", Kind: Added},
			{Path: "e.txt", Kind: Removed},
		}, first.Changes)
	})
}

func TestSet(t *testing.T) {
	set := &Set{Changes: []Change{
		{Path: "a.txt", Kind: Modified},
		{Path: "b.txt", Kind: Added},
		{Path: "c.txt", Kind: Removed},
	}}

	require.Equal(t, 3, set.Len())
	require.False(t, set.Empty())
	require.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, set.Paths())
	require.Equal(t, []string{"a.txt", "b.txt"}, set.AddedOrModified())
	require.Equal(t, []string{"c.txt"}, set.Removed())
	require.Equal(t, "M a.txt\nA b.txt\nD c.txt\n", set.String())
}

func TestChecksum(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.txt", "hello")

	sum, err := Checksum(osfs.New(dir), "f.txt")
	require.NoError(t, err)

	// sha256("hello")
	require.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)
}
