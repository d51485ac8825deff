package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a-statement.csv"), "Date,Amount\n")
	write(t, filepath.Join(root, "b-copy.CSV"), "Date,Amount\n")
	write(t, filepath.Join(root, "quotes", "boiler.txt"), "Boiler service £90")
	write(t, filepath.Join(root, "notes.md"), "# ignore me")
	write(t, filepath.Join(root, ".cache", "old.csv"), "x")
	write(t, filepath.Join(root, ".hidden.pdf"), "x")

	results, stats, err := Scan(context.Background(), root, nil, true)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, filepath.Join(root, "a-statement.csv"), results[0].Path)
	assert.False(t, results[0].Deduplicated)
	assert.Len(t, results[0].HashHex, 64)
	assert.Equal(t, int64(12), results[0].Size)

	assert.True(t, results[1].Deduplicated)
	assert.Equal(t, results[0].Path, results[1].DuplicateOf)
	assert.Equal(t, "csv", results[1].Ext)

	assert.Equal(t, filepath.Join(root, "quotes", "boiler.txt"), results[2].Path)

	assert.Equal(t, DirStats{Scanned: 4, Matched: 3, Succeeded: 3, Deduplicated: 1}, stats)
	assert.Equal(t, []string{results[0].Path, results[2].Path}, Unique(results))
}

func TestScanHiddenAndFilters(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, ".cache", "old.csv"), "x")
	write(t, filepath.Join(root, "scan.pdf"), "y")
	write(t, filepath.Join(root, "sheet.xlsx"), "z")

	results, stats, err := Scan(context.Background(), root, []string{".PDF"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "pdf", results[0].Ext)
	assert.Equal(t, uint32(3), stats.Scanned, "hidden files are visited when not skipped")

	results, _, err = Scan(context.Background(), root, nil, false)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestScanErrors(t *testing.T) {
	_, _, err := Scan(context.Background(), "  ", nil, true)
	assert.Error(t, err)

	_, _, err = Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), nil, true)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f.csv")
	write(t, file, "x")
	_, _, err = Scan(context.Background(), file, nil, true)
	assert.Error(t, err)

	root := t.TempDir()
	write(t, filepath.Join(root, "a.csv"), "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Scan(ctx, root, nil, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHelpers(t *testing.T) {
	set := ExtSet([]string{".PDF", " csv ", ""})
	assert.Len(t, set, 2)
	assert.True(t, AllowedExt("/x/Statement.pdf", set))
	assert.False(t, AllowedExt("/x/photo.png", set))
	assert.True(t, AllowedExt("/x/photo.png", ExtSet(nil)))

	assert.True(t, IsHidden("/a/.git"))
	assert.False(t, IsHidden("."))
	assert.False(t, IsHidden("/a/b.csv"))
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "channel closed")
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return ""
	}
}

func TestWatch(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.csv")
	write(t, existing, "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, errs, err := Watch(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    50 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, existing, receive(t, events))

	write(t, filepath.Join(root, "ignored.exe"), "x")
	write(t, filepath.Join(root, ".partial.csv"), "x")
	fresh := filepath.Join(root, "fresh.csv")
	write(t, fresh, "a")
	require.NoError(t, os.WriteFile(fresh, []byte("ab"), 0o644))
	assert.Equal(t, fresh, receive(t, events))

	nested := filepath.Join(root, "2025", "march", "quote.txt")
	write(t, nested, "quote")
	assert.Equal(t, nested, receive(t, events))

	select {
	case p := <-events:
		t.Fatalf("unexpected extra event %s", p)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, 2*time.Second, 10*time.Millisecond)
	_, open := <-errs
	assert.False(t, open)
}

func TestWatchRequiresRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{})
	assert.Error(t, err)

	_, _, err = Watch(context.Background(), WatchConfig{Roots: []string{filepath.Join(t.TempDir(), "nope")}})
	assert.Error(t, err)
}
