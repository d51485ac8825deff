package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/household-extractor/constants"
)

// Scan walks root, keeps files whose extension is in exts (constants.AllowedExtensions
// when empty), skips dot-files and dot-directories if asked, and hashes every match.
// Files whose content already appeared earlier in the walk are marked Deduplicated.
// Per-file problems are recorded in the results; only a cancelled ctx or a bad
// root returns an error.
func Scan(ctx context.Context, root string, exts []string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, DirStats{}, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, DirStats{}, fmt.Errorf("%s is not a directory", root)
	}

	set := ExtSet(exts)
	seen := map[string]string{}
	var (
		results []FileResult
		stats   DirStats
	)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		stats.Scanned++
		if !AllowedExt(path, set) {
			return nil
		}
		stats.Matched++

		r := FileResult{Path: path, Ext: constants.NormalizeExt(filepath.Ext(path))}
		r.HashHex, r.Size, err = HashFile(path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}
		if first, ok := seen[r.HashHex]; ok {
			r.Deduplicated, r.DuplicateOf = true, first
			stats.Deduplicated++
		} else {
			seen[r.HashHex] = path
		}
		stats.Succeeded++
		results = append(results, r)
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	slog.Info("ingest.scan.done", "root", root, "scanned", stats.Scanned, "matched", stats.Matched,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return results, stats, nil
}

// HashFile returns the hex sha256 and size of the file at path.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
