// Package ingest finds household documents on disk, either by walking a tree
// once or by watching it for new files.
package ingest

// FileResult is the per-file scan outcome. DuplicateOf names the first file in
// the same scan with identical content.
type FileResult struct {
	Path         string `json:"path"`
	Ext          string `json:"ext"`
	Size         int64  `json:"size"`
	HashHex      string `json:"sha256,omitempty"`
	Deduplicated bool   `json:"deduplicated"`
	DuplicateOf  string `json:"duplicateOf,omitempty"`
	Err          string `json:"error,omitempty"`
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Failed       uint32 `json:"failed"`
}

// Unique returns the paths of matched files that hashed cleanly and were not
// duplicates, in scan order.
func Unique(results []FileResult) []string {
	var out []string
	for _, r := range results {
		if r.Err == "" && !r.Deduplicated {
			out = append(out, r.Path)
		}
	}
	return out
}
