package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/household-extractor/constants"
)

// ExtSet builds a lookup from user-supplied extensions such as ".PDF" or "csv".
// An empty list means constants.AllowedExtensions.
func ExtSet(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		return constants.AllowedExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		if e = constants.NormalizeExt(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// AllowedExt checks the extension of path against set.
func AllowedExt(path string, set map[string]struct{}) bool {
	_, ok := set[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
