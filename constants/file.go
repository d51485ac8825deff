package constants

import "strings"

const (
	CSV   = "CSV"
	XLSX  = "XLSX"
	PDF   = "PDF"
	IMAGE = "IMAGE"
	TXT   = "TXT"
	HTML  = "HTML"
)

// FileTypes holds the formats the adapters understand.
var FileTypes = []string{CSV, XLSX, PDF, IMAGE, TXT, HTML}

// AllowedExtensions holds the default extensions picked up by batch scans.
var AllowedExtensions = map[string]struct{}{
	"csv":  {},
	"xlsx": {},
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"txt":  {},
	"eml":  {},
	"html": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat maps an extension (with or without dot) onto one of FileTypes, or "".
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "csv":
		return CSV
	case "xlsx", "xlsm":
		return XLSX
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "tif", "tiff", "bmp", "webp", "heic", "heif":
		return IMAGE
	case "txt", "eml", "text":
		return TXT
	case "html", "htm":
		return HTML
	default:
		return ""
	}
}

// IsHEICExt reports whether ext is an Apple HEIC/HEIF photo, which tesseract cannot read directly.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}
