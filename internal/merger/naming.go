package merger

import (
	"regexp"
	"strings"

	"go-shipdocs/internal/config"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeName returns a filesystem-safe rendition of a client name or
// reference, capped at 100 characters.
func sanitizeName(name string) string {
	safe := unsafeChars.ReplaceAllString(name, "_")
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}

// outputFilename builds the merged bundle's filename from the naming format.
// The manifest name is used when available, otherwise the raw reference
// stands in for it; references render with "-" separators on disk.
func outputFilename(format, ref, name string) string {
	fileRef := strings.ReplaceAll(ref, "/", "-")
	if name == "" {
		return sanitizeName(fileRef) + ".pdf"
	}
	if format == config.NamingRefName {
		return sanitizeName(fileRef+"_"+name) + ".pdf"
	}
	return sanitizeName(name+"_"+fileRef) + ".pdf"
}
