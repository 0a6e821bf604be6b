package classifier

import (
	"strings"

	"filer/internal/textutil"
)

// SanitizePath converts a suggested directory into a clean relative path that
// cannot escape the destination root. An empty result means the suggestion
// was unusable.
func SanitizePath(raw string) string {
	p := strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/")
	if len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0]) {
		p = p[2:]
	}
	segments := strings.Split(p, "/")
	clean := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment = textutil.SanitizePathSegment(segment); segment != "" {
			clean = append(clean, segment)
		}
	}
	return strings.Join(clean, "/")
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
