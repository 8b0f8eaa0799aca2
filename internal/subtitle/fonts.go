package subtitle

import (
	"os"
	"path/filepath"
	"strings"
)

const fallbackFontName = "Arial"

// ResolveFontName picks the font name to inject into the Default style. A
// font file shipped in fontDir wins, then the first configured candidate,
// then a generic fallback. Only the name is chosen; whether the renderer can
// actually find it is decided at burn-in time.
func ResolveFontName(fontDir, shippedFont string, candidates []string) string {
	if fontDir != "" && shippedFont != "" {
		path := filepath.Join(fontDir, shippedFont)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			name := strings.TrimSuffix(shippedFont, filepath.Ext(shippedFont))
			if name != "" {
				return name
			}
		}
	}
	for _, candidate := range candidates {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return fallbackFontName
}
