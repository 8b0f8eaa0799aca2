package ffmpeg

import "strings"

var filterEscaper = strings.NewReplacer(
	`:`, `\:`,
	`'`, `\'`,
)

// FilterPath escapes a filesystem path for use inside a single-quoted ffmpeg
// filter argument such as subtitles=. Windows-style separators are normalized
// to forward slashes first so drive-letter colons survive the filter parser.
func FilterPath(path string) string {
	normalized := strings.ReplaceAll(path, `\`, `/`)
	return filterEscaper.Replace(normalized)
}
