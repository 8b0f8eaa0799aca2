package subtitle

import (
	"fmt"
	"strconv"
	"strings"

	"subforge/internal/config"
	"subforge/internal/services"
)

const stylesSection = "[v4+ styles]"

// styleSchema maps the declared field names of an ASS style section to their
// column positions, honoring whatever order the Format line declares.
type styleSchema struct {
	index map[string]int
	count int
}

func parseStyleSchema(formatLine string) (styleSchema, error) {
	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(formatLine), "Format:"))
	fields := strings.Split(body, ",")
	schema := styleSchema{index: make(map[string]int, len(fields)), count: len(fields)}
	for i, field := range fields {
		schema.index[strings.ToLower(strings.TrimSpace(field))] = i
	}
	for _, required := range []string{
		"name", "fontname", "fontsize", "primarycolour", "outlinecolour",
		"bold", "alignment", "marginl", "marginr", "marginv",
	} {
		if _, ok := schema.index[required]; !ok {
			return styleSchema{}, fmt.Errorf("style format line missing field %q", required)
		}
	}
	return schema, nil
}

// set replaces a column's value while keeping whatever whitespace padded
// the old value, so untouched formatting survives the rewrite.
func (s styleSchema) set(columns []string, field, value string) {
	i, ok := s.index[field]
	if !ok || i >= len(columns) {
		return
	}
	old := columns[i]
	if strings.TrimSpace(old) == "" {
		columns[i] = old + value
		return
	}
	lead := old[:len(old)-len(strings.TrimLeft(old, " \t"))]
	trail := old[len(strings.TrimRight(old, " \t")):]
	columns[i] = lead + value + trail
}

// InjectDefaultStyle rewrites the Default style row of an ASS document with
// the configured font and appearance. All other rows, and every field the
// configuration does not cover, pass through untouched. The style section and
// its Format line must be present.
func InjectDefaultStyle(content string, fontName string, style config.SubtitleStyle) (string, error) {
	lines := strings.Split(content, "\n")

	var schema styleSchema
	inStyles := false
	sawFormat := false
	rewrote := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "["):
			inStyles = strings.EqualFold(trimmed, stylesSection)
		case inStyles && strings.HasPrefix(trimmed, "Format:"):
			parsed, err := parseStyleSchema(trimmed)
			if err != nil {
				return "", services.Wrap(services.ErrSubtitle, "", "inject style", err.Error(), nil)
			}
			schema = parsed
			sawFormat = true
		case inStyles && sawFormat && strings.HasPrefix(trimmed, "Style:"):
			// Split the original line so columns the configuration does
			// not cover stay byte-identical.
			marker := strings.Index(line, "Style:")
			prefix := line[:marker+len("Style:")]
			columns := strings.SplitN(line[marker+len("Style:"):], ",", schema.count)
			nameIdx := schema.index["name"]
			if nameIdx >= len(columns) || !strings.EqualFold(strings.TrimSpace(columns[nameIdx]), "Default") {
				continue
			}
			schema.set(columns, "fontname", fontName)
			schema.set(columns, "fontsize", strconv.Itoa(style.FontSize))
			schema.set(columns, "primarycolour", style.PrimaryColor)
			schema.set(columns, "outlinecolour", style.OutlineColor)
			schema.set(columns, "bold", assBool(style.Bold))
			schema.set(columns, "alignment", strconv.Itoa(style.Alignment))
			schema.set(columns, "marginl", strconv.Itoa(style.MarginLeft))
			schema.set(columns, "marginr", strconv.Itoa(style.MarginRight))
			schema.set(columns, "marginv", strconv.Itoa(style.MarginVert))
			lines[i] = prefix + strings.Join(columns, ",")
			rewrote = true
		}
	}

	if !sawFormat {
		return "", services.Wrap(services.ErrSubtitle, "", "inject style",
			"subtitle has no [V4+ Styles] format declaration", nil)
	}
	if !rewrote {
		return "", services.Wrap(services.ErrSubtitle, "", "inject style",
			"subtitle has no Default style entry", nil)
	}
	return strings.Join(lines, "\n"), nil
}

// assBool renders a boolean in the -1/0 convention ASS style fields use.
func assBool(v bool) string {
	if v {
		return "-1"
	}
	return "0"
}
