package subtitle

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"subforge/internal/services"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type encodingCandidate struct {
	name    string
	decoder func() *encoding.Decoder
}

// 8-bit code pages decode any byte sequence, so they sit last and their
// output is sanity-checked for control characters before acceptance.
var fallbackEncodings = []encodingCandidate{
	{"utf-16", unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder},
	{"utf-16le", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder},
	{"utf-16be", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder},
	{"windows-1252", charmap.Windows1252.NewDecoder},
	{"iso-8859-1", charmap.ISO8859_1.NewDecoder},
}

// ToUTF8 normalizes subtitle bytes to UTF-8 without a byte-order marker.
// Valid BOM-less UTF-8 input is returned unchanged. The detected source
// encoding name is returned for diagnostics.
func ToUTF8(data []byte) ([]byte, string, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		stripped := data[len(utf8BOM):]
		if utf8.Valid(stripped) && plausibleText(stripped) {
			return stripped, "utf-8-bom", nil
		}
	} else if utf8.Valid(data) && plausibleText(data) {
		return data, "utf-8", nil
	}

	for _, candidate := range fallbackEncodings {
		decoded, err := candidate.decoder().Bytes(data)
		if err != nil {
			continue
		}
		if !utf8.Valid(decoded) || !plausibleText(decoded) {
			continue
		}
		return decoded, candidate.name, nil
	}

	return nil, "", services.Wrap(services.ErrSubtitle, "", "normalize encoding",
		"no candidate encoding decodes the subtitle", nil)
}

// plausibleText rejects decodes that technically succeed but produce NUL or
// other control bytes, which happens when an 8-bit code page is applied to
// UTF-16 data.
func plausibleText(data []byte) bool {
	for _, b := range data {
		if b == 0 {
			return false
		}
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' {
			return false
		}
	}
	return true
}
