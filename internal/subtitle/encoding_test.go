package subtitle

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"subforge/internal/services"
)

func TestToUTF8PassesThroughValidInput(t *testing.T) {
	input := []byte("1\n00:00:01,000 --> 00:00:02,000\nHello world\n")
	got, name, err := ToUTF8(input)
	if err != nil {
		t.Fatalf("ToUTF8: %v", err)
	}
	if name != "utf-8" {
		t.Fatalf("encoding = %q, want utf-8", name)
	}
	if !bytes.Equal(got, input) {
		t.Fatal("valid UTF-8 input must pass through byte-identical")
	}
}

func TestToUTF8StripsByteOrderMarker(t *testing.T) {
	body := []byte("Hello")
	input := append([]byte{0xEF, 0xBB, 0xBF}, body...)
	got, name, err := ToUTF8(input)
	if err != nil {
		t.Fatalf("ToUTF8: %v", err)
	}
	if name != "utf-8-bom" {
		t.Fatalf("encoding = %q, want utf-8-bom", name)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("got %q, want %q", got, body)
	}
}

func TestToUTF8DecodesUTF16(t *testing.T) {
	text := "සිංහල උපසිරැසි"
	encoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	input, err := encoder.Bytes([]byte(text))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	got, name, err := ToUTF8(input)
	if err != nil {
		t.Fatalf("ToUTF8: %v", err)
	}
	if string(got) != text {
		t.Fatalf("got %q, want %q", got, text)
	}
	if name != "utf-16" {
		t.Fatalf("encoding = %q, want utf-16", name)
	}
}

func TestToUTF8DecodesWindows1252(t *testing.T) {
	text := "café déjà vu"
	encoder := charmap.Windows1252.NewEncoder()
	input, err := encoder.Bytes([]byte(text))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	got, _, err := ToUTF8(input)
	if err != nil {
		t.Fatalf("ToUTF8: %v", err)
	}
	if string(got) != text {
		t.Fatalf("got %q, want %q", got, text)
	}
}

func TestToUTF8FailsWhenNoEncodingFits(t *testing.T) {
	input := []byte{0x00, 0x01, 0x02, 0x00, 0x03}
	_, _, err := ToUTF8(input)
	if err == nil {
		t.Fatal("expected error for undecodable input")
	}
	if !errors.Is(err, services.ErrSubtitle) {
		t.Fatalf("error = %v, want ErrSubtitle", err)
	}
}
