package subtitle

import (
	"errors"
	"strings"
	"testing"

	"subforge/internal/config"
	"subforge/internal/services"
)

const sampleASS = `[Script Info]
ScriptType: v4.00+

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,Arial,16,&Hffffff,&Hffffff,&H0,&H0,0,0,0,0,100,100,0,0,1,1,0,2,10,10,10,1
Style: Sign,Verdana,24,&H00FF00,&Hffffff,&H0,&H0,0,0,0,0,100,100,0,0,1,1,0,8,10,10,10,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Hello
`

func testStyle() config.SubtitleStyle {
	return config.SubtitleStyle{
		FontSize:     20,
		PrimaryColor: "&H00FFFFFF",
		OutlineColor: "&H00000000",
		Bold:         true,
		Alignment:    2,
		MarginLeft:   15,
		MarginRight:  15,
		MarginVert:   25,
	}
}

func TestInjectDefaultStyleRewritesOnlyDefault(t *testing.T) {
	out, err := InjectDefaultStyle(sampleASS, "Bindumathi", testStyle())
	if err != nil {
		t.Fatalf("InjectDefaultStyle: %v", err)
	}

	var defaultRow, signRow string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Style: Default") {
			defaultRow = line
		}
		if strings.HasPrefix(line, "Style: Sign") {
			signRow = line
		}
	}
	want := "Style: Default,Bindumathi,20,&H00FFFFFF,&Hffffff,&H00000000,&H0,-1,0,0,0,100,100,0,0,1,1,0,2,15,15,25,1"
	if defaultRow != want {
		t.Fatalf("default row =\n%s\nwant\n%s", defaultRow, want)
	}
	if signRow != "Style: Sign,Verdana,24,&H00FF00,&Hffffff,&H0,&H0,0,0,0,0,100,100,0,0,1,1,0,8,10,10,10,1" {
		t.Fatalf("non-default row changed: %s", signRow)
	}
	if !strings.Contains(out, "Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Hello") {
		t.Fatal("events section changed")
	}
}

func TestInjectDefaultStyleHonorsDeclaredColumnOrder(t *testing.T) {
	reordered := `[V4+ Styles]
Format: Fontname, Name, Fontsize, PrimaryColour, OutlineColour, Bold, Alignment, MarginL, MarginR, MarginV
Style: Arial,Default,16,&Hffffff,&H0,0,2,10,10,10
`
	out, err := InjectDefaultStyle(reordered, "Bindumathi", testStyle())
	if err != nil {
		t.Fatalf("InjectDefaultStyle: %v", err)
	}
	if !strings.Contains(out, "Style: Bindumathi,Default,20,&H00FFFFFF,&H00000000,-1,2,15,15,25") {
		t.Fatalf("reordered columns not honored:\n%s", out)
	}
}

func TestInjectDefaultStylePreservesColumnSpacing(t *testing.T) {
	doc := `[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, Bold, Alignment, MarginL, MarginR, MarginV
Style: Default, Arial, 16, &Hffffff, &H0, 0, 2, 10, 10, 10
`
	out, err := InjectDefaultStyle(doc, "Bindumathi", testStyle())
	if err != nil {
		t.Fatalf("InjectDefaultStyle: %v", err)
	}
	want := "Style: Default, Bindumathi, 20, &H00FFFFFF, &H00000000, -1, 2, 15, 15, 25"
	if !strings.Contains(out, want) {
		t.Fatalf("spaced columns not preserved:\n%s\nwant row\n%s", out, want)
	}
}

func TestInjectDefaultStyleCaseInsensitiveName(t *testing.T) {
	doc := `[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, Bold, Alignment, MarginL, MarginR, MarginV
Style: default,Arial,16,&Hffffff,&H0,0,2,10,10,10
`
	out, err := InjectDefaultStyle(doc, "Bindumathi", testStyle())
	if err != nil {
		t.Fatalf("InjectDefaultStyle: %v", err)
	}
	if !strings.Contains(out, "Bindumathi") {
		t.Fatal("lowercase default row not rewritten")
	}
}

func TestInjectDefaultStyleMissingSection(t *testing.T) {
	doc := "[Script Info]\nScriptType: v4.00+\n"
	_, err := InjectDefaultStyle(doc, "Arial", testStyle())
	if err == nil {
		t.Fatal("expected error for missing style section")
	}
	if !errors.Is(err, services.ErrSubtitle) {
		t.Fatalf("error = %v, want ErrSubtitle", err)
	}
}

func TestInjectDefaultStyleMissingRequiredField(t *testing.T) {
	doc := `[V4+ Styles]
Format: Name, Fontsize
Style: Default,16
`
	_, err := InjectDefaultStyle(doc, "Arial", testStyle())
	if err == nil {
		t.Fatal("expected error for incomplete format line")
	}
	if !strings.Contains(err.Error(), "fontname") {
		t.Fatalf("error = %v, want mention of missing field", err)
	}
}

func TestInjectDefaultStyleMissingDefaultRow(t *testing.T) {
	doc := `[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, Bold, Alignment, MarginL, MarginR, MarginV
Style: Sign,Arial,16,&Hffffff,&H0,0,2,10,10,10
`
	_, err := InjectDefaultStyle(doc, "Arial", testStyle())
	if err == nil {
		t.Fatal("expected error for missing Default row")
	}
}
