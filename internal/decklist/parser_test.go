package decklist

import (
	"testing"
)

func TestParseFullLine(t *testing.T) {
	lines := Parse("3 Lightning Bolt (2XM) 123")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	line := lines[0]
	if line.ParseError != "" {
		t.Fatalf("unexpected parse error: %s", line.ParseError)
	}
	if line.Qty != 3 {
		t.Errorf("expected qty 3, got %d", line.Qty)
	}
	if line.Name != "Lightning Bolt" {
		t.Errorf("expected name 'Lightning Bolt', got %q", line.Name)
	}
	if line.Set != "2XM" {
		t.Errorf("expected set '2XM', got %q", line.Set)
	}
	if line.Collector != "123" {
		t.Errorf("expected collector '123', got %q", line.Collector)
	}
}

func TestParseNameOnlyFallback(t *testing.T) {
	lines := Parse("4x Counterspell")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	line := lines[0]
	if line.ParseError != "" {
		t.Fatalf("unexpected parse error: %s", line.ParseError)
	}
	if line.Qty != 4 {
		t.Errorf("expected qty 4, got %d", line.Qty)
	}
	if line.Name != "Counterspell" {
		t.Errorf("expected name 'Counterspell', got %q", line.Name)
	}
	if line.Set != "" || line.Collector != "" {
		t.Errorf("expected no set/collector, got %q/%q", line.Set, line.Collector)
	}
}

func TestParseFoilMarker(t *testing.T) {
	lines := Parse("2 Sol Ring (c21) 263 *F*")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if !lines[0].Foil {
		t.Error("expected foil flag to be set")
	}
	if lines[0].Collector != "263" {
		t.Errorf("expected collector '263', got %q", lines[0].Collector)
	}
}

func TestParseStripsAnnotations(t *testing.T) {
	lines := Parse("1 Brainstorm (mh2) 393 [Maybeboard] ^Proxy MPC,#0d97fa^")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0]
	if line.ParseError != "" {
		t.Fatalf("unexpected parse error: %s", line.ParseError)
	}
	if line.Name != "Brainstorm" {
		t.Errorf("expected name 'Brainstorm', got %q", line.Name)
	}
	if line.Set != "mh2" || line.Collector != "393" {
		t.Errorf("expected mh2/393, got %q/%q", line.Set, line.Collector)
	}
}

func TestParseSkipsBlankAndKeepsUnparseable(t *testing.T) {
	input := "1 Opt (dom) 60\n\n   \nnot a decklist line\n"
	lines := Parse(input)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	if lines[0].ParseError != "" {
		t.Errorf("unexpected parse error on first line: %s", lines[0].ParseError)
	}
	if lines[1].ParseError == "" {
		t.Error("expected a parse error on the garbage line")
	}
	if lines[1].Qty != 0 {
		t.Errorf("expected qty 0 on unparseable line, got %d", lines[1].Qty)
	}
	if lines[1].Original != "not a decklist line" {
		t.Errorf("expected original text preserved, got %q", lines[1].Original)
	}
}

func TestParseRejectsZeroQuantity(t *testing.T) {
	lines := Parse("0 Island")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].ParseError == "" {
		t.Error("expected a parse error for zero quantity")
	}
}

func TestParseWindowsLineEndings(t *testing.T) {
	lines := Parse("2 Shock (m21) 159\r\n3 Opt (dom) 60\r\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for i, line := range lines {
		if line.ParseError != "" {
			t.Errorf("line %d: unexpected parse error: %s", i, line.ParseError)
		}
	}
}
