package source

import "testing"

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		expected string
	}{
		{"plain utf8", []byte("let x = 1;"), "let x = 1;"},
		{"utf8 bom", []byte{0xEF, 0xBB, 0xBF, 'o', 'k'}, "ok"},
		{"utf16 le", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "hi"},
		{"utf16 be", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, "hi"},
		{"utf16 le astral", []byte{0xFF, 0xFE, 0x3D, 0xD8, 0x00, 0xDE}, "\U0001F600"},
		{"empty", nil, ""},
	}

	for i, tt := range tests {
		got, err := Decode(tt.raw)
		if err != nil {
			t.Fatalf("tests[%d] (%s) - unexpected error: %v", i, tt.name, err)
		}
		if got != tt.expected {
			t.Errorf("tests[%d] (%s) - expected=%q, got=%q", i, tt.name, tt.expected, got)
		}
	}
}

func TestDecodeString(t *testing.T) {
	if got := DecodeString("\xEF\xBB\xBFx"); got != "x" {
		t.Errorf("BOM not stripped: %q", got)
	}
	if got := DecodeString("x"); got != "x" {
		t.Errorf("plain string mangled: %q", got)
	}
}
