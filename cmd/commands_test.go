package cmd

import "testing"

func TestParseHexAddr(t *testing.T) {
	cases := []struct {
		in   string
		want uint16
	}{
		{"0x8000", 0x8000},
		{"&8000", 0x8000},
		{"8000h", 0x8000},
		{"0", 0},
		{"", 0},
		{"170", 0x170},
	}
	for _, c := range cases {
		got, err := parseHexAddr(c.in)
		if err != nil {
			t.Errorf("parseHexAddr(%q) returned error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("parseHexAddr(%q) = %#x, want %#x", c.in, got, c.want)
		}
	}
}

func TestNewLoggerDebugLevel(t *testing.T) {
	log := NewLogger(true)
	if log.GetLevel().String() != "debug" {
		t.Errorf("NewLogger(true) level = %v, want debug", log.GetLevel())
	}
	log = NewLogger(false)
	if log.GetLevel().String() != "info" {
		t.Errorf("NewLogger(false) level = %v, want info", log.GetLevel())
	}
}
