package memdb

import "testing"

func TestVerCmp(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.0.1", -1},
		{"1.0.1", "1.0", 1},
		{"1.0a", "1.0", -1},
		{"1.0.a", "1.0", 1},
		{"1.0alpha", "1.0beta", -1},
		{"1.0-1", "1.0-2", -1},
		{"1.0-1", "1.0", 0},
		{"1:1.0", "2.0", 1},
		{"0:2.0", "2.0", 0},
		{"1.002", "1.2", 0},
		{"1.10", "1.9", 1},
		{"5.1.8.arch1-1", "5.1.8.arch1-1", 0},
		{"5.1.8.arch1-1", "5.1.9.arch1-1", -1},
		{"5.1.8.arch1-1", "5.1.8.arch2-1", -1},
		{"20190607.7ae3a09-1", "20190607.7ae3a09-2", -1},
		{"1.0..1", "1.0.1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			if got := VerCmp(tt.a, tt.b); got != tt.want {
				t.Errorf("VerCmp(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := VerCmp(tt.b, tt.a); got != -tt.want {
				t.Errorf("VerCmp(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestParseEVR(t *testing.T) {
	tests := []struct {
		evr                       string
		epoch, version, release string
	}{
		{"1.0", "0", "1.0", ""},
		{"1.0-2", "0", "1.0", "2"},
		{"3:1.0-2", "3", "1.0", "2"},
		{":1.0", "0", "1.0", ""},
		{"1.0-rc-2", "0", "1.0-rc", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.evr, func(t *testing.T) {
			e, v, r := parseEVR(tt.evr)
			if e != tt.epoch || v != tt.version || r != tt.release {
				t.Errorf("parseEVR(%q) = %q, %q, %q; want %q, %q, %q", tt.evr, e, v, r, tt.epoch, tt.version, tt.release)
			}
		})
	}
}
