package utils

import "testing"

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"15MB", 15 << 20, false},
		{"15 mb", 15 << 20, false},
		{"512KB", 512 << 10, false},
		{"1.5GB", 3 << 29, false},
		{"100", 100, false},
		{"", 0, true},
		{"abc", 0, true},
		{"5XB", 0, true},
		{"0MB", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSizeToBytesFallsBack(t *testing.T) {
	if got := SizeToBytes("nonsense", 42); got != 42 {
		t.Errorf("SizeToBytes fallback = %d, want 42", got)
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID("17"); err != nil || id != 17 {
		t.Errorf("ParseID(17) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-3", "abc", "1.5"} {
		if _, err := ParseID(bad); err == nil {
			t.Errorf("ParseID(%q) expected error", bad)
		}
	}
}

func TestParseCoordinate(t *testing.T) {
	if f, err := ParseCoordinate(" 48.8566 "); err != nil || f != 48.8566 {
		t.Errorf("ParseCoordinate = %v, %v", f, err)
	}
	// Out-of-range values are accepted.
	if f, err := ParseCoordinate("512.5"); err != nil || f != 512.5 {
		t.Errorf("ParseCoordinate(512.5) = %v, %v", f, err)
	}
	for _, in := range []string{"north", "NaN", "Inf", "-Inf", "+inf", "infinity"} {
		if _, err := ParseCoordinate(in); err == nil {
			t.Errorf("ParseCoordinate(%q): expected error", in)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	if got := FormatBytes(512); got != "512 B" {
		t.Errorf("FormatBytes(512) = %q", got)
	}
	if got := FormatBytes(15 << 20); got != "15.00 MB" {
		t.Errorf("FormatBytes(15MB) = %q", got)
	}
}
