package catalog

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"known title", "Rust", 252490, false},
		{"case insensitive title", "elden ring", 1245620, false},
		{"numeric appid", "730", 730, false},
		{"numeric with spaces", "  570 ", 570, false},
		{"not a number", "abc", 0, true},
		{"float", "12.5", 0, true},
		{"zero", "0", 0, true},
		{"negative", "-10", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnresolvable) {
				t.Errorf("Resolve(%q) error = %v, want ErrUnresolvable", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestTitles(t *testing.T) {
	titles := Titles()
	if len(titles) != 8 {
		t.Fatalf("len(Titles()) = %d, want 8", len(titles))
	}
	for i := 1; i < len(titles); i++ {
		if titles[i-1] > titles[i] {
			t.Errorf("Titles() not sorted: %v", titles)
		}
	}
	for _, title := range titles {
		if _, ok := Lookup(title); !ok {
			t.Errorf("Lookup(%q) failed for listed title", title)
		}
	}
}
