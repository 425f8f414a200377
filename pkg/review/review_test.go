package review

import (
	"reflect"
	"testing"
)

func TestAccept(t *testing.T) {
	tests := []struct {
		name   string
		record RawRecord
		min    int
		want   bool
	}{
		{"above threshold", RawRecord{Text: "good text", AuthorPlaytimeSeconds: 5000}, 3600, true},
		{"below threshold", RawRecord{Text: "short", AuthorPlaytimeSeconds: 100}, 3600, false},
		{"exactly at threshold", RawRecord{Text: "edge", AuthorPlaytimeSeconds: 3600}, 3600, true},
		{"blank text", RawRecord{Text: "   \n\t", AuthorPlaytimeSeconds: 9000}, 0, false},
		{"empty text", RawRecord{Text: "", AuthorPlaytimeSeconds: 9000}, 0, false},
		{"zero threshold", RawRecord{Text: "x", AuthorPlaytimeSeconds: 0}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accept(tt.record, tt.min); got != tt.want {
				t.Errorf("Accept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterTexts_OrderAndTrim(t *testing.T) {
	records := []RawRecord{
		{Text: "  first  ", AuthorPlaytimeSeconds: 10},
		{Text: "dropped", AuthorPlaytimeSeconds: 1},
		{Text: "second", AuthorPlaytimeSeconds: 10},
		{Text: " ", AuthorPlaytimeSeconds: 10},
	}

	got := FilterTexts(records, 5)
	want := []string{"first", "second"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterTexts() = %v, want %v", got, want)
	}
}

func TestDecodePage(t *testing.T) {
	body := []byte(`{"success":1,"cursor":"AoJ4","reviews":[
		{"review":"good text","author":{"playtime_forever":5000}},
		{"review":"short","author":{"playtime_forever":100}}]}`)

	page, err := DecodePage(body)
	if err != nil {
		t.Fatalf("DecodePage() error = %v", err)
	}
	if page.Success != 1 {
		t.Errorf("Success = %d, want 1", page.Success)
	}
	if page.Cursor != "AoJ4" {
		t.Errorf("Cursor = %q, want %q", page.Cursor, "AoJ4")
	}

	records := page.Records()
	if len(records) != 2 {
		t.Fatalf("len(Records()) = %d, want 2", len(records))
	}
	if records[0].AuthorPlaytimeSeconds != 5000 || records[0].Text != "good text" {
		t.Errorf("Records()[0] = %+v", records[0])
	}
}

func TestDecodePage_Invalid(t *testing.T) {
	if _, err := DecodePage([]byte("<html>")); err == nil {
		t.Error("DecodePage() expected error for non-JSON body")
	}
}

func TestIsTerminalCursor(t *testing.T) {
	tests := map[string]bool{
		"":     true,
		"*":    true,
		"AoJ4": false,
	}
	for cursor, want := range tests {
		if got := IsTerminalCursor(cursor); got != want {
			t.Errorf("IsTerminalCursor(%q) = %v, want %v", cursor, got, want)
		}
	}
}
