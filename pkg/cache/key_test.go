package cache

import (
	"strings"
	"testing"
)

func TestPageKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  PageKey
		want string
	}{
		{
			name: "first page",
			key:  PageKey{ProductID: 252490, Language: "russian", PageSize: 20, Cursor: "*"},
			want: "review:page:252490:lang=russian:n=20:cursor=%2A",
		},
		{
			name: "opaque cursor is escaped",
			key:  PageKey{ProductID: 730, Language: "russian", PageSize: 20, Cursor: "AoJ4+/x=="},
			want: "review:page:730:lang=russian:n=20:cursor=AoJ4%2B%2Fx%3D%3D",
		},
		{
			name: "no language or page size",
			key:  PageKey{ProductID: 570, Cursor: "abc"},
			want: "review:page:570:cursor=abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("PageKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestPageKey_Distinct ensures different cursors never collide
func TestPageKey_Distinct(t *testing.T) {
	a := PageKey{ProductID: 1, Language: "russian", PageSize: 20, Cursor: "a:b"}
	b := PageKey{ProductID: 1, Language: "russian", PageSize: 20, Cursor: "a"}

	if a.String() == b.String() {
		t.Errorf("keys collide: %s", a.String())
	}
	if strings.Count(a.String(), ":") != strings.Count(b.String(), ":") {
		t.Errorf("escaped cursor must not add separators: %s vs %s", a.String(), b.String())
	}
}
