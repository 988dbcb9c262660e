package postgres

import "testing"

func TestClampLimit(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 10},
		{-5, 10},
		{1, 1},
		{50, 50},
		{100, 100},
		{101, 100},
		{5000, 100},
	}
	for _, tc := range cases {
		if got := clampLimit(tc.in); got != tc.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestNullString(t *testing.T) {
	if got := nullString(""); got != nil {
		t.Fatalf("nullString(\"\") = %v, want nil", got)
	}
	if got := nullString("x"); got != "x" {
		t.Fatalf("nullString(\"x\") = %v", got)
	}
}

func TestDeref(t *testing.T) {
	if got := deref(nil); got != "" {
		t.Fatalf("deref(nil) = %q", got)
	}
	s := "value"
	if got := deref(&s); got != "value" {
		t.Fatalf("deref = %q", got)
	}
}
