package envutil

import (
	"testing"
	"time"
)

func TestGetters(t *testing.T) {
	t.Setenv("EU_INT", " 42 ")
	t.Setenv("EU_BAD_INT", "forty")
	t.Setenv("EU_BOOL", "yes")
	t.Setenv("EU_LIST", "http://a, ,http://b")
	t.Setenv("EU_DUR", "15m")
	t.Setenv("EU_SECS", "90")
	t.Setenv("EU_EMPTY", "   ")

	if v, ok := Int("EU_INT"); !ok || v != 42 {
		t.Fatalf("Int=%d,%v", v, ok)
	}
	if _, ok := Int("EU_BAD_INT"); ok {
		t.Fatalf("bad int accepted")
	}
	if v, ok := Bool("EU_BOOL"); !ok || !v {
		t.Fatalf("Bool=%v,%v", v, ok)
	}
	if v, ok := List("EU_LIST"); !ok || len(v) != 2 || v[1] != "http://b" {
		t.Fatalf("List=%v,%v", v, ok)
	}
	if v, ok := Duration("EU_DUR"); !ok || v != 15*time.Minute {
		t.Fatalf("Duration=%v,%v", v, ok)
	}
	if v, ok := Duration("EU_SECS"); !ok || v != 90*time.Second {
		t.Fatalf("Duration=%v,%v", v, ok)
	}
	if _, ok := String("EU_EMPTY"); ok {
		t.Fatalf("blank treated as set")
	}
}
