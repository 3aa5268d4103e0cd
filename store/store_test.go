package store

import (
	"context"
	"testing"
)

func TestStaticCatalog(t *testing.T) {
	c := NewStaticCatalog("admin", "", "billing")
	for module, want := range map[string]bool{"admin": true, "billing": true, "articles": false, "": false} {
		got, err := c.IsAdminOnly(context.Background(), module)
		if err != nil {
			t.Fatalf("IsAdminOnly(%q): %v", module, err)
		}
		if got != want {
			t.Fatalf("IsAdminOnly(%q) = %v, want %v", module, got, want)
		}
	}
}

func TestPrincipalHasRefreshSlot(t *testing.T) {
	if (Principal{}).HasRefreshSlot() {
		t.Fatal("zero principal has no slot")
	}
	if !(Principal{RefreshToken: "x"}).HasRefreshSlot() {
		t.Fatal("expected slot")
	}
}
