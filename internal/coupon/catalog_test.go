package coupon

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coupons.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestCatalogLoad(t *testing.T) {
	path := writeCatalog(t, `
coupons:
  - id: c1
    name: Welcome
    code: WELCOME10
    countries: [FR, DE]
  - id: c2
    name: Global
    code: GLOBAL
    countries: []
  - id: c3
    name: Encoded
    code: ENC
    countries: '["at","ch"]'
`)
	cat, err := NewCatalog(path)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if cat.Len() != 3 {
		t.Fatalf("Len = %d, want 3", cat.Len())
	}

	c1, ok := cat.Get("c1")
	if !ok {
		t.Fatal("c1 not found")
	}
	if c1.Code != "WELCOME10" || len(c1.Countries) != 2 {
		t.Errorf("c1 = %+v", c1)
	}

	c3, ok := cat.Get("c3")
	if !ok {
		t.Fatal("c3 not found")
	}
	if len(c3.Countries) != 2 || c3.Countries[0] != "AT" {
		t.Errorf("c3 countries = %v, want [AT CH]", c3.Countries)
	}

	if _, ok := cat.Get("nope"); ok {
		t.Error("unknown id resolved")
	}
}

func TestCatalogDuplicateID(t *testing.T) {
	path := writeCatalog(t, `
coupons:
  - id: c1
    code: A
  - id: c1
    code: B
`)
	if _, err := NewCatalog(path); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestCatalogReload(t *testing.T) {
	path := writeCatalog(t, `
coupons:
  - id: c1
    code: A
`)
	cat, err := NewCatalog(path)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	var notified int
	cat.OnChange(func(count int) { notified = count })

	next := `
coupons:
  - id: c1
    code: A
  - id: c2
    code: B
`
	if err := os.WriteFile(path, []byte(next), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := cat.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if cat.Len() != 2 {
		t.Errorf("Len = %d, want 2", cat.Len())
	}
	if notified != 2 {
		t.Errorf("OnChange count = %d, want 2", notified)
	}
}
