package lottery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogLookup(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		text     string
		expected string
		found    bool
	}{
		{"99112233 L200", "L200", true},
		{"TOLGOI LAND200 99112233", "L200", true},
		{"LC200 TOLBOR", "L200", true},
		{"95975944 HILUX", "HILUX", true},
		{"PRIUS30 BELEG", "P30", true},
		{"HILUX L200", "L200", true},
		{"GIFT AB12 PAYMENT", "AB12", true},
		{"99112233 50000.00", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := c.Lookup(tt.text)
			if ok != tt.found {
				t.Fatalf("expected found=%v, got %v", tt.found, ok)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]Code{{Code: "L200"}, {Code: "X1", Aliases: []string{"l200"}}})
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, err := NewCatalog(nil); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codes.json")
	content := `{"codes":[{"code":"TANK300","aliases":["T300"]},{"code":"L200"}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, _ := c.Lookup("PAID T300"); got != "TANK300" {
		t.Errorf("expected alias to map to TANK300, got %q", got)
	}
	if codes := c.Codes(); len(codes) != 2 || codes[0] != "TANK300" {
		t.Errorf("unexpected codes %v", codes)
	}

	if _, err := LoadCatalog(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
