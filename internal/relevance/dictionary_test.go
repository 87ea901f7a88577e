package relevance

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDictionary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	data := `
extract_bonus: 2.5
groups:
  - name: core
    weight: 3.0
    keywords: [swift, swiftui]
  - name: extra
    weight: 1.0
    keywords: [wearable]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := LoadDictionary(path)
	if err != nil {
		t.Fatalf("load dictionary: %v", err)
	}
	if d.ExtractBonus != 2.5 {
		t.Fatalf("expected extract bonus 2.5, got %v", d.ExtractBonus)
	}
	if len(d.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(d.Groups))
	}
	if d.Groups[0].Weight != 3.0 || len(d.Groups[0].Keywords) != 2 {
		t.Fatalf("unexpected core group: %+v", d.Groups[0])
	}
	if !d.contains("wearable") || d.contains("ios") {
		t.Fatalf("dictionary membership does not match the loaded file")
	}
}

func TestLoadDictionaryDefaultsExtractBonus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	data := `
groups:
  - name: core
    weight: 1.0
    keywords: [swift]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := LoadDictionary(path)
	if err != nil {
		t.Fatalf("load dictionary: %v", err)
	}
	if d.ExtractBonus != DefaultDictionary().ExtractBonus {
		t.Fatalf("expected default extract bonus, got %v", d.ExtractBonus)
	}
}

func TestLoadDictionaryMissingFile(t *testing.T) {
	if _, err := LoadDictionary(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadDictionaryMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	if err := os.WriteFile(path, []byte("groups: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDictionary(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestDefaultDictionaryShape(t *testing.T) {
	d := DefaultDictionary()
	if len(d.Groups) != 4 {
		t.Fatalf("expected 4 groups, got %d", len(d.Groups))
	}
	if d.Groups[0].Name != "core" || d.Groups[0].Weight != 3.0 {
		t.Fatalf("unexpected first group: %+v", d.Groups[0])
	}
	if !d.contains("swift") || !d.contains("app store") {
		t.Fatal("expected built-in keywords to be present")
	}
}
