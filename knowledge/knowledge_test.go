package knowledge

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbedded(t *testing.T) {
	records, err := Load("")
	if err != nil {
		t.Fatalf("Load embedded corpus: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("embedded corpus is empty")
	}

	byID := make(map[string]Record, len(records))
	for _, rec := range records {
		if rec.ID == "" || rec.Title == "" || rec.Text == "" {
			t.Errorf("record %q has empty fields", rec.ID)
		}
		if _, dup := byID[rec.ID]; dup {
			t.Errorf("duplicate record id %q", rec.ID)
		}
		byID[rec.ID] = rec
	}

	// IDs the retriever and prompt assembler depend on.
	for _, id := range []string{"about_es", "about_en", "experience_es", "experience_en", "links", "assistant_style", "contact_es", "contact_en"} {
		if _, ok := byID[id]; !ok {
			t.Errorf("embedded corpus missing required id %q", id)
		}
	}
}

func TestLoadExternalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	content := `[{"id":"about_es","title":"Sobre","text":"hola"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := Load(path)
	if err != nil {
		t.Fatalf("Load external corpus: %v", err)
	}
	if len(records) != 1 || records[0].ID != "about_es" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("/does/not/exist.json"); err == nil {
		t.Error("missing file should error")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed JSON should error")
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(empty); err == nil {
		t.Error("empty corpus should error")
	}
}
