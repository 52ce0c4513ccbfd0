package rag

import (
	"testing"

	"github.com/NicoEspin/chatbot-portfolio/knowledge"
	"go.uber.org/zap"
)

func testCorpus() []knowledge.Record {
	return []knowledge.Record{
		{ID: "about_es", Title: "Sobre Nico (ES)", Text: "Dev Full-Stack argentino con foco en frontend."},
		{ID: "about_en", Title: "About Nico (EN)", Text: "Argentine Full-Stack developer with a frontend focus."},
		{ID: "experience_es", Title: "Experiencia (ES)", Text: "Dos años construyendo productos web."},
		{ID: "experience_en", Title: "Experience (EN)", Text: "Two years building web products."},
		{ID: "projects_es", Title: "Proyectos (ES)", Text: "Portfolio personal en React."},
		{ID: "projects_en", Title: "Projects (EN)", Text: "Personal portfolio built with React."},
		{ID: "links", Title: "Links oficiales", Text: "GitHub: https://github.com/NicoEspin"},
		{ID: "contact_es", Title: "Contacto (ES)", Text: "Contactar a Nico desde el formulario."},
		{ID: "contact_en", Title: "Contact (EN)", Text: "Contact Nico via the website form."},
		{ID: "assistant_style", Title: "Guía de estilo", Text: "Respondé corto y claro."},
	}
}

func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()
	logger := zap.NewNop()
	return NewRetriever(testCorpus(), 16, logger)
}

func TestRetrieveLocaleConsistency(t *testing.T) {
	r := newTestRetriever(t)

	tests := []struct {
		name  string
		query string
		lang  Lang
	}{
		{name: "english_query", query: "what projects has he built?", lang: LangEN},
		{name: "spanish_query", query: "¿qué proyectos construyó?", lang: LangES},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Retrieve(tt.query, 8)
			if len(got) == 0 {
				t.Fatalf("Retrieve(%q) returned no records", tt.query)
			}
			for _, rec := range got {
				if !MatchesLang(rec.ID, tt.lang) {
					t.Errorf("Retrieve(%q) returned %q, not a %q or locale-neutral record", tt.query, rec.ID, tt.lang)
				}
			}
		})
	}
}

func TestRetrieveTitleWeighting(t *testing.T) {
	r := newTestRetriever(t)

	got := r.Retrieve("what projects has he built?", 8)
	if len(got) == 0 {
		t.Fatal("expected at least one record")
	}
	if got[0].ID != "projects_en" {
		t.Errorf("top record = %q, want projects_en (title match should rank first)", got[0].ID)
	}
}

func TestRetrieveStopwordFallback(t *testing.T) {
	r := newTestRetriever(t)

	// Entirely stopwords: scoring is skipped, the core set comes back.
	got := r.Retrieve("the the a an", 4)
	if len(got) == 0 {
		t.Fatal("all-stopword query must fall back to the core set")
	}
	wantIDs := map[string]bool{"about_en": true, "experience_en": true, "links": true, "contact_en": true}
	for _, rec := range got {
		if !wantIDs[rec.ID] {
			t.Errorf("fallback returned unexpected record %q", rec.ID)
		}
	}
}

func TestRetrieveNoMatchFallsBackToCore(t *testing.T) {
	r := newTestRetriever(t)

	got := r.Retrieve("blockchain kubernetes", 4)
	if len(got) == 0 {
		t.Fatal("zero-score query must fall back to the core set")
	}
	// Default locale is Spanish for ambiguous queries.
	if got[0].ID != "about_es" {
		t.Errorf("first fallback record = %q, want about_es", got[0].ID)
	}
}

func TestRetrieveTruncatesToK(t *testing.T) {
	r := newTestRetriever(t)

	got := r.Retrieve("que proyectos y experiencia tiene nico", 1)
	if len(got) != 1 {
		t.Errorf("Retrieve with k=1 returned %d records", len(got))
	}
}

func TestRetrieveKFloor(t *testing.T) {
	r := newTestRetriever(t)

	got := r.Retrieve("proyectos", 0)
	if len(got) != 1 {
		t.Errorf("Retrieve with k=0 returned %d records, want 1 (k floors at 1)", len(got))
	}
}

func TestRetrieveSparseCorpusFallback(t *testing.T) {
	sparse := []knowledge.Record{
		{ID: "misc_1", Title: "One", Text: "first"},
		{ID: "misc_2", Title: "Two", Text: "second"},
		{ID: "misc_3", Title: "Three", Text: "third"},
	}
	r := NewRetriever(sparse, 0, zap.NewNop())

	// Fewer than 2 core ids exist: the corpus's first records stand in.
	got := r.Retrieve("the the", 4)
	if len(got) != 3 {
		t.Fatalf("fallback on sparse corpus returned %d records, want 3", len(got))
	}
	if got[0].ID != "misc_1" {
		t.Errorf("fallback should preserve corpus order, got %q first", got[0].ID)
	}
}

func TestRetrieveSkipsMalformedRecords(t *testing.T) {
	corpus := append(testCorpus(), knowledge.Record{ID: "broken_es", Title: "", Text: "no title"})
	r := NewRetriever(corpus, 0, zap.NewNop())

	for _, rec := range r.Retrieve("title proyectos", 8) {
		if rec.ID == "broken_es" {
			t.Error("malformed record leaked into results")
		}
	}
}

func TestRetrieveCachedResultsStable(t *testing.T) {
	r := newTestRetriever(t)

	first := r.Retrieve("que proyectos tiene", 4)
	second := r.Retrieve("que proyectos tiene", 4)
	if len(first) != len(second) {
		t.Fatalf("cached retrieval size mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("cached retrieval diverged at %d: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

// Scenario over the real embedded corpus: an English projects question must
// surface English or locale-neutral records with the Projects record on top.
func TestRetrieveEmbeddedCorpusScenario(t *testing.T) {
	corpus, err := knowledge.Load("")
	if err != nil {
		t.Fatalf("load embedded corpus: %v", err)
	}
	r := NewRetriever(corpus, 16, zap.NewNop())

	got := r.Retrieve("what projects has he built?", 8)
	if len(got) == 0 {
		t.Fatal("expected records for the projects scenario")
	}
	if got[0].ID != "projects_en" {
		t.Errorf("top record = %q, want projects_en", got[0].ID)
	}
	for _, rec := range got {
		if !MatchesLang(rec.ID, LangEN) {
			t.Errorf("record %q is neither English nor locale-neutral", rec.ID)
		}
	}
}
