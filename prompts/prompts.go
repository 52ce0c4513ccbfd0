package prompts

import (
	_ "embed"
	"strings"

	"github.com/NicoEspin/chatbot-portfolio/knowledge"
	"github.com/NicoEspin/chatbot-portfolio/rag"
	"github.com/NicoEspin/chatbot-portfolio/web/types"
)

// Embedded system prompt templates. The behavioral rules in them are policy
// text passed to the upstream model, not enforced mechanically here.

//go:embed system_es.txt
var systemES string

//go:embed system_en.txt
var systemEN string

const contextPlaceholder = "{{CONTEXT}}"

// Records that must open the context block whenever retrieval surfaced them,
// in this order.
func requiredIDs(lang rag.Lang) []string {
	contact := "contact_es"
	if lang == rag.LangEN {
		contact = "contact_en"
	}
	return []string{"assistant_style", "links", contact}
}

// EnsureRequired reorders retrieved so that the locale's required records come
// first (when present), followed by the rest in their original order, with
// duplicates removed.
func EnsureRequired(retrieved []knowledge.Record, lang rag.Lang) []knowledge.Record {
	byID := make(map[string]knowledge.Record, len(retrieved))
	for _, rec := range retrieved {
		if _, dup := byID[rec.ID]; !dup && rec.Title != "" && rec.Text != "" {
			byID[rec.ID] = rec
		}
	}

	out := make([]knowledge.Record, 0, len(retrieved))
	seen := make(map[string]struct{}, len(retrieved))

	for _, id := range requiredIDs(lang) {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
			seen[id] = struct{}{}
		}
	}
	for _, rec := range retrieved {
		if rec.ID == "" || rec.Title == "" || rec.Text == "" {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		out = append(out, rec)
		seen[rec.ID] = struct{}{}
	}
	return out
}

// ContextBlock renders records as "### Title\nText" sections separated by
// blank lines, or a locale-specific placeholder when nothing was retrieved.
func ContextBlock(records []knowledge.Record, lang rag.Lang) string {
	if len(records) == 0 {
		if lang == rag.LangEN {
			return "No context available."
		}
		return "No hay contexto disponible."
	}

	sections := make([]string, len(records))
	for i, rec := range records {
		sections[i] = "### " + rec.Title + "\n" + rec.Text
	}
	return strings.Join(sections, "\n\n")
}

// Assemble merges retrieved records into a context block and renders the
// locale's system message around it.
func Assemble(retrieved []knowledge.Record, lang rag.Lang) (string, types.ChatMessage) {
	ordered := EnsureRequired(retrieved, lang)
	contextBlock := ContextBlock(ordered, lang)

	template := systemES
	if lang == rag.LangEN {
		template = systemEN
	}

	system := types.ChatMessage{
		Role:    types.RoleSystem,
		Content: strings.Replace(template, contextPlaceholder, contextBlock, 1),
	}
	return contextBlock, system
}
