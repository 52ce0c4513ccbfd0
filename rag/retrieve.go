package rag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NicoEspin/chatbot-portfolio/knowledge"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// IsNeutralID reports whether a record applies to both locales.
func IsNeutralID(id string) bool {
	return id == "links" || id == "assistant_style"
}

// MatchesLang reports whether a record ID belongs to the given locale, either
// by its _es/_en suffix or by being locale-neutral.
func MatchesLang(id string, lang Lang) bool {
	if IsNeutralID(id) {
		return true
	}
	return strings.HasSuffix(id, "_"+string(lang))
}

type indexedRecord struct {
	record      knowledge.Record
	titleTokens map[string]struct{}
	bodyTokens  map[string]struct{}
}

// Retriever scores knowledge records against query tokens. The corpus is
// immutable, so both the token index and the result cache are built once and
// safe for concurrent use.
type Retriever struct {
	docs   []indexedRecord
	byID   map[string]knowledge.Record
	cache  *lru.Cache
	logger *zap.Logger
}

func NewRetriever(corpus []knowledge.Record, cacheSize int, logger *zap.Logger) *Retriever {
	docs := make([]indexedRecord, 0, len(corpus))
	byID := make(map[string]knowledge.Record, len(corpus))
	for _, rec := range corpus {
		// Drop malformed records up front
		if rec.ID == "" || rec.Title == "" || rec.Text == "" {
			if logger != nil {
				logger.Warn("Skipping malformed knowledge record", zap.String("id", rec.ID))
			}
			continue
		}
		docs = append(docs, indexedRecord{
			record:      rec,
			titleTokens: tokenSet(rec.Title),
			bodyTokens:  tokenSet(rec.Text),
		})
		if _, dup := byID[rec.ID]; !dup {
			byID[rec.ID] = rec
		}
	}

	var cache *lru.Cache
	if cacheSize > 0 {
		cache, _ = lru.New(cacheSize)
	}

	return &Retriever{docs: docs, byID: byID, cache: cache, logger: logger}
}

// Retrieve returns the top-k records for query, restricted to the detected
// locale plus locale-neutral records. Scoring over-fetches 3k records before
// the locale filter so a Spanish-heavy corpus cannot starve English queries
// of on-topic results. An unmatchable query falls back to the core set.
func (r *Retriever) Retrieve(query string, k int) []knowledge.Record {
	if k < 1 {
		k = 1
	}

	lang := DetectLanguage(query)
	qSet := tokenSet(query)

	// Query was entirely stopwords/punctuation: nothing to score.
	if len(qSet) == 0 {
		return truncate(r.coreDocs(lang), k)
	}

	cacheKey := fmt.Sprintf("%s|%s|%d", lang, strings.Join(sortedTokens(qSet), " "), k)
	if r.cache != nil {
		if cached, ok := r.cache.Get(cacheKey); ok {
			if ids, ok := cached.([]string); ok {
				return r.resolve(ids)
			}
		}
	}

	type scoredDoc struct {
		record knowledge.Record
		score  int
	}

	scored := make([]scoredDoc, 0, len(r.docs))
	for _, doc := range r.docs {
		titleHits := overlap(doc.titleTokens, qSet)
		bodyHits := overlap(doc.bodyTokens, qSet)
		// Title matches weighted so "GitHub"/"Projects" records rank fast
		score := titleHits*3 + bodyHits
		if score > 0 {
			scored = append(scored, scoredDoc{record: doc.record, score: score})
		}
	}

	// Stable sort keeps corpus order on ties.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	limit := 3 * k
	if limit < k {
		limit = k
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}

	result := make([]knowledge.Record, 0, k)
	for _, s := range scored {
		if !MatchesLang(s.record.ID, lang) {
			continue
		}
		result = append(result, s.record)
		if len(result) == k {
			break
		}
	}

	if len(result) == 0 {
		return truncate(r.coreDocs(lang), k)
	}

	if r.cache != nil {
		ids := make([]string, len(result))
		for i, rec := range result {
			ids[i] = rec.ID
		}
		r.cache.Add(cacheKey, ids)
	}

	return result
}

// coreDocs is the fixed fallback set for a locale. If the corpus somehow
// contains fewer than 2 of them, the first records of the corpus stand in.
func (r *Retriever) coreDocs(lang Lang) []knowledge.Record {
	coreIDs := []string{"about_es", "experience_es", "links", "contact_es"}
	if lang == LangEN {
		coreIDs = []string{"about_en", "experience_en", "links", "contact_en"}
	}

	core := make([]knowledge.Record, 0, len(coreIDs))
	for _, id := range coreIDs {
		if rec, ok := r.byID[id]; ok {
			core = append(core, rec)
		}
	}
	if len(core) < 2 {
		all := make([]knowledge.Record, 0, 4)
		for _, doc := range r.docs {
			all = append(all, doc.record)
			if len(all) == 4 {
				break
			}
		}
		return all
	}
	return core
}

func (r *Retriever) resolve(ids []string) []knowledge.Record {
	records := make([]knowledge.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.byID[id]; ok {
			records = append(records, rec)
		}
	}
	return records
}

func overlap(set, query map[string]struct{}) int {
	hits := 0
	for t := range set {
		if _, ok := query[t]; ok {
			hits++
		}
	}
	return hits
}

func sortedTokens(set map[string]struct{}) []string {
	tokens := make([]string, 0, len(set))
	for t := range set {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

func truncate(records []knowledge.Record, k int) []knowledge.Record {
	if len(records) > k {
		return records[:k]
	}
	return records
}
