package knowledge

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

// Record is one knowledge base entry. Locale is encoded by an _es/_en suffix
// on the ID; a small set of IDs (links, assistant_style) apply to both locales.
type Record struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

//go:embed corpus.json
var embeddedCorpus []byte

// Load returns the knowledge corpus, immutable after this call. When path is
// empty the corpus embedded in the binary is used.
func Load(path string) ([]Record, error) {
	data := embeddedCorpus
	if path != "" {
		external, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read knowledge file: %w", err)
		}
		data = external
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode knowledge corpus: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("knowledge corpus is empty")
	}
	return records, nil
}
