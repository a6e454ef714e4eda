package dataset

import (
	"fmt"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
)

// Summary is the lightweight record of one document: its identifier and
// how many claim / non-claim items it carries. Index is the document's
// position in the original dataset and is what keeps split output in
// input-relative order.
type Summary struct {
	Index     int    // position in the original dataset
	ID        string // document identifier
	Claims    int    // items labeled claim == true
	NonClaims int    // items labeled claim == false
}

// Corpus is the ordered sequence of document summaries plus the
// corpus-wide label totals. Summaries keep the insertion order of the
// source dataset and identifiers are pairwise unique.
type Corpus struct {
	Summaries      []Summary
	TotalClaims    int
	TotalNonClaims int
}

// GlobalRatio returns the corpus-wide non-claim:claim ratio.
// Only meaningful when TotalClaims > 0.
func (c *Corpus) GlobalRatio() float64 {
	return float64(c.TotalNonClaims) / float64(c.TotalClaims)
}

// Summarize reduces a dataset to its Corpus. Each document is scanned
// once; items without a valid boolean claim label are ignored. A missing
// or duplicate document identifier is a fatal input error.
func Summarize(docs []models.Document) (*Corpus, error) {
	corpus := &Corpus{
		Summaries: make([]Summary, 0, len(docs)),
	}

	seen := make(map[string]struct{}, len(docs))
	for idx := range docs {
		id := docs[idx].Document
		if id == "" {
			return nil, fmt.Errorf("%w: entry at index %d", models.ErrMissingDocumentID, idx)
		}
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: %q", models.ErrDuplicateDocumentID, id)
		}
		seen[id] = struct{}{}

		claims, nonClaims := docs[idx].CountLabels()
		corpus.TotalClaims += claims
		corpus.TotalNonClaims += nonClaims
		corpus.Summaries = append(corpus.Summaries, Summary{
			Index:     idx,
			ID:        id,
			Claims:    claims,
			NonClaims: nonClaims,
		})
	}

	return corpus, nil
}
