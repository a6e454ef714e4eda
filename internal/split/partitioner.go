// Package split implements the document-level stratified train/test
// partitioner of the ClaimPT dataset. Documents are assigned whole to
// exactly one split, the share of claims routed to test approximates a
// configured target, and the corpus-wide non-claim:claim ratio can
// optionally be approximated within each split.
package split

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/dataset"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
)

// Config carries the partitioner parameters.
type Config struct {
	TestSize  float64 // target share of total claims routed to test, in (0, 1)
	KeepRatio bool    // approximate the global non-claim:claim ratio in each split
	Seed      int64   // shuffle seed; identical seed and corpus give identical output
}

// DefaultConfig returns the partitioner defaults: a 20% claim share for
// test, no ratio preservation, and a fixed seed for reproducibility.
func DefaultConfig() Config {
	return Config{
		TestSize:  0.20,
		KeepRatio: false,
		Seed:      42,
	}
}

// Assignment is the result of one partitioner invocation: two disjoint,
// jointly exhaustive document groups, each sorted by original corpus
// index. It is never mutated after being returned.
type Assignment struct {
	Train []dataset.Summary
	Test  []dataset.Summary
}

// TrainIDs returns the train document identifiers in corpus order.
func (a *Assignment) TrainIDs() []string {
	return summaryIDs(a.Train)
}

// TestIDs returns the test document identifiers in corpus order.
func (a *Assignment) TestIDs() []string {
	return summaryIDs(a.Test)
}

func summaryIDs(summaries []dataset.Summary) []string {
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ID
	}
	return ids
}

// Partitioner produces stratified document-level splits. It owns no
// cross-invocation state: every Split call builds its own seeded random
// source, so a Partitioner is safe to share across goroutines as long
// as each call works on its own corpus.
type Partitioner struct {
	cfg Config
}

// NewPartitioner creates a partitioner with the given configuration.
func NewPartitioner(cfg Config) *Partitioner {
	return &Partitioner{cfg: cfg}
}

// Split partitions the corpus into train and test document groups.
//
// Pass 1 walks a shuffled list of claim-bearing documents, accumulating
// them into test while the running claim sum is below the target
// max(1, round(TestSize*totalClaims)). The walk is a greedy
// approximation: it can overshoot the target by at most one document's
// claim count, and ties are broken solely by shuffle order.
//
// Pass 2 routes claim-free documents. With KeepRatio they greedily top
// up the test split's non-claim count toward round(testClaims*globalRatio);
// otherwise a round(TestSize*N)-document random sample goes to test.
//
// The assignment is checked for leakage and coverage before being
// returned with each side re-sorted into original corpus order.
func (p *Partitioner) Split(corpus *dataset.Corpus) (*Assignment, error) {
	if p.cfg.TestSize <= 0 || p.cfg.TestSize >= 1 {
		return nil, fmt.Errorf("%w: got %v", models.ErrInvalidTestSize, p.cfg.TestSize)
	}
	if corpus.TotalClaims == 0 {
		return nil, fmt.Errorf("%w: cannot create a claim-based test split", models.ErrNoClaims)
	}

	rng := rand.New(rand.NewSource(p.cfg.Seed))

	// Separate documents that carry claims from claim-free ones.
	var withClaims, claimFree []dataset.Summary
	for _, s := range corpus.Summaries {
		if s.Claims > 0 {
			withClaims = append(withClaims, s)
		} else {
			claimFree = append(claimFree, s)
		}
	}

	testDocs, trainDocs := p.splitClaimDocs(rng, withClaims, corpus.TotalClaims)

	testClaims := 0
	testNonClaims := 0
	for _, s := range testDocs {
		testClaims += s.Claims
		testNonClaims += s.NonClaims
	}

	testFree, trainFree := p.splitClaimFreeDocs(rng, claimFree, testClaims, testNonClaims, corpus.GlobalRatio())

	assignment := &Assignment{
		Train: append(trainDocs, trainFree...),
		Test:  append(testDocs, testFree...),
	}

	if err := p.verify(corpus, assignment); err != nil {
		return nil, err
	}

	sortByIndex(assignment.Train)
	sortByIndex(assignment.Test)
	return assignment, nil
}

// splitClaimDocs runs the greedy threshold walk over claim-bearing
// documents (pass 1).
func (p *Partitioner) splitClaimDocs(rng *rand.Rand, withClaims []dataset.Summary, totalClaims int) (test, train []dataset.Summary) {
	// Half-way targets round away from zero (2.5 becomes 3).
	target := int(math.Round(p.cfg.TestSize * float64(totalClaims)))
	if target < 1 {
		target = 1
	}

	shuffled := shuffle(rng, withClaims)

	accumulated := 0
	for _, s := range shuffled {
		if accumulated < target {
			test = append(test, s)
			accumulated += s.Claims
		} else {
			train = append(train, s)
		}
	}

	// The walk cannot end up empty while claims exist, but a degenerate
	// target must still leave a non-empty test split.
	if len(test) == 0 && len(shuffled) > 0 {
		test = append(test, shuffled[0])
		train = append([]dataset.Summary(nil), shuffled[1:]...)
	}

	return test, train
}

// splitClaimFreeDocs routes claim-free documents (pass 2).
func (p *Partitioner) splitClaimFreeDocs(rng *rand.Rand, claimFree []dataset.Summary, testClaims, testNonClaims int, globalRatio float64) (test, train []dataset.Summary) {
	shuffled := shuffle(rng, claimFree)

	if !p.cfg.KeepRatio {
		// No ratio keeping: send ~TestSize of the claim-free documents,
		// by document count, to test.
		n := int(math.Round(p.cfg.TestSize * float64(len(shuffled))))
		if n > len(shuffled) {
			n = len(shuffled)
		}
		return shuffled[:n], shuffled[n:]
	}

	// Aim for the global non-claim:claim ratio in test; train follows by
	// complement. When pass 1 already supplied enough non-claims (or
	// there is nothing to route), everything goes to train.
	// Rounds away from zero on halves, like the pass 1 target.
	desired := int(math.Round(float64(testClaims) * globalRatio))
	if testNonClaims >= desired || len(shuffled) == 0 {
		return nil, shuffled
	}

	needed := desired - testNonClaims
	accumulated := 0
	for _, s := range shuffled {
		if accumulated < needed {
			test = append(test, s)
			accumulated += s.NonClaims
		} else {
			train = append(train, s)
		}
	}
	return test, train
}

// verify asserts the split invariants: no document in both groups and
// every corpus document in exactly one. A violation is a programming
// error in the partitioner and is surfaced, never patched.
func (p *Partitioner) verify(corpus *dataset.Corpus, a *Assignment) error {
	assigned := make(map[string]struct{}, len(corpus.Summaries))
	for _, s := range a.Train {
		assigned[s.ID] = struct{}{}
	}
	for _, s := range a.Test {
		if _, ok := assigned[s.ID]; ok {
			return fmt.Errorf("%w: %q", models.ErrSplitLeakage, s.ID)
		}
		assigned[s.ID] = struct{}{}
	}

	if len(assigned) != len(corpus.Summaries) {
		return fmt.Errorf("%w: assigned %d of %d documents",
			models.ErrSplitCoverage, len(assigned), len(corpus.Summaries))
	}
	for _, s := range corpus.Summaries {
		if _, ok := assigned[s.ID]; !ok {
			return fmt.Errorf("%w: missing %q", models.ErrSplitCoverage, s.ID)
		}
	}
	return nil
}

// shuffle returns a shuffled copy, leaving the input untouched.
func shuffle(rng *rand.Rand, summaries []dataset.Summary) []dataset.Summary {
	out := append([]dataset.Summary(nil), summaries...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func sortByIndex(summaries []dataset.Summary) {
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Index < summaries[j].Index
	})
}
