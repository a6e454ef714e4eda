package split

import (
	"fmt"
	"math"
	"strings"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/dataset"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
)

// Stats are the achieved counts of a split, derived purely from the
// assignment and the original corpus.
type Stats struct {
	TotalDocs      int     `json:"total_docs"`
	TrainDocs      int     `json:"train_docs"`
	TestDocs       int     `json:"test_docs"`
	TotalClaims    int     `json:"total_claims"`
	TrainClaims    int     `json:"train_claims"`
	TestClaims     int     `json:"test_claims"`
	TotalNonClaims int     `json:"total_nonclaims"`
	TrainNonClaims int     `json:"train_nonclaims"`
	TestNonClaims  int     `json:"test_nonclaims"`
	RatioGlobal    float64 `json:"ratio_global"` // non-claim:claim, corpus-wide
	RatioTrain     float64 `json:"ratio_train"`  // non-claim:claim in train, +Inf when train has no claims
	RatioTest      float64 `json:"ratio_test"`   // non-claim:claim in test, +Inf when test has no claims
	TargetTestSize float64 `json:"target_test_size"`
	AchievedSize   float64 `json:"achieved_test_size"` // achieved share of claims in test
}

// ComputeStats derives the achieved counts for an assignment.
func ComputeStats(corpus *dataset.Corpus, a *Assignment, cfg Config) Stats {
	s := Stats{
		TotalDocs:      len(corpus.Summaries),
		TrainDocs:      len(a.Train),
		TestDocs:       len(a.Test),
		TotalClaims:    corpus.TotalClaims,
		TotalNonClaims: corpus.TotalNonClaims,
		TargetTestSize: cfg.TestSize,
	}

	for _, sum := range a.Train {
		s.TrainClaims += sum.Claims
		s.TrainNonClaims += sum.NonClaims
	}
	for _, sum := range a.Test {
		s.TestClaims += sum.Claims
		s.TestNonClaims += sum.NonClaims
	}

	s.RatioGlobal = ratio(s.TotalNonClaims, s.TotalClaims)
	s.RatioTrain = ratio(s.TrainNonClaims, s.TrainClaims)
	s.RatioTest = ratio(s.TestNonClaims, s.TestClaims)
	if s.TotalClaims > 0 {
		s.AchievedSize = float64(s.TestClaims) / float64(s.TotalClaims)
	}
	return s
}

func ratio(nonClaims, claims int) float64 {
	if claims == 0 {
		return math.Inf(1)
	}
	return float64(nonClaims) / float64(claims)
}

// Report renders the operator-facing split summary.
func (s Stats) Report() string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Split summary ===\n")
	fmt.Fprintf(&b, "Total documents:      %d\n", s.TotalDocs)
	fmt.Fprintf(&b, "  Train documents:    %d\n", s.TrainDocs)
	fmt.Fprintf(&b, "  Test documents:     %d\n", s.TestDocs)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "Total claims:         %d\n", s.TotalClaims)
	fmt.Fprintf(&b, "  Train claims:       %d\n", s.TrainClaims)
	fmt.Fprintf(&b, "  Test claims:        %d\n", s.TestClaims)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "Total non-claims:     %d\n", s.TotalNonClaims)
	fmt.Fprintf(&b, "  Train non-claims:   %d\n", s.TrainNonClaims)
	fmt.Fprintf(&b, "  Test non-claims:    %d\n", s.TestNonClaims)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "NC:C ratio (global):  %.3f\n", s.RatioGlobal)
	fmt.Fprintf(&b, "NC:C ratio (train):   %.3f\n", s.RatioTrain)
	fmt.Fprintf(&b, "NC:C ratio (test):    %.3f\n", s.RatioTest)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "Target test-size (claims): ~%.2f%% of %d\n", s.TargetTestSize*100, s.TotalClaims)
	fmt.Fprintf(&b, "Achieved test claims:       %d (~%.2f%%)\n", s.TestClaims, s.AchievedSize*100)

	return b.String()
}

// Materialize maps the assignment back onto the full document records.
// Both returned lists keep original dataset order; docs must be the
// same slice the corpus was summarized from.
func (a *Assignment) Materialize(docs []models.Document) (train, test []models.Document) {
	train = make([]models.Document, 0, len(a.Train))
	for _, s := range a.Train {
		train = append(train, docs[s.Index])
	}
	test = make([]models.Document, 0, len(a.Test))
	for _, s := range a.Test {
		test = append(test, docs[s.Index])
	}
	return train, test
}
