// Package cas converts INCEpTION CAS JSON exports into ClaimPT dataset
// records and bundles per-document export folders into a flat directory.
package cas

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
)

// Feature structure types and span labels used by the annotation export.
const (
	typeSofa     = "uima.cas.Sofa"
	typeMetadata = "de.tudarmstadt.ukp.dkpro.core.api.metadata.type.DocumentMetaData"
	typeSpan     = "custom.Span"

	metaTopic   = "News Article Topic"
	metaPubTime = "Publication Time"

	labelClaim       = "Claim"
	labelNonClaim    = "Non-claim"
	labelClaimSpan   = "Claim span"
	labelClaimObject = "Claim object"
	labelClaimer     = "Claimer"
	labelTime        = "Time"
)

// featureStructure is the subset of a CAS feature structure the
// converter reads. Fields not listed here are ignored.
type featureStructure struct {
	Type          string `json:"%TYPE"`
	SofaString    string `json:"sofaString"`
	DocumentTitle string `json:"documentTitle"`
	Metadata      string `json:"Metadata"`
	Categoria     string `json:"categoria"`
	Label         string `json:"label"`
	Topic         string `json:"Topic"`
	Begin         int    `json:"begin"`
	End           int    `json:"end"`
}

// casExport is the top level of an INCEpTION CAS JSON file.
type casExport struct {
	FeatureStructures []featureStructure `json:"%FEATURE_STRUCTURES"`
}

// spanRef is the span shape used throughout the dataset schema.
type spanRef struct {
	Text  string `json:"text"`
	Begin int    `json:"begin"`
	End   int    `json:"end"`
}

// Convert turns one CAS export into a ClaimPT document record.
func Convert(data []byte) (*models.Document, error) {
	var export casExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse CAS JSON: %w", err)
	}

	text, err := sofaText(export.FeatureStructures)
	if err != nil {
		return nil, err
	}

	title, err := documentTitle(export.FeatureStructures)
	if err != nil {
		return nil, err
	}

	var spans []featureStructure
	for _, fs := range export.FeatureStructures {
		if fs.Type == typeSpan {
			spans = append(spans, fs)
		}
	}

	topic, pubTime := metaSpans(spans, text)

	// Group annotation spans by label.
	groups := make(map[string][]featureStructure)
	for _, fs := range spans {
		if fs.Label == "" {
			continue
		}
		groups[fs.Label] = append(groups[fs.Label], fs)
	}

	// Claimer and time are annotated once per document and attached to
	// every claim item.
	claimerVal := spansToValue(groups[labelClaimer], text)
	timeVal := spansToValue(groups[labelTime], text)

	var items []models.Item

	for _, c := range groups[labelClaim] {
		claimTopic := c.Topic
		if claimTopic == "" {
			claimTopic = topic
		}

		item := models.Item{
			Claim:          &models.ClaimLabel{Value: true, Valid: true},
			BeginCharacter: c.Begin,
			EndCharacter:   c.End,
			TextSegment:    slice(text, c.Begin, c.End),
			ClaimTopic:     claimTopic,
		}

		if v := spansToValue(overlapping(groups[labelClaimSpan], c.Begin, c.End), text); v != nil {
			item.ClaimSpan = v
		}
		if v := spansToValue(overlapping(groups[labelClaimObject], c.Begin, c.End), text); v != nil {
			item.ClaimObject = v
		}

		if claimerVal != nil {
			item.Claimer = claimerVal
		} else {
			item.Claimer = json.RawMessage(`[]`) // no claimer annotated
		}
		if timeVal != nil {
			item.Time = timeVal
		} else {
			item.Time = json.RawMessage(`""`) // matches the dataset style
		}

		items = append(items, item)
	}

	for _, n := range groups[labelNonClaim] {
		items = append(items, models.Item{
			Claim:          &models.ClaimLabel{Value: false, Valid: true},
			BeginCharacter: n.Begin,
			EndCharacter:   n.End,
			TextSegment:    slice(text, n.Begin, n.End),
		})
	}

	// Sort by position before assigning per-document item ids.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].BeginCharacter < items[j].BeginCharacter
	})

	base := strings.TrimSuffix(title, filepath.Ext(title))
	for i := range items {
		items[i].ID = fmt.Sprintf("%s_c%d", base, i+1)
	}

	return &models.Document{
		Document:         title,
		NewsArticleTopic: topic,
		PublicationTime:  pubTime,
		Items:            items,
	}, nil
}

// ConvertFile converts a CAS JSON file on disk.
func ConvertFile(path string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CAS file: %w", err)
	}

	doc, err := Convert(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ConvertDir converts every .json file in dir, in filename order, into
// a dataset.
func ConvertDir(dir string, logger *logrus.Logger) ([]models.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read CAS directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("no .json files found in directory: %s", dir)
	}

	docs := make([]models.Document, 0, len(names))
	for _, name := range names {
		doc, err := ConvertFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)

		logger.WithFields(logrus.Fields{
			"file":     name,
			"document": doc.Document,
			"items":    len(doc.Items),
		}).Info("Converted CAS document")
	}

	return docs, nil
}

// sofaText extracts the full document text from the first Sofa.
func sofaText(structures []featureStructure) (string, error) {
	for _, fs := range structures {
		if fs.Type == typeSofa {
			return fs.SofaString, nil
		}
	}
	return "", fmt.Errorf("no %s found in document", typeSofa)
}

// documentTitle extracts the title from the first DocumentMetaData.
func documentTitle(structures []featureStructure) (string, error) {
	for _, fs := range structures {
		if fs.Type == typeMetadata {
			return fs.DocumentTitle, nil
		}
	}
	return "", fmt.Errorf("no DocumentMetaData found in document")
}

// metaSpans pulls the article topic and publication time meta spans.
func metaSpans(spans []featureStructure, text string) (topic, pubTime string) {
	for _, fs := range spans {
		switch fs.Metadata {
		case metaTopic:
			if topic == "" {
				topic = fs.Categoria
			}
		case metaPubTime:
			if pubTime == "" {
				pubTime = strings.TrimSpace(slice(text, fs.Begin, fs.End))
			}
		}
	}
	return topic, pubTime
}

// overlapping returns spans whose [begin, end) intervals overlap
// [start, end).
func overlapping(spans []featureStructure, start, end int) []featureStructure {
	var out []featureStructure
	for _, s := range spans {
		if s.End <= start || s.Begin >= end {
			continue
		}
		out = append(out, s)
	}
	return out
}

// spansToValue folds spans into the dataset's flexible span shape:
// nil for none, a single object for one, a list otherwise.
func spansToValue(spans []featureStructure, text string) json.RawMessage {
	if len(spans) == 0 {
		return nil
	}

	refs := make([]spanRef, 0, len(spans))
	for _, s := range spans {
		refs = append(refs, spanRef{
			Text:  slice(text, s.Begin, s.End),
			Begin: s.Begin,
			End:   s.End,
		})
	}

	var (
		data []byte
		err  error
	)
	if len(refs) == 1 {
		data, err = json.Marshal(refs[0])
	} else {
		data, err = json.Marshal(refs)
	}
	if err != nil {
		// spanRef marshaling cannot fail on valid UTF-8 input.
		return nil
	}
	return data
}

// slice cuts the [begin, end) character range out of text, clamping
// out-of-range offsets. Annotation offsets count characters, not
// bytes, so the text is indexed as runes; accented Portuguese text
// would otherwise shift every span after the first multi-byte rune.
func slice(text string, begin, end int) string {
	runes := []rune(text)
	if begin < 0 {
		begin = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if begin >= end {
		return ""
	}
	return string(runes[begin:end])
}
