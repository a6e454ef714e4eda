package models

import (
	"encoding/json"
)

// ClaimLabel is the optional boolean claim annotation of an item.
// Absent or non-boolean values unmarshal to an unset label; the
// summarizer counts such items toward neither side.
type ClaimLabel struct {
	Value bool // annotated value, meaningful only when Valid
	Valid bool // whether a boolean value was present
}

// UnmarshalJSON tolerates non-boolean payloads instead of failing the
// whole document; the label is simply left unset.
func (l *ClaimLabel) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		l.Valid = false
		return nil
	}
	l.Value = v
	l.Valid = true
	return nil
}

// MarshalJSON emits the boolean value, or null when the label is unset.
func (l ClaimLabel) MarshalJSON() ([]byte, error) {
	if !l.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(l.Value)
}

// Item is a single annotated text span within a document.
// Claim span, claim object, claimer and time keep the flexible shape of
// the dataset schema (null, single object or list), so they are carried
// as raw JSON and never reinterpreted.
type Item struct {
	ID             string          `json:"id,omitempty"`           // per-document item id, e.g. "news_0001_c3"
	Claim          *ClaimLabel     `json:"claim,omitempty"`        // true = claim, false = non-claim, nil = unlabeled
	BeginCharacter int             `json:"begin_character"`        // span start offset in the document text
	EndCharacter   int             `json:"end_character"`          // span end offset
	TextSegment    string          `json:"text_segment"`           // span text
	ClaimTopic     string          `json:"claim_topic,omitempty"`  // topic of the claim, falls back to the article topic
	ClaimSpan      json.RawMessage `json:"claim_span,omitempty"`   // claim sub-span(s)
	ClaimObject    json.RawMessage `json:"claim_object,omitempty"` // claim object span(s)
	Claimer        json.RawMessage `json:"claimer,omitempty"`      // document-level claimer span(s)
	Time           json.RawMessage `json:"time,omitempty"`         // document-level time span(s)
}

// IsClaim reports the boolean claim label and whether one is set.
func (it *Item) IsClaim() (value bool, ok bool) {
	if it.Claim == nil || !it.Claim.Valid {
		return false, false
	}
	return it.Claim.Value, true
}

// Document is one ClaimPT dataset record: a news article with its
// annotated claim and non-claim spans.
type Document struct {
	Document         string `json:"document"`                     // unique document identifier, e.g. "news_0001.txt"
	NewsArticleTopic string `json:"news_article_topic,omitempty"` // article topic annotation
	PublicationTime  string `json:"publication_time,omitempty"`   // publication time sliced from the article text
	Items            []Item `json:"items"`                        // annotated spans, sorted by begin offset
}

// CountLabels counts the items labeled claim and non-claim.
// Items without a valid boolean label are ignored.
func (d *Document) CountLabels() (claims, nonClaims int) {
	for i := range d.Items {
		v, ok := d.Items[i].IsClaim()
		if !ok {
			continue
		}
		if v {
			claims++
		} else {
			nonClaims++
		}
	}
	return claims, nonClaims
}
