package entity

// Sentiment is the user's rating of an assistant entry.
type Sentiment string

const (
	SentimentUnset    Sentiment = ""
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Citation links an assistant answer to a source document and excerpt.
type Citation struct {
	SourceId string `json:"source_id"`
	Excerpt  string `json:"excerpt"`
	Name     string `json:"name"`
}

// TranscriptEntry is one message in the conversation log.
// Its Id is the index it was created at; entries are immutable
// after creation except for Sentiment.
type TranscriptEntry struct {
	Id        int        `json:"id"`
	Role      string     `json:"role"`
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
	Sentiment Sentiment  `json:"sentiment,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e TranscriptEntry) Clone() TranscriptEntry {
	out := e
	if e.Citations != nil {
		out.Citations = make([]Citation, len(e.Citations))
		copy(out.Citations, e.Citations)
	}
	return out
}
