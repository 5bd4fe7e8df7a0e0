package textindex

// Config tunes the BM25 text index. K1 and B mirror the classic BM25
// parameters for documentation purposes; bleve v2 does not expose a public
// hook to retune its own scorer per field, so — as in the upstream index
// this package is grounded on — they are threaded through the config but
// not yet wired into the underlying similarity computation.
//
// StopWords is NOT applied to the content analyzer that Index.Search,
// Index.SearchPhrase, and Index.AllDocs run against: the literal and regex
// searchers in pkg/searcher rely on that analyzer to produce a candidate
// for every query that occurs verbatim in a document, including queries
// that are themselves a single common keyword ("err", "for", "return").
// Filtering those out at analysis time would make `codescope search err`
// silently miss every file with an `if err != nil` check. StopWords
// remains here for callers that want a stop list for their own scoring or
// ranking heuristics outside the indexed-content path.
type Config struct {
	K1             float64
	B              float64
	StopWords      []string
	MinTokenLength int
}

// DefaultConfig returns the code-search tuned defaults.
func DefaultConfig() Config {
	return Config{
		K1:             1.2,
		B:              0.75,
		StopWords:      DefaultCodeStopWords,
		MinTokenLength: 2,
	}
}

// DefaultCodeStopWords are common programming keywords that FilterStopWords
// and BuildStopWordMap callers can use to down-weight boilerplate terms.
// It is not wired into the indexed-content analyzer; see Config.StopWords.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

// Hit is one stored document returned by a text-index query, carrying every
// field needed downstream by the searcher without a second lookup.
type Hit struct {
	DocID        string
	Path         string
	Workspace    string
	Content      string
	Extension    string
	LineStart    int
	LineEnd      int
	MTime        int64
	Size         int64
	Score        float64
	MatchedTerms []string
}

// Stats summarizes the text index's current contents.
type Stats struct {
	DocumentCount int
}
