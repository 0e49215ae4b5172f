package qdrant

// Filter is a Qdrant boolean filter. A Filter is itself a valid condition,
// which is how clauses nest.
type Filter struct {
	Must    []any `json:"must,omitempty"`
	Should  []any `json:"should,omitempty"`
	MustNot []any `json:"must_not,omitempty"`
}

func (f *Filter) Empty() bool {
	return f == nil || (len(f.Must) == 0 && len(f.Should) == 0 && len(f.MustNot) == 0)
}

// MatchValue is an exact keyword match. Against an array payload field it
// matches when any element equals value.
func MatchValue(key string, value any) map[string]any {
	return map[string]any{
		"key": key,
		"match": map[string]any{
			"value": value,
		},
	}
}

// MatchText matches a full-text indexed field against tokenized text.
func MatchText(key, text string) map[string]any {
	return map[string]any{
		"key": key,
		"match": map[string]any{
			"text": text,
		},
	}
}

func HasID(ids ...string) map[string]any {
	return map[string]any{"has_id": ids}
}

// Field schemas accepted by the payload index endpoint.
const (
	SchemaKeyword  = "keyword"
	SchemaDatetime = "datetime"
)

type TextIndexParams struct {
	Type        string `json:"type"`
	Tokenizer   string `json:"tokenizer"`
	Lowercase   bool   `json:"lowercase"`
	MinTokenLen int    `json:"min_token_len,omitempty"`
	MaxTokenLen int    `json:"max_token_len,omitempty"`
}

func WordTextIndex() TextIndexParams {
	return TextIndexParams{Type: "text", Tokenizer: "word", Lowercase: true, MinTokenLen: 2, MaxTokenLen: 32}
}
