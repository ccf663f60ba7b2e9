package api

import "encoding/json"

type EmbeddingRequest struct {
	// the model to embed with, always in shape `<provider>/<model>`
	Model string `json:"model" binding:"required"`

	// Input is the text to embed: string, []string, []int or [][]int.
	Input *EmbeddingInput `json:"input" binding:"required"`

	// "float" or "base64", defaults to "float"
	EncodingFormat string `json:"encoding_format,omitempty"`

	// Output dimensions, only honored by models that support it
	Dimensions int `json:"dimensions,omitempty"`

	User string `json:"user,omitempty"`
}

// EmbeddingInput handles the union type: string | []string | []int | [][]int
type EmbeddingInput struct {
	Text       string
	Texts      []string
	Tokens     []int
	TokensList [][]int
}

func (e *EmbeddingInput) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.Text)
	}
	if len(data) > 0 && data[0] == '[' {
		// distinguish []string, []int and [][]int by the first element
		var probe []json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return err
		}
		if len(probe) == 0 {
			e.Texts = []string{}
			return nil
		}
		switch probe[0][0] {
		case '"':
			return json.Unmarshal(data, &e.Texts)
		case '[':
			return json.Unmarshal(data, &e.TokensList)
		default:
			return json.Unmarshal(data, &e.Tokens)
		}
	}
	return nil
}

func (e EmbeddingInput) MarshalJSON() ([]byte, error) {
	switch {
	case e.Texts != nil:
		return json.Marshal(e.Texts)
	case e.Tokens != nil:
		return json.Marshal(e.Tokens)
	case e.TokensList != nil:
		return json.Marshal(e.TokensList)
	default:
		return json.Marshal(e.Text)
	}
}

// IsEmpty reports whether no input variant was provided.
func (e *EmbeddingInput) IsEmpty() bool {
	return e == nil || (e.Text == "" && e.Texts == nil && e.Tokens == nil && e.TokensList == nil)
}

type EmbeddingResponse struct {
	Object string            `json:"object"` // "list"
	Data   []EmbeddingObject `json:"data"`
	Model  string            `json:"model"`
	Usage  *ResponseUsage    `json:"usage,omitempty"`
}

type EmbeddingObject struct {
	Object    string    `json:"object"` // "embedding"
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}
