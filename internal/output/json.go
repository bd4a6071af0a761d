package output

import (
	"encoding/json"

	"github.com/echolens/echolens/internal/visibility"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format renders the full result set.
func (f *JSONFormatter) Format(results []visibility.PromptResult) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(results, "", "  ")
	} else {
		data, err = json.Marshal(results)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
