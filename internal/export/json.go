package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/FranksOps/leadscout/internal/lead"
)

// WriteJSON writes the whole result, indented.
func WriteJSON(w io.Writer, res *lead.SearchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteNDJSON writes one lead per line.
func WriteNDJSON(w io.Writer, leads []lead.Lead) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, l := range leads {
		if err := enc.Encode(l); err != nil {
			return fmt.Errorf("write ndjson: %w", err)
		}
	}
	return nil
}
