// Package cli provides output helpers for the wilmakb command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// WriteSearchResults writes results to w in the given format.
func WriteSearchResults(w io.Writer, results []models.SearchResult, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	default:
		writeSearchResultsText(w, results)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, results []models.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	fmt.Fprintf(w, "\nFound %d result(s)\n\n", len(results))
	for i, result := range results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, result.Score)
		fmt.Fprintf(w, "Chunk: %s\n", result.ChunkID)
		if source, ok := result.Metadata["source_type"].(string); ok && source != "" {
			fmt.Fprintf(w, "Source: %s\n", source)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(result.Content, 200))
	}
}
