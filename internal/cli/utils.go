// Package cli provides CLI output utilities for Meibo.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/meibo/internal/models"
	"github.com/hyperjump/meibo/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	source := "local cache"
	if response.UsedRemote {
		source = "local cache + remote directory"
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (%s)\n\n",
		response.Total, response.QueryTimeMs, source)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	e := result.Entry
	if e == nil {
		return
	}
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "[%s] #%d | %s", result.ResultType, result.Position+1, e.Name)
	if e.Nickname != "" {
		fmt.Fprintf(w, " (@%s)", e.Nickname)
	}
	fmt.Fprintln(w)
	if e.Kind == models.KindChannel {
		fmt.Fprintf(w, "Channel: %s\n", e.ID)
	} else {
		fmt.Fprintf(w, "Person: %s\n", e.ID)
	}
	if e.Email != "" {
		fmt.Fprintf(w, "Email: %s\n", e.Email)
	}
	if e.Department != "" {
		fmt.Fprintf(w, "Department: %s\n", e.Department)
	}
	if len(e.SharedChannels) > 0 {
		fmt.Fprintf(w, "Shared channels: %d\n", len(e.SharedChannels))
	}
	if e.Bio != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(e.Bio, 200))
	}
	fmt.Fprintln(w)
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}
