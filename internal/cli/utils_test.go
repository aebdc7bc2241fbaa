package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/meibo/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:       "ana",
		Total:       2,
		UsedRemote:  true,
		QueryTimeMs: 42,
		Results: []*models.SearchResult{
			{
				Entry: &models.DirectoryEntry{
					ID:             "u1",
					Kind:           models.KindPerson,
					Name:           "Ana Gomez",
					Nickname:       "ana.g",
					Email:          "ana@company.com",
					Department:     "engineering",
					Bio:            "works on search infra",
					SharedChannels: []string{"c1", "c2"},
				},
				ResultType: models.ResultPinned,
				Position:   0,
				UsedRemote: true,
				Timestamp:  time.Now(),
			},
			{
				Entry: &models.DirectoryEntry{
					ID:   "c9",
					Kind: models.KindChannel,
					Name: "ana-support",
				},
				ResultType: models.ResultRemote,
				Position:   1,
				UsedRemote: true,
			},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "ana" || decoded.Total != 2 || !decoded.UsedRemote {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.Results) != 2 || decoded.Results[0].Entry.ID != "u1" {
		t.Errorf("decoded results: %+v", decoded.Results)
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Found 2 results in 42ms",
		"remote directory",
		"Ana Gomez",
		"(@ana.g)",
		"Email: ana@company.com",
		"Department: engineering",
		"Shared channels: 2",
		"Channel: c9",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResults_TextLocalOnly(t *testing.T) {
	resp := &models.SearchResponse{Query: "bob", Total: 0, QueryTimeMs: 3}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Found 0 results") {
		t.Errorf("text output: %s", out)
	}
	if strings.Contains(out, "remote directory") {
		t.Errorf("local-only search should not mention the remote directory:\n%s", out)
	}
}

func TestWriteSearchResults_NilEntrySkipped(t *testing.T) {
	resp := &models.SearchResponse{
		Query:   "x",
		Total:   1,
		Results: []*models.SearchResult{{Entry: nil}},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
}
