package directory

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/meibo/internal/models"
)

// indexEntry is the subset of a directory entry that gets text-indexed.
type indexEntry struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Nickname   string `json:"nickname"`
	Email      string `json:"email"`
	Bio        string `json:"bio"`
	Department string `json:"department"`
}

// IndexHit is a single scored hit from the entry index.
type IndexHit struct {
	ID    string
	Score float64
}

// EntryIndex is a Bleve text index over directory entries, giving scored
// matches across name, nickname, email, bio, and department.
type EntryIndex struct {
	index bleve.Index
}

// NewEntryIndex creates or opens a Bleve index at path. An existing index is
// opened and reused; if the mapping changes in code, remove the index
// directory to force a rebuild.
func NewEntryIndex(path string) (*EntryIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so short name and
	// role queries match the exact word.
	textFieldMapping.Analyzer = standard.Name
	for _, field := range []string{"name", "nickname", "email", "bio", "department"} {
		docMapping.AddFieldMappingsAt(field, textFieldMapping)
	}
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("kind", keywordFieldMapping)
	im.AddDocumentMapping("entry", docMapping)
	im.DefaultType = "entry"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open entry index: %w", openErr)
		}
		return &EntryIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry index: %w", err)
	}
	return &EntryIndex{index: index}, nil
}

// Index indexes an entry by id, replacing any previous version.
func (x *EntryIndex) Index(ctx context.Context, e *models.DirectoryEntry) error {
	return x.index.Index(e.ID, &indexEntry{
		ID:         e.ID,
		Kind:       string(e.Kind),
		Name:       e.Name,
		Nickname:   e.Nickname,
		Email:      e.Email,
		Bio:        e.Bio,
		Department: e.Department,
	})
}

// Search runs a match query over all indexed fields and returns up to limit
// scored hits.
func (x *EntryIndex) Search(ctx context.Context, query string, limit int) ([]*IndexHit, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := x.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("entry index search failed: %w", err)
	}
	out := make([]*IndexHit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &IndexHit{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes an entry from the index.
func (x *EntryIndex) Delete(ctx context.Context, id string) error {
	return x.index.Delete(id)
}

// DocCount returns the total number of indexed entries.
func (x *EntryIndex) DocCount() (uint64, error) {
	return x.index.DocCount()
}

// Close closes the underlying Bleve index.
func (x *EntryIndex) Close() error {
	return x.index.Close()
}
