// Package directory indexes usuarios by name with Bleve so the portal can
// search people without knowing their identifier.
package directory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/montero/internal/models"
)

// DefaultFuzziness is the edit distance used by fuzzy queries.
const DefaultFuzziness = 2

// Hit is a single search result; ID is the usuario key "tipo:numero".
type Hit struct {
	ID    string
	Score float64
}

// Query describes a name search.
type Query struct {
	Text       string
	EmpresaNIT string
	Fuzzy      bool
	Fuzziness  int
	Limit      int
}

// entry is the indexed form of a usuario.
type entry struct {
	Name    string `json:"name"`
	Numero  string `json:"numero"`
	Empresa string `json:"empresa"`
}

// Index is a Bleve-backed usuario directory.
type Index struct {
	index bleve.Index
}

// Open creates or opens a directory index at path. An empty path creates an
// in-memory index.
func Open(path string) (*Index, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", nameMapping)
	docMapping.AddFieldMappingsAt("numero", bleve.NewKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("empresa", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("usuario", docMapping)
	im.DefaultType = "usuario"
	im.DefaultMapping = docMapping

	if path == "" {
		idx, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create directory index: %w", err)
		}
		return &Index{index: idx}, nil
	}

	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open directory index: %w", openErr)
		}
		return &Index{index: idx}, nil
	}

	idx, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory index: %w", err)
	}
	return &Index{index: idx}, nil
}

// Put indexes or reindexes a usuario.
func (d *Index) Put(ctx context.Context, u *models.Usuario) error {
	return d.index.Index(u.Key(), entry{
		Name:    u.FullName(),
		Numero:  u.NumeroID,
		Empresa: u.EmpresaNIT,
	})
}

// PutAll indexes usuarios in one batch.
func (d *Index) PutAll(ctx context.Context, usuarios []*models.Usuario) error {
	batch := d.index.NewBatch()
	for _, u := range usuarios {
		if err := batch.Index(u.Key(), entry{Name: u.FullName(), Numero: u.NumeroID, Empresa: u.EmpresaNIT}); err != nil {
			return fmt.Errorf("failed to batch usuario %s: %w", u.Key(), err)
		}
	}
	return d.index.Batch(batch)
}

// Delete removes a usuario from the index.
func (d *Index) Delete(ctx context.Context, key string) error {
	return d.index.Delete(key)
}

// Search runs a name query. Every term must match; fuzzy queries tolerate
// typos up to the configured edit distance.
func (d *Index) Search(ctx context.Context, q Query) ([]Hit, error) {
	terms := strings.Fields(strings.ToLower(q.Text))
	if len(terms) == 0 {
		return nil, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	fuzziness := q.Fuzziness
	if fuzziness <= 0 {
		fuzziness = DefaultFuzziness
	}

	clauses := make([]blevequery.Query, 0, len(terms)+1)
	for _, term := range terms {
		if q.Fuzzy {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzziness)
			fq.SetField("name")
			clauses = append(clauses, fq)
			continue
		}
		mq := bleve.NewMatchQuery(term)
		mq.SetField("name")
		// numbers are matched against the identifier as well
		nq := bleve.NewTermQuery(term)
		nq.SetField("numero")
		clauses = append(clauses, bleve.NewDisjunctionQuery(mq, nq))
	}
	if q.EmpresaNIT != "" {
		eq := bleve.NewTermQuery(q.EmpresaNIT)
		eq.SetField("empresa")
		clauses = append(clauses, eq)
	}

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(clauses...))
	req.Size = limit
	results, err := d.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("directory search failed: %w", err)
	}
	out := make([]Hit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = Hit{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Count returns the number of indexed usuarios.
func (d *Index) Count() (uint64, error) {
	return d.index.DocCount()
}

// Close closes the index.
func (d *Index) Close() error {
	return d.index.Close()
}

// nameTerms returns every distinct term of the name field.
func (d *Index) nameTerms() ([]string, error) {
	dict, err := d.index.FieldDict("name")
	if err != nil {
		return nil, err
	}
	defer dict.Close()

	var terms []string
	for {
		de, err := dict.Next()
		if err != nil {
			return nil, err
		}
		if de == nil {
			return terms, nil
		}
		terms = append(terms, de.Term)
	}
}
