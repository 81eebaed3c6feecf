package novedades

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/montero/internal/lookup"
	"github.com/hyperjump/montero/internal/models"
	"github.com/hyperjump/montero/internal/validation"
)

// API is the portal surface the store needs. *Client implements it.
type API interface {
	List(ctx context.Context) ([]*models.Case, error)
	Create(ctx context.Context, in *models.CaseInput) (*models.Case, error)
	Update(ctx context.Context, id int64, patch *models.CasePatch) (*models.Case, error)
	Delete(ctx context.Context, id int64) error
	Empresas(ctx context.Context) ([]*models.Empresa, error)
	Usuarios(ctx context.Context, empresaNIT string) ([]lookup.Entity, error)
}

// Store is the single in-memory state of the novedades screen: the case list
// and the empresa and usuario caches. All methods are safe for concurrent use.
type Store struct {
	api    API
	logger *zap.Logger

	mu       sync.RWMutex
	cases    []*models.Case
	empresas []*models.Empresa
	usuarios []lookup.Entity
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates an empty store backed by api.
func NewStore(api API, opts ...StoreOption) *Store {
	s := &Store{api: api, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches cases, empresas, and usuarios concurrently. Only a failure to
// list cases is fatal; the caches fall back to empty.
func (s *Store) Load(ctx context.Context) error {
	var (
		cases    []*models.Case
		empresas []*models.Empresa
		usuarios []lookup.Entity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cases, err = s.api.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		if empresas, err = s.api.Empresas(gctx); err != nil {
			s.logger.Warn("empresas unavailable", zap.Error(err))
			empresas = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if usuarios, err = s.api.Usuarios(gctx, ""); err != nil {
			s.logger.Warn("usuarios unavailable", zap.Error(err))
			usuarios = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load novedades: %w", err)
	}

	s.mu.Lock()
	s.cases = validCases(cases)
	s.empresas = empresas
	s.usuarios = usuarios
	s.mu.Unlock()

	s.logger.Info("novedades loaded",
		zap.Int("cases", len(cases)),
		zap.Int("empresas", len(empresas)),
		zap.Int("usuarios", len(usuarios)))
	return nil
}

func validCases(cases []*models.Case) []*models.Case {
	out := make([]*models.Case, 0, len(cases))
	for _, c := range cases {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Cases returns a snapshot of the case list.
func (s *Store) Cases() []*models.Case {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Case(nil), s.cases...)
}

// Filter returns the cases with the given priority; an empty priority matches all.
func (s *Store) Filter(priority string) []*models.Case {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Case, 0, len(s.cases))
	for _, c := range s.cases {
		if priority == "" || c.Priority == priority {
			out = append(out, c)
		}
	}
	return out
}

// Get returns the case with id.
func (s *Store) Get(id int64) (*models.Case, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cases {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Create validates in, stores it through the API, and puts the saved case at
// the top of the list.
func (s *Store) Create(ctx context.Context, in *models.CaseInput) (*models.Case, error) {
	if err := validation.ValidateCase(in); err != nil {
		return nil, err
	}
	c, err := s.api.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cases = append([]*models.Case{c}, s.cases...)
	s.mu.Unlock()
	return c, nil
}

// Update applies patch to case id and replaces the cached copy.
func (s *Store) Update(ctx context.Context, id int64, patch *models.CasePatch) (*models.Case, error) {
	if err := validation.ValidatePatch(patch); err != nil {
		return nil, err
	}
	c, err := s.api.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if c == nil {
		// nothing changed server side
		cached, _ := s.Get(id)
		return cached, nil
	}
	s.replace(c)
	return c, nil
}

// AddComment appends comment to the history of case id.
func (s *Store) AddComment(ctx context.Context, id int64, comment string) (*models.Case, error) {
	return s.Update(ctx, id, &models.CasePatch{NewComment: comment})
}

// Close marks case id as resolved.
func (s *Store) Close(ctx context.Context, id int64) (*models.Case, error) {
	return s.Update(ctx, id, models.ClosePatch())
}

// Delete removes case id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.api.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.cases {
		if c.ID == id {
			s.cases = append(s.cases[:i], s.cases[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) replace(updated *models.Case) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.cases {
		if c.ID == updated.ID {
			s.cases[i] = updated
			return
		}
	}
	s.cases = append([]*models.Case{updated}, s.cases...)
}

// FindUsuario returns the usuario with numeroId from the cache. On a miss it
// refreshes the cache once from the API.
func (s *Store) FindUsuario(ctx context.Context, numeroID string) (lookup.Entity, bool) {
	if u, ok := s.cachedUsuario(numeroID); ok {
		return u, true
	}
	usuarios, err := s.api.Usuarios(ctx, "")
	if err != nil {
		s.logger.Warn("usuario refresh failed", zap.Error(err))
		return nil, false
	}
	s.mu.Lock()
	s.usuarios = usuarios
	s.mu.Unlock()
	return s.cachedUsuario(numeroID)
}

func (s *Store) cachedUsuario(numeroID string) (lookup.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.usuarios {
		if fmt.Sprint(u["numeroId"]) == numeroID {
			return u, true
		}
	}
	return nil, false
}

// FindEmpresa returns the cached empresa with nit.
func (s *Store) FindEmpresa(nit string) (*models.Empresa, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.empresas {
		if e.NIT == nit {
			return e, true
		}
	}
	return nil, false
}

// Empresas returns the cached empresas.
func (s *Store) Empresas() []*models.Empresa {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Empresa(nil), s.empresas...)
}

// Stats computes the dashboard counters as of now.
func (s *Store) Stats(now time.Time) models.CaseStats {
	return models.ComputeStats(s.Cases(), now)
}
