// Package storage defines the persistence interface for usuarios, empresas, and cases.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/montero/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines portal persistence operations.
type Storage interface {
	// Usuario operations
	UpsertUsuario(ctx context.Context, u *models.Usuario) error
	GetUsuario(ctx context.Context, tipoID, numeroID string) (*models.Usuario, error)
	ListUsuarios(ctx context.Context, empresaNIT string) ([]*models.Usuario, error)
	CountUsuarios(ctx context.Context) (int64, error)

	// Empresa operations
	UpsertEmpresa(ctx context.Context, e *models.Empresa) error
	GetEmpresa(ctx context.Context, nit string) (*models.Empresa, error)
	ListEmpresas(ctx context.Context) ([]*models.Empresa, error)

	// Case operations
	CreateCase(ctx context.Context, c *models.Case) error
	GetCase(ctx context.Context, id int64) (*models.Case, error)
	UpdateCase(ctx context.Context, c *models.Case) error
	DeleteCase(ctx context.Context, id int64) error
	ListCases(ctx context.Context) ([]*models.Case, error)
	CountCases(ctx context.Context) (int64, error)

	Close() error
}
