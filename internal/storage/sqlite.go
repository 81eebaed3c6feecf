// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/montero/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS empresas (
		nit TEXT PRIMARY KEY,
		nombre_empresa TEXT NOT NULL DEFAULT '',
		estado TEXT NOT NULL DEFAULT '',
		ciudad TEXT NOT NULL DEFAULT '',
		correo TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS usuarios (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tipoId TEXT NOT NULL,
		numeroId TEXT NOT NULL,
		primerNombre TEXT NOT NULL DEFAULT '',
		segundoNombre TEXT NOT NULL DEFAULT '',
		primerApellido TEXT NOT NULL DEFAULT '',
		segundoApellido TEXT NOT NULL DEFAULT '',
		sexoIdentificacion TEXT NOT NULL DEFAULT '',
		fechaNacimiento TEXT NOT NULL DEFAULT '',
		nacionalidad TEXT NOT NULL DEFAULT '',
		departamentoNacimiento TEXT NOT NULL DEFAULT '',
		municipioNacimiento TEXT NOT NULL DEFAULT '',
		correoElectronico TEXT NOT NULL DEFAULT '',
		telefonoCelular TEXT NOT NULL DEFAULT '',
		direccion TEXT NOT NULL DEFAULT '',
		comunaBarrio TEXT NOT NULL DEFAULT '',
		ibc REAL,
		claseRiesgoARL TEXT NOT NULL DEFAULT '',
		empresa_nit TEXT NOT NULL DEFAULT '',
		epsNombre TEXT NOT NULL DEFAULT '',
		afpNombre TEXT NOT NULL DEFAULT '',
		arlNombre TEXT NOT NULL DEFAULT '',
		ccfNombre TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (tipoId, numeroId)
	);

	CREATE INDEX IF NOT EXISTS idx_usuarios_empresa ON usuarios(empresa_nit);

	CREATE TABLE IF NOT EXISTS novedades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		id_number TEXT NOT NULL DEFAULT '',
		creation_date TEXT NOT NULL,
		update_date TEXT NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_novedades_dates ON novedades(update_date, creation_date);
	`
	_, err := db.Exec(schema)
	return err
}

// usuarioColumns lists the writable usuario columns in scan order.
var usuarioColumns = []string{
	"tipoId", "numeroId", "primerNombre", "segundoNombre", "primerApellido", "segundoApellido",
	"sexoIdentificacion", "fechaNacimiento", "nacionalidad", "departamentoNacimiento",
	"municipioNacimiento", "correoElectronico", "telefonoCelular", "direccion", "comunaBarrio",
	"ibc", "claseRiesgoARL", "empresa_nit", "epsNombre", "afpNombre", "arlNombre", "ccfNombre",
}

func usuarioValues(u *models.Usuario) []any {
	var ibc any
	if u.IBC != nil {
		ibc = *u.IBC
	}
	return []any{
		u.TipoID, u.NumeroID, u.PrimerNombre, u.SegundoNombre, u.PrimerApellido, u.SegundoApellido,
		u.SexoIdentificacion, u.FechaNacimiento, u.Nacionalidad, u.DepartamentoNacimiento,
		u.MunicipioNacimiento, u.CorreoElectronico, u.TelefonoCelular, u.Direccion, u.ComunaBarrio,
		ibc, u.ClaseRiesgoARL, u.EmpresaNIT, u.EPSNombre, u.AFPNombre, u.ARLNombre, u.CCFNombre,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUsuario(row rowScanner) (*models.Usuario, error) {
	var u models.Usuario
	var ibc sql.NullFloat64
	err := row.Scan(&u.ID,
		&u.TipoID, &u.NumeroID, &u.PrimerNombre, &u.SegundoNombre, &u.PrimerApellido, &u.SegundoApellido,
		&u.SexoIdentificacion, &u.FechaNacimiento, &u.Nacionalidad, &u.DepartamentoNacimiento,
		&u.MunicipioNacimiento, &u.CorreoElectronico, &u.TelefonoCelular, &u.Direccion, &u.ComunaBarrio,
		&ibc, &u.ClaseRiesgoARL, &u.EmpresaNIT, &u.EPSNombre, &u.AFPNombre, &u.ARLNombre, &u.CCFNombre,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ibc.Valid {
		v := ibc.Float64
		u.IBC = &v
	}
	return &u, nil
}

var selectUsuario = "SELECT id, " + strings.Join(usuarioColumns, ", ") + ", created_at, updated_at FROM usuarios"

// UpsertUsuario inserts a usuario or replaces the one with the same identifier.
func (s *SQLiteStorage) UpsertUsuario(ctx context.Context, u *models.Usuario) error {
	if u.TipoID == "" || u.NumeroID == "" {
		return fmt.Errorf("usuario requires tipoId and numeroId")
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	updates := make([]string, 0, len(usuarioColumns))
	for _, c := range usuarioColumns[2:] {
		updates = append(updates, c+" = excluded."+c)
	}
	updates = append(updates, "updated_at = excluded.updated_at")
	query := fmt.Sprintf(
		`INSERT INTO usuarios (%s, created_at, updated_at) VALUES (%s?, ?)
		 ON CONFLICT(tipoId, numeroId) DO UPDATE SET %s`,
		strings.Join(usuarioColumns, ", "),
		strings.Repeat("?, ", len(usuarioColumns)),
		strings.Join(updates, ", "),
	)
	args := append(usuarioValues(u), u.CreatedAt, u.UpdatedAt)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return s.db.QueryRowContext(ctx,
		`SELECT id FROM usuarios WHERE tipoId = ? AND numeroId = ?`, u.TipoID, u.NumeroID,
	).Scan(&u.ID)
}

// GetUsuario returns a usuario by identifier type and number.
func (s *SQLiteStorage) GetUsuario(ctx context.Context, tipoID, numeroID string) (*models.Usuario, error) {
	u, err := scanUsuario(s.db.QueryRowContext(ctx,
		selectUsuario+` WHERE tipoId = ? AND numeroId = ?`, tipoID, numeroID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("usuario %s: %w", models.UsuarioKey(tipoID, numeroID), ErrNotFound)
	}
	return u, err
}

// ListUsuarios returns usuarios ordered by surname, optionally limited to one empresa.
func (s *SQLiteStorage) ListUsuarios(ctx context.Context, empresaNIT string) ([]*models.Usuario, error) {
	query := selectUsuario
	var args []any
	if empresaNIT != "" {
		query += ` WHERE empresa_nit = ?`
		args = append(args, empresaNIT)
	}
	query += ` ORDER BY primerApellido, primerNombre, numeroId`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Usuario
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CountUsuarios returns the total number of usuarios.
func (s *SQLiteStorage) CountUsuarios(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usuarios`).Scan(&count)
	return count, err
}

// UpsertEmpresa inserts or replaces an empresa.
func (s *SQLiteStorage) UpsertEmpresa(ctx context.Context, e *models.Empresa) error {
	if e.NIT == "" {
		return fmt.Errorf("empresa requires nit")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO empresas (nit, nombre_empresa, estado, ciudad, correo) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(nit) DO UPDATE SET nombre_empresa = excluded.nombre_empresa,
		 estado = excluded.estado, ciudad = excluded.ciudad, correo = excluded.correo`,
		e.NIT, e.Nombre, e.Estado, e.Ciudad, e.Correo,
	)
	return err
}

// GetEmpresa returns an empresa by NIT.
func (s *SQLiteStorage) GetEmpresa(ctx context.Context, nit string) (*models.Empresa, error) {
	var e models.Empresa
	err := s.db.QueryRowContext(ctx,
		`SELECT nit, nombre_empresa, estado, ciudad, correo FROM empresas WHERE nit = ?`, nit,
	).Scan(&e.NIT, &e.Nombre, &e.Estado, &e.Ciudad, &e.Correo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("empresa %s: %w", nit, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEmpresas returns all empresas ordered by name.
func (s *SQLiteStorage) ListEmpresas(ctx context.Context) ([]*models.Empresa, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT nit, nombre_empresa, estado, ciudad, correo FROM empresas ORDER BY nombre_empresa, nit`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Empresa
	for rows.Next() {
		var e models.Empresa
		if err := rows.Scan(&e.NIT, &e.Nombre, &e.Estado, &e.Ciudad, &e.Correo); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// CreateCase inserts a case and sets its ID.
func (s *SQLiteStorage) CreateCase(ctx context.Context, c *models.Case) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal case: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO novedades (client, status, priority, id_number, creation_date, update_date, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Client, c.Status, c.Priority, c.IDNumber, c.CreationDate, c.UpdateDate, string(data),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func scanCase(row rowScanner) (*models.Case, error) {
	var id int64
	var data string
	if err := row.Scan(&id, &data); err != nil {
		return nil, err
	}
	var c models.Case
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal case %d: %w", id, err)
	}
	c.ID = id
	return &c, nil
}

// GetCase returns a case by ID.
func (s *SQLiteStorage) GetCase(ctx context.Context, id int64) (*models.Case, error) {
	c, err := scanCase(s.db.QueryRowContext(ctx, `SELECT id, data FROM novedades WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("case %d: %w", id, ErrNotFound)
	}
	return c, err
}

// UpdateCase replaces a stored case.
func (s *SQLiteStorage) UpdateCase(ctx context.Context, c *models.Case) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal case: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE novedades SET client = ?, status = ?, priority = ?, id_number = ?,
		 creation_date = ?, update_date = ?, data = ? WHERE id = ?`,
		c.Client, c.Status, c.Priority, c.IDNumber, c.CreationDate, c.UpdateDate, string(data), c.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("case %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

// DeleteCase removes a case by ID.
func (s *SQLiteStorage) DeleteCase(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM novedades WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("case %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListCases returns all cases, most recently updated first.
func (s *SQLiteStorage) ListCases(ctx context.Context) ([]*models.Case, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM novedades ORDER BY update_date DESC, creation_date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountCases returns the total number of cases.
func (s *SQLiteStorage) CountCases(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM novedades`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
