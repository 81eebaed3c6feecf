// Package importer loads usuarios and empresas from .xlsx workbooks into
// storage and the directory index.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/montero/internal/directory"
	"github.com/hyperjump/montero/internal/models"
	"github.com/hyperjump/montero/internal/storage"
)

// Sheet names looked up in a workbook. When no sheet is named UsuariosSheet
// the first sheet holds usuarios.
const (
	UsuariosSheet = "usuarios"
	EmpresasSheet = "empresas"
)

// SkippedRow is a spreadsheet row that was not imported. Row is 1-based as
// shown by spreadsheet tools.
type SkippedRow struct {
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Report summarizes one import.
type Report struct {
	BatchID        string       `json:"batch_id"`
	File           string       `json:"file"`
	Usuarios       int          `json:"usuarios"`
	Empresas       int          `json:"empresas"`
	Skipped        []SkippedRow `json:"skipped,omitempty"`
	UnknownColumns []string     `json:"unknown_columns,omitempty"`
}

// Importer writes parsed rows to storage and, when set, the directory.
type Importer struct {
	store     storage.Storage
	directory *directory.Index
	logger    *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithDirectory also indexes imported usuarios by name.
func WithDirectory(d *directory.Index) Option {
	return func(im *Importer) { im.directory = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(im *Importer) {
		if l != nil {
			im.logger = l
		}
	}
}

// New creates an importer.
func New(store storage.Storage, opts ...Option) *Importer {
	im := &Importer{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportFile imports the workbook at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f, filepath.Base(path))
}

// Import reads a workbook from r and upserts its rows.
func (im *Importer) Import(ctx context.Context, r io.Reader, name string) (*Report, error) {
	book, err := Parse(r)
	if err != nil {
		return nil, err
	}
	report := &Report{
		BatchID:        uuid.New().String(),
		File:           name,
		Skipped:        book.Skipped,
		UnknownColumns: book.UnknownColumns,
	}

	for _, e := range book.Empresas {
		if err := im.store.UpsertEmpresa(ctx, e); err != nil {
			return report, fmt.Errorf("failed to store empresa %s: %w", e.NIT, err)
		}
		report.Empresas++
	}
	for _, u := range book.Usuarios {
		if err := im.store.UpsertUsuario(ctx, u); err != nil {
			return report, fmt.Errorf("failed to store usuario %s: %w", u.Key(), err)
		}
		report.Usuarios++
	}
	if im.directory != nil && len(book.Usuarios) > 0 {
		if err := im.directory.PutAll(ctx, book.Usuarios); err != nil {
			return report, fmt.Errorf("failed to index usuarios: %w", err)
		}
	}

	im.logger.Info("workbook imported",
		zap.String("batch", report.BatchID),
		zap.String("file", name),
		zap.Int("usuarios", report.Usuarios),
		zap.Int("empresas", report.Empresas),
		zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// Workbook is the parsed content of an import file.
type Workbook struct {
	Usuarios       []*models.Usuario
	Empresas       []*models.Empresa
	Skipped        []SkippedRow
	UnknownColumns []string
}

// Parse reads usuarios and empresas from an .xlsx stream. Each sheet's first
// row names the columns.
func Parse(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	usuariosSheet, empresasSheet := sheets[0], ""
	for _, s := range sheets {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case UsuariosSheet:
			usuariosSheet = s
		case EmpresasSheet:
			empresasSheet = s
		}
	}
	if usuariosSheet == empresasSheet {
		usuariosSheet = ""
	}

	book := &Workbook{}
	if usuariosSheet != "" {
		rows, err := f.GetRows(usuariosSheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", usuariosSheet, err)
		}
		parseUsuarios(book, usuariosSheet, rows)
	}
	if empresasSheet != "" {
		rows, err := f.GetRows(empresasSheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", empresasSheet, err)
		}
		parseEmpresas(book, empresasSheet, rows)
	}
	return book, nil
}

func header(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		cols[i] = strings.TrimSpace(c)
	}
	return cols
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseUsuarios(book *Workbook, sheet string, rows [][]string) {
	cols := header(rows)
	scratch := &models.Usuario{}
	for _, c := range cols {
		if c != "" && !scratch.SetColumn(c, "") {
			book.UnknownColumns = append(book.UnknownColumns, c)
		}
	}

	for i, row := range rows[min(1, len(rows)):] {
		line := i + 2
		if blank(row) {
			continue
		}
		u := &models.Usuario{}
		var reason string
		for j, c := range cols {
			v := cell(row, j)
			if c == "" || v == "" {
				continue
			}
			if !u.SetColumn(c, v) && c == "ibc" {
				reason = fmt.Sprintf("invalid ibc %q", v)
			}
		}
		if reason == "" && (u.TipoID == "" || u.NumeroID == "") {
			reason = "missing tipoId or numeroId"
		}
		if reason != "" {
			book.Skipped = append(book.Skipped, SkippedRow{Sheet: sheet, Row: line, Reason: reason})
			continue
		}
		book.Usuarios = append(book.Usuarios, u)
	}
}

func parseEmpresas(book *Workbook, sheet string, rows [][]string) {
	cols := header(rows)
	for i, row := range rows[min(1, len(rows)):] {
		line := i + 2
		if blank(row) {
			continue
		}
		e := &models.Empresa{}
		for j, c := range cols {
			v := cell(row, j)
			switch c {
			case "nit":
				e.NIT = v
			case "nombre_empresa":
				e.Nombre = v
			case "estado":
				e.Estado = v
			case "ciudad":
				e.Ciudad = v
			case "correo":
				e.Correo = v
			}
		}
		if e.NIT == "" {
			book.Skipped = append(book.Skipped, SkippedRow{Sheet: sheet, Row: line, Reason: "missing nit"})
			continue
		}
		book.Empresas = append(book.Empresas, e)
	}
}
