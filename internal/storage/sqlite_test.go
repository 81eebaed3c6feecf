package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/montero/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_Usuarios(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	ibc := 1300000.0
	u := &models.Usuario{
		TipoID:         "CC",
		NumeroID:       "1234567",
		PrimerNombre:   "Ana",
		PrimerApellido: "Gómez",
		EmpresaNIT:     "900123",
		IBC:            &ibc,
	}
	if err := store.UpsertUsuario(ctx, u); err != nil {
		t.Fatal(err)
	}
	if u.ID == 0 {
		t.Error("ID should be set")
	}

	got, err := store.GetUsuario(ctx, "CC", "1234567")
	if err != nil {
		t.Fatal(err)
	}
	if got.PrimerNombre != "Ana" || got.IBC == nil || *got.IBC != ibc {
		t.Errorf("got %+v", got)
	}

	u.PrimerNombre = "Ana María"
	u.IBC = nil
	if err := store.UpsertUsuario(ctx, u); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetUsuario(ctx, "CC", "1234567")
	if got.PrimerNombre != "Ana María" || got.IBC != nil {
		t.Errorf("upsert did not replace: %+v", got)
	}
	n, _ := store.CountUsuarios(ctx)
	if n != 1 {
		t.Errorf("expected 1 usuario after upsert, got %d", n)
	}

	_, err = store.GetUsuario(ctx, "TI", "1234567")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.UpsertUsuario(ctx, &models.Usuario{TipoID: "CC"}); err == nil {
		t.Error("expected error for missing numeroId")
	}
}

func TestSQLiteStorage_ListUsuariosByEmpresa(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	for _, u := range []*models.Usuario{
		{TipoID: "CC", NumeroID: "1", PrimerApellido: "Zuluaga", EmpresaNIT: "A"},
		{TipoID: "CC", NumeroID: "2", PrimerApellido: "Arango", EmpresaNIT: "A"},
		{TipoID: "CC", NumeroID: "3", PrimerApellido: "Mejía", EmpresaNIT: "B"},
	} {
		if err := store.UpsertUsuario(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListUsuarios(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 usuarios, got %d", len(all))
	}

	a, _ := store.ListUsuarios(ctx, "A")
	if len(a) != 2 || a[0].PrimerApellido != "Arango" {
		t.Errorf("unexpected list for empresa A: %+v", a)
	}
}

func TestSQLiteStorage_Empresas(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if err := store.UpsertEmpresa(ctx, &models.Empresa{NIT: "900123", Nombre: "Zeta SAS"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertEmpresa(ctx, &models.Empresa{NIT: "800456", Nombre: "Alfa LTDA", Ciudad: "Cali"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertEmpresa(ctx, &models.Empresa{NIT: "900123", Nombre: "Zeta S.A.S."}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetEmpresa(ctx, "900123")
	if err != nil {
		t.Fatal(err)
	}
	if got.Nombre != "Zeta S.A.S." {
		t.Errorf("got %+v", got)
	}

	list, err := store.ListEmpresas(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].NIT != "800456" {
		t.Errorf("unexpected order: %+v", list)
	}

	if _, err := store.GetEmpresa(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpsertEmpresa(ctx, &models.Empresa{}); err == nil {
		t.Error("expected error for missing nit")
	}
}

func TestSQLiteStorage_Cases(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	older := models.NewCase(&models.CaseInput{
		Client: "900123", Subject: "Afiliación", Priority: models.PriorityHigh,
		Status: models.StatusNew, Description: "Afiliar al empleado nuevo",
	}, "ana", day1)
	newer := models.NewCase(&models.CaseInput{
		Client: "800456", Subject: "Retiro", Priority: models.PriorityLow,
		Status: models.StatusPending, Description: "Retiro voluntario del empleado",
	}, "ana", day2)

	for _, c := range []*models.Case{older, newer} {
		if err := store.CreateCase(ctx, c); err != nil {
			t.Fatal(err)
		}
		if c.ID == 0 {
			t.Fatal("ID should be set")
		}
	}

	got, err := store.GetCase(ctx, older.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Subject != "Afiliación" || len(got.History) != 1 || got.ID != older.ID {
		t.Errorf("got %+v", got)
	}

	list, err := store.ListCases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	// touching the older case moves it to the front
	older.UpdateDate = day2.AddDate(0, 0, 1).Format(models.DateLayout)
	older.Status = models.StatusInProgress
	if err := store.UpdateCase(ctx, older); err != nil {
		t.Fatal(err)
	}
	list, _ = store.ListCases(ctx)
	if list[0].ID != older.ID || list[0].Status != models.StatusInProgress {
		t.Errorf("update not reflected: %+v", list[0])
	}

	if err := store.DeleteCase(ctx, newer.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteCase(ctx, newer.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := store.GetCase(ctx, newer.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateCase(ctx, &models.Case{ID: 999}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing case, got %v", err)
	}

	n, _ := store.CountCases(ctx)
	if n != 1 {
		t.Errorf("expected 1 case, got %d", n)
	}
}

func TestFootprint(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "portal.db")
	if err := os.WriteFile(db, make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	idx := filepath.Join(dir, "index")
	if err := os.MkdirAll(filepath.Join(idx, "store"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(idx, "store", "seg"), make([]byte, 50), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := Footprint(db, idx, filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 150 {
		t.Errorf("Footprint = %d, want 150", n)
	}
}
