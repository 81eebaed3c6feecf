package novedades_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/montero/internal/autocomplete"
	"github.com/hyperjump/montero/internal/config"
	"github.com/hyperjump/montero/internal/lookup"
	"github.com/hyperjump/montero/internal/models"
	"github.com/hyperjump/montero/internal/novedades"
	"github.com/hyperjump/montero/internal/server"
	"github.com/hyperjump/montero/internal/storage"
)

var today = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// portal runs the real API over a temporary database.
func portal(t *testing.T) (*httptest.Server, storage.Storage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(dir + "/portal.db")
	require.NoError(t, err)
	cfg := &config.Config{}
	cfg.Storage.DatabasePath = dir + "/portal.db"
	cfg.Storage.DirectoryIndexPath = dir + "/directory"
	config.ApplyDefaults(cfg)
	srv := server.NewServer(store, cfg, zap.NewNop(), server.WithClock(func() time.Time { return today }))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		store.Close()
	})
	return ts, store
}

func input(priority string) *models.CaseInput {
	return &models.CaseInput{
		Client:      "Acme SAS",
		Subject:     "Incapacidad",
		Priority:    priority,
		Status:      models.StatusNew,
		Description: "Radicar incapacidad de tres días",
	}
}

func TestStore_Lifecycle(t *testing.T) {
	ts, _ := portal(t)
	ctx := context.Background()
	client := novedades.NewClient(ts.URL, novedades.WithHTTPClient(ts.Client()), novedades.WithUser("analista"))
	s := novedades.NewStore(client)
	require.NoError(t, s.Load(ctx))
	assert.Empty(t, s.Cases())

	first, err := s.Create(ctx, input(models.PriorityCritical))
	require.NoError(t, err)
	second, err := s.Create(ctx, input(models.PriorityLow))
	require.NoError(t, err)

	cases := s.Cases()
	require.Len(t, cases, 2)
	assert.Equal(t, second.ID, cases[0].ID, "new cases go first")
	assert.Len(t, s.Filter(models.PriorityCritical), 1)
	assert.Len(t, s.Filter(""), 2)

	commented, err := s.AddComment(ctx, first.ID, "llamar al empleado")
	require.NoError(t, err)
	require.Len(t, commented.History, 2)
	assert.Equal(t, "analista", commented.History[1].User)

	closed, err := s.Close(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, closed.Status)
	assert.Equal(t, models.PriorityLow, closed.Priority)

	unchanged, err := s.Update(ctx, first.ID, &models.CasePatch{})
	require.NoError(t, err)
	assert.Equal(t, closed.ID, unchanged.ID)

	want := models.CaseStats{Total: 2, Critical: 0, Today: 2, Resolved: 1, ResolvedRate: "50%"}
	if diff := cmp.Diff(want, s.Stats(today)); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, s.Delete(ctx, second.ID))
	assert.Len(t, s.Cases(), 1)

	// a fresh store sees the server's view
	other := novedades.NewStore(client)
	require.NoError(t, other.Load(ctx))
	require.Len(t, other.Cases(), 1)
	assert.Equal(t, models.StatusResolved, other.Cases()[0].Status)
}

func TestStore_CreateValidatesLocally(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	s := novedades.NewStore(novedades.NewClient(ts.URL))
	_, err := s.Create(context.Background(), input("urgente"))
	require.Error(t, err)
	assert.Zero(t, calls)
}

func TestStore_APIErrors(t *testing.T) {
	ts, _ := portal(t)
	s := novedades.NewStore(novedades.NewClient(ts.URL))

	err := s.Delete(context.Background(), 404)
	var apiErr *novedades.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "case not found", apiErr.Message)
}

func TestStore_LoadDegradesCaches(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == novedades.CasesPath {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"id":7,"priority":"alta","status":"Nuevo"},null]`))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	s := novedades.NewStore(novedades.NewClient(ts.URL))
	require.NoError(t, s.Load(context.Background()))
	require.Len(t, s.Cases(), 1)
	assert.Empty(t, s.Empresas())
}

func TestStore_LoadFailsWithoutCases(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"down"}`, http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	s := novedades.NewStore(novedades.NewClient(ts.URL))
	assert.Error(t, s.Load(context.Background()))
}

func TestStore_FindUsuarioAndEmpresa(t *testing.T) {
	ts, store := portal(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertEmpresa(ctx, &models.Empresa{NIT: "900123456", Nombre: "Acme SAS"}))

	s := novedades.NewStore(novedades.NewClient(ts.URL))
	require.NoError(t, s.Load(ctx))

	e, ok := s.FindEmpresa("900123456")
	require.True(t, ok)
	assert.Equal(t, "Acme SAS", e.Nombre)

	_, ok = s.FindUsuario(ctx, "12345678")
	assert.False(t, ok)

	// added after Load: found through the refresh
	require.NoError(t, store.UpsertUsuario(ctx, &models.Usuario{TipoID: "CC", NumeroID: "12345678", PrimerNombre: "Ana"}))
	u, ok := s.FindUsuario(ctx, "12345678")
	require.True(t, ok)
	assert.Equal(t, "Ana", u["primerNombre"])
}

func TestNewCaseSearch(t *testing.T) {
	ts, store := portal(t)
	ctx := context.Background()
	ibc := 2500000.0
	require.NoError(t, store.UpsertUsuario(ctx, &models.Usuario{
		TipoID:              "CE",
		NumeroID:            "7654321",
		PrimerNombre:        "Luis",
		PrimerApellido:      "Pérez",
		SegundoApellido:     "Ruiz",
		SexoIdentificacion:  "M",
		MunicipioNacimiento: "Cali",
		IBC:                 &ibc,
	}))

	form := autocomplete.NewMemoryForm(novedades.IDTypeField, novedades.IDNumberField)
	for _, m := range novedades.NewCaseMapping() {
		form.AddField(m.Selector[1:])
	}
	var got lookup.Entity
	box := autocomplete.NewMessageBox(0)
	client := lookup.NewCasesClient(lookup.WithBaseURL(ts.URL), lookup.WithHTTPClient(ts.Client()))
	engine := novedades.NewCaseSearch(form, client, autocomplete.Config{
		OnSuccess: func(e lookup.Entity) { got = e },
	}, autocomplete.WithNotifier(box))
	require.False(t, engine.Inert())

	form.Type(novedades.IDTypeField, "CE")
	form.Type(novedades.IDNumberField, "7654321")
	require.Equal(t, autocomplete.StateFilled, engine.Search(ctx))
	require.NotNil(t, got)

	values := map[string]string{}
	for _, f := range form.Fields() {
		values[f.ID] = f.Value
	}
	assert.Equal(t, "Luis", values["firstName"])
	assert.Equal(t, "Pérez Ruiz", values["lastName"])
	assert.Equal(t, "M", values["gender"])
	assert.Equal(t, "Cali", values["city"])
	assert.Equal(t, "2500000", values["ibc"])
	assert.Empty(t, values["email"])
	assert.True(t, form.Locked("#lastName"))
	assert.False(t, form.Locked("#email"))
	_, shown := box.Current()
	assert.True(t, shown)

	novedades.ResetCaseForm(engine)
	for _, f := range form.Fields() {
		assert.Empty(t, f.Value, f.ID)
		assert.False(t, form.Locked(f.ID), f.ID)
	}
	_, shown = box.Current()
	assert.False(t, shown)
	assert.Equal(t, autocomplete.StateIdle, engine.State())
	assert.Empty(t, engine.Autocompleted())
}
