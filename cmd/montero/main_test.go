package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/montero/internal/autocomplete"
	"github.com/hyperjump/montero/internal/cli"
	"github.com/hyperjump/montero/internal/config"
	"github.com/hyperjump/montero/internal/dom"
	"github.com/hyperjump/montero/internal/models"
	"github.com/hyperjump/montero/internal/novedades"
	"github.com/hyperjump/montero/internal/server"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after positional are moved first",
			args:     []string{"12345678", "-type", "CE"},
			expected: []string{"-type", "CE", "12345678"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-type", "CE", "12345678"},
			expected: []string{"-type", "CE", "12345678"},
		},
		{
			name:     "positional only returns unchanged",
			args:     []string{"12345678"},
			expected: []string{"12345678"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "subcommand then flags",
			args:     []string{"comment", "12", "-user", "ana"},
			expected: []string{"-user", "ana", "comment", "12"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLoadConfigPrefersLocalFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9191\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, path, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if filepath.Base(path) != "config.yaml" || cfg.Server.Port != 9191 {
		t.Errorf("loaded %s with port %d, want local config.yaml with port 9191", path, cfg.Server.Port)
	}
}

func TestLoadConfigOrDefaults(t *testing.T) {
	cfg := loadConfigOrDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	if cfg.Autocomplete.MinDigits != 5 || cfg.Portal.BaseURL != "http://localhost:8080" {
		t.Errorf("defaults not applied: %+v", cfg.Autocomplete)
	}
}

func TestWriteInitialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")
	if _, err := writeInitialConfig(path, false); err != nil {
		t.Fatalf("writeInitialConfig: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if _, err := writeInitialConfig(path, false); err == nil {
		t.Error("expected an error when the config exists")
	}
	if _, err := writeInitialConfig(path, true); err != nil {
		t.Errorf("force overwrite: %v", err)
	}
}

func TestEngineConfig(t *testing.T) {
	ac := config.AutocompleteConfig{MinDigits: 7, DebounceMS: 150, AutoLock: autocomplete.Bool(false)}
	got := engineConfig(&ac)
	if got.MinDigits != 7 || got.Debounce != 150*time.Millisecond {
		t.Errorf("got MinDigits=%d Debounce=%s", got.MinDigits, got.Debounce)
	}
	if got.AutoLockOrDefault() {
		t.Error("auto lock should follow the config")
	}
	if !got.ShowMessagesOrDefault() {
		t.Error("messages default to shown")
	}
}

func testPortal(t *testing.T) (*httptest.Server, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.DatabasePath = filepath.Join(dir, "db", "portal.db")
	cfg.Storage.DirectoryIndexPath = filepath.Join(dir, "indices", "directory")
	config.ApplyDefaults(cfg)

	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	ibc := 1800000.0
	u := &models.Usuario{
		TipoID:             "CC",
		NumeroID:           "12345678",
		PrimerNombre:       "Ana",
		PrimerApellido:     "Gómez",
		SexoIdentificacion: "F",
		IBC:                &ibc,
	}
	if err := components.Storage.UpsertUsuario(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	srv := server.NewServer(components.Storage, cfg, zap.NewNop(), server.WithDirectory(components.Directory))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		components.Close()
	})
	cfg.Portal.BaseURL = ts.URL
	return ts, cfg
}

func TestRunLookupOnce(t *testing.T) {
	ts, cfg := testPortal(t)
	ctx := context.Background()

	res, err := runLookupOnce(ctx, cfg, lookupOptions{ServerURL: ts.URL, Type: "CC", Number: "12345678", Timeout: time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("runLookupOnce: %v", err)
	}
	if res.State != autocomplete.StateFilled {
		t.Fatalf("state = %s", res.State)
	}
	if res.Fields["primerNombre"] != "Ana" || res.Fields["ibc"] != "1800000" {
		t.Errorf("fields = %v", res.Fields)
	}
	if _, ok := res.Fields["numeroDocumento"]; ok {
		t.Error("identifier field should not be reported")
	}
	if res.Message == "" {
		t.Error("expected the found message")
	}

	res, err = runLookupOnce(ctx, cfg, lookupOptions{ServerURL: ts.URL, Type: "CC", Number: "12345678", Simplified: true, Timeout: time.Second}, zap.NewNop())
	if err != nil || res.State != autocomplete.StateFilled {
		t.Fatalf("simplified lookup: state=%v err=%v", res, err)
	}

	res, err = runLookupOnce(ctx, cfg, lookupOptions{ServerURL: ts.URL, Type: "CC", Number: "12345678", CaseForm: true, Timeout: time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("case form lookup: %v", err)
	}
	if res.Fields["firstName"] != "Ana" || res.Fields["gender"] != "F" {
		t.Errorf("case form fields = %v", res.Fields)
	}
	if _, ok := res.Fields[novedades.IDNumberField]; ok {
		t.Error("identifier field should not be reported")
	}

	res, err = runLookupOnce(ctx, cfg, lookupOptions{ServerURL: ts.URL, Type: "CC", Number: "99999999", Timeout: time.Second}, zap.NewNop())
	if err != nil || res.State != autocomplete.StateNotFound {
		t.Fatalf("missing usuario: res=%v err=%v", res, err)
	}

	if _, err := runLookupOnce(ctx, cfg, lookupOptions{ServerURL: ts.URL, Type: "CC", Number: "123", Timeout: time.Second}, zap.NewNop()); err == nil {
		t.Error("expected an error for a short identifier")
	}
}

func TestRunCasesCommand(t *testing.T) {
	ts, _ := testPortal(t)
	ctx := context.Background()
	client := novedades.NewClient(ts.URL, novedades.WithUser("ana"))

	seed := novedades.NewStore(client)
	c, err := seed.Create(ctx, &models.CaseInput{
		Client:      "Acme SAS",
		Subject:     "Retiro",
		Priority:    models.PriorityCritical,
		Status:      models.StatusNew,
		Description: "Novedad de retiro del empleado",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := strconv.FormatInt(c.ID, 10)
	now := time.Now()

	run := func(args ...string) string {
		t.Helper()
		var buf bytes.Buffer
		if err := runCasesCommand(ctx, &buf, novedades.NewStore(client), args, "", now, cli.OutputText); err != nil {
			t.Fatalf("cases %v: %v", args, err)
		}
		return buf.String()
	}

	if out := run(); !strings.Contains(out, "Retiro") {
		t.Errorf("list output:\n%s", out)
	}
	if out := run("stats"); !strings.Contains(out, "Critical: 1") {
		t.Errorf("stats output:\n%s", out)
	}
	if out := run("comment", id, "llamar", "mañana"); !strings.Contains(out, "Retiro") {
		t.Errorf("comment output:\n%s", out)
	}
	if out := run("close", id); !strings.Contains(out, models.StatusResolved) {
		t.Errorf("close output:\n%s", out)
	}
	if out := run("delete", id); !strings.Contains(out, "Deleted case") {
		t.Errorf("delete output:\n%s", out)
	}

	var buf bytes.Buffer
	if err := runCasesCommand(ctx, &buf, novedades.NewStore(client), []string{"close"}, "", now, cli.OutputText); err == nil {
		t.Error("expected an error without an id")
	}
	if err := runCasesCommand(ctx, &buf, novedades.NewStore(client), []string{"archive"}, "", now, cli.OutputText); err == nil {
		t.Error("expected an error for an unknown subcommand")
	}
}

func TestIdentifierFields(t *testing.T) {
	tests := []struct {
		name      string
		opts      lookupOptions
		wantType  string
		wantValue string
	}{
		{"default form", lookupOptions{}, autocomplete.DefaultTypeField, autocomplete.DefaultValueField},
		{"simplified", lookupOptions{Simplified: true}, "", autocomplete.DefaultValueField},
		{"case form", lookupOptions{CaseForm: true, Simplified: true}, novedades.IDTypeField, novedades.IDNumberField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typeField, valueField := identifierFields(tt.opts)
			if typeField != tt.wantType || valueField != tt.wantValue {
				t.Errorf("identifierFields() = %q, %q, want %q, %q", typeField, valueField, tt.wantType, tt.wantValue)
			}
		})
	}
}

const caseFormPage = `<!doctype html>
<html><body>
<form>
  <select id="idType"><option value="">-</option><option value="CC">CC</option><option value="CE">CE</option></select>
  <div><input id="idNumber"></div>
  <input id="firstName"><input id="lastName"><input id="email" value="stale@example.com">
  <input id="gender"><input id="ibc">
</form>
</body></html>`

func TestRunPageLookup(t *testing.T) {
	if os.Getenv("MONTERO_BROWSER_TESTS") != "1" {
		t.Skip("set MONTERO_BROWSER_TESTS=1 to run browser tests")
	}
	ts, cfg := testPortal(t)
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(caseFormPage))
	}))
	t.Cleanup(site.Close)

	ctx := context.Background()
	session, err := dom.Open(ctx, site.URL, dom.SessionConfig{Headless: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	opts := lookupOptions{ServerURL: ts.URL, Type: "CC", Number: "12345678", CaseForm: true, Timeout: 5 * time.Second}
	res, err := runPageLookup(ctx, cfg, opts, session.Page(), zap.NewNop())
	if err != nil {
		t.Fatalf("runPageLookup: %v", err)
	}
	if res.State != autocomplete.StateFilled {
		t.Fatalf("state = %s (%s)", res.State, res.Message)
	}
	if res.Fields["firstName"] != "Ana" || res.Fields["lastName"] != "Gómez" || res.Fields["ibc"] != "1800000" {
		t.Errorf("fields = %v", res.Fields)
	}
	if _, ok := res.Fields["email"]; ok {
		t.Errorf("stale email should be cleared before the lookup, fields = %v", res.Fields)
	}
	if !reflect.DeepEqual(res.Locked, []string{"firstName", "lastName", "gender", "ibc"}) {
		t.Errorf("locked = %v", res.Locked)
	}
	if res.Message == "" {
		t.Error("expected the found message in the page")
	}

	opts.Number = "99999999"
	res, err = runPageLookup(ctx, cfg, opts, session.Page(), zap.NewNop())
	if err != nil || res.State != autocomplete.StateNotFound {
		t.Fatalf("missing usuario: res=%v err=%v", res, err)
	}
	if len(res.Fields) != 0 {
		t.Errorf("fields should be cleared, got %v", res.Fields)
	}
}

func TestRunPageLookup_MissingField(t *testing.T) {
	if os.Getenv("MONTERO_BROWSER_TESTS") != "1" {
		t.Skip("set MONTERO_BROWSER_TESTS=1 to run browser tests")
	}
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<!doctype html><html><body><input id="other"></body></html>`))
	}))
	t.Cleanup(site.Close)

	ctx := context.Background()
	session, err := dom.Open(ctx, site.URL, dom.SessionConfig{Headless: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	_, err = runPageLookup(ctx, cfg, lookupOptions{Type: "CC", Number: "12345678", Timeout: time.Second}, session.Page(), zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), autocomplete.DefaultValueField) {
		t.Fatalf("expected missing field error, got %v", err)
	}
}
