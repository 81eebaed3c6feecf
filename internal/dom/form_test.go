package dom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/montero/internal/autocomplete"
	"github.com/hyperjump/montero/internal/lookup"
)

const page = `<!doctype html>
<html><body>
<form>
  <select id="tipoDocumento"><option value="CC" selected>CC</option><option value="CE">CE</option></select>
  <div><input id="numeroDocumento" class="form-control"></div>
  <input id="primerNombre" class="form-control">
  <input id="primerApellido" class="form-control">
  <input id="correoElectronico" class="form-control email">
</form>
</body></html>`

func openPage(t *testing.T) *rod.Page {
	t.Helper()
	if os.Getenv("MONTERO_BROWSER_TESTS") != "1" {
		t.Skip("set MONTERO_BROWSER_TESTS=1 to run browser tests")
	}
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	}))
	t.Cleanup(site.Close)

	session, err := Open(context.Background(), site.URL, SessionConfig{Headless: true})
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session.Page()
}

func TestForm_FieldAccess(t *testing.T) {
	f := NewForm(openPage(t))
	defer f.Close()

	assert.True(t, f.Has("#primerNombre"))
	assert.True(t, f.Has(".email"))
	assert.False(t, f.Has("#missing"))

	v, ok := f.Value("tipoDocumento")
	require.True(t, ok)
	assert.Equal(t, "CC", v)

	require.True(t, f.SetValue("#primerNombre", "Ana"))
	v, _ = f.Value("#primerNombre")
	assert.Equal(t, "Ana", v)

	require.True(t, f.Lock("#primerNombre"))
	assert.True(t, f.Locked("#primerNombre"))
	require.True(t, f.Unlock("#primerNombre"))
	assert.False(t, f.Locked("#primerNombre"))
	assert.False(t, f.SetValue("#missing", "x"))
}

func TestForm_Messages(t *testing.T) {
	f := NewForm(openPage(t), WithMessageTTL(200*time.Millisecond))
	defer f.Close()

	f.Show(autocomplete.Message{Kind: autocomplete.MessageWarning, Text: "not found"})
	msg, ok := f.Message()
	require.True(t, ok)
	assert.Equal(t, autocomplete.MessageWarning, msg.Kind)
	assert.Equal(t, "not found", msg.Text)

	f.Hide()
	_, ok = f.Message()
	assert.False(t, ok)

	f.Show(autocomplete.Message{Kind: autocomplete.MessageSuccess, Text: "found"})
	assert.Eventually(t, func() bool {
		_, ok := f.Message()
		return !ok
	}, 2*time.Second, 50*time.Millisecond)
}

func TestForm_DrivesEngine(t *testing.T) {
	f := NewForm(openPage(t))
	defer f.Close()

	lookuper := lookup.Func(func(ctx context.Context, req lookup.Request) (lookup.Entity, error) {
		if req.Number != "12345678" {
			return nil, lookup.ErrNotFound
		}
		return lookup.Entity{"primerNombre": "Ana", "primerApellido": "Gómez"}, nil
	})
	engine := autocomplete.New(autocomplete.Config{
		Identifier: autocomplete.Full{TypeField: "#tipoDocumento", ValueField: "#numeroDocumento"},
		Mapping: []autocomplete.FieldMapping{
			autocomplete.Map("primerNombre", "#primerNombre"),
			autocomplete.Map("primerApellido", "#primerApellido"),
			autocomplete.Map("correoElectronico", "#correoElectronico"),
		},
	}, f, lookuper, autocomplete.WithNotifier(f))
	require.False(t, engine.Inert())

	require.True(t, f.SetValue("#numeroDocumento", "12345678"))
	assert.Equal(t, autocomplete.StateFilled, engine.Search(context.Background()))
	v, _ := f.Value("#primerApellido")
	assert.Equal(t, "Gómez", v)
	assert.True(t, f.Locked("#primerNombre"))
	assert.False(t, f.Locked("#correoElectronico"))
	msg, ok := f.Message()
	require.True(t, ok)
	assert.Equal(t, autocomplete.MessageSuccess, msg.Kind)

	require.True(t, f.SetValue("#numeroDocumento", "99999"))
	assert.Equal(t, autocomplete.StateNotFound, engine.Search(context.Background()))
	v, _ = f.Value("#primerNombre")
	assert.Empty(t, v)
}

func TestSession_Form(t *testing.T) {
	p := openPage(t)
	info, err := p.Info()
	require.NoError(t, err)

	session, err := Open(context.Background(), info.URL, SessionConfig{Headless: true, NavigationTimeout: 10 * time.Second})
	require.NoError(t, err)
	defer session.Close()

	f := session.Form(WithAnchor("#primerNombre"))
	defer f.Close()
	assert.True(t, f.Has("numeroDocumento"))
	f.Show(autocomplete.Message{Kind: autocomplete.MessageWarning, Text: "not found"})
	msg, ok := f.Message()
	require.True(t, ok)
	assert.Equal(t, autocomplete.MessageWarning, msg.Kind)
}

func TestOpen_UnreachableBrowser(t *testing.T) {
	_, err := Open(context.Background(), "about:blank", SessionConfig{ControlURL: "ws://127.0.0.1:1/devtools/browser/none"})
	assert.Error(t, err)
}
