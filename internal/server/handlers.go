package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/montero/internal/directory"
	"github.com/hyperjump/montero/internal/models"
	"github.com/hyperjump/montero/internal/storage"
)

// SuggestionHeader carries a corrected name query when a search finds nothing.
const SuggestionHeader = "X-Suggested-Query"

func (s *Server) handleFindUsuario(w http.ResponseWriter, r *http.Request) {
	s.findUsuario(w, r, "tipoId", "numeroId", (*models.Usuario).Attributes)
}

func (s *Server) handleFindCaseUsuario(w http.ResponseWriter, r *http.Request) {
	s.findUsuario(w, r, "tipo", "numero", (*models.Usuario).CaseAttributes)
}

func (s *Server) findUsuario(w http.ResponseWriter, r *http.Request, typeParam, numberParam string, render func(*models.Usuario) map[string]any) {
	tipo := strings.TrimSpace(r.URL.Query().Get(typeParam))
	numero := strings.TrimSpace(r.URL.Query().Get(numberParam))
	if tipo == "" || numero == "" {
		s.respondError(w, http.StatusBadRequest, typeParam+" and "+numberParam+" are required")
		return
	}
	u, err := s.storage.GetUsuario(r.Context(), tipo, numero)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.logger.Error("usuario lookup failed", zap.String("key", models.UsuarioKey(tipo, numero)), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.respondJSON(w, http.StatusOK, render(u))
}

func (s *Server) handleListUsuarios(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	empresa := q.Get("empresa_nit")
	text := strings.TrimSpace(q.Get("q"))

	if text == "" {
		usuarios, err := s.storage.ListUsuarios(ctx, empresa)
		if err != nil {
			s.logger.Error("list usuarios failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, attributes(usuarios))
		return
	}

	if s.directory == nil {
		s.respondError(w, http.StatusNotImplemented, "name search not enabled")
		return
	}
	fuzzy, _ := strconv.ParseBool(q.Get("fuzzy"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	hits, err := s.directory.Search(ctx, directory.Query{Text: text, EmpresaNIT: empresa, Fuzzy: fuzzy, Limit: limit})
	if err != nil {
		s.logger.Error("directory search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	usuarios := make([]*models.Usuario, 0, len(hits))
	for _, hit := range hits {
		tipo, numero, ok := strings.Cut(hit.ID, ":")
		if !ok {
			continue
		}
		u, err := s.storage.GetUsuario(ctx, tipo, numero)
		if errors.Is(err, storage.ErrNotFound) {
			// index is ahead of or behind the database; skip the stale hit
			continue
		}
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		usuarios = append(usuarios, u)
	}
	if len(usuarios) == 0 {
		if suggestion, changed, err := s.directory.Suggest(text, 0); err == nil && changed {
			w.Header().Set(SuggestionHeader, suggestion)
		}
	}
	s.respondJSON(w, http.StatusOK, attributes(usuarios))
}

func attributes(usuarios []*models.Usuario) []map[string]any {
	out := make([]map[string]any, len(usuarios))
	for i, u := range usuarios {
		out[i] = u.Attributes()
	}
	return out
}

func (s *Server) handleListEmpresas(w http.ResponseWriter, r *http.Request) {
	empresas, err := s.storage.ListEmpresas(r.Context())
	if err != nil {
		s.logger.Error("list empresas failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if empresas == nil {
		empresas = []*models.Empresa{}
	}
	s.respondJSON(w, http.StatusOK, empresas)
}

func (s *Server) handleGetEmpresa(w http.ResponseWriter, r *http.Request) {
	e, err := s.storage.GetEmpresa(r.Context(), chi.URLParam(r, "nit"))
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "empresa not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		s.respondError(w, http.StatusNotImplemented, "import not enabled")
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload.xlsx"
	}
	report, err := s.importer.Import(r.Context(), r.Body, name)
	if err != nil {
		s.logger.Error("import failed", zap.String("file", name), zap.Error(err))
		status := http.StatusBadRequest
		if report != nil {
			// parsing succeeded; storage failed part way
			status = http.StatusInternalServerError
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usuarios, err := s.storage.CountUsuarios(ctx)
	if err != nil {
		s.logger.Error("status: count usuarios failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cases, err := s.storage.CountCases(ctx)
	if err != nil {
		s.logger.Error("status: count cases failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]any{
		"usuarios":  usuarios,
		"novedades": cases,
	}
	if s.directory != nil {
		if n, err := s.directory.Count(); err == nil {
			resp["directory_entries"] = n
		}
	}
	if s.config != nil {
		resp["config"] = map[string]any{
			"database_path":        s.config.Storage.DatabasePath,
			"directory_index_path": s.config.Storage.DirectoryIndexPath,
			"import_directories":   s.config.Import.Directories,
			"min_digits":           s.config.Autocomplete.MinDigits,
		}
		if n, err := storage.Footprint(s.config.Storage.DatabasePath, s.config.Storage.DirectoryIndexPath); err == nil {
			resp["disk_usage_bytes"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
