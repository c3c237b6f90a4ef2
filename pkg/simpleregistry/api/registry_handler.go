package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-registry/pkg/simpleregistry"
)

// RegistryHandler serves package manifests and artifacts
type RegistryHandler struct {
	dists  *simpleregistry.DistRepository
	users  simpleregistry.UserRepository
	logger *slog.Logger
}

func NewRegistryHandler(dists *simpleregistry.DistRepository, users simpleregistry.UserRepository, logger *slog.Logger) *RegistryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistryHandler{
		dists:  dists,
		users:  users,
		logger: logger,
	}
}

// Routes returns the router for registry endpoints
func (h *RegistryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(BearerToken(h.users, h.logger)).Get("/-/whoami", h.WhoAmI)
	r.Get("/-/dist/*", h.DownloadDist)
	r.Get("/{pkg}/{version}", h.GetVersionManifest)
	r.Get("/{pkg}/{version}/abbreviated", h.GetAbbreviatedManifest)
	return r
}

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// WhoAmIResponse describes the authenticated user
type WhoAmIResponse struct {
	Username  string `json:"username"`
	TokenMark string `json:"token_mark"`
	TokenType string `json:"token_type"`
	Readonly  bool   `json:"readonly"`
}

// GetVersionManifest returns the full manifest of a version, readme included
func (h *RegistryHandler) GetVersionManifest(w http.ResponseWriter, r *http.Request) {
	pkg, version := chi.URLParam(r, "pkg"), chi.URLParam(r, "version")

	manifest, err := h.dists.FindPackageVersionManifest(r.Context(), pkg, version)
	if err != nil {
		h.handleError(w, r, err, "pkg", pkg, "version", version)
		return
	}
	if manifest == nil {
		h.notFound(w, r, "version not found: "+pkg+"@"+version)
		return
	}

	render.JSON(w, r, manifest)
}

// GetAbbreviatedManifest returns the abbreviated manifest of a version
func (h *RegistryHandler) GetAbbreviatedManifest(w http.ResponseWriter, r *http.Request) {
	pkg, version := chi.URLParam(r, "pkg"), chi.URLParam(r, "version")

	manifest, err := h.dists.FindPackageAbbreviatedManifest(r.Context(), pkg, version)
	if err != nil {
		h.handleError(w, r, err, "pkg", pkg, "version", version)
		return
	}
	if manifest == nil {
		h.notFound(w, r, "version not found: "+pkg+"@"+version)
		return
	}

	render.JSON(w, r, manifest)
}

// DownloadDist redirects to a signed URL or streams the artifact, whichever
// the storage backend supports
func (h *RegistryHandler) DownloadDist(w http.ResponseWriter, r *http.Request) {
	distPath := "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	dist := simpleregistry.Dist{Name: path.Base(distPath), Path: distPath}

	download, err := h.dists.DownloadDist(r.Context(), dist)
	if err != nil {
		h.handleError(w, r, err, "path", distPath)
		return
	}
	if download == nil {
		h.notFound(w, r, "dist not found: "+distPath)
		return
	}

	if download.IsRedirect() {
		http.Redirect(w, r, download.URL, http.StatusFound)
		return
	}
	defer download.Body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+dist.Name+"\"")
	if meta := download.Meta; meta != nil {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
		if meta.ETag != "" {
			w.Header().Set("ETag", "\""+meta.ETag+"\"")
		}
	}
	if _, err := io.Copy(w, download.Body); err != nil {
		h.logger.WarnContext(r.Context(), "failed to stream dist", "path", distPath, "err", err)
	}
}

// WhoAmI returns the user owning the request's token
func (h *RegistryHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	auth := AuthFromContext(r.Context())
	if auth == nil {
		h.writeError(w, r, http.StatusUnauthorized, "authorization required")
		return
	}

	render.JSON(w, r, WhoAmIResponse{
		Username:  auth.User.Name,
		TokenMark: auth.Token.TokenMark,
		TokenType: string(auth.Token.Type),
		Readonly:  auth.Token.IsReadonly,
	})
}

func (h *RegistryHandler) handleError(w http.ResponseWriter, r *http.Request, err error, attrs ...any) {
	switch {
	case errors.Is(err, simpleregistry.ErrMalformedContent):
		h.logger.ErrorContext(r.Context(), "stored content is malformed", append(attrs, "err", err)...)
		h.writeError(w, r, http.StatusInternalServerError, "stored manifest is malformed")
	case errors.Is(err, simpleregistry.ErrStorageUnavailable):
		h.logger.ErrorContext(r.Context(), "storage unavailable", append(attrs, "err", err)...)
		h.writeError(w, r, http.StatusServiceUnavailable, "storage unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "request failed", append(attrs, "err", err)...)
		h.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (h *RegistryHandler) notFound(w http.ResponseWriter, r *http.Request, message string) {
	h.writeError(w, r, http.StatusNotFound, message)
}

func (h *RegistryHandler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}
