// Package httpapi is the node's HTTP surface: the verification link mailed
// to new accounts, health, and Prometheus metrics.
package httpapi

import (
	"context"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/metrics"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
)

// Verifier completes account verification.
type Verifier interface {
	VerifyAccount(ctx context.Context, guid, code string) responsecode.Response
}

// Deps collects what NewRouter mounts.
type Deps struct {
	Gatherer prometheus.Gatherer
	Verifier Verifier
	// Prefix is the path of the verification URL base, e.g. "/GNS".
	Prefix string
	Logger logging.Logger
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}
	if deps.Verifier != nil {
		h := &verifyHandler{verifier: deps.Verifier, logger: deps.Logger.With("module", "httpapi")}
		r.Get(path.Join("/", deps.Prefix, "VerifyAccount"), h.ServeHTTP)
	}
	return r
}

type verifyHandler struct {
	verifier Verifier
	logger   logging.Logger
}

// ServeHTTP answers in the legacy text form, "+OK+ ..." or "+NO+ <code> ...".
func (h *verifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	guid := r.URL.Query().Get("guid")
	code := r.URL.Query().Get("code")

	var resp responsecode.Response
	if guid == "" || code == "" {
		resp = responsecode.New(responsecode.VerificationError, "guid and code are required")
	} else {
		resp = h.verifier.VerifyAccount(r.Context(), guid, code)
	}
	h.logger.Info(r.Context(), "verification request", "guid", guid, "code", resp.Code.Name())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(resp.Legacy()))
}
