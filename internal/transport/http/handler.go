// Package httptransport carries EPP commands over HTTP.
//
// Registrar endpoints rely on the TLS-terminating proxy in front of the
// registry: it authenticates the client certificate and forwards the
// registrar id in a trusted header. There is no EPP login; every request gets
// a stateless session declaring all supported extensions.
package httptransport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/epp/session"
	"github.com/ptkach/nomulus/internal/flows"
	dErrors "github.com/ptkach/nomulus/pkg/domain-errors"
	"github.com/ptkach/nomulus/pkg/platform/httputil"
	"github.com/ptkach/nomulus/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler_mocks.go -package=mocks

// ResultCodeHeader repeats the EPP result code for proxies and dashboards.
const ResultCodeHeader = "Epp-Result-Code"

const eppContentType = "application/epp+xml; charset=utf-8"

// CommandHandler executes EPP commands. *flows.Controller implements it.
type CommandHandler interface {
	Handle(ctx context.Context, req flows.Request) *epp.Response
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Handler serves the EPP endpoints.
type Handler struct {
	commands        CommandHandler
	logger          *slog.Logger
	registrarHeader string
	maxBodyBytes    int64
	checks          map[string]HealthCheck
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithRegistrarHeader names the header the proxy puts the registrar id in.
func WithRegistrarHeader(name string) Option {
	return func(h *Handler) {
		h.registrarHeader = name
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithHealthCheck adds a dependency probe to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) {
		h.checks[name] = check
	}
}

func NewHandler(commands CommandHandler, opts ...Option) *Handler {
	h := &Handler{
		commands:        commands,
		logger:          slog.Default(),
		registrarHeader: "X-SSL-Client-Registrar",
		maxBodyBytes:    64 << 10,
		checks:          make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleEPP handles POST /epp for registrars.
func (h *Handler) HandleEPP(w http.ResponseWriter, r *http.Request) {
	raw, err := h.readCommand(w, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	registrarID := strings.TrimSpace(r.Header.Get(h.registrarHeader))
	ctx := requestcontext.WithRegistrarID(r.Context(), registrarID)

	resp := h.commands.Handle(ctx, flows.Request{
		Raw:     raw,
		Session: session.Stateless(registrarID, session.CredentialCertificate, session.SourceHTTP),
	})
	h.writeResponse(ctx, w, resp)
}

// HandleTool handles POST /epp/tool, which runs a command on behalf of the
// registrar named in the query, optionally as a dry run or as superuser.
func (h *Handler) HandleTool(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	registrarID := strings.TrimSpace(q.Get("registrar"))
	if registrarID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "registrar is required"))
		return
	}
	dryRun, err := queryBool(q.Get("dryRun"), "dryRun")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	superuser, err := queryBool(q.Get("superuser"), "superuser")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	raw, err := h.readCommand(w, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ctx := requestcontext.WithRegistrarID(r.Context(), registrarID)

	resp := h.commands.Handle(ctx, flows.Request{
		Raw:       raw,
		Session:   session.Stateless(registrarID, session.CredentialTool, session.SourceTool),
		DryRun:    dryRun,
		Superuser: superuser,
	})
	h.writeResponse(ctx, w, resp)
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
			results[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	httputil.WriteJSON(w, code, map[string]any{"status": status, "checks": results})
}

func (h *Handler) readCommand(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("command exceeds %d bytes", h.maxBodyBytes))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "read command")
	}
	return raw, nil
}

func (h *Handler) writeResponse(ctx context.Context, w http.ResponseWriter, resp *epp.Response) {
	body, err := epp.Marshal(resp)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal EPP response",
			"request_id", requestcontext.RequestID(ctx),
			"server_trid", resp.Trid.ServerTRID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "marshal response"))
		return
	}
	w.Header().Set("Content-Type", eppContentType)
	w.Header().Set(ResultCodeHeader, resp.Result.Code.String())
	w.WriteHeader(StatusFor(resp.Result.Code))
	_, _ = w.Write(body)
}

// StatusFor maps an EPP result to an HTTP status. Protocol errors are regular
// responses; only server side failures are 5xx.
func StatusFor(code epp.ResultCode) int {
	if code >= epp.CommandFailed {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func queryBool(v, name string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, dErrors.New(dErrors.CodeBadRequest, name+" must be a boolean")
	}
	return b, nil
}
