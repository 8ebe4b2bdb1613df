package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/calcfield/internal/ctxlog"
	"github.com/specialistvlad/calcfield/internal/dag"
	"github.com/specialistvlad/calcfield/internal/form"
	"github.com/specialistvlad/calcfield/internal/format"
	"github.com/specialistvlad/calcfield/internal/formula"
)

const (
	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 1 << 20
)

// Serve runs the preview server on the configured address until ctx is
// cancelled.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.ListenAddr, err)
	}
	return a.ServeListener(ctx, ln)
}

// ServeListener runs the preview server on ln until ctx is cancelled, then
// shuts it down gracefully. When a form is configured it is loaded once
// and the form-specific endpoints are enabled.
func (a *App) ServeListener(ctx context.Context, ln net.Listener) error {
	ctx = a.withLogger(ctx)

	var f *form.Form
	if a.config.FormPath != "" {
		loaded, err := a.LoadForm(ctx)
		if err != nil {
			ln.Close()
			return err
		}
		if err := loaded.Validate(); err != nil {
			ln.Close()
			return fmt.Errorf("invalid form %q: %w", loaded.Name, err)
		}
		a.logWarnings(loaded)
		f = loaded
	}

	srv := &http.Server{
		Handler:           a.Handler(f),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Preview server starting", "address", ln.Addr().String())
		// Serve returns http.ErrServerClosed on graceful shutdown.
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("preview server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	a.logger.Info("Shutting down preview server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Preview server shutdown failed", "error", err)
		return err
	}
	<-errCh
	hits, misses := a.parser.Stats()
	a.logger.Debug("Preview server shut down gracefully.",
		"parse_cache_size", a.parser.Len(), "parse_cache_hits", hits, "parse_cache_misses", misses)
	return nil
}

// Handler returns the preview API. f may be nil, in which case the
// endpoints that need a form are not registered.
func (a *App) Handler(f *form.Form) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("POST /v1/validate", handleValidate)
	mux.HandleFunc("POST /v1/dependencies", handleDependencies)
	mux.HandleFunc("POST /v1/calculate", a.handleCalculate)
	mux.HandleFunc("POST /v1/format", handleFormat)
	mux.HandleFunc("POST /v1/order", a.handleOrder)

	if f != nil {
		fh := &formHandlers{app: a, form: f}
		mux.HandleFunc("GET /v1/form", fh.get)
		mux.HandleFunc("POST /v1/form/preview", fh.preview)
		mux.HandleFunc("POST /v1/form/run", fh.run)
	}
	return a.logRequests(mux)
}

func (a *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := ctxlog.WithLogger(r.Context(), a.logger.With("method", r.Method, "path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
		ctxlog.FromContext(ctx).Debug("Request served.", "duration", time.Since(start))
	})
}

// formatRequest is the optional formatting of a request. Missing members
// take the defaults of a newly created field.
type formatRequest struct {
	Type      string `json:"type"`
	Precision *int   `json:"precision"`
	Currency  string `json:"currency"`
}

func (r *formatRequest) spec() format.Spec {
	if r == nil {
		return format.DefaultSpec()
	}
	return format.FromParts(r.Type, r.Precision, r.Currency)
}

type formulaRequest struct {
	Formula string                     `json:"formula"`
	Values  map[string]json.RawMessage `json:"values"`
	Format  *formatRequest             `json:"format"`
}

type calculateResponse struct {
	Result    *float64   `json:"result"`
	Formatted string     `json:"formatted"`
	Error     *errorBody `json:"error,omitempty"`
}

func handleValidate(w http.ResponseWriter, r *http.Request) {
	var req formulaRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, formula.ValidateFormula(req.Formula))
}

func handleDependencies(w http.ResponseWriter, r *http.Request) {
	var req formulaRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"dependencies": formula.ExtractDependencies(req.Formula),
	})
}

func (a *App) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req formulaRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	bindings, err := decodeValues(req.Values)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	calc := formula.CalculateWith(a.parser.Parse, req.Formula, bindings)
	resp := calculateResponse{
		Result:    calc.Result,
		Formatted: format.FormatPtr(calc.Result, req.Format.spec()),
		Error:     newErrorBody(calc.Err),
	}
	status := http.StatusOK
	if calc.Err != nil {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

type formatValueRequest struct {
	Value  *float64       `json:"value"`
	Format *formatRequest `json:"format"`
}

func handleFormat(w http.ResponseWriter, r *http.Request) {
	var req formatValueRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"formatted": format.FormatPtr(req.Value, req.Format.spec()),
	})
}

type orderRequest struct {
	Fields []dag.Definition `json:"fields"`
}

type orderResponse struct {
	Order  []string   `json:"order"`
	Levels [][]string `json:"levels"`
}

func (a *App) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	levels, err := a.levels(r.Context(), req.Fields)
	if err != nil {
		var dupErr *dag.DuplicateKeyError
		if errors.As(err, &dupErr) {
			writeBadRequest(w, err)
			return
		}
		writeJSON(w, http.StatusConflict, map[string]*errorBody{"error": newErrorBody(err)})
		return
	}

	resp := orderResponse{Order: []string{}, Levels: levels}
	for _, level := range levels {
		resp.Order = append(resp.Order, level...)
	}
	if resp.Levels == nil {
		resp.Levels = [][]string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// formHandlers serves the endpoints bound to the loaded form.
type formHandlers struct {
	app  *App
	form *form.Form
}

func (h *formHandlers) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.form)
}

func (h *formHandlers) preview(w http.ResponseWriter, r *http.Request) {
	var req formulaRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.form.Preview(req.Formula, req.Format.spec()))
}

func (h *formHandlers) run(w http.ResponseWriter, r *http.Request) {
	var req formulaRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	bindings, err := decodeValues(req.Values)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	res, err := h.app.executor.Run(r.Context(), h.form, bindings)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]*errorBody{"error": newErrorBody(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": toOutput(res)})
}

// decodeValues turns raw JSON values into bindings. Numbers stay
// json.Number so no precision is lost before evaluation; null counts as
// missing.
func decodeValues(raw map[string]json.RawMessage) (formula.Bindings, error) {
	bindings := make(formula.Bindings, len(raw))
	for key, msg := range raw {
		dec := json.NewDecoder(bytes.NewReader(msg))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("value %q: %w", key, err)
		}
		bindings[key] = v
	}
	return bindings, nil
}

func decodeRequest(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		writeBadRequest(w, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]*errorBody{"error": {
		Kind:    "bad_request",
		Message: err.Error(),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
