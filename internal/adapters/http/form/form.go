// Package form serves the revenue estimator: an HTML form mirroring the
// training-time inputs and a JSON endpoint for the same prediction.
package form

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/inferd/internal/adapters/http/middleware"
	service "github.com/okian/inferd/internal/app"
	"github.com/okian/inferd/internal/domain/features"
	"github.com/okian/inferd/internal/validation"
	"github.com/okian/inferd/pkg/logger"
	"github.com/okian/inferd/pkg/metrics"
)

// Error codes carried in JSON error bodies.
const (
	CodeValidation = "validation_error"
	CodeBadRequest = "bad_request"
	CodeNotReady   = "not_ready"
	CodeInternal   = "internal_error"
)

const maxBodyBytes = 64 << 10

// Dependencies required by the form handlers.
type Dependencies interface {
	Estimate(ctx context.Context, in features.Input) (service.Estimate, error)
	Schema() *features.Schema
	Ready() bool
}

// Handler serves the estimator routes.
type Handler struct {
	deps    Dependencies
	logger  logger.Logger
	metrics http.Handler
}

// NewHandler creates a new form handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		deps:    deps,
		logger:  logger.Named("form"),
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// Register attaches all estimator routes to mux.
func (h *Handler) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /{$}", middleware.Metrics(h.HandleForm, "form"))
	mux.HandleFunc("POST /{$}", middleware.Metrics(h.HandleSubmit, "form_submit"))
	mux.HandleFunc("POST /api/predict", middleware.Metrics(h.HandlePredict, "predict"))
	mux.HandleFunc("GET /api/features", middleware.Metrics(h.HandleFeatures, "features"))
	mux.HandleFunc("GET /metrics", middleware.Metrics(h.metrics.ServeHTTP, "metrics"))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(FS())))
}

type bounds struct {
	MinBudget, MaxBudget, BudgetStep int
	MinRuntime, MaxRuntime           int
	MinYear, MaxYear                 int
}

var formBounds = bounds{
	MinBudget:  features.MinBudget,
	MaxBudget:  features.MaxBudget,
	BudgetStep: features.BudgetStep,
	MinRuntime: features.MinRuntime,
	MaxRuntime: features.MaxRuntime,
	MinYear:    features.MinYear,
	MaxYear:    features.MaxYear,
}

type genreOption struct {
	Label    string
	Selected bool
}

type page struct {
	Input   features.Input
	Genres  []genreOption
	Bounds  bounds
	Errors  map[string]string
	Result  *service.Estimate
	Failure string
}

func (h *Handler) newPage(in features.Input) page {
	p := page{Input: in, Bounds: formBounds, Errors: map[string]string{}}
	if s := h.deps.Schema(); s != nil {
		for _, g := range s.Genres() {
			p.Genres = append(p.Genres, genreOption{Label: g, Selected: slices.Contains(in.Genres, g)})
		}
	}
	return p
}

// HandleForm handles GET / and renders the form with default values.
func (h *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(features.DefaultInput())
	if !h.deps.Ready() {
		p.Failure = "Model or features not found."
		h.render(w, r, http.StatusServiceUnavailable, p)
		return
	}
	h.render(w, r, http.StatusOK, p)
}

// HandleSubmit handles POST /: validate, predict, re-render.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	in, parseErrs := parseForm(r)
	p := h.newPage(in)
	for k, v := range parseErrs {
		p.Errors[k] = v
	}

	if !h.deps.Ready() {
		p.Failure = "Model or features not found."
		h.render(w, r, http.StatusServiceUnavailable, p)
		return
	}

	if len(p.Errors) == 0 {
		if err := validation.Struct(in); err != nil {
			var verrs validation.Errors
			if errors.As(err, &verrs) {
				for k, v := range verrs.ByField() {
					p.Errors[k] = v
				}
			}
		}
	}
	if len(p.Errors) > 0 {
		metrics.RecordPrediction(service.PredictionInvalid)
		h.render(w, r, http.StatusUnprocessableEntity, p)
		return
	}

	est, err := h.deps.Estimate(ctx, in)
	if err != nil {
		h.logger.Error(ctx, "prediction failed", logger.Error(err))
		p.Failure = "Prediction failed. Please try again."
		h.render(w, r, http.StatusInternalServerError, p)
		return
	}
	p.Result = &est
	h.render(w, r, http.StatusOK, p)
}

// parseForm reads the posted fields over the defaults. Missing fields keep
// their default; malformed numbers are reported per field.
func parseForm(r *http.Request) (features.Input, map[string]string) {
	in := features.DefaultInput()
	errs := map[string]string{}
	if err := r.ParseForm(); err != nil {
		errs["form"] = "malformed form body"
		return in, errs
	}

	floatField := func(name string, dst *float64) {
		raw := strings.TrimSpace(r.PostForm.Get(name))
		if raw == "" {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs[name] = name + " must be a number"
			return
		}
		*dst = v
	}
	intField := func(name string, dst *int) {
		raw := strings.TrimSpace(r.PostForm.Get(name))
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs[name] = name + " must be a whole number"
			return
		}
		*dst = v
	}

	floatField("budget", &in.Budget)
	floatField("runtime", &in.Runtime)
	intField("release_year", &in.Year)
	intField("release_month", &in.Month)
	intField("release_dayofweek", &in.DayOfWeek)
	in.Genres = r.PostForm["genres"]
	return in, errs
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, p page) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		h.logger.Error(r.Context(), "render form", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

type featuresResponse struct {
	Columns []string `json:"columns"`
	Genres  []string `json:"genres"`
}

// HandlePredict handles POST /api/predict. Omitted fields take the form
// defaults.
func (h *Handler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.deps.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Code: CodeNotReady, Message: "Model or features not found."})
		return
	}

	in := features.DefaultInput()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		metrics.RecordPrediction(service.PredictionInvalid)
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: CodeBadRequest, Message: "Request body must be a JSON object of movie features."})
		return
	}

	if err := validation.Struct(in); err != nil {
		metrics.RecordPrediction(service.PredictionInvalid)
		resp := errorResponse{Code: CodeValidation, Message: err.Error()}
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			resp.Fields = verrs
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	est, err := h.deps.Estimate(ctx, in)
	if err != nil {
		h.logger.Error(ctx, "prediction failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: CodeInternal, Message: "Prediction failed."})
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// HandleFeatures handles GET /api/features.
func (h *Handler) HandleFeatures(w http.ResponseWriter, _ *http.Request) {
	s := h.deps.Schema()
	if s == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Code: CodeNotReady, Message: "Model or features not found."})
		return
	}
	genres := s.Genres()
	if genres == nil {
		genres = []string{}
	}
	writeJSON(w, http.StatusOK, featuresResponse{Columns: s.Columns(), Genres: genres})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
