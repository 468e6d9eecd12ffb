package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/star/catsim/internal/photometry"
	"github.com/star/catsim/internal/variability"
)

// evaluateRequest is the body of POST /api/v1/variability.
type evaluateRequest struct {
	Catalog string               `json:"catalog"`
	Params  []*string            `json:"params"`
	MJD     *float64             `json:"mjd"`
	MJDs    []float64            `json:"mjds"`
	Columns map[string][]float64 `json:"columns"`
}

type evaluateResponse struct {
	Shape []int    `json:"shape"`
	Bands []string `json:"bands"`
	Delta any      `json:"delta"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps an evaluation error to an HTTP status. Errors caused by
// the request are 4xx; missing server-side data is 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownCatalog):
		return http.StatusBadRequest
	case errors.Is(err, variability.ErrNoDataDir),
		errors.Is(err, variability.ErrMissingData):
		return http.StatusInternalServerError
	case errors.Is(err, variability.ErrUnknownModel),
		errors.Is(err, variability.ErrMalformedBlob),
		errors.Is(err, variability.ErrParameter),
		errors.Is(err, variability.ErrEpochBeforeStart),
		errors.Is(err, variability.ErrEpochOrder),
		errors.Is(err, variability.ErrNegativeFlux),
		errors.Is(err, variability.ErrMissingPrerequisite):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// finite returns v, or nil when v cannot be represented in JSON.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// deltaJSON lays out t as nested arrays, with non-finite offsets as null.
func deltaJSON(t *variability.Tensor) any {
	if !t.IsSeries() {
		out := make([][]*float64, photometry.NumBands)
		for b := range out {
			row := make([]*float64, t.Objects())
			for i := range row {
				row[i] = finite(t.At(b, i, 0))
			}
			out[b] = row
		}
		return out
	}
	out := make([][][]*float64, photometry.NumBands)
	for b := range out {
		objs := make([][]*float64, t.Objects())
		for i := range objs {
			row := make([]*float64, t.Times())
			for k := range row {
				row[k] = finite(t.At(b, i, k))
			}
			objs[i] = row
		}
		out[b] = objs
	}
	return out
}

func evaluateHandler(logger *slog.Logger, ev *Evaluator, limiter *evalLimiter, trustProxy bool, maxBody int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, trustProxy)
		if !limiter.acquire(ip) {
			writeError(w, http.StatusTooManyRequests, "too many concurrent evaluations")
			return
		}
		defer limiter.release(ip)

		var req evaluateRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if req.MJD != nil && req.MJDs != nil {
			writeError(w, http.StatusBadRequest, "give either mjd or mjds, not both")
			return
		}

		var epochs variability.Epochs
		switch {
		case req.MJDs != nil:
			epochs = variability.Series(req.MJDs...)
		case req.MJD != nil:
			epochs = variability.At(*req.MJD)
		}

		blobs := make([]string, len(req.Params))
		for i, p := range req.Params {
			if p == nil {
				blobs[i] = variability.NullModel
			} else {
				blobs[i] = *p
			}
		}

		out, err := ev.Evaluate(req.Catalog, blobs, epochs, variability.MapHost(req.Columns))
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				logger.Error("evaluation failed", "component", "api", "catalog", req.Catalog, "error", err)
			}
			writeError(w, status, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, evaluateResponse{
			Shape: out.Shape(),
			Bands: photometry.Bands[:],
			Delta: deltaJSON(out),
		})
	}
}

func modelsHandler(ev *Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("catalog")
		names, err := ev.Models(kind)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		if kind == "" {
			kind = "stars"
		}
		writeJSON(w, http.StatusOK, map[string]any{"catalog": kind, "models": names})
	}
}

func columnsHandler(ev *Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("catalog")
		cols, err := ev.Columns(kind)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		if kind == "" {
			kind = "stars"
		}
		writeJSON(w, http.StatusOK, map[string]any{"catalog": kind, "columns": cols})
	}
}

func resetAGNHandler(logger *slog.Logger, ev *Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dropped := ev.ResetAGN()
		logger.Info("AGN cache reset via API", "component", "api", "dropped", dropped)
		writeJSON(w, http.StatusOK, map[string]any{"reset": true, "dropped": dropped})
	}
}

func cacheStatsHandler(ev *Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ev.Stats())
	}
}
