package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Simplici0/dairycalc/internal/calculator"
	"github.com/Simplici0/dairycalc/internal/history"
	"github.com/Simplici0/dairycalc/internal/pricing"
)

const maxBodyBytes = 16 << 10

type server struct {
	// mu serialises engine access; the engine assumes one caller at a time.
	mu       sync.Mutex
	engine   *calculator.Engine
	validate *validator.Validate
	log      *zap.Logger
}

func newServer(engine *calculator.Engine, log *zap.Logger) *server {
	return &server{
		engine:   engine,
		validate: validator.New(),
		log:      log,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/inputs/format", s.handleFormatInputs)
		r.Post("/calculations/preview", s.handlePreview)
		r.Post("/calculations", s.handleCalculate)
		r.Get("/calculations", s.handleHistory)
		r.Delete("/calculations", s.handleClearHistory)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleFormatInputs(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Field == "" && req.Mode == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "field or mode is required"})
		return
	}

	in := req.Inputs.toInputs()
	var err error
	if req.Mode != "" {
		if in, err = in.WithMode(pricing.Mode(req.Mode)); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}
	if req.Field != "" {
		if in, err = in.With(req.Field, req.Value); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	resp := formatResponse{Inputs: in}
	if snf, ok := in.DerivedSNF(); ok {
		v := snf.StringFixed(2)
		resp.DerivedSNF = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req inputsPayload
	if !s.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	result, err := s.engine.Compute(req.toInputs())
	s.mu.Unlock()
	if err != nil {
		s.writeCalculationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calculationResponse{Result: newResultResponse(result)})
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req inputsPayload
	if !s.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	result, err := s.engine.Calculate(r.Context(), req.toInputs())
	s.mu.Unlock()

	var perr *history.PersistenceError
	switch {
	case errors.As(err, &perr):
		writeJSON(w, http.StatusCreated, calculationResponse{
			Result:  newResultResponse(result),
			Warning: "calculation was not saved to storage",
		})
	case err != nil:
		s.writeCalculationError(w, err)
	default:
		writeJSON(w, http.StatusCreated, calculationResponse{Result: newResultResponse(result)})
	}
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	records := s.engine.History()
	s.mu.Unlock()

	resp := historyResponse{Results: make([]resultResponse, 0, len(records))}
	for _, rec := range records {
		resp.Results = append(resp.Results, newResultResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.engine.ClearHistory(r.Context())
	s.mu.Unlock()

	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"warning": "history cleared for this session but not in storage"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

func (s *server) writeCalculationError(w http.ResponseWriter, err error) {
	var ve *pricing.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "please fill all required fields",
			Missing: ve.Missing,
			Invalid: ve.Invalid,
		})
	case errors.Is(err, pricing.ErrUnknownMode):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.log.Error("calculation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to calculate"})
	}
}

func (s *server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
