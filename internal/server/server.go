// Package server implements the HTTP and JSON-RPC surface for the
// STEPPE differential evolution service.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/steppelabs/STEPPE/internal/config"
	"github.com/steppelabs/STEPPE/internal/logging"
	"github.com/steppelabs/STEPPE/internal/metrics"
	"github.com/steppelabs/STEPPE/internal/optimization"
	"github.com/steppelabs/STEPPE/internal/optimization/differential"
)

// Logger defines the logging interface used by the server. This keeps
// the server flexible about the logging implementation.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// RunState tracks one optimization job. Updated per generation by the
// job goroutine; guarded by the server's run mutex.
type RunState struct {
	ID           string
	Objective    string
	Status       string // "pending", "running", "completed", "failed", "cancelled"
	StartTime    time.Time
	EndTime      *time.Time
	Generation   int
	Evaluations  int
	Progress     float64
	BestSolution *optimization.Solution
	Error        string
	CancelFunc   context.CancelFunc
	LastUpdated  time.Time

	engine *differential.Engine
}

// Server manages optimization jobs and the endpoints to start, monitor,
// and cancel them.
type Server struct {
	cfg     *config.Config
	logger  Logger
	metrics *metrics.Metrics

	runs   map[string]*RunState
	runsMu sync.RWMutex // Protects the runs map and its states
}

// NewServer creates a new server instance with the given config, logger,
// and metrics.
func NewServer(cfg *config.Config, logger Logger, m *metrics.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		runs:    make(map[string]*RunState),
	}
}

// RegisterRoutes mounts the REST and JSON-RPC endpoints on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Get("/objectives", s.handleObjectives)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// optimizeRequest is the job submission payload. Zero-valued DE
// parameters fall back to the server configuration defaults.
type optimizeRequest struct {
	Objective         string      `json:"objective"`
	Bounds            [][]float64 `json:"bounds"`
	Mutation          float64     `json:"mutation,omitempty"`
	Recombination     float64     `json:"recombination,omitempty"`
	PopsizeMultiplier int         `json:"popsize_multiplier,omitempty"`
	MaxIters          int         `json:"maxiters,omitempty"`
	StopAfterSeconds  float64     `json:"stop_after,omitempty"`
	Parallel          *bool       `json:"parallel,omitempty"`
	WorkerCount       int         `json:"worker_count,omitempty"`
	Seed              int64       `json:"seed,omitempty"`
}

// startRun validates the request, builds the engine, and launches the
// job goroutine. Returns the run ID.
func (s *Server) startRun(req optimizeRequest) (string, error) {
	objective, ok := optimization.LookupObjective(req.Objective)
	if !ok {
		return "", fmt.Errorf("unknown objective %q, known: %v", req.Objective, optimization.ObjectiveNames())
	}
	if len(req.Bounds) == 0 {
		return "", fmt.Errorf("bounds are required")
	}

	bounds := make([][2]float64, len(req.Bounds))
	for i, b := range req.Bounds {
		if len(b) != 2 {
			return "", fmt.Errorf("invalid bounds format, expected [[min1, max1], [min2, max2], ...]")
		}
		bounds[i] = [2]float64{b[0], b[1]}
	}

	defaults := s.cfg.Optimization
	cfg := differential.Config{
		Objective:         objective,
		Bounds:            bounds,
		Mutation:          req.Mutation,
		Recombination:     req.Recombination,
		PopsizeMultiplier: req.PopsizeMultiplier,
		MaxIterations:     req.MaxIters,
		StopAfter:         time.Duration(req.StopAfterSeconds * float64(time.Second)),
		Parallel:          defaults.Parallel,
		WorkerCount:       req.WorkerCount,
		RandomSeed:        req.Seed,
	}
	if cfg.Mutation == 0 {
		cfg.Mutation = defaults.Mutation
	}
	if cfg.Recombination == 0 {
		cfg.Recombination = defaults.Recombination
	}
	if cfg.PopsizeMultiplier == 0 {
		cfg.PopsizeMultiplier = defaults.PopsizeMultiplier
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = defaults.MaxIterations
	}
	if cfg.StopAfter == 0 {
		cfg.StopAfter = defaults.StopAfter
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = defaults.WorkerCount
	}
	if req.Parallel != nil {
		cfg.Parallel = *req.Parallel
	}

	engine, err := differential.New(cfg)
	if err != nil {
		return "", err
	}

	id := fmt.Sprintf("opt_%d", time.Now().UnixNano())
	ctx, cancel := context.WithCancel(context.Background())
	state := &RunState{
		ID:          id,
		Objective:   req.Objective,
		Status:      "pending",
		StartTime:   time.Now(),
		CancelFunc:  cancel,
		LastUpdated: time.Now(),
		engine:      engine,
	}

	s.runsMu.Lock()
	s.runs[id] = state
	s.runsMu.Unlock()

	s.metrics.RunsStarted.WithLabelValues(req.Objective).Inc()
	go s.runOptimization(ctx, state, cfg.MaxIterations)

	return id, nil
}

// runOptimization drives the engine's per-generation sequence and
// publishes progress after every generation.
func (s *Server) runOptimization(ctx context.Context, state *RunState, maxIters int) {
	s.runsMu.Lock()
	state.Status = "running"
	s.runsMu.Unlock()

	s.logger.Info("Optimization started", map[string]interface{}{
		"run_id":    state.ID,
		"objective": state.Objective,
	})

	var runErr error
	lastGen := time.Now()
	for {
		snap, ok, err := state.engine.Next(ctx)
		if err != nil {
			runErr = err
			break
		}
		if !ok {
			break
		}

		s.metrics.Generations.Inc()
		s.metrics.BatchDuration.Observe(time.Since(lastGen).Seconds())
		lastGen = time.Now()

		s.runsMu.Lock()
		state.Generation = snap.Generation
		state.Evaluations = snap.Evaluations
		state.BestSolution = snap.Best
		if maxIters > 0 {
			state.Progress = float64(snap.Generation) / float64(maxIters)
		}
		state.LastUpdated = time.Now()
		s.runsMu.Unlock()
	}

	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	// Cancellation already marked the state; don't overwrite it.
	if state.Status == "cancelled" {
		s.metrics.RunsFinished.WithLabelValues("cancelled").Inc()
		return
	}

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	if runErr != nil && runErr != context.Canceled {
		state.Status = "failed"
		state.Error = runErr.Error()
		// Best of the completed generations stays available.
		state.BestSolution = state.engine.BestSolution()
		s.metrics.RunsFinished.WithLabelValues("failed").Inc()
		s.logger.Error("Optimization failed", map[string]interface{}{
			"run_id": state.ID,
			"error":  runErr.Error(),
		})
		return
	}

	state.Status = "completed"
	state.Progress = 1.0
	state.BestSolution = state.engine.BestSolution()
	s.metrics.RunsFinished.WithLabelValues("completed").Inc()
	s.logger.Info("Optimization completed", map[string]interface{}{
		"run_id":      state.ID,
		"generations": state.Generation,
		"best_value":  bestValue(state.BestSolution),
	})
}

func bestValue(sol *optimization.Solution) interface{} {
	if sol == nil {
		return nil
	}
	return sol.Value
}

// statusResponse builds the status payload for a run. Caller must hold
// at least a read lock.
func (s *Server) statusResponse(state *RunState) map[string]interface{} {
	response := map[string]interface{}{
		"optimization_id": state.ID,
		"objective":       state.Objective,
		"status":          state.Status,
		"progress":        state.Progress,
		"generation":      state.Generation,
		"evaluations":     state.Evaluations,
		"start_time":      state.StartTime.Format(time.RFC3339),
		"last_update":     state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Error != "" {
		response["error"] = state.Error
	}
	if state.BestSolution != nil {
		response["best_solution"] = map[string]interface{}{
			"parameters": state.BestSolution.Parameters,
			"value":      state.BestSolution.Value,
		}
	}
	return response
}

// cancelRun marks a run cancelled and stops its engine at the next
// generation boundary. The in-flight generation completes first.
func (s *Server) cancelRun(id string) error {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	state, exists := s.runs[id]
	if !exists {
		return fmt.Errorf("optimization not found")
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		return fmt.Errorf("cannot cancel optimization with status: %s", state.Status)
	}

	state.engine.Stop()
	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = "cancelled"
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"run_id": id,
	})
	return nil
}

// Close cancels all running optimizations.
func (s *Server) Close() error {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	for _, state := range s.runs {
		if state.CancelFunc != nil {
			state.CancelFunc()
		}
		state.engine.Stop()
	}
	return nil
}

// handleOptimize handles POST /api/v1/optimize.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	id, err := s.startRun(req)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"optimization_id": id,
		"status":          "pending",
	})
}

// handleStatus handles GET /api/v1/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "missing optimization ID",
		})
		return
	}

	s.runsMu.RLock()
	state, exists := s.runs[id]
	var response map[string]interface{}
	if exists {
		response = s.statusResponse(state)
	}
	s.runsMu.RUnlock()

	if !exists {
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": "optimization not found",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleCancel handles DELETE /api/v1/optimization/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "missing optimization ID",
		})
		return
	}

	if err := s.cancelRun(id); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "cancellation requested",
	})
}

// handleObjectives handles GET /api/v1/objectives.
func (s *Server) handleObjectives(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"objectives": optimization.ObjectiveNames(),
	})
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		result, err = s.rpcStart(request.Params)
	case "optimization.status":
		result, err = s.rpcStatus(request.Params)
	case "optimization.cancel":
		err = s.rpcCancel(request.Params)
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// rpcStart handles the optimization.start method.
// Expected params: [{"objective": "sphere", "bounds": [[-5, 5]], ...}]
func (s *Server) rpcStart(params json.RawMessage) (interface{}, error) {
	var reqs []optimizeRequest
	if err := json.Unmarshal(params, &reqs); err != nil || len(reqs) == 0 {
		return nil, fmt.Errorf("missing required parameters")
	}

	id, err := s.startRun(reqs[0])
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"optimization_id": id,
		"status":          "pending",
	}, nil
}

// rpcStatus handles the optimization.status method.
// Expected params: [{"optimization_id": "opt_123"}]
func (s *Server) rpcStatus(params json.RawMessage) (interface{}, error) {
	id, err := rpcRunID(params)
	if err != nil {
		return nil, err
	}

	s.runsMu.RLock()
	defer s.runsMu.RUnlock()

	state, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("optimization not found")
	}
	return s.statusResponse(state), nil
}

// rpcCancel handles the optimization.cancel method.
func (s *Server) rpcCancel(params json.RawMessage) error {
	id, err := rpcRunID(params)
	if err != nil {
		return err
	}
	return s.cancelRun(id)
}

func rpcRunID(params json.RawMessage) (string, error) {
	var args []struct {
		OptimizationID string `json:"optimization_id"`
	}
	if err := json.Unmarshal(params, &args); err != nil || len(args) == 0 {
		return "", fmt.Errorf("missing required parameters")
	}
	if args[0].OptimizationID == "" {
		return "", fmt.Errorf("optimization_id is required")
	}
	return args[0].OptimizationID, nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
