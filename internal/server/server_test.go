package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steppelabs/STEPPE/internal/config"
	"github.com/steppelabs/STEPPE/internal/logging"
	"github.com/steppelabs/STEPPE/internal/metrics"
)

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Environment: "test",
	}

	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "stdout"

	cfg.Optimization.WorkerCount = 3
	cfg.Optimization.Mutation = 0.5
	cfg.Optimization.Recombination = 0.7
	cfg.Optimization.PopsizeMultiplier = 10
	cfg.Optimization.MaxIterations = 50
	cfg.Optimization.Parallel = false

	return cfg
}

// testLogger creates a test logger
func testLogger(t *testing.T) *logging.Logger {
	logger, err := logging.NewLogger(&logging.Config{
		Level:  "debug",
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func testServer(t *testing.T) (*Server, chi.Router) {
	srv := NewServer(testConfig(t), testLogger(t), metrics.New(prometheus.NewRegistry()))
	t.Cleanup(func() { _ = srv.Close() })

	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

func postOptimize(t *testing.T, r chi.Router, body map[string]interface{}) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestOptimizeEndpoint(t *testing.T) {
	_, r := testServer(t)

	w := postOptimize(t, r, map[string]interface{}{
		"objective": "sphere",
		"bounds":    [][]float64{{-10, 10}},
		"maxiters":  20,
		"seed":      42,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "pending", body["status"])
	assert.NotEmpty(t, body["optimization_id"])
}

func TestOptimizeEndpointValidation(t *testing.T) {
	_, r := testServer(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "unknown objective",
			body: map[string]interface{}{
				"objective": "no-such-function",
				"bounds":    [][]float64{{-10, 10}},
			},
		},
		{
			name: "missing bounds",
			body: map[string]interface{}{
				"objective": "sphere",
			},
		},
		{
			name: "malformed bounds",
			body: map[string]interface{}{
				"objective": "sphere",
				"bounds":    [][]float64{{-10, 10, 20}},
			},
		},
		{
			name: "inverted bounds",
			body: map[string]interface{}{
				"objective": "sphere",
				"bounds":    [][]float64{{10, -10}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postOptimize(t, r, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestStatusLifecycle(t *testing.T) {
	_, r := testServer(t)

	w := postOptimize(t, r, map[string]interface{}{
		"objective": "sphere",
		"bounds":    [][]float64{{-10, 10}},
		"maxiters":  30,
		"seed":      42,
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decodeBody(t, w)["optimization_id"].(string)

	// Poll until the run finishes; 30 generations of the sphere are fast.
	deadline := time.Now().Add(10 * time.Second)
	var status map[string]interface{}
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/status/"+id, nil)
		sw := httptest.NewRecorder()
		r.ServeHTTP(sw, req)
		require.Equal(t, http.StatusOK, sw.Code)

		status = decodeBody(t, sw)
		if status["status"] == "completed" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Equal(t, "completed", status["status"])
	assert.Equal(t, 1.0, status["progress"])
	assert.Equal(t, float64(30), status["generation"])

	best, ok := status["best_solution"].(map[string]interface{})
	require.True(t, ok, "completed run should report its best solution")
	assert.Less(t, best["value"].(float64), 1.0)
}

func TestStatusNotFound(t *testing.T) {
	_, r := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/opt_missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelRun(t *testing.T) {
	_, r := testServer(t)

	// A run with no generation cap and a long budget stays running until
	// cancelled.
	w := postOptimize(t, r, map[string]interface{}{
		"objective":  "rastrigin",
		"bounds":     [][]float64{{-5.12, 5.12}, {-5.12, 5.12}},
		"maxiters":   1000000,
		"stop_after": 3600,
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decodeBody(t, w)["optimization_id"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/optimization/"+id, nil)
	cw := httptest.NewRecorder()
	r.ServeHTTP(cw, req)
	require.Equal(t, http.StatusOK, cw.Code)

	// A second cancel hits a terminal state
	cw = httptest.NewRecorder()
	r.ServeHTTP(cw, httptest.NewRequest(http.MethodDelete, "/api/v1/optimization/"+id, nil))
	assert.Equal(t, http.StatusBadRequest, cw.Code)
}

func TestObjectivesEndpoint(t *testing.T) {
	_, r := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/objectives", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	names, ok := body["objectives"].([]interface{})
	require.True(t, ok)
	assert.Contains(t, names, "sphere")
	assert.Contains(t, names, "schwefel")
}

func TestJSONRPCStartAndStatus(t *testing.T) {
	_, r := testServer(t)

	rpc := func(method string, params interface{}) map[string]interface{} {
		payload, err := json.Marshal(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  method,
			"params":  []interface{}{params},
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		return decodeBody(t, w)
	}

	started := rpc("optimization.start", map[string]interface{}{
		"objective": "sphere",
		"bounds":    [][]float64{{-5, 5}},
		"maxiters":  10,
	})
	result, ok := started["result"].(map[string]interface{})
	require.True(t, ok, "start should succeed: %v", started)
	id := result["optimization_id"].(string)
	require.NotEmpty(t, id)

	status := rpc("optimization.status", map[string]interface{}{
		"optimization_id": id,
	})
	statusResult, ok := status["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, id, statusResult["optimization_id"])
}

func TestJSONRPCInvalidRequests(t *testing.T) {
	_, r := testServer(t)

	tests := []struct {
		name    string
		payload string
		errCode float64
	}{
		{name: "parse error", payload: `{not json`, errCode: -32700},
		{name: "wrong version", payload: `{"jsonrpc": "1.0", "method": "optimization.status"}`, errCode: -32600},
		{name: "unknown method", payload: `{"jsonrpc": "2.0", "method": "optimization.explode"}`, errCode: -32601},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader([]byte(tt.payload)))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			body := decodeBody(t, w)
			rpcErr, ok := body["error"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.errCode, rpcErr["code"])
		})
	}
}
