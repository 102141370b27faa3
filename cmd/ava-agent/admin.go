package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ava-voice/ava-agent/src/config"
	"github.com/ava-voice/ava-agent/src/logger"
	"github.com/ava-voice/ava-agent/src/pipeline"
	"github.com/ava-voice/ava-agent/src/session"
	"github.com/ava-voice/ava-agent/src/store"
	"github.com/ava-voice/ava-agent/src/tools"
	"github.com/ava-voice/ava-agent/src/tools/deepgram"
)

// adminServer exposes the operator surface: call history, live call
// actions, tool invocation, and provider connectivity checks
type adminServer struct {
	port     int
	manager  *session.Manager
	executor *tools.Executor
	bridge   *deepgram.Bridge
	store    *store.Store
	registry *pipeline.Registry
	cfg      *config.Config
	server   *http.Server
	log      *logger.Logger
}

func newAdminServer(port int, manager *session.Manager, executor *tools.Executor, db *store.Store, registry *pipeline.Registry, cfg *config.Config) *adminServer {
	return &adminServer{
		port:     port,
		manager:  manager,
		executor: executor,
		bridge:   deepgram.NewBridge(executor),
		store:    db,
		registry: registry,
		cfg:      cfg,
		log:      logger.WithPrefix("[Admin]"),
	}
}

func (a *adminServer) Start(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.handleHealth)
	mux.HandleFunc("/calls", a.handleCalls)
	mux.HandleFunc("/calls/", a.handleCallAction)

	a.server = &http.Server{Addr: fmt.Sprintf(":%d", a.port), Handler: mux}
	go func() {
		a.log.Info("listening on port %d", a.port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("server error: %v", err)
		}
	}()
}

func (a *adminServer) Stop() {
	if a.server != nil {
		a.server.Shutdown(context.Background())
	}
}

// handleHealth validates connectivity of every registered adapter using
// its configured defaults
func (a *adminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	report := make(map[string]interface{})
	healthy := true
	for _, adapter := range a.registry.Adapters() {
		status := adapter.ValidateConnectivity(ctx, a.cfg.ProviderDefaults(adapter.Key()))
		report[adapter.Key()] = status
		if !status.OK {
			healthy = false
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"healthy":      healthy,
		"providers":    report,
		"active_calls": len(a.manager.ActiveCalls()),
	})
}

// handleCalls lists recent call records
func (a *adminServer) handleCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := a.store.ListCalls(r.Context(), 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleCallAction routes /calls/{id}/say, /calls/{id}/tools, and
// /calls/{id}/function-call
func (a *adminServer) handleCallAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/calls/"), "/"), "/")
	if len(parts) != 2 {
		http.Error(w, "expected /calls/{id}/say or /calls/{id}/tools", http.StatusNotFound)
		return
	}
	callID, action := parts[0], parts[1]

	switch action {
	case "say":
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
			http.Error(w, "text is required", http.StatusBadRequest)
			return
		}
		if err := a.manager.Speak(callID, body.Text); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "spoken"})

	case "tools":
		var body struct {
			Name   string                 `json:"name"`
			Params map[string]interface{} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		result := a.executor.Execute(r.Context(), callID, body.Name, body.Params)
		writeJSON(w, http.StatusOK, result)

	case "function-call":
		// Replays a provider-format function-call event through the
		// agent bridge, answering with the FunctionCallResponse the
		// provider would receive
		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil || !deepgram.IsFunctionCall(raw) {
			http.Error(w, "expected a function-call event", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		a.bridge.HandleMessage(r.Context(), callID, raw, jsonResponseWriter{w})

	default:
		http.Error(w, "unknown action", http.StatusNotFound)
	}
}

// jsonResponseWriter adapts an HTTP response to the bridge's
// result-delivery interface
type jsonResponseWriter struct {
	w http.ResponseWriter
}

func (j jsonResponseWriter) WriteJSON(v interface{}) error {
	return json.NewEncoder(j.w).Encode(v)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
