// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package server exposes the execution engine over HTTP. The wire
// contract mirrors the ALI backend API: chat with embedded directive
// processing, a root-constrained file operation API, terminal execution,
// git operations, code analysis, and status endpoints.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"aliengine/internal/analyze"
	"aliengine/internal/chat"
	"aliengine/internal/config"
	"aliengine/internal/engine"
	"aliengine/internal/gitops"
	"aliengine/internal/paths"
	"aliengine/internal/search"
	"aliengine/internal/session"
)

const (
	ProjectName    = "ALI AI Engineer"
	ProjectVersion = "2.0.0"
)

// Server wires the engine, session store and provider client behind the
// HTTP API.
type Server struct {
	cfg        *config.Config
	engine     *engine.Engine
	store      *session.Store
	chatClient *chat.Client
	analyzer   *analyze.Analyzer
	git        *gitops.Service
	searcher   *search.Engine
	filePolicy paths.Policy
	log        zerolog.Logger
}

// New assembles a server from configuration.
func New(cfg *config.Config, log zerolog.Logger) *Server {
	eng := engine.New(cfg.EngineOptions(), log)

	chatOpts := chat.Options{
		APIKey:         cfg.APIKey,
		APIURL:         cfg.APIURL,
		DeepSeekAPIKey: cfg.DeepSeekAPIKey,
	}
	if cfg.Temperature != nil {
		chatOpts.Temperature = *cfg.Temperature
	}
	if cfg.MaxTokens != nil {
		chatOpts.MaxTokens = *cfg.MaxTokens
	}
	client := chat.NewClient(chatOpts, log)

	return &Server{
		cfg:        cfg,
		engine:     eng,
		store:      session.NewStore(cfg.HistoryMaxMessages, cfg.SessionTTL(), log),
		chatClient: client,
		analyzer:   analyze.NewAnalyzer(client, cfg.Model, log),
		git:        gitops.NewService(log),
		searcher:   search.NewEngine(cfg.FileLimits().MaxFileSizeBytes, log),
		filePolicy: cfg.FileAPIPolicy(),
		log:        log,
	}
}

// Handler returns the routed HTTP handler with CORS and request logging
// applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistory)
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/terminal/execute", s.handleTerminal)
	mux.HandleFunc("POST /api/files/operation", s.handleFileOperation)
	mux.HandleFunc("POST /api/git/operation", s.handleGit)
	mux.HandleFunc("POST /api/code/analyze", s.handleAnalyze)

	return s.withCORS(s.withLogging(mux))
}

// ListenAndServe runs the server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.cfg.ListenAddr).Msgf("Starting %s v%s", ProjectName, ProjectVersion)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(started)).
			Msg("Handled request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, into interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}
