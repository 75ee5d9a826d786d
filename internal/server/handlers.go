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

package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"aliengine/internal/chat"
	"aliengine/internal/engine"
	"aliengine/internal/gitops"
	"aliengine/internal/search"
	"aliengine/internal/session"
)

type chatRequest struct {
	Message      string `json:"message"`
	Model        string `json:"model,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

type chatResponse struct {
	Response       string          `json:"response"`
	SessionID      string          `json:"session_id"`
	Model          string          `json:"model"`
	TokensUsed     int             `json:"tokens_used"`
	CommandResults []engine.Result `json:"command_results,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s v%s is running", ProjectName, ProjectVersion),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "message is required",
		})
		return
	}

	model := req.Model
	if model == "" {
		model = s.cfg.Model
	}

	sess := s.store.GetOrCreate(req.SessionID, model)
	history := s.store.History(sess.ID)
	turns := make([]chat.Turn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, chat.Turn{Role: msg.Role, Content: msg.Content})
	}

	s.store.Append(sess.ID, session.Message{Role: "user", Content: req.Message})

	reply, usage, err := s.chatClient.Complete(r.Context(), model, req.SystemPrompt, turns, req.Message)
	if err != nil {
		s.log.Error().Err(err).Str("model", model).Msg("Chat completion failed")
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	processed, results := s.engine.Process(r.Context(), reply)

	s.store.Append(sess.ID, session.Message{
		Role:    "assistant",
		Content: processed,
		Results: results,
	})

	// Expired sessions are swept opportunistically after each exchange.
	go s.store.Cleanup()

	writeJSON(w, http.StatusOK, chatResponse{
		Response:       processed,
		SessionID:      sess.ID,
		Model:          model,
		TokensUsed:     usage.TotalTokens,
		CommandResults: results,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	history := s.store.History(id)
	if history == nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "Session not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": id,
		"history":    history,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := []map[string]string{}
	if s.cfg.APIKey != "" {
		models = append(models,
			map[string]string{"id": "gpt-4o", "name": "GPT-4o", "provider": "openai"},
			map[string]string{"id": "gpt-4o-mini", "name": "GPT-4o mini", "provider": "openai"},
		)
	}
	if s.cfg.DeepSeekAPIKey != "" {
		models = append(models,
			map[string]string{"id": "deepseek-chat", "name": "DeepSeek Chat", "provider": "deepseek"},
			map[string]string{"id": "deepseek-coder", "name": "DeepSeek Coder", "provider": "deepseek"},
		)
	}
	if len(models) == 0 {
		models = append(models,
			map[string]string{"id": s.cfg.Model, "name": s.cfg.Model + " (mock)", "provider": "mock"},
		)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":  models,
		"default": s.cfg.Model,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "running",
		"name":    ProjectName,
		"version": ProjectVersion,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"services": map[string]bool{
			"openai":   s.cfg.APIKey != "",
			"deepseek": s.cfg.DeepSeekAPIKey != "",
		},
		"active_sessions": s.store.Len(),
	})
}

type terminalRequest struct {
	Command          string `json:"command"`
	WorkingDirectory string `json:"working_directory,omitempty"`
	TimeoutSeconds   int    `json:"timeout,omitempty"`
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	var req terminalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "command is required",
		})
		return
	}

	if pattern, dangerous := s.engine.Blacklist().Match(req.Command); dangerous {
		s.log.Warn().Str("pattern", pattern).Msg("Rejected dangerous command")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   false,
			"output":    "",
			"error":     "Command rejected for security reasons: contains potentially unsafe operations",
			"exit_code": -1,
		})
		return
	}

	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	res := s.engine.Shell().Run(r.Context(), req.Command, req.WorkingDirectory, timeout)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   res.Success,
		"output":    res.Stdout,
		"error":     res.Stderr,
		"exit_code": res.ExitCode,
	})
}

type fileOperationRequest struct {
	Operation string  `json:"operation"`
	Path      string  `json:"path"`
	Content   *string `json:"content,omitempty"`
	NewPath   string  `json:"new_path,omitempty"`
	Pattern   string  `json:"pattern,omitempty"`
	Recursive bool    `json:"recursive,omitempty"`
}

func fileError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

// handleFileOperation serves the direct file API. Unlike embedded
// directives, every path here is confined to the workspace root.
func (s *Server) handleFileOperation(w http.ResponseWriter, r *http.Request) {
	var req fileOperationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	path, err := s.filePolicy.Validate(req.Path)
	if err != nil {
		fileError(w, err)
		return
	}

	ctx := r.Context()
	files := s.engine.Files()

	switch strings.ToLower(req.Operation) {
	case "read":
		content, err := files.Read(ctx, path)
		if err != nil {
			fileError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"content": content,
		})

	case "write":
		if req.Content == nil {
			fileError(w, fmt.Errorf("content is required for write operation"))
			return
		}
		if err := files.Write(ctx, path, *req.Content); err != nil {
			fileError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})

	case "create":
		content := ""
		if req.Content != nil {
			content = *req.Content
		}
		if err := files.Create(ctx, path, content); err != nil {
			fileError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})

	case "append":
		if req.Content == nil {
			fileError(w, fmt.Errorf("content is required for append operation"))
			return
		}
		if err := files.Append(ctx, path, *req.Content); err != nil {
			fileError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})

	case "delete":
		if err := files.Delete(ctx, path); err != nil {
			fileError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})

	case "list":
		items, err := files.List(ctx, path, req.Recursive)
		if err != nil {
			fileError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"items":   items,
		})

	case "rename":
		newPath, err := s.filePolicy.Validate(req.NewPath)
		if err != nil {
			fileError(w, err)
			return
		}
		if err := files.Rename(ctx, path, newPath); err != nil {
			fileError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})

	case "search":
		results, err := s.searcher.Search(ctx, path, req.Pattern, req.Recursive)
		if err != nil {
			fileError(w, err)
			return
		}
		if results == nil {
			results = []search.FileResult{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"results": results,
		})

	default:
		fileError(w, fmt.Errorf("Unsupported operation: %s", req.Operation))
	}
}

func (s *Server) handleGit(w http.ResponseWriter, r *http.Request) {
	var req gitops.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.git.Execute(r.Context(), req))
}

type analyzeRequest struct {
	Operation string `json:"operation"`
	Language  string `json:"language"`
	Code      string `json:"code"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "code is required",
		})
		return
	}
	language := req.Language
	if language == "" {
		language = "python"
	}

	ctx := r.Context()
	var result interface{}
	var err error
	switch strings.ToLower(req.Operation) {
	case "analyze", "lint":
		result, err = s.analyzer.Lint(ctx, language, req.Code)
	case "suggest", "improve":
		result, err = s.analyzer.Suggest(ctx, language, req.Code)
	case "test", "generate_tests":
		result, err = s.analyzer.GenerateTests(ctx, language, req.Code)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   fmt.Sprintf("Unsupported analysis operation: %s", req.Operation),
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}
