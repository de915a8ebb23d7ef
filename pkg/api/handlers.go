package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/entrhq/surf/pkg/dispatch"
)

// ConnectRequest is the request body for POST /connect.
type ConnectRequest struct {
	// Endpoint is an explicit debugging endpoint; empty means auto-detect.
	Endpoint string `json:"endpoint,omitempty"`
}

// handleConnect brings both backends up. The subprocess tool server is
// required; live-browser attachment is best-effort, so a missing local
// browser degrades to subprocess-only mode instead of failing the request.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	toolServerErr := s.deps.ToolServer.Connect(r.Context())
	if toolServerErr != nil {
		s.log.Errorf("tool server connect failed: %v", toolServerErr)
	}

	browserConnected := false
	browserEndpoint := ""
	if s.deps.Browser != nil && !s.deps.LiveBrowserDisabled {
		endpoint := req.Endpoint
		if endpoint == "" {
			endpoint = s.deps.Endpoint
		}
		if endpoint == "" && s.deps.DetectEndpoint != nil {
			endpoint = s.deps.DetectEndpoint(r.Context())
		}

		if endpoint == "" {
			s.log.Infof("no debugging endpoint found, running subprocess-only")
		} else if s.deps.Browser.Connected() {
			browserConnected = true
			browserEndpoint = s.deps.Browser.Endpoint()
		} else if err := s.deps.Browser.Connect(endpoint); err != nil {
			// Attachment failures are not fatal; tool calls route to the
			// subprocess backend instead.
			s.log.Warnf("browser attach to %s failed: %v", endpoint, err)
		} else {
			browserConnected = true
			browserEndpoint = endpoint
		}
	}

	if toolServerErr != nil && !browserConnected {
		writeError(w, http.StatusBadGateway, "no backend available: "+toolServerErr.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"browser": map[string]interface{}{
			"connected": browserConnected,
			"endpoint":  browserEndpoint,
		},
		"toolServer": map[string]interface{}{
			"connected": toolServerErr == nil,
		},
	})
}

// handleDisconnect detaches the live-browser handle and shuts the subprocess
// worker down. The attached browser itself keeps running.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if s.deps.Browser != nil {
		if err := s.deps.Browser.Disconnect(); err != nil {
			s.log.Warnf("browser disconnect: %v", err)
		}
	}
	if err := s.deps.ToolServer.Close(); err != nil {
		s.log.Warnf("tool server close: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// handleListTools serves the tool catalog from the subprocess peer.
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.deps.Dispatcher.ListTools(r.Context())
	if err != nil {
		if errors.Is(err, dispatch.ErrBackendUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "failed to list tools: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"tools":   tools,
	})
}

// CallToolRequest is the request body for POST /tools/{name}.
type CallToolRequest struct {
	Args map[string]any `json:"args"`
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Args == nil {
		req.Args = make(map[string]any)
	}

	result, err := s.deps.Dispatcher.CallTool(r.Context(), name, req.Args)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrToolDisabled):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, dispatch.ErrBackendUnavailable):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

// SessionRequest is the request body for POST /session.
type SessionRequest struct {
	// Task is the natural-language instruction to execute.
	Task string `json:"task"`

	// Message is accepted as an alias for Task.
	Message string `json:"message,omitempty"`

	// Context is optional supporting detail appended to the task.
	Context string `json:"context,omitempty"`

	// Background returns immediately with the session id instead of
	// blocking until the session terminates. AutoSession is an accepted
	// alias.
	Background  bool `json:"background,omitempty"`
	AutoSession bool `json:"autoSession,omitempty"`

	Options struct {
		MaxIterations int  `json:"maxIterations,omitempty"`
		Background    bool `json:"background,omitempty"`
	} `json:"options,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	task := req.Task
	if task == "" {
		task = req.Message
	}
	if task == "" {
		writeError(w, http.StatusBadRequest, "task is required")
		return
	}
	if req.Context != "" {
		task = task + "\n\nContext:\n" + req.Context
	}

	id := s.deps.Store.Create(task)
	background := req.Background || req.AutoSession || req.Options.Background

	if background {
		// The session outlives the request, so it runs on a fresh context.
		go func() {
			if err := s.deps.RunSession(context.Background(), id, req.Options.MaxIterations); err != nil {
				s.log.Warnf("session %s terminated: %v", id, err)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"success":   true,
			"sessionId": id,
		})
		return
	}

	// The session record carries the terminal outcome either way, so a
	// run error is the session's to report, not the transport's.
	if err := s.deps.RunSession(r.Context(), id, req.Options.MaxIterations); err != nil {
		s.log.Warnf("session %s terminated: %v", id, err)
	}

	session, ok := s.deps.Store.Get(id)
	if !ok {
		writeError(w, http.StatusInternalServerError, "session record lost")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": session,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, ok := s.deps.Store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found: "+id)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": session,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"sessions": s.deps.Store.List(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	browserConnected := s.deps.Browser != nil && s.deps.Browser.Connected()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"browser":    browserConnected,
		"toolServer": s.deps.ToolServer.Connected(),
	})
}
