// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file wires the server's runtime state: configuration loading,
// inference clients, the history database, the generation workflow, and the
// per-browser-session progress hub that feeds the websocket.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"text/template"

	"github.com/sully701/aichar-like-pykaso/internal/core/commands"
	"github.com/sully701/aichar-like-pykaso/internal/core/cor"
	"github.com/sully701/aichar-like-pykaso/internal/core/model"
	"github.com/sully701/aichar-like-pykaso/internal/core/services"
	"github.com/sully701/aichar-like-pykaso/internal/core/workflow"
	"github.com/sully701/aichar-like-pykaso/internal/inference"
)

// StateManager holds all of the state used by the web server.
type StateManager struct {
	Config         *inference.Config
	Clients        *inference.ServiceClients
	Service        *services.GenerationService
	Workflow       *workflow.GenerationWorkflow
	ScriptTemplate *template.Template
	Sessions       *SessionHub
}

// GetConfig loads the configuration from the default directory, honoring
// the prefix and runtime environment overrides.
func GetConfig() (*inference.Config, error) {
	if _, ok := os.LookupEnv(inference.EnvConfigFilePrefix); !ok {
		if err := os.Setenv(inference.EnvConfigFilePrefix, "configs"); err != nil {
			return nil, fmt.Errorf("could not set default config prefix: %w", err)
		}
	}
	config := inference.NewConfig()
	inference.LoadConfig(config)
	return config, nil
}

// InitState builds the server state from the configuration: inference
// clients, the history service, and the assembled generation workflow.
func InitState(ctx context.Context, config *inference.Config) (*StateManager, error) {
	clients, err := inference.NewServiceClients(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("could not create service clients: %w", err)
	}

	service, err := services.NewGenerationService(ctx, clients.DB)
	if err != nil {
		clients.Close()
		return nil, fmt.Errorf("could not create generation service: %w", err)
	}

	scriptText := config.PromptTemplates.ScriptPrompt
	if len(scriptText) == 0 {
		scriptText = commands.DefaultScriptPrompt
	}
	scriptTemplate, err := template.New("script-prompt").Parse(scriptText)
	if err != nil {
		clients.Close()
		return nil, fmt.Errorf("could not parse script prompt template: %w", err)
	}

	return &StateManager{
		Config:         config,
		Clients:        clients,
		Service:        service,
		Workflow:       workflow.NewGenerationWorkflow(config, clients, service),
		ScriptTemplate: scriptTemplate,
		Sessions:       NewSessionHub(),
	}, nil
}

// Close releases the state's resources.
func (s *StateManager) Close() {
	s.Clients.Close()
}

// RunGeneration executes the full pipeline for one request, streaming
// progress messages to the caller's session, and returns the published
// Generation record.
func (s *StateManager) RunGeneration(ctx context.Context, request *model.GenerationRequest, session string) (*model.Generation, error) {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	defer chCtx.Close()

	chCtx.Add(commands.GetProgressParameterName(), func(message string) {
		s.Sessions.Publish(session, message)
	})
	chCtx.Add(s.Workflow.GetInputParam(), request)

	s.Workflow.Execute(chCtx)
	if err := workflow.FirstError(chCtx); err != nil {
		return nil, err
	}
	generation, ok := chCtx.Get(s.Workflow.GetOutputParam()).(*model.Generation)
	if !ok {
		return nil, fmt.Errorf("workflow completed without a result")
	}
	return generation, nil
}

// SessionHub routes progress messages to the websocket attached to each
// browser session. Publishing to a session nobody is listening on is a
// no-op.
type SessionHub struct {
	mu       sync.Mutex
	sessions map[string]chan string
}

// NewSessionHub is the constructor for the SessionHub.
func NewSessionHub() *SessionHub {
	return &SessionHub{sessions: make(map[string]chan string)}
}

// Register creates the message channel for a session, replacing any
// previous listener.
func (h *SessionHub) Register(session string) chan string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.sessions[session]; ok {
		close(old)
	}
	ch := make(chan string, 16)
	h.sessions[session] = ch
	return ch
}

// Unregister drops a session's channel if it is still the registered one.
func (h *SessionHub) Unregister(session string, ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.sessions[session]; ok && current == ch {
		delete(h.sessions, session)
		close(current)
	}
}

// Publish sends a message to a session without ever blocking the pipeline.
// The send happens under the lock: Register and Unregister close channels
// under the same lock, so a publisher can never send on a closed channel
// during a reconnect. The send itself never blocks, so holding the lock is
// safe.
func (h *SessionHub) Publish(session string, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.sessions[session]
	if !ok {
		return
	}
	select {
	case ch <- message:
	default:
		slog.Warn("dropping progress message, session not draining", "session", session)
	}
}
