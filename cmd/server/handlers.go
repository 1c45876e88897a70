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

// This file contains the REST and websocket handlers. The API surface:
//
//	POST /api/v1/generations        run the full pipeline, return the record
//	GET  /api/v1/generations        list recent runs, newest first
//	GET  /api/v1/generations/:id    fetch one run
//	GET  /api/v1/generations/:id/video  stream the published clip
//	GET  /api/v1/generations/:id/image  serve the character image
//	POST /api/v1/scripts            generate (or fall back to) a script only
//	GET  /ws/progress?session=...   progress messages for a browser session
package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sully701/aichar-like-pykaso/internal/core/commands"
	"github.com/sully701/aichar-like-pykaso/internal/core/model"
)

var upgrader = websocket.Upgrader{
	// The UI is served from the same process; cross-origin checks add
	// nothing for a local tool.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleCreateGeneration validates the request and runs the pipeline
// synchronously; progress streams out of band over the session websocket.
func handleCreateGeneration(state *StateManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := &model.GenerationRequest{}
		if err := c.ShouldBindJSON(request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := request.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		session := c.Query("session")
		generation, err := state.RunGeneration(c.Request.Context(), request, session)
		if err != nil {
			if upstream, ok := model.IsUpstreamError(err); ok {
				slog.Error("upstream inference failure", "service", upstream.Service, "status", upstream.StatusCode)
				c.JSON(http.StatusBadGateway, gin.H{"error": upstream.Error()})
				return
			}
			slog.Error("generation failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, generation)
	}
}

// handleListGenerations returns the run history, newest first.
func handleListGenerations(state *StateManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		generations, err := state.Service.List(c.Request.Context(), limit)
		if err != nil {
			slog.Error("could not list generations", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, generations)
	}
}

func handleGetGeneration(state *StateManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		generation, err := state.Service.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if generation == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "generation not found"})
			return
		}
		c.JSON(http.StatusOK, generation)
	}
}

// handleGetGenerationVideo streams the published clip for download.
func handleGetGenerationVideo(state *StateManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		generation, err := state.Service.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if generation == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "generation not found"})
			return
		}
		c.FileAttachment(generation.VideoPath, "clip.mp4")
	}
}

// handleGetGenerationImage serves the published character image.
func handleGetGenerationImage(state *StateManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		generation, err := state.Service.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if generation == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "generation not found"})
			return
		}
		c.File(generation.ImagePath)
	}
}

type scriptRequest struct {
	Topic string `json:"topic"`
	Token string `json:"token"`
}

// handleGenerateScript runs only the script-acquisition step so the UI can
// let the user review and edit the text before committing to a full render.
func handleGenerateScript(state *StateManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := &scriptRequest{}
		if err := c.ShouldBindJSON(request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if len(request.Topic) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
			return
		}
		script := commands.AcquireScript(c.Request.Context(), state.Clients.TextEndpoint, state.ScriptTemplate, request.Topic, request.Token)
		c.JSON(http.StatusOK, gin.H{"script": script})
	}
}

// handleProgressSocket upgrades the connection and relays the session's
// progress messages until the client disconnects.
func handleProgressSocket(state *StateManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := c.Query("session")
		if len(session) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session is required"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}
		messages := state.Sessions.Register(session)
		defer state.Sessions.Unregister(session, messages)
		defer func() {
			_ = conn.Close()
		}()

		// Drain (and discard) client frames so closes are noticed.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case message, ok := <-messages:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
					if !errors.Is(err, websocket.ErrCloseSent) {
						slog.Warn("could not write progress message", "session", session, "error", err)
					}
					return
				}
			case <-done:
				return
			}
		}
	}
}
