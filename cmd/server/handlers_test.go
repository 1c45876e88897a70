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

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/sully701/aichar-like-pykaso/internal/core/commands"
	"github.com/sully701/aichar-like-pykaso/internal/inference"
	test "github.com/sully701/aichar-like-pykaso/internal/testutil"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}

func newTestState(t *testing.T, textURL string) *StateManager {
	t.Helper()
	config := test.GetConfig(t)
	if len(textURL) > 0 {
		config.Endpoints["text"] = inference.Endpoint{URL: textURL, TimeoutInSeconds: 5, AnonymousRequestsPerMinute: 600}
	}

	state, err := InitState(context.Background(), config)
	test.HandleErr(t, err)
	t.Cleanup(state.Close)
	return state
}

// newPipelineState wires a state whose image, text and speech endpoints all
// point at local stubs, so a full generation can run through the handler.
func newPipelineState(t *testing.T) *StateManager {
	t.Helper()
	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes)
	}))
	t.Cleanup(imageServer.Close)
	textServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"generated_text": "a generated script"}`))
	}))
	t.Cleanup(textServer.Close)
	speechServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	t.Cleanup(speechServer.Close)

	config := test.GetConfig(t)
	config.Endpoints["image"] = inference.Endpoint{URL: imageServer.URL, TimeoutInSeconds: 5, AnonymousRequestsPerMinute: 600}
	config.Endpoints["text"] = inference.Endpoint{URL: textServer.URL, TimeoutInSeconds: 5, AnonymousRequestsPerMinute: 600}
	config.Speech.URL = speechServer.URL

	state, err := InitState(context.Background(), config)
	test.HandleErr(t, err)
	t.Cleanup(state.Close)
	return state
}

func TestScriptHandlerFallsBackWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	state := newTestState(t, "")

	router := gin.New()
	router.POST("/api/v1/scripts", handleGenerateScript(state))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scripts",
		strings.NewReader(`{"topic": "the ocean"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var body map[string]string
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, commands.FallbackScript("the ocean"), body["script"])
}

func TestScriptHandlerRequiresTopic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	state := newTestState(t, "")

	router := gin.New()
	router.POST("/api/v1/scripts", handleGenerateScript(state))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scripts", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGenerationHandlerReturnsRecord(t *testing.T) {
	gin.SetMode(gin.TestMode)
	state := newPipelineState(t)

	router := gin.New()
	router.POST("/api/v1/generations", handleCreateGeneration(state))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations?session=abc",
		strings.NewReader(`{"prompt": "a sea captain", "topic": "the ocean", "duration_seconds": 10, "language": "en"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["video_path"])
	assert.Equal(t, commands.FallbackScript("the ocean"), body["script"])
}

func TestGenerationHandlerRejectsInvalidRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	state := newTestState(t, "")

	router := gin.New()
	router.POST("/api/v1/generations", handleCreateGeneration(state))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations",
		strings.NewReader(`{"topic": "no prompt here"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetGenerationNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	state := newTestState(t, "")

	router := gin.New()
	router.GET("/api/v1/generations/:id", handleGetGeneration(state))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/generations/no-such-id", nil)
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestSessionHubPublishAndUnregister(t *testing.T) {
	hub := NewSessionHub()

	// Publishing with nobody listening is a no-op.
	hub.Publish("ghost", "hello")

	messages := hub.Register("abc")
	hub.Publish("abc", "Generating character image...")
	assert.Equal(t, "Generating character image...", <-messages)

	// A new registration for the same session replaces the old channel.
	replacement := hub.Register("abc")
	_, open := <-messages
	assert.False(t, open)

	hub.Unregister("abc", replacement)
	_, open = <-replacement
	assert.False(t, open)

	// Unregistering a stale channel leaves the current one alone.
	current := hub.Register("abc")
	hub.Unregister("abc", replacement)
	hub.Publish("abc", "still here")
	assert.Equal(t, "still here", <-current)
}

// A client reconnecting or disconnecting mid-run must never make the
// pipeline's progress callback send on a closed channel.
func TestSessionHubPublishDuringReconnect(t *testing.T) {
	hub := NewSessionHub()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				ch := hub.Register("s")
				hub.Unregister("s", ch)
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				hub.Publish("s", "Generating character image...")
			}
		}()
	}
	wg.Wait()
}
