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

package commands_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"

	"github.com/sully701/aichar-like-pykaso/internal/core/commands"
	"github.com/sully701/aichar-like-pykaso/internal/core/cor"
	"github.com/sully701/aichar-like-pykaso/internal/core/model"
)

func scriptTemplate(t *testing.T) *template.Template {
	t.Helper()
	return template.Must(template.New("script-prompt").Parse(commands.DefaultScriptPrompt))
}

func TestFallbackScriptContainsTopicVerbatim(t *testing.T) {
	script := commands.FallbackScript("never giving up on your dreams")
	assert.Contains(t, script, "never giving up on your dreams")

	// The fallback is deterministic.
	assert.Equal(t, script, commands.FallbackScript("never giving up on your dreams"))
}

func TestAcquireScriptWithoutTokenNeverDialsEndpoint(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	script := commands.AcquireScript(context.Background(),
		newTestEndpoint("text", server.URL), scriptTemplate(t), "the ocean", "")

	assert.Equal(t, commands.FallbackScript("the ocean"), script)
	assert.Equal(t, int64(0), hits.Load())
}

func TestAcquireScriptExtractsKnownShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"object shape", `{"generated_text": " Rise and grind. "}`, "Rise and grind."},
		{"list shape", `[{"generated_text": "Chase the horizon."}]`, "Chase the horizon."},
		{"unknown shape", `plain text answer`, "plain text answer"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			script := commands.AcquireScript(context.Background(),
				newTestEndpoint("text", server.URL), scriptTemplate(t), "the ocean", "hf_test")
			assert.Equal(t, tc.want, script)
		})
	}
}

func TestAcquireScriptDegradesOnUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": "model loading"}`))
	}))
	defer server.Close()

	script := commands.AcquireScript(context.Background(),
		newTestEndpoint("text", server.URL), scriptTemplate(t), "the ocean", "hf_test")
	assert.Equal(t, commands.FallbackScript("the ocean"), script)
}

func TestScriptCommandUsesUserEditedScript(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	command := commands.NewScriptGenerateCommand("script-generator",
		newTestEndpoint("text", server.URL), scriptTemplate(t))
	chCtx := newRunContext(&model.GenerationRequest{
		Prompt: "a sea captain",
		Topic:  "the ocean",
		Token:  "hf_test",
		Script: "My own words.",
	})

	assert.True(t, command.IsExecutable(chCtx))
	command.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, "My own words.", chCtx.Get(commands.GetScriptParameterName()))
	assert.Equal(t, "My own words.", chCtx.Get(cor.CtxOut))
	assert.Equal(t, int64(0), hits.Load())
}
