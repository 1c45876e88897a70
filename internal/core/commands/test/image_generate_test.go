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
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sully701/aichar-like-pykaso/internal/core/commands"
	"github.com/sully701/aichar-like-pykaso/internal/core/cor"
	"github.com/sully701/aichar-like-pykaso/internal/core/model"
)

// pngBytes is a minimal payload starting with the PNG magic number, enough
// for content-type sniffing.
var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}

func TestImageCommandPersistsReturnedBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		assert.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "a sea captain", payload["inputs"])
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write(pngBytes)
	}))
	defer server.Close()

	command := commands.NewImageGenerateCommand("character-image-generator",
		newTestEndpoint("image", server.URL))
	chCtx := newRunContext(&model.GenerationRequest{Prompt: "a sea captain", Topic: "the ocean"})

	command.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	image, ok := chCtx.Get(commands.GetImageFileParameterName()).(*model.CharacterImage)
	assert.True(t, ok)
	assert.Equal(t, "image/png", image.MimeType)
	assert.True(t, strings.HasSuffix(image.Path, ".png"))

	written, err := os.ReadFile(image.Path)
	assert.NoError(t, err)
	assert.Equal(t, pngBytes, written)

	// The raw file is temporary and must be tracked for cleanup.
	assert.Contains(t, chCtx.GetTempFiles(), image.Path)
	chCtx.Close()
	_, err = os.Stat(image.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestImageCommandFailsHardOnUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": "model loading"}`))
	}))
	defer server.Close()

	command := commands.NewImageGenerateCommand("character-image-generator",
		newTestEndpoint("image", server.URL))
	chCtx := newRunContext(&model.GenerationRequest{Prompt: "a sea captain"})

	command.Execute(chCtx)

	assert.True(t, chCtx.HasErrors())
	upstream, ok := model.IsUpstreamError(chCtx.GetErrors()["character-image-generator"])
	assert.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)
	assert.Nil(t, chCtx.Get(commands.GetImageFileParameterName()))
	assert.Nil(t, chCtx.Get(cor.CtxOut))
}
