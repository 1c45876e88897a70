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
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sully701/aichar-like-pykaso/internal/core/commands"
	"github.com/sully701/aichar-like-pykaso/internal/core/cor"
	"github.com/sully701/aichar-like-pykaso/internal/core/model"
	"github.com/sully701/aichar-like-pykaso/internal/inference"
)

func TestNarrationChunksAndConcatenates(t *testing.T) {
	var mu sync.Mutex
	var langs []string
	var texts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		langs = append(langs, r.URL.Query().Get("tl"))
		texts = append(texts, r.URL.Query().Get("q"))
		mu.Unlock()
		_, _ = w.Write([]byte("mp3:" + r.URL.Query().Get("q") + ";"))
	}))
	defer server.Close()

	speech := inference.NewSpeechClient(inference.Speech{URL: server.URL, ChunkLimit: 16, TimeoutInSeconds: 5})
	command := commands.NewNarrationSynthesizeCommand("narration-synthesizer", speech)

	chCtx := newRunContext(&model.GenerationRequest{Prompt: "a sea captain", Language: "en-us"})
	chCtx.Remove(cor.CtxIn)
	chCtx.Add(cor.CtxIn, "never stop moving forward")

	assert.True(t, command.IsExecutable(chCtx))
	command.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	audio, ok := chCtx.Get(commands.GetAudioFileParameterName()).(*model.NarrationAudio)
	assert.True(t, ok)
	assert.Equal(t, audio.Path, chCtx.Get(cor.CtxOut))

	// Two chunks at a 16-character limit, each synthesized with the
	// regional suffix stripped from the language code.
	assert.Equal(t, []string{"en", "en"}, langs)
	assert.Equal(t, []string{"never stop", "moving forward"}, texts)

	written, err := os.ReadFile(audio.Path)
	assert.NoError(t, err)
	assert.Equal(t, "mp3:never stop;mp3:moving forward;", string(written))

	// The narration file is temporary and must be tracked for cleanup.
	assert.Contains(t, chCtx.GetTempFiles(), audio.Path)
	chCtx.Close()
	_, err = os.Stat(audio.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestNarrationFailsOnUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	speech := inference.NewSpeechClient(inference.Speech{URL: server.URL, ChunkLimit: 100, TimeoutInSeconds: 5})
	command := commands.NewNarrationSynthesizeCommand("narration-synthesizer", speech)

	chCtx := newRunContext(&model.GenerationRequest{Prompt: "a sea captain", Language: "en"})
	chCtx.Remove(cor.CtxIn)
	chCtx.Add(cor.CtxIn, "some script")

	command.Execute(chCtx)

	assert.True(t, chCtx.HasErrors())
	assert.Nil(t, chCtx.Get(commands.GetAudioFileParameterName()))
}
