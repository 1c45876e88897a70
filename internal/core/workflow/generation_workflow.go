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

// Package workflow wires the pipeline steps into executable chains. The
// generation workflow is the full prompt-to-clip pipeline: image acquisition,
// script acquisition, narration synthesis, video assembly, and publication.
// A failure in any step stops the chain, so no partial clip is ever
// published or recorded.
package workflow

import (
	"fmt"
	"sync"
	"text/template"

	"github.com/sully701/aichar-like-pykaso/internal/core/commands"
	"github.com/sully701/aichar-like-pykaso/internal/core/cor"
	"github.com/sully701/aichar-like-pykaso/internal/core/model"
	"github.com/sully701/aichar-like-pykaso/internal/core/services"
	"github.com/sully701/aichar-like-pykaso/internal/inference"
)

// GenerationWorkflow executes the end-to-end clip pipeline for one request.
// Runs are serialized: the host renders one clip at a time.
type GenerationWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
	mu    sync.Mutex // Rendering is resource heavy; one run at a time.
}

// NewGenerationWorkflow assembles the pipeline from the configured clients
// and persistence service.
func NewGenerationWorkflow(
	config *inference.Config,
	clients *inference.ServiceClients,
	service *services.GenerationService,
) *GenerationWorkflow {
	workflow := &GenerationWorkflow{BaseCommand: *cor.NewBaseCommand("generation-workflow")}
	workflow.initializeChain(config, clients, service)
	return workflow
}

func (w *GenerationWorkflow) initializeChain(
	config *inference.Config,
	clients *inference.ServiceClients,
	service *services.GenerationService,
) {
	scriptTemplate := template.Must(template.New("script-prompt").Parse(scriptPrompt(config)))

	w.chain = cor.NewBaseChain("generation-chain").
		AddCommand(commands.NewImageGenerateCommand("character-image-generator", clients.ImageEndpoint)).
		AddCommand(commands.NewScriptGenerateCommand("script-generator", clients.TextEndpoint, scriptTemplate)).
		AddCommand(commands.NewNarrationSynthesizeCommand("narration-synthesizer", clients.Speech)).
		AddCommand(commands.NewVideoRenderCommand("video-renderer", config.Application.FfmpegCommand, config.Video)).
		AddCommand(commands.NewPublishCommand("clip-publisher", config.Application.OutputDir, config.Application.FfprobeCommand, service))
}

func scriptPrompt(config *inference.Config) string {
	if len(config.PromptTemplates.ScriptPrompt) > 0 {
		return config.PromptTemplates.ScriptPrompt
	}
	return commands.DefaultScriptPrompt
}

// IsExecutable requires a validated request under the workflow's input key.
func (w *GenerationWorkflow) IsExecutable(context cor.Context) bool {
	if !w.BaseCommand.IsExecutable(context) {
		return false
	}
	_, ok := context.Get(w.GetInputParam()).(*model.GenerationRequest)
	return ok
}

// Execute runs the pipeline. The request arrives under the workflow's input
// key and is republished under the request parameter name so every step can
// read it regardless of the chain's value piping. On success the published
// Generation is left under the workflow's output key.
func (w *GenerationWorkflow) Execute(context cor.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	request := context.Get(w.GetInputParam()).(*model.GenerationRequest)
	context.Add(commands.GetRequestParameterName(), request)

	w.chain.Execute(context)
	if context.HasErrors() {
		w.GetErrorCounter().Add(context.GetContext(), 1)
		return
	}

	generation, ok := context.Get(cor.CtxIn).(*model.Generation)
	if !ok {
		w.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(w.GetName(), fmt.Errorf("chain completed without a generation record"))
		return
	}
	w.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(w.GetOutputParam(), generation)
}

// FirstError returns one of the errors recorded on the context, or nil. The
// chain stops at the first failing command, so the map holds at most a
// couple of entries and any of them describes the failure.
func FirstError(context cor.Context) error {
	for _, err := range context.GetErrors() {
		return err
	}
	return nil
}
