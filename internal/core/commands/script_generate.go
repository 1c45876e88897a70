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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// script-acquisition step.
//
// This is the one step with a degrade-gracefully policy: without a
// credential the hosted text endpoint is never dialed, and ANY failure --
// transport error, non-200 status, or an unusable response -- silently
// substitutes the deterministic local template with the topic spliced in.
// A response in an unexpected JSON shape is not a failure: the raw payload
// is stringified instead. A run therefore always leaves this step with a
// script in hand.
//
// When the request already carries a user-edited script (the UI lets the
// user revise the preview before committing), acquisition is skipped
// entirely and the edited text is used verbatim.
package commands

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"text/template"

	"github.com/sully701/aichar-like-pykaso/internal/core/cor"
	"github.com/sully701/aichar-like-pykaso/internal/core/model"
	"github.com/sully701/aichar-like-pykaso/internal/inference"
)

// DefaultScriptPrompt is the instruction template used when the
// configuration does not override it.
const DefaultScriptPrompt = "Write a short cinematic motivational script about: {{.Topic}}. Keep it punchy, ~30-60 words."

// fallbackLines is the fixed sentence set of the local fallback script; the
// first line receives the topic.
var fallbackLines = []string{
	"This is a short piece about %s.",
	"Listen closely — the moment you decide to act, everything changes.",
	"Discipline beats talent when talent won't show up. Believe it.",
	"Now choose: will you move, or will you watch others move instead?",
}

// FallbackScript deterministically builds the local template script for a
// topic. The topic always appears verbatim in the output.
func FallbackScript(topic string) string {
	lines := make([]string, 0, len(fallbackLines))
	lines = append(lines, fmt.Sprintf(fallbackLines[0], topic))
	lines = append(lines, fallbackLines[1:]...)
	return strings.Join(lines, " ")
}

// AcquireScript returns the script text for a topic. With a credential it
// asks the hosted text endpoint and extracts the generated text; without one
// (or on any failure) it returns the local fallback. It never returns an
// error: degradation is the contract.
func AcquireScript(ctx context.Context, endpoint *inference.QuotaAwareEndpoint, tmpl *template.Template, topic string, token string) string {
	if len(token) == 0 {
		return FallbackScript(topic)
	}

	var instruction bytes.Buffer
	if err := tmpl.Execute(&instruction, map[string]string{"Topic": topic}); err != nil {
		slog.Warn("script prompt template failed; using fallback", "error", err)
		return FallbackScript(topic)
	}

	result, err := endpoint.Infer(ctx, instruction.String(), token)
	if err != nil {
		slog.Warn("text inference failed; using fallback script", "error", err)
		return FallbackScript(topic)
	}
	if result.StatusCode != http.StatusOK {
		slog.Warn("text inference returned non-success status; using fallback script",
			"status", result.StatusCode)
		return FallbackScript(topic)
	}

	script := strings.TrimSpace(inference.ExtractGeneratedText(result.Body))
	if len(script) == 0 {
		return FallbackScript(topic)
	}
	return script
}

// ScriptGenerateCommand produces the script text for the run.
type ScriptGenerateCommand struct {
	cor.BaseCommand
	endpoint *inference.QuotaAwareEndpoint // Rate-limited client for the text endpoint.
	template *template.Template            // The instruction template for the text endpoint.
}

// NewScriptGenerateCommand is the constructor for the ScriptGenerateCommand.
func NewScriptGenerateCommand(name string, endpoint *inference.QuotaAwareEndpoint, tmpl *template.Template) *ScriptGenerateCommand {
	return &ScriptGenerateCommand{BaseCommand: *cor.NewBaseCommand(name), endpoint: endpoint, template: tmpl}
}

// IsExecutable requires the generation request rather than the piped input;
// the image path flowing in from the previous step is not consumed here.
func (c *ScriptGenerateCommand) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil &&
		context.Get(GetRequestParameterName()) != nil
}

// Execute resolves the script and publishes it for the narration and render
// steps.
func (c *ScriptGenerateCommand) Execute(context cor.Context) {
	req := context.Get(GetRequestParameterName()).(*model.GenerationRequest)
	NotifyProgress(context, "Generating short script...")

	script := req.Script
	if len(strings.TrimSpace(script)) == 0 {
		script = AcquireScript(context.GetContext(), c.endpoint, c.template, req.Topic, req.Token)
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetScriptParameterName(), script)
	context.Add(c.GetOutputParam(), script)
}
