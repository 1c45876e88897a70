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
// Responsibility (COR) pattern's Command interface; one command per pipeline
// step. This file defines the shared context parameter names that let later
// commands reach artifacts produced by earlier ones (the chain only pipes a
// single primary value), plus the progress notification and caption
// word-wrap helpers used across steps.
package commands

import (
	"strings"

	"github.com/sully701/aichar-like-pykaso/internal/core/cor"
)

// GetRequestParameterName returns the context key holding the
// *model.GenerationRequest for the whole run.
func GetRequestParameterName() string {
	return "generation_request"
}

// GetImageFileParameterName returns the context key holding the
// *model.CharacterImage produced by the image step.
func GetImageFileParameterName() string {
	return "character_image"
}

// GetScriptParameterName returns the context key holding the script text
// produced by the script step.
func GetScriptParameterName() string {
	return "script_text"
}

// GetAudioFileParameterName returns the context key holding the
// *model.NarrationAudio produced by the narration step.
func GetAudioFileParameterName() string {
	return "narration_audio"
}

// GetProgressParameterName returns the context key under which the caller
// may register a func(string) to receive one human-readable message per
// pipeline step (the UI spinner contract).
func GetProgressParameterName() string {
	return "progress_notifier"
}

// NotifyProgress invokes the registered progress callback, if any. Commands
// call it once at the start of their Execute.
func NotifyProgress(context cor.Context, message string) {
	if fn, ok := context.Get(GetProgressParameterName()).(func(string)); ok {
		fn(message)
	}
}

// WrapText word-wraps text to the given column width, joining lines with
// newlines. Words longer than the width land on their own line rather than
// being split.
func WrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		switch {
		case len(current) == 0:
			current = word
		case len(current)+1+len(word) <= width:
			current = current + " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}
	return strings.Join(lines, "\n")
}
