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
// narration step: the script text flows in from the script step, the
// speech-synthesis client turns it into MP3 audio in the requested voice
// language, and the bytes are persisted to a temporary file. The step does
// no local signal processing and no trimming; the render step caps the audio
// at the requested clip duration.
package commands

import (
	"fmt"
	"os"

	"github.com/sully701/aichar-like-pykaso/internal/core/cor"
	"github.com/sully701/aichar-like-pykaso/internal/core/model"
	"github.com/sully701/aichar-like-pykaso/internal/inference"
)

// NarrationSynthesizeCommand converts the script text into narration audio.
type NarrationSynthesizeCommand struct {
	cor.BaseCommand
	speech *inference.SpeechClient // Client for the speech-synthesis service.
}

// NewNarrationSynthesizeCommand is the constructor for the
// NarrationSynthesizeCommand.
func NewNarrationSynthesizeCommand(name string, speech *inference.SpeechClient) *NarrationSynthesizeCommand {
	return &NarrationSynthesizeCommand{BaseCommand: *cor.NewBaseCommand(name), speech: speech}
}

// Execute synthesizes the piped-in script and persists the MP3 bytes.
func (c *NarrationSynthesizeCommand) Execute(context cor.Context) {
	script := context.Get(c.GetInputParam()).(string)
	req := context.Get(GetRequestParameterName()).(*model.GenerationRequest)
	NotifyProgress(context, "Generating voice narration...")

	audio, err := c.speech.Synthesize(context.GetContext(), script, req.Language)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("speech synthesis failed: %w", err))
		return
	}

	tempFile, err := os.CreateTemp("", "narration-*.mp3")
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not create temp file for narration: %w", err))
		return
	}
	// Track the file before writing so a failed write still gets cleaned up.
	context.AddTempFile(tempFile.Name())
	if _, err := tempFile.Write(audio); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not write narration bytes: %w", err))
		_ = tempFile.Close()
		return
	}
	_ = tempFile.Close()

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetAudioFileParameterName(), &model.NarrationAudio{Path: tempFile.Name()})
	context.Add(c.GetOutputParam(), tempFile.Name())
}
