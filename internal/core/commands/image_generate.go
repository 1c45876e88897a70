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
// first pipeline step: acquiring the character image from the hosted
// image-generation endpoint.
//
// Logic Flow:
//  1. Read the generation request from the chain input.
//  2. POST the character prompt to the image endpoint; only HTTP 200 counts
//     as success. Any other status aborts the run with an UpstreamError
//     carrying the upstream status and body -- there is no retry and no
//     fallback for this step.
//  3. Sniff the returned bytes to pick a file extension, then persist them
//     to a temporary file tracked by the context for cleanup.
//  4. Publish the image artifact for the render step and pipe the file path
//     to the next command.
package commands

import (
	"fmt"
	"net/http"
	"os"

	"github.com/h2non/filetype"

	"github.com/sully701/aichar-like-pykaso/internal/core/cor"
	"github.com/sully701/aichar-like-pykaso/internal/core/model"
	"github.com/sully701/aichar-like-pykaso/internal/inference"
)

// ImageGenerateCommand acquires the character image from the hosted
// image-generation endpoint and persists it to a temporary file.
type ImageGenerateCommand struct {
	cor.BaseCommand
	endpoint *inference.QuotaAwareEndpoint // Rate-limited client for the image endpoint.
}

// NewImageGenerateCommand is the constructor for the ImageGenerateCommand.
func NewImageGenerateCommand(name string, endpoint *inference.QuotaAwareEndpoint) *ImageGenerateCommand {
	return &ImageGenerateCommand{BaseCommand: *cor.NewBaseCommand(name), endpoint: endpoint}
}

// Execute posts the prompt and persists the returned image bytes.
func (c *ImageGenerateCommand) Execute(context cor.Context) {
	req := context.Get(c.GetInputParam()).(*model.GenerationRequest)
	NotifyProgress(context, "Generating character image...")

	result, err := c.endpoint.Infer(context.GetContext(), req.Prompt, req.Token)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	if result.StatusCode != http.StatusOK {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), &model.UpstreamError{
			Service:    "image",
			StatusCode: result.StatusCode,
			Body:       string(result.Body),
		})
		return
	}

	// Pick the extension from the actual bytes; the endpoint does not
	// declare one and ffmpeg cares about it.
	ext := "png"
	mime := "image/png"
	if kind, err := filetype.Match(result.Body); err == nil && kind != filetype.Unknown {
		ext = kind.Extension
		mime = kind.MIME.Value
	}

	tempFile, err := os.CreateTemp("", "character-image-*."+ext)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not create temp file for image: %w", err))
		return
	}
	// Track the file before writing so a failed write still gets cleaned up.
	context.AddTempFile(tempFile.Name())
	if _, err := tempFile.Write(result.Body); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not write image bytes: %w", err))
		_ = tempFile.Close()
		return
	}
	_ = tempFile.Close()

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetImageFileParameterName(), &model.CharacterImage{Path: tempFile.Name(), MimeType: mime})
	context.Add(c.GetOutputParam(), tempFile.Name())
}
