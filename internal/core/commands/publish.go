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

// This file defines the final step of the generation workflow: the rendered
// clip and its character image are moved out of the temp directory into the
// output directory, the clip is probed for its real duration, and the run is
// recorded in the history database.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sully701/aichar-like-pykaso/internal/core/cor"
	"github.com/sully701/aichar-like-pykaso/internal/core/model"
	"github.com/sully701/aichar-like-pykaso/internal/core/services"
)

// PublishCommand moves the run's artifacts into the output directory and
// saves the Generation record.
type PublishCommand struct {
	cor.BaseCommand
	outputDir    string                      // Directory the published artifacts live in.
	probeCommand string                      // Path to the ffprobe binary.
	service      *services.GenerationService // History persistence.
}

// NewPublishCommand is the constructor for the PublishCommand.
func NewPublishCommand(name string, outputDir string, probeCommand string, service *services.GenerationService) *PublishCommand {
	return &PublishCommand{
		BaseCommand:  *cor.NewBaseCommand(name),
		outputDir:    outputDir,
		probeCommand: probeCommand,
		service:      service,
	}
}

// MoveFile relocates a file across directories, falling back to a copy when
// a rename crosses filesystem boundaries (temp dirs are often a separate
// mount).
func MoveFile(sourcePath string, destPath string) error {
	if err := os.Rename(sourcePath, destPath); err == nil {
		return nil
	}
	inputFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("could not open source file: %w", err)
	}
	outputFile, err := os.Create(destPath)
	if err != nil {
		_ = inputFile.Close()
		return fmt.Errorf("could not open dest file: %w", err)
	}
	defer func(outputFile *os.File) {
		_ = outputFile.Close()
	}(outputFile)
	_, err = io.Copy(outputFile, inputFile)
	_ = inputFile.Close()
	if err != nil {
		return fmt.Errorf("could not copy to output file: %w", err)
	}
	if err = os.Remove(sourcePath); err != nil {
		return fmt.Errorf("failed removing original file: %w", err)
	}
	return nil
}

// Execute publishes the rendered clip and image, then records the run.
func (c *PublishCommand) Execute(context cor.Context) {
	videoPath := context.Get(c.GetInputParam()).(string)
	image := context.Get(GetImageFileParameterName()).(*model.CharacterImage)
	script := context.Get(GetScriptParameterName()).(string)
	req := context.Get(GetRequestParameterName()).(*model.GenerationRequest)
	NotifyProgress(context, "Publishing clip...")

	if err := os.MkdirAll(c.outputDir, 0750); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not create output dir: %w", err))
		return
	}

	stamp := time.Now().Unix()
	clipName := fmt.Sprintf("clip_%d.mp4", stamp)
	clipDest := filepath.Join(c.outputDir, clipName)
	if err := MoveFile(videoPath, clipDest); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not publish clip: %w", err))
		return
	}

	imageDest := filepath.Join(c.outputDir, fmt.Sprintf("character_%d%s", stamp, filepath.Ext(image.Path)))
	if err := MoveFile(image.Path, imageDest); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not publish image: %w", err))
		return
	}

	// A probe failure is not worth failing the run over; the clip is
	// already published.
	duration, err := ProbeDuration(context.GetContext(), c.probeCommand, clipDest)
	if err != nil {
		slog.Warn("could not probe published clip", "file", clipDest, "error", err)
	}

	generation := model.NewGeneration(clipName)
	generation.Prompt = req.Prompt
	generation.Topic = req.Topic
	generation.DurationSeconds = req.DurationSeconds
	generation.Language = req.Language
	generation.Script = script
	generation.ImagePath = imageDest
	generation.VideoPath = clipDest
	generation.VideoDuration = duration

	if err := c.service.Save(context.GetContext(), generation); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not save generation record: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), generation)
}
