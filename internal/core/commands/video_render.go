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

// This file defines the render step of the generation workflow. It shells
// out to FFMpeg to composite the character image, the narration audio, and
// a caption overlay into a portrait MP4 clip. FFMpeg and FFProbe MUST be
// installed on the host system and available on the system path (or pointed
// to by the application config).
package commands

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sully701/aichar-like-pykaso/internal/core/cor"
	"github.com/sully701/aichar-like-pykaso/internal/core/model"
	"github.com/sully701/aichar-like-pykaso/internal/inference"
)

// VideoRenderCommand composites the image, audio, and caption into the
// final clip using FFMpeg.
type VideoRenderCommand struct {
	cor.BaseCommand
	commandPath string          // Path to the ffmpeg binary.
	video       inference.Video // Output geometry and caption styling.
}

// NewVideoRenderCommand is the constructor for the VideoRenderCommand.
func NewVideoRenderCommand(name string, commandPath string, video inference.Video) *VideoRenderCommand {
	return &VideoRenderCommand{
		BaseCommand: *cor.NewBaseCommand(name),
		commandPath: commandPath,
		video:       video,
	}
}

// IsExecutable requires the upstream image and script artifacts in addition
// to the piped-in narration audio path.
func (c *VideoRenderCommand) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) &&
		context.Get(GetImageFileParameterName()) != nil &&
		context.Get(GetScriptParameterName()) != nil
}

// BuildRenderArgs assembles the ffmpeg argument list for a still-image clip:
// loop the image for the clip duration, scale and center-crop it to the
// portrait frame, burn the wrapped caption in, and mux the narration audio,
// trimming everything to the requested length.
func BuildRenderArgs(imagePath string, audioPath string, captionFile string, durationSeconds int, video inference.Video, outputPath string) []string {
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		video.Width, video.Height, video.Width, video.Height)
	drawText := fmt.Sprintf(
		"drawtext=textfile='%s':fontcolor=white:fontsize=%d:x=(w-text_w)/2:y=h*0.08",
		captionFile, video.CaptionFontSize)
	if len(video.FontFile) > 0 {
		drawText = fmt.Sprintf("drawtext=fontfile='%s':textfile='%s':fontcolor=white:fontsize=%d:x=(w-text_w)/2:y=h*0.08",
			video.FontFile, captionFile, video.CaptionFontSize)
	}
	return []string{
		"-y", "-hide_banner",
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-filter:v", filter + "," + drawText,
		"-t", strconv.Itoa(durationSeconds),
		"-r", strconv.Itoa(video.FrameRate),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-f", "mp4",
		outputPath,
	}
}

// Execute renders the clip and pipes the resulting file path forward.
func (c *VideoRenderCommand) Execute(context cor.Context) {
	audioPath := context.Get(c.GetInputParam()).(string)
	image := context.Get(GetImageFileParameterName()).(*model.CharacterImage)
	script := context.Get(GetScriptParameterName()).(string)
	req := context.Get(GetRequestParameterName()).(*model.GenerationRequest)
	NotifyProgress(context, "Creating video with captions...")

	// drawtext reads the caption from a file so the text never needs
	// filter-expression escaping.
	captionFile, err := os.CreateTemp("", "caption-*.txt")
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not create caption file: %w", err))
		return
	}
	context.AddTempFile(captionFile.Name())
	wrapped := WrapText(script, c.video.CaptionWrapColumns)
	if _, err := captionFile.WriteString(wrapped); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not write caption file: %w", err))
		_ = captionFile.Close()
		return
	}
	_ = captionFile.Close()

	outputFile, err := os.CreateTemp("", "clip-*.mp4")
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not create output file: %w", err))
		return
	}
	_ = outputFile.Close()
	context.AddTempFile(outputFile.Name())

	args := BuildRenderArgs(image.Path, audioPath, captionFile.Name(), req.DurationSeconds, c.video, outputFile.Name())
	cmd := exec.CommandContext(context.GetContext(), c.commandPath, args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("ffmpeg render failed (%s %s): %w",
			c.commandPath, strings.Join(args, " "), err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), outputFile.Name())
}
