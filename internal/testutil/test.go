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

// Package test provides shared helpers for the test suites: a ready-made
// configuration pointed at test-local resources, and stub ffmpeg/ffprobe
// scripts so the render and publish steps can be exercised without media
// tooling on the test host.
package test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sully701/aichar-like-pykaso/internal/inference"
)

// StubFfmpegScript records its arguments next to its output file and writes
// placeholder bytes to the final argument, which BuildRenderArgs always
// makes the output path.
const StubFfmpegScript = `#!/bin/sh
out=""
for arg in "$@"; do out="$arg"; done
echo "$@" > "$out.args"
printf 'stub-video-bytes' > "$out"
`

// StubFfprobeScript reports a fixed duration for any file.
const StubFfprobeScript = `#!/bin/sh
echo "9.50"
`

// HandleErr fails the test immediately on an unexpected error.
func HandleErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// WriteStubTool writes an executable script into dir and returns its path.
func WriteStubTool(t *testing.T, dir string, name string, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0750); err != nil {
		t.Fatalf("could not write stub tool %s: %v", name, err)
	}
	return path
}

// GetConfig returns a configuration suitable for tests: endpoints left for
// the caller to point at httptest servers, output and database under a
// temp directory, and stub media tools.
func GetConfig(t *testing.T) *inference.Config {
	t.Helper()
	dir := t.TempDir()

	config := inference.NewConfig()
	config.Application.Name = "clip-studio-test"
	config.Application.Port = 0
	config.Application.OutputDir = filepath.Join(dir, "output")
	config.Application.DatabaseFile = filepath.Join(dir, "history.db")
	config.Application.FfmpegCommand = WriteStubTool(t, dir, "ffmpeg", StubFfmpegScript)
	config.Application.FfprobeCommand = WriteStubTool(t, dir, "ffprobe", StubFfprobeScript)

	config.Endpoints["image"] = inference.Endpoint{TimeoutInSeconds: 5, AnonymousRequestsPerMinute: 600}
	config.Endpoints["text"] = inference.Endpoint{TimeoutInSeconds: 5, AnonymousRequestsPerMinute: 600}

	config.Speech.ChunkLimit = 100
	config.Speech.TimeoutInSeconds = 5

	config.Video.Width = 720
	config.Video.Height = 1280
	config.Video.FrameRate = 24
	config.Video.CaptionWrapColumns = 40
	config.Video.CaptionFontSize = 36

	return config
}
