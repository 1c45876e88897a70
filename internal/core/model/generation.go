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

// Package model defines the core data structures for the application.
// This file contains the persistent record of one completed pipeline run and
// the transient file artifacts the steps hand to each other. The artifacts
// have no identity beyond their file path and are owned by a single run; the
// Generation row is what survives in the history database.
package model

import (
	"time"

	"github.com/google/uuid"
)

// CharacterImage is the output of the image-acquisition step: raw image
// bytes written to a local path.
type CharacterImage struct {
	Path     string // Local file path of the image.
	MimeType string // Detected MIME type (e.g. "image/png").
}

// NarrationAudio is the output of the narration step. The audio is trimmed
// at assembly time so it never exceeds the requested clip duration.
type NarrationAudio struct {
	Path string // Local file path of the MP3 audio.
}

// RenderedVideo is the composed output of the assembly step.
type RenderedVideo struct {
	Path            string  // Local file path of the MP4 clip.
	DurationSeconds float64 // Probed duration of the final clip.
}

// Generation is the persistent record of one completed run, stored in the
// history database and returned by the API.
type Generation struct {
	Id              string    `json:"id"`               // Stable ID derived from the output file name.
	CreateDate      time.Time `json:"create_date"`      // When the run completed.
	Prompt          string    `json:"prompt"`           // Character description used.
	Topic           string    `json:"topic"`            // Script topic used.
	DurationSeconds int       `json:"duration_seconds"` // Requested clip length.
	Language        string    `json:"language"`         // Voice language code used.
	Script          string    `json:"script"`           // Final script text (possibly user-edited).
	ImagePath       string    `json:"image_path"`       // Published character image path.
	VideoPath       string    `json:"video_path"`       // Published video path.
	VideoDuration   float64   `json:"video_duration"`   // Probed duration of the published video.
}

// NewGeneration creates a Generation with a deterministic ID derived from
// the output file name (UUIDv5 over the URL namespace) and the creation time
// set to now. Deriving the ID from the file name keeps re-publishing the
// same output idempotent.
func NewGeneration(fileName string) *Generation {
	return &Generation{
		Id:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(fileName)).String(),
		CreateDate: time.Now(),
	}
}
