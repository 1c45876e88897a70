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
// This file contains the request object that one UI submission creates and
// the validation rules that gate a pipeline run.
package model

// Duration bounds for the final clip, in seconds. The UI slider enforces the
// same range; the server clamps rather than rejects so a hand-crafted API
// call cannot request an hour-long render.
const (
	MinDurationSeconds     = 6
	MaxDurationSeconds     = 20
	DefaultDurationSeconds = 10
)

// SupportedLanguages is the set of voice language codes the narration step
// accepts. Codes with a regional suffix are reduced to their two-letter
// prefix before reaching the synthesis service.
var SupportedLanguages = []string{"en", "en-us", "en-uk", "es", "fr", "de"}

// GenerationRequest captures the four user-supplied parameters of one run,
// plus the optional credential and the optional user-edited script. It lives
// for a single pipeline execution and is not persisted as-is.
type GenerationRequest struct {
	Prompt          string `json:"prompt"`           // Character description sent to the image endpoint.
	Topic           string `json:"topic"`            // Topic of the short script.
	DurationSeconds int    `json:"duration_seconds"` // Target clip length; clamped to [MinDurationSeconds, MaxDurationSeconds].
	Language        string `json:"language"`         // Voice language code; must be one of SupportedLanguages.
	Token           string `json:"token,omitempty"`  // Optional bearer token for the hosted endpoints.
	Script          string `json:"script,omitempty"` // Optional pre-edited script; skips the script-acquisition call when set.
}

// Validate normalizes the request in place and reports the first rule it
// breaks. The duration is clamped (matching the UI slider behavior) rather
// than rejected; a zero duration selects the default.
func (r *GenerationRequest) Validate() error {
	if len(r.Prompt) == 0 {
		return ErrMissingPrompt
	}
	if r.DurationSeconds == 0 {
		r.DurationSeconds = DefaultDurationSeconds
	}
	if r.DurationSeconds < MinDurationSeconds {
		r.DurationSeconds = MinDurationSeconds
	}
	if r.DurationSeconds > MaxDurationSeconds {
		r.DurationSeconds = MaxDurationSeconds
	}
	if r.Language == "" {
		r.Language = SupportedLanguages[0]
	}
	if !IsSupportedLanguage(r.Language) {
		return ErrUnsupportedLanguage
	}
	return nil
}

// IsSupportedLanguage reports whether the given code is in the supported set.
func IsSupportedLanguage(code string) bool {
	for _, lang := range SupportedLanguages {
		if lang == code {
			return true
		}
	}
	return false
}
