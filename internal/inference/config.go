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

// Package inference defines the data structures for application configuration,
// loaded from TOML files, along with the HTTP clients for the hosted inference
// endpoints the pipeline depends on.
//
// This file centralizes all configuration-related structs, making it easy
// to understand and manage the application's configurable parameters.
//
// Structs:
//   - Endpoint: Configuration for a single hosted inference endpoint.
//   - Speech: Configuration for the speech-synthesis service.
//   - Video: Fixed output parameters for the rendered clip.
//   - PromptTemplates: Holds the text templates for instructions sent to the
//     text-generation endpoint.
//   - Config: The top-level struct that aggregates all other configuration structs.
//
// Functions:
//   - NewConfig: A constructor that initializes a new Config object with empty maps.
package inference

// Endpoint represents the configuration for a hosted inference endpoint.
// The same shape serves both the image-generation and text-generation
// endpoints; they are kept in a map keyed by a logical name ("image", "text").
type Endpoint struct {
	URL                        string `toml:"url"`                           // The endpoint URL (HTTP POST, JSON body {"inputs": ...}).
	TimeoutInSeconds           int    `toml:"timeout_in_seconds"`            // The HTTP client timeout for requests to this endpoint.
	AnonymousRequestsPerMinute int    `toml:"anonymous_requests_per_minute"` // Throttle applied to credential-less (public queue) calls.
}

// Speech represents the configuration for the speech-synthesis service.
type Speech struct {
	URL              string `toml:"url"`                // The base URL of the synthesis service.
	ChunkLimit       int    `toml:"chunk_limit"`        // The maximum number of characters the service accepts per request.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The HTTP client timeout for synthesis requests.
}

// Video holds the fixed output parameters for the rendered clip. The codec
// pair (libx264/aac) is not configurable; these are layout knobs only.
type Video struct {
	Width              int    `toml:"width"`                // Output frame width in pixels.
	Height             int    `toml:"height"`               // Output frame height in pixels.
	FrameRate          int    `toml:"frame_rate"`           // Output frame rate.
	CaptionWrapColumns int    `toml:"caption_wrap_columns"` // Word-wrap width for the caption overlay.
	CaptionFontSize    int    `toml:"caption_font_size"`    // Font size for the caption overlay.
	FontFile           string `toml:"font_file"`            // Optional font file for drawtext; empty uses the ffmpeg default.
}

// PromptTemplates holds the templates for different types of prompts.
type PromptTemplates struct {
	ScriptPrompt string `toml:"script"` // The template for the script-generation instruction.
}

// Config represents the overall configuration for the application, loaded from
// TOML files. It acts as the root container for all other configuration structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name           string `toml:"name"`            // The name of the application.
		Port           int    `toml:"port"`            // The HTTP listen port.
		OutputDir      string `toml:"output_dir"`      // Directory where finished videos and images are published.
		DatabaseFile   string `toml:"database_file"`   // Path of the SQLite run-history database.
		FfmpegCommand  string `toml:"ffmpeg_command"`  // Path to the ffmpeg executable.
		FfprobeCommand string `toml:"ffprobe_command"` // Path to the ffprobe executable.
	} `toml:"application"`
	Endpoints       map[string]Endpoint `toml:"endpoints"`        // Hosted inference endpoints, keyed by a logical name ("image", "text").
	Speech          Speech              `toml:"speech"`           // Speech-synthesis service configuration.
	Video           Video               `toml:"video"`            // Rendered clip parameters.
	PromptTemplates PromptTemplates     `toml:"prompt_templates"` // Prompt templates configuration.
}

// NewConfig is a constructor function that creates a new, initialized Config
// instance. It's important to initialize the map within the struct to avoid
// nil pointer panics when the configuration loader tries to populate it.
//
// Outputs:
//   - *Config: A pointer to a new Config struct with its map field initialized.
func NewConfig() *Config {
	return &Config{
		Endpoints: make(map[string]Endpoint),
	}
}
