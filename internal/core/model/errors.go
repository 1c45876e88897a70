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
// This file holds the error types shared across the pipeline. There are only
// two interesting kinds: validation failures on the incoming request, and
// non-success responses from one of the hosted services. Response-shape
// mismatches on the text endpoint are deliberately NOT an error -- the raw
// payload is stringified instead -- and script-step failures degrade to the
// local fallback template rather than surfacing here.
package model

import (
	"errors"
	"fmt"
)

// Validation errors for incoming generation requests.
var (
	ErrMissingPrompt       = errors.New("character prompt must not be empty")
	ErrUnsupportedLanguage = errors.New("voice language is not supported")
)

// UpstreamError reports a non-success HTTP status from one of the hosted
// services. It carries the upstream status and body so the user-facing error
// message can say what the provider actually answered.
type UpstreamError struct {
	Service    string // Logical service name: "image", "text" or "speech".
	StatusCode int    // The upstream HTTP status code.
	Body       string // The raw upstream response body.
}

// Error formats the failure the way the UI presents it.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s inference failed: %d %s", e.Service, e.StatusCode, e.Body)
}

// IsUpstreamError reports whether err wraps an UpstreamError, returning the
// typed error when it does.
func IsUpstreamError(err error) (*UpstreamError, bool) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream, true
	}
	return nil, false
}
