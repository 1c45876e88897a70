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

// Package inference provides the configuration and clients for the hosted
// services the pipeline calls. This file implements the client for the
// hosted inference endpoints (image generation and text generation).
//
// Both endpoints share the same wire contract: an HTTP POST with a JSON body
// of the form {"inputs": <prompt>} and an optional bearer-token header. The
// image endpoint answers with raw image bytes on success; the text endpoint
// answers with JSON in one of two known shapes. The client deliberately does
// not interpret status codes or response shapes -- that policy belongs to the
// pipeline commands, which differ per step (the image step fails hard, the
// script step degrades to a local template).
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// inferencePayload is the JSON request body shared by both hosted endpoints.
type inferencePayload struct {
	Inputs string `json:"inputs"`
}

// InferenceResult carries the raw upstream response back to the caller.
// Body is fully read so the caller never has to manage the response stream.
type InferenceResult struct {
	StatusCode int    // The upstream HTTP status code.
	Body       []byte // The raw response body (image bytes or JSON text).
}

// EndpointClient is an HTTP client for a single hosted inference endpoint.
type EndpointClient struct {
	Name       string       // Logical name of the endpoint ("image", "text"), used in errors and logs.
	URL        string       // The endpoint URL.
	HTTPClient *http.Client // The underlying HTTP client, carrying the configured timeout.
}

// NewEndpointClient is the constructor for an EndpointClient.
//
// Inputs:
//   - name: The logical name of the endpoint.
//   - endpoint: The endpoint configuration (URL and timeout).
//
// Outputs:
//   - *EndpointClient: A pointer to the newly instantiated client.
func NewEndpointClient(name string, endpoint Endpoint) *EndpointClient {
	return &EndpointClient{
		Name:       name,
		URL:        endpoint.URL,
		HTTPClient: &http.Client{Timeout: time.Duration(endpoint.TimeoutInSeconds) * time.Second},
	}
}

// Infer posts the prompt to the endpoint and returns the raw result. The
// bearer-token header is attached only when a token is supplied; without one
// the request rides the provider's public queue.
//
// Inputs:
//   - ctx: The context for the request, controlling cancellation.
//   - prompt: The text sent as the "inputs" field of the JSON body.
//   - token: The optional bearer token.
//
// Outputs:
//   - *InferenceResult: The upstream status code and fully-read body.
//   - error: A transport-level error (the result is nil in that case).
func (c *EndpointClient) Infer(ctx context.Context, prompt string, token string) (*InferenceResult, error) {
	body, err := json.Marshal(inferencePayload{Inputs: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s inference payload: %w", c.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s inference request: %w", c.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if len(token) > 0 {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s inference request failed: %w", c.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s inference response: %w", c.Name, err)
	}
	return &InferenceResult{StatusCode: resp.StatusCode, Body: data}, nil
}

// ExtractGeneratedText pulls the generated text out of a text-endpoint
// response. The endpoint is known to answer in one of two shapes: an object
// with a "generated_text" field, or a list of such objects. If neither shape
// matches, the raw payload is stringified rather than treated as an error.
func ExtractGeneratedText(body []byte) string {
	var asObject struct {
		GeneratedText *string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &asObject); err == nil && asObject.GeneratedText != nil {
		return *asObject.GeneratedText
	}

	var asList []struct {
		GeneratedText *string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &asList); err == nil && len(asList) > 0 && asList[0].GeneratedText != nil {
		return *asList[0].GeneratedText
	}

	// Neither known shape matched; fall back to the raw payload as text.
	return string(body)
}
