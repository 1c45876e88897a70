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
// speech-synthesis service.
//
// Logic Flow:
// The synthesis service accepts a GET request with the text and a two-letter
// language code and answers with MP3 audio. It caps the amount of text per
// request, so longer scripts are split into word-aligned chunks, synthesized
// one by one, and the MP3 payloads concatenated. MP3 frames are
// self-contained, which makes plain byte concatenation a valid join. No local
// signal processing happens here; the service output is used as-is.
package inference

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sully701/aichar-like-pykaso/internal/core/model"
)

// SpeechClient is an HTTP client for the speech-synthesis service.
type SpeechClient struct {
	URL        string       // Base URL of the synthesis service.
	ChunkLimit int          // Maximum characters the service accepts per request.
	HTTPClient *http.Client // The underlying HTTP client, carrying the configured timeout.
}

// NewSpeechClient is the constructor for a SpeechClient.
func NewSpeechClient(cfg Speech) *SpeechClient {
	return &SpeechClient{
		URL:        cfg.URL,
		ChunkLimit: cfg.ChunkLimit,
		HTTPClient: &http.Client{Timeout: time.Duration(cfg.TimeoutInSeconds) * time.Second},
	}
}

// Synthesize converts the text to MP3 audio in the given voice language.
// Language codes from the UI may carry a regional suffix ("en-us"); the
// service only understands the two-letter prefix, so the suffix is dropped.
//
// Inputs:
//   - ctx: The context for the requests, controlling cancellation.
//   - text: The script text to narrate.
//   - language: The UI language code (e.g. "en", "en-us", "fr").
//
// Outputs:
//   - []byte: The concatenated MP3 audio.
//   - error: An UpstreamError on a non-200 response, or a transport error.
func (s *SpeechClient) Synthesize(ctx context.Context, text string, language string) ([]byte, error) {
	lang, _, _ := strings.Cut(language, "-")

	audio := make([]byte, 0)
	for _, chunk := range SplitChunks(text, s.ChunkLimit) {
		data, err := s.synthesizeChunk(ctx, chunk, lang)
		if err != nil {
			return nil, err
		}
		audio = append(audio, data...)
	}
	return audio, nil
}

// synthesizeChunk performs a single GET against the synthesis service.
func (s *SpeechClient) synthesizeChunk(ctx context.Context, chunk string, lang string) ([]byte, error) {
	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("client", "tw-ob")
	query.Set("tl", lang)
	query.Set("q", chunk)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build speech synthesis request: %w", err)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech synthesis response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &model.UpstreamError{Service: "speech", StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// SplitChunks splits text into pieces of at most limit characters, breaking
// on word boundaries where possible. A single word longer than the limit is
// hard-split rather than rejected.
func SplitChunks(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0)
	current := ""
	for _, word := range strings.Fields(text) {
		// Hard-split pathological words that exceed the limit on their own.
		for len(word) > limit {
			if len(current) > 0 {
				chunks = append(chunks, current)
				current = ""
			}
			chunks = append(chunks, word[:limit])
			word = word[limit:]
		}
		switch {
		case len(current) == 0:
			current = word
		case len(current)+1+len(word) <= limit:
			current = current + " " + word
		default:
			chunks = append(chunks, current)
			current = word
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}
