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

package model_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sully701/aichar-like-pykaso/internal/core/model"
)

func TestNewGenerationDeterministicId(t *testing.T) {
	first := model.NewGeneration("clip_1700000000.mp4")
	second := model.NewGeneration("clip_1700000000.mp4")
	other := model.NewGeneration("clip_1700000001.mp4")

	assert.Equal(t, first.Id, second.Id)
	assert.NotEqual(t, first.Id, other.Id)
	assert.False(t, first.CreateDate.IsZero())
}

func TestValidateRequiresPrompt(t *testing.T) {
	request := &model.GenerationRequest{Topic: "perseverance"}
	assert.ErrorIs(t, request.Validate(), model.ErrMissingPrompt)
}

func TestValidateClampsDuration(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, model.DefaultDurationSeconds},
		{1, model.MinDurationSeconds},
		{6, 6},
		{20, 20},
		{3600, model.MaxDurationSeconds},
	}
	for _, tc := range tests {
		request := &model.GenerationRequest{Prompt: "a sea captain", DurationSeconds: tc.in}
		assert.NoError(t, request.Validate())
		assert.Equal(t, tc.want, request.DurationSeconds, "duration %d", tc.in)
	}
}

func TestValidateLanguage(t *testing.T) {
	request := &model.GenerationRequest{Prompt: "a sea captain"}
	assert.NoError(t, request.Validate())
	assert.Equal(t, "en", request.Language)

	request = &model.GenerationRequest{Prompt: "a sea captain", Language: "en-uk"}
	assert.NoError(t, request.Validate())

	request = &model.GenerationRequest{Prompt: "a sea captain", Language: "xx"}
	assert.ErrorIs(t, request.Validate(), model.ErrUnsupportedLanguage)
}

func TestUpstreamError(t *testing.T) {
	upstream := &model.UpstreamError{Service: "image", StatusCode: 503, Body: "loading"}
	wrapped := fmt.Errorf("step failed: %w", upstream)

	found, ok := model.IsUpstreamError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "image", found.Service)
	assert.Contains(t, upstream.Error(), "503")

	_, ok = model.IsUpstreamError(fmt.Errorf("plain"))
	assert.False(t, ok)
}
