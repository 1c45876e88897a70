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

package services_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/zeebo/assert"

	"github.com/sully701/aichar-like-pykaso/internal/core/model"
	"github.com/sully701/aichar-like-pykaso/internal/core/services"
)

func newService(t *testing.T) *services.GenerationService {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	service, err := services.NewGenerationService(context.Background(), db)
	assert.NoError(t, err)
	return service
}

func newRecord(fileName string, createDate time.Time) *model.Generation {
	generation := model.NewGeneration(fileName)
	generation.CreateDate = createDate
	generation.Prompt = "a sea captain"
	generation.Topic = "the ocean"
	generation.DurationSeconds = 10
	generation.Language = "en"
	generation.Script = "a short script"
	generation.ImagePath = "/out/" + fileName + ".png"
	generation.VideoPath = "/out/" + fileName
	generation.VideoDuration = 9.5
	return generation
}

func TestSaveAndGet(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	saved := newRecord("clip_1.mp4", time.Now())
	assert.NoError(t, service.Save(ctx, saved))

	loaded, err := service.Get(ctx, saved.Id)
	assert.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Equal(t, saved.Id, loaded.Id)
	assert.Equal(t, saved.Topic, loaded.Topic)
	assert.Equal(t, saved.VideoPath, loaded.VideoPath)
	assert.Equal(t, saved.VideoDuration, loaded.VideoDuration)
}

func TestGetMissingReturnsNil(t *testing.T) {
	service := newService(t)
	loaded, err := service.Get(context.Background(), "no-such-id")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSaveIsIdempotentPerFile(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	first := newRecord("clip_1.mp4", time.Now())
	assert.NoError(t, service.Save(ctx, first))

	// Re-publishing the same file name replaces the row.
	second := newRecord("clip_1.mp4", time.Now())
	second.Script = "an edited script"
	assert.NoError(t, service.Save(ctx, second))

	generations, err := service.List(ctx, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(generations))
	assert.Equal(t, "an edited script", generations[0].Script)
}

func TestListNewestFirst(t *testing.T) {
	service := newService(t)
	ctx := context.Background()
	base := time.Now()

	assert.NoError(t, service.Save(ctx, newRecord("clip_1.mp4", base.Add(-2*time.Hour))))
	assert.NoError(t, service.Save(ctx, newRecord("clip_2.mp4", base.Add(-1*time.Hour))))
	assert.NoError(t, service.Save(ctx, newRecord("clip_3.mp4", base)))

	generations, err := service.List(ctx, 2)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(generations))
	assert.Equal(t, "/out/clip_3.mp4", generations[0].VideoPath)
	assert.Equal(t, "/out/clip_2.mp4", generations[1].VideoPath)
}
