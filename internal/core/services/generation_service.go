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

// Package services provides the persistence layer for the application. The
// generation history lives in a local SQLite database so the server keeps
// its record of published clips across restarts without any external
// infrastructure.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sully701/aichar-like-pykaso/internal/core/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS generations (
	id TEXT PRIMARY KEY,
	create_date TIMESTAMP NOT NULL,
	prompt TEXT NOT NULL,
	topic TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL,
	language TEXT NOT NULL,
	script TEXT NOT NULL,
	image_path TEXT NOT NULL,
	video_path TEXT NOT NULL,
	video_duration REAL NOT NULL
)`

// GenerationService reads and writes Generation records in the history
// database.
type GenerationService struct {
	DB *sql.DB
}

// NewGenerationService creates the service and ensures the schema exists.
func NewGenerationService(ctx context.Context, db *sql.DB) (*GenerationService, error) {
	if _, err := db.ExecContext(ctx, createTableStatement); err != nil {
		return nil, fmt.Errorf("could not create generations table: %w", err)
	}
	return &GenerationService{DB: db}, nil
}

// Save upserts a Generation record. Re-publishing the same clip overwrites
// the existing row since the ID is derived from the file name.
func (s *GenerationService) Save(ctx context.Context, generation *model.Generation) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT OR REPLACE INTO generations
	(id, create_date, prompt, topic, duration_seconds, language, script, image_path, video_path, video_duration)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		generation.Id,
		generation.CreateDate,
		generation.Prompt,
		generation.Topic,
		generation.DurationSeconds,
		generation.Language,
		generation.Script,
		generation.ImagePath,
		generation.VideoPath,
		generation.VideoDuration)
	if err != nil {
		return fmt.Errorf("could not save generation %s: %w", generation.Id, err)
	}
	return nil
}

// Get returns a single Generation by ID, or nil when no such record exists.
func (s *GenerationService) Get(ctx context.Context, id string) (*model.Generation, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT id, create_date, prompt, topic, duration_seconds, language, script, image_path, video_path, video_duration
FROM generations WHERE id = ?`, id)
	generation := &model.Generation{}
	err := row.Scan(
		&generation.Id,
		&generation.CreateDate,
		&generation.Prompt,
		&generation.Topic,
		&generation.DurationSeconds,
		&generation.Language,
		&generation.Script,
		&generation.ImagePath,
		&generation.VideoPath,
		&generation.VideoDuration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read generation %s: %w", id, err)
	}
	return generation, nil
}

// List returns the most recent Generations, newest first.
func (s *GenerationService) List(ctx context.Context, limit int) ([]*model.Generation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, create_date, prompt, topic, duration_seconds, language, script, image_path, video_path, video_duration
FROM generations ORDER BY create_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("could not list generations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	generations := make([]*model.Generation, 0)
	for rows.Next() {
		generation := &model.Generation{}
		if err := rows.Scan(
			&generation.Id,
			&generation.CreateDate,
			&generation.Prompt,
			&generation.Topic,
			&generation.DurationSeconds,
			&generation.Language,
			&generation.Script,
			&generation.ImagePath,
			&generation.VideoPath,
			&generation.VideoDuration); err != nil {
			return nil, fmt.Errorf("could not scan generation row: %w", err)
		}
		generations = append(generations, generation)
	}
	return generations, rows.Err()
}
