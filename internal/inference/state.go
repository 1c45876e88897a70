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
// services the pipeline calls. This file wires those clients together.
//
// Structs:
//   - ServiceClients: A container struct holding all initialized service
//     clients, acting as a central state manager for external connections.
//
// Functions:
//   - Close: A convenience method to gracefully shut down all connections.
//   - NewServiceClients: A factory function that creates and configures all
//     clients based on the application's configuration.
package inference

import (
	"context"
	"database/sql"
	"fmt"

	// SQLite driver registration for the run-history database.
	_ "github.com/mattn/go-sqlite3"
)

// ServiceClients is a struct that acts as a central container for all the
// clients that interact with external services and local storage. This
// pattern is a form of dependency injection, making it easy to manage and
// share these connections across the entire application.
type ServiceClients struct {
	ImageEndpoint *QuotaAwareEndpoint // Rate-limited client for the image-generation endpoint.
	TextEndpoint  *QuotaAwareEndpoint // Rate-limited client for the text-generation endpoint.
	Speech        *SpeechClient       // Client for the speech-synthesis service.
	DB            *sql.DB             // Handle for the SQLite run-history database.
}

// Close is a utility method to gracefully shut down the active connections.
// The HTTP clients hold no persistent state; only the database handle needs
// an explicit close.
func (c *ServiceClients) Close() {
	_ = c.DB.Close()
}

// NewServiceClients is a factory function that initializes all required
// service clients based on the provided configuration. It serves as the main
// entry point for setting up the application's external dependencies.
//
// Inputs:
//   - ctx: The root context.Context for the application.
//   - config: A pointer to the loaded application configuration.
//
// Outputs:
//   - *ServiceClients: A pointer to the fully initialized ServiceClients struct.
//   - error: An error if any of the clients fail to initialize.
func NewServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	imageCfg, ok := config.Endpoints["image"]
	if !ok {
		return nil, fmt.Errorf("missing endpoint configuration: image")
	}
	textCfg, ok := config.Endpoints["text"]
	if !ok {
		return nil, fmt.Errorf("missing endpoint configuration: text")
	}

	imageEndpoint := NewQuotaAwareEndpoint(NewEndpointClient("image", imageCfg), imageCfg.AnonymousRequestsPerMinute)
	textEndpoint := NewQuotaAwareEndpoint(NewEndpointClient("text", textCfg), textCfg.AnonymousRequestsPerMinute)

	db, err := sql.Open("sqlite3", config.Application.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open run-history database %s: %w", config.Application.DatabaseFile, err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach run-history database: %w", err)
	}

	return &ServiceClients{
		ImageEndpoint: imageEndpoint,
		TextEndpoint:  textEndpoint,
		Speech:        NewSpeechClient(config.Speech),
		DB:            db,
	}, nil
}
