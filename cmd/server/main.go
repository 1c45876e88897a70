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

// The server command hosts the clip studio: a single-page UI plus the REST
// API that turns a character prompt and a topic into a published short-form
// video clip.
package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/sully701/aichar-like-pykaso/internal/telemetry"
)

//go:embed static
var staticFiles embed.FS

func main() {
	telemetry.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := GetConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	otelShutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("failed to set up OpenTelemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown reported errors", "error", err)
		}
	}()

	state, err := InitState(ctx, config)
	if err != nil {
		slog.Error("failed to initialize server state", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	router := gin.Default()
	router.Use(otelgin.Middleware(config.Application.Name))
	router.Use(cors.Default())

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		slog.Error("failed to mount embedded UI", "error", err)
		os.Exit(1)
	}
	router.StaticFS("/ui", http.FS(static))
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/ui/")
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/generations", handleCreateGeneration(state))
		apiV1.GET("/generations", handleListGenerations(state))
		apiV1.GET("/generations/:id", handleGetGeneration(state))
		apiV1.GET("/generations/:id/video", handleGetGenerationVideo(state))
		apiV1.GET("/generations/:id/image", handleGetGenerationImage(state))
		apiV1.POST("/scripts", handleGenerateScript(state))
	}
	router.GET("/ws/progress", handleProgressSocket(state))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Application.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
