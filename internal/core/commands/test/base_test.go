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

package commands_test

import (
	"context"

	"github.com/sully701/aichar-like-pykaso/internal/core/commands"
	"github.com/sully701/aichar-like-pykaso/internal/core/cor"
	"github.com/sully701/aichar-like-pykaso/internal/core/model"
	"github.com/sully701/aichar-like-pykaso/internal/inference"
)

// newRunContext builds a chain context the way the workflow does: the
// request is available both as the piped-in value and under the shared
// request parameter.
func newRunContext(request *model.GenerationRequest) cor.Context {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(commands.GetRequestParameterName(), request)
	chCtx.Add(cor.CtxIn, request)
	return chCtx
}

// newTestEndpoint wraps a stub server URL in the client stack the pipeline
// uses, with a throttle high enough to never trigger in tests.
func newTestEndpoint(name string, url string) *inference.QuotaAwareEndpoint {
	return inference.NewQuotaAwareEndpoint(
		inference.NewEndpointClient(name, inference.Endpoint{URL: url, TimeoutInSeconds: 5}), 600)
}
