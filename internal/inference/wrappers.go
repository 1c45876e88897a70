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
// services the pipeline calls. This file implements a wrapper around the
// plain endpoint client using the Decorator pattern, adding rate limiting
// for anonymous calls without altering the client itself.
//
// Why this matters: without a credential the hosted endpoints serve requests
// from a shared public queue, which throttles aggressively. The wrapper keeps
// anonymous traffic under a configured requests-per-minute budget so the
// provider does not start rejecting calls outright. Authenticated calls pass
// straight through; the bearer token buys a dedicated quota upstream.
package inference

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// QuotaAwareEndpoint is a decorator struct that wraps an EndpointClient to
// add rate-limiting for credential-less calls. By embedding the client it
// keeps the same surface, but Infer is overridden to consult the limiter.
type QuotaAwareEndpoint struct {
	*EndpointClient               // The embedded base client. All its fields and methods are available here.
	RateLimit       *rate.Limiter // Limiter applied to anonymous (public queue) calls only.
}

// NewQuotaAwareEndpoint is a constructor function that creates a new
// QuotaAwareEndpoint from a base client and an anonymous requests-per-minute
// budget.
//
// Inputs:
//   - wrapped: The original *EndpointClient to be wrapped.
//   - anonymousRequestsPerMinute: The maximum number of credential-less calls
//     allowed per minute. Zero or negative disables throttling.
//
// Outputs:
//   - *QuotaAwareEndpoint: A pointer to the newly created wrapper.
func NewQuotaAwareEndpoint(wrapped *EndpointClient, anonymousRequestsPerMinute int) *QuotaAwareEndpoint {
	var limiter *rate.Limiter
	if anonymousRequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(anonymousRequestsPerMinute)), 1)
	}
	return &QuotaAwareEndpoint{EndpointClient: wrapped, RateLimit: limiter}
}

// Infer overrides the embedded client's Infer method. Anonymous calls block
// on the rate limiter until a slot is free (or the context is cancelled);
// authenticated calls are passed through untouched.
func (q *QuotaAwareEndpoint) Infer(ctx context.Context, prompt string, token string) (*InferenceResult, error) {
	if len(token) == 0 && q.RateLimit != nil {
		if err := q.RateLimit.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return q.EndpointClient.Infer(ctx, prompt, token)
}
