// Package reasoning defines the interface to the opaque reasoning provider
// used by the appeals reasoning stage and the financial-crime investigation
// and explainability stages.
//
// A provider turns a prompt into free text. Callers must not depend on the
// provider being deterministic; everything downstream of a provider call is
// checkpointed so a resumed run never asks again.
//
// Providers:
//
//   - HTTPProvider talks to an OpenAI-compatible chat completions endpoint,
//     rate limited with golang.org/x/time/rate and retried on 5xx.
//   - Fallback tries a primary provider, then a secondary, and reports which
//     model answered.
//   - Static returns fixed text and is used by tests and offline runs.
package reasoning
