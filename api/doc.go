// Package api defines the wire types of the genbridge HTTP API.
//
// # API Overview
//
// genbridge exposes four POST endpoints that forward content to a
// generative model and return its text output:
//   - /generate-text: JSON body {"prompt": "..."}
//   - /generate-from-image: multipart field "image", optional "prompt"
//   - /generate-from-document: multipart field "document"
//   - /generate-from-audio: multipart field "audio"
//
// Every successful call answers 200 with {"output": "..."}; every failure
// answers with {"error": "..."}. A model failure is always a 500 whose error
// is the upstream message verbatim.
//
// # Operational endpoints
//
//   - GET /health, /healthz: liveness
//   - GET /ready, /readyz: readiness (upload directory writable)
//   - GET /version: build information
//   - GET /metrics: Prometheus metrics, on a separate listener
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:3000
package api
