// Package api defines the request and response bodies of the testsmith HTTP API.
//
// # API Overview
//
// testsmith exposes a small JSON API for:
//   - Single-shot LLM completions
//   - Context store reads, appends and listings
//   - Playwright/TestNG test generation and page-object rendering
//   - Targeted compile repair of Java sources
//   - Generate, compile, repair and run workflows with resumable history
//   - Health monitoring and metrics
//
// Every response is wrapped in the envelope written by api/handlers:
//
//	{"success": true, "data": {...}, "timestamp": "...", "request_id": "..."}
//
// # Authentication
//
// When server.api_keys is configured, API endpoints require the X-API-Key
// header:
//
//	X-API-Key: your-api-key
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8090
package api
