// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package generator turns a natural-language scenario into a Playwright/TestNG
test class, and renders Playwright page objects from field descriptions.

Generate is one round trip. It validates the request, builds the prompt,
calls the LLM client and normalizes the reply. The result is packaged as an
Artifact. Missing package or class names are defaulted, and the declared
identifiers of the artifact always equal the requested ones. Nothing is
written to disk here.

RenderPageObject needs no model call and is deterministic.
*/
package generator
