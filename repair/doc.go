// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package repair turns a non-compiling test artifact plus compiler diagnostics
into a corrected artifact.

Engine is stateless. Each Repair call makes exactly one LLM request at a fixed
low temperature, and the token budget grows with the size of the broken code.
The reply goes through the same normalizer as generation, so the repaired
artifact always declares the caller's package and class. Counting attempts
belongs to the workflow orchestrator. The engine only exposes the normalized
MaxAttempts.

Correct serves targeted correction without diagnostics, and WriteFixedCode
persists a result atomically.
*/
package repair
