// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package codegen builds prompts for test generation and repair, and
// normalizes raw model replies into Java sources that declare the package
// and class the caller asked for.
//
// Everything in this package is pure and synchronous.
package codegen
