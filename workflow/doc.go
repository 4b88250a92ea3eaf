// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow drives a generated test through compile and repair until it
compiles, runs out of attempts, or fails outright.

# State machine

	DRAFTED → COMPILING → COMPILED → RUNNING → PASSED | FAILED
	              ↓  ↑
	      NEEDS_REPAIR → REPAIRING
	              ↓
	          EXHAUSTED

Any non-terminal phase may move to ERRORED when a collaborator fails in a way
repair cannot address. COMPILED ends the run when execution is disabled.

A compile failure triggers a repair only while the number of repairs made is
below MaxAttempts; with MaxAttempts = N the compiler runs at most N+1 times.
A repair call that fails in transport still spends its attempt and the
unchanged artifact is recompiled.

# Persistence

Every transition is appended to the context store under the run's
correlation key as a PhaseRecord with role "workflow". Replay folds those
records back into a Run, so a process that stops mid-run can resume from the
last persisted phase with Execute. Concurrent Execute calls for one key share
a single execution.
*/
package workflow
