// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package samtools drives the samtools executable: CRAM to BAM conversion,
// BAM indexing and bedcov target coverage.
package samtools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Result is the outcome of one external command.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner runs an external command to completion.  Implementations must
// return a *ToolError when the command cannot be started or exits nonzero.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ToolError reports a failed external tool invocation.
type ToolError struct {
	// Cmd is the command line, for messages.
	Cmd string
	// ExitCode is -1 if the command could not be started.
	ExitCode int
	Stderr   string
	// Err is the underlying exec error.
	Err error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s: exit code %d", e.Cmd, e.ExitCode)
	if e.ExitCode < 0 {
		msg = fmt.Sprintf("%s: %v", e.Cmd, e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// ExecRunner runs commands as local subprocesses.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}
	toolErr := &ToolError{
		Cmd:      strings.Join(append([]string{name}, args...), " "),
		ExitCode: -1,
		Stderr:   stderr.String(),
		Err:      err,
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		toolErr.ExitCode = exitErr.ExitCode()
	}
	res.ExitCode = toolErr.ExitCode
	return res, toolErr
}
