// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package errors provides structured error handling for the codegraph CLI.
//
// It defines UserError, a type that carries what went wrong, why, and how
// to fix it, plus exit codes matching the error taxonomy of the builder
// pipeline: ConfigError, BackendError, VersionControlError, ParseError,
// ResolverError, NotFound, and Internal (covers QueryError, which is a
// programming bug and is allowed to panic instead of returning one of
// these).
//
// # Usage
//
//	err := errors.NewBackendError(
//	    "cannot reach the graph backend",
//	    "dial tcp neo4j:7687: connection refused",
//	    "check NEO4J_URI and that the database is running",
//	    underlyingErr,
//	)
//	if err != nil {
//	    errors.FatalError(err, false)
//	}
package errors

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/kraklabs/codegraph/internal/output"
)

// Exit codes, one per entry in the error taxonomy that can abort a run.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitConfig indicates a ConfigError: missing repo_url/repo_path or
	// malformed project configuration. Aborts before any graph mutation.
	ExitConfig = 1

	// ExitBackend indicates a BackendError: the graph store failed during
	// the node/edge upload steps. The in-memory graph is preserved but the
	// build is reported as failed.
	ExitBackend = 2

	// ExitVersionControl indicates a VersionControlError: clone/pull or
	// commit-diff failure. Aborts before any graph mutation.
	ExitVersionControl = 3

	// ExitParse indicates a fatal ParseError: every file in the input set
	// failed to parse. A single bad file does not reach this; it is logged
	// and skipped.
	ExitParse = 4

	// ExitResolver indicates a ResolverError that could not be downgraded
	// to a heuristic fallback. A language server that fails to start under
	// --use-lsp is not such a case: the CLI falls back to the heuristic
	// resolver and carries on.
	ExitResolver = 5

	// ExitNotFound indicates a requested project or commit could not be
	// found. Lookup misses inside the graph itself are not errors; this is
	// for CLI-level "no such project" conditions.
	ExitNotFound = 6

	// ExitInternal indicates a bug: an assertion failure, an invalid query
	// template (QueryError), or any other condition that should never
	// happen in correct code.
	ExitInternal = 10
)

// UserError carries structured context for an end-user-facing error: what
// went wrong (Message), why (Cause), how to fix it (Fix), and the process
// exit code it maps to. It wraps an optional underlying error for
// errors.Is/As compatibility.
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError: missing or invalid repository
// configuration. Exit code ExitConfig.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

// NewBackendError creates a BackendError: the graph storage backend (in
// memory, ordered map, or remote) failed an operation. Exit code
// ExitBackend.
func NewBackendError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitBackend, Err: err}
}

// NewVersionControlError creates a VersionControlError: git clone, pull,
// or diff failed. Exit code ExitVersionControl.
func NewVersionControlError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitVersionControl, Err: err}
}

// NewParseError creates a fatal ParseError: used only when parsing fails
// for the entire input set, not for a single file (which is logged and
// skipped by the builder pipeline instead). Exit code ExitParse.
func NewParseError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitParse, Err: err}
}

// NewResolverError creates a ResolverError that could not be downgraded to
// a heuristic fallback. Exit code ExitResolver.
func NewResolverError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitResolver, Err: err}
}

// NewNotFoundError creates a not-found error for CLI-level lookups (a
// named project or commit, not an unresolved graph edge — those are
// silently dropped, never surfaced as errors). Exit code ExitNotFound.
func NewNotFoundError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitNotFound, Err: nil}
}

// NewInternalError creates an internal error: a bug, an invalid query
// template, or any other condition that indicates the program itself is
// wrong rather than its input. Exit code ExitInternal.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal, Err: err}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a colored, terminal-friendly rendering of the error.
// Color is disabled when noColor is true or NO_COLOR is set.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON is the machine-readable rendering of a UserError, used by
// --json CLI output.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// FatalError prints err (colored or JSON per jsonOutput) and exits with
// its mapped code. A nil err is a no-op: FatalError then returns without
// printing or exiting.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			_ = output.JSONTo(os.Stderr, ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
