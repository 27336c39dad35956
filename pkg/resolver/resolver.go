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

// Package resolver gives the extractor an optional, swappable way to ask
// "what does this identifier refer to" with more precision than syntax
// alone: goto-definition, goto-implementations and hover, backed by a
// language server when one is configured and by the explicit no-op
// resolver.None otherwise.
package resolver

import (
	"context"
	"errors"
)

// ErrNotAvailable is returned by every method of None, and by lsp.Client
// when the server's answer is empty or cannot be decoded. Callers treat it as "fall back to
// the heuristic path", never as a fatal error.
var ErrNotAvailable = errors.New("resolver: not available")

// Position identifies a byte location inside a file the way LSP does: a
// path plus a 0-based line/column.
type Position struct {
	File   string
	Line   int
	Column int
}

// Location is a resolved definition or implementation site.
type Location struct {
	File  string
	Line  int
	Column int
}

// Resolver is implemented by lsp.Client and by None.
type Resolver interface {
	GotoDefinition(ctx context.Context, pos Position) (*Location, error)
	GotoImplementations(ctx context.Context, pos Position) ([]Location, error)
	Hover(ctx context.Context, pos Position) (string, error)
	Close() error
}

// None is the explicit absence of a resolver: every operation returns
// ErrNotAvailable immediately, no context cancellation or network
// involved. Using a typed absence rather than a nil Resolver keeps every
// call site a normal method call instead of a nil check.
type None struct{}

func (None) GotoDefinition(ctx context.Context, pos Position) (*Location, error) {
	return nil, ErrNotAvailable
}

func (None) GotoImplementations(ctx context.Context, pos Position) ([]Location, error) {
	return nil, ErrNotAvailable
}

func (None) Hover(ctx context.Context, pos Position) (string, error) {
	return "", ErrNotAvailable
}

func (None) Close() error { return nil }
