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

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kraklabs/codegraph/pkg/resolver"
)

// lspCommandEnv names the environment variable a user points at their
// Language Server binary; gopls is the only server every Go checkout can
// assume is installed, so it's the default rather than a hardcoded path.
const lspCommandEnv = "CODEGRAPH_LSP_COMMAND"

// openResolver dials a Language Server when useLSP is set, downgrading to
// resolver.None (never a fatal error) if the dial fails — §7's
// ResolverError policy: a resolver that never comes up falls back to the
// heuristic call-resolution path instead of failing the build.
func openResolver(ctx context.Context, useLSP bool, repoPath string, logger *slog.Logger) (resolver.Resolver, func()) {
	if !useLSP {
		return resolver.None{}, func() {}
	}

	command := os.Getenv(lspCommandEnv)
	if command == "" {
		command = "gopls"
	}
	client, err := resolver.Dial(ctx, command, []string{"serve"}, "file://"+repoPath)
	if err != nil {
		logger.Warn("resolver.dial.failed", "command", command, "err", err)
		return resolver.None{}, func() {}
	}
	return client, func() { _ = client.Close() }
}

func ollamaHost() string {
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		return v
	}
	return "http://localhost:11434"
}

func ollamaModel() string {
	if v := os.Getenv("OLLAMA_EMBED_MODEL"); v != "" {
		return v
	}
	return "nomic-embed-text"
}
