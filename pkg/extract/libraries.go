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

package extract

import (
	"encoding/json"
	"path"
	"regexp"
	"strings"

	"github.com/kraklabs/codegraph/pkg/graph"
)

// Pass 1: Libraries. A package manifest is parsed as the manifest format
// it is, not as the source language it lists dependencies for, so this
// runs ahead of and independently from the per-language Extractor: the
// builder calls ExtractLibraries directly on any file ManifestFile
// recognizes instead of routing it through a language Stack.
func ManifestFile(p string) bool {
	base := path.Base(p)
	switch base {
	case "go.mod", "package.json", "requirements.txt", "Pipfile", "Cargo.toml":
		return true
	}
	return false
}

var goRequireLine = regexp.MustCompile(`^\s*([a-zA-Z0-9._/\-]+)\s+(v[0-9][^\s/]*)`)

// ExtractLibraries parses a manifest file's content and adds one Library
// node per declared dependency, with version in meta when the format
// states one. go.mod, package.json and requirements.txt are parsed;
// Pipfile and Cargo.toml are recognized by ManifestFile but yield no
// Library nodes.
func ExtractLibraries(g graph.Graph, file string, content []byte) error {
	switch path.Base(file) {
	case "go.mod":
		return extractGoMod(g, file, content)
	case "package.json":
		return extractPackageJSON(g, file, content)
	case "requirements.txt":
		return extractRequirementsTxt(g, file, content)
	}
	return nil
}

func extractGoMod(g graph.Graph, file string, content []byte) error {
	inBlock := false
	for i, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "require ("):
			inBlock = true
			continue
		case inBlock && trimmed == ")":
			inBlock = false
			continue
		case inBlock:
			if m := goRequireLine.FindStringSubmatch(trimmed); m != nil {
				if err := addLibrary(g, file, i, m[1], m[2]); err != nil {
					return err
				}
			}
		case strings.HasPrefix(trimmed, "require "):
			if m := goRequireLine.FindStringSubmatch(strings.TrimPrefix(trimmed, "require ")); m != nil {
				if err := addLibrary(g, file, i, m[1], m[2]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func extractPackageJSON(g graph.Graph, file string, content []byte) error {
	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(content, &manifest); err != nil {
		return nil
	}
	line := 0
	for name, version := range manifest.Dependencies {
		if err := addLibrary(g, file, line, name, version); err != nil {
			return err
		}
	}
	for name, version := range manifest.DevDependencies {
		if err := addLibrary(g, file, line, name, version); err != nil {
			return err
		}
	}
	return nil
}

func extractRequirementsTxt(g graph.Graph, file string, content []byte) error {
	for i, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		name, version := trimmed, ""
		for _, sep := range []string{"==", ">=", "<=", "~="} {
			if idx := strings.Index(trimmed, sep); idx >= 0 {
				name = trimmed[:idx]
				version = trimmed[idx+len(sep):]
				break
			}
		}
		if err := addLibrary(g, file, i, strings.TrimSpace(name), strings.TrimSpace(version)); err != nil {
			return err
		}
	}
	return nil
}

func addLibrary(g graph.Graph, file string, line int, name, version string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	meta := map[string]string{}
	if version != "" {
		meta[graph.MetaVersion] = version
	}
	return g.AddNode(graph.Library, graph.NodeData{
		Name: name, File: file, Start: line, End: line, Meta: meta,
	})
}
