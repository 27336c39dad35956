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

package builder

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kraklabs/codegraph/pkg/coverage"
	"github.com/kraklabs/codegraph/pkg/lang"
)

// SourceFile is one file discovered under a repository root, already
// resolved to the language Stack that will extract it.
type SourceFile struct {
	Path     string // relative to repo root
	FullPath string
	Size     int64
	Stack    lang.Stack // nil for manifest files
	Manifest bool
}

// RepoLoader walks a repository checkout on disk and classifies every file
// it keeps, deferring content reads to the pipeline stage that needs them.
type RepoLoader struct {
	logger *slog.Logger
}

// NewRepoLoader builds a loader. Cloning remote repositories is out of
// scope here: pkg/vcs already owns checkout/commit resolution, so the
// builder only ever walks a path already present on disk.
func NewRepoLoader(logger *slog.Logger) *RepoLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepoLoader{logger: logger}
}

// LoadResult is every file kept from the walk plus skip counters for
// observability.
type LoadResult struct {
	RootPath        string
	Files           []SourceFile
	TotalSize       int64
	SkipReasons     map[string]int
	PackageManagers []coverage.PackageManager
}

// Load walks rootPath, excluding paths matched by excludeGlobs (patterns
// relative to rootPath, in the shapes matchesExcludeGlob accepts) and
// files over maxFileSize (0 disables the
// limit), and classifies each kept file by extension/manifest name.
func (rl *RepoLoader) Load(rootPath string, excludeGlobs []string, maxFileSize int64) (*LoadResult, error) {
	result := &LoadResult{RootPath: rootPath, SkipReasons: map[string]int{}}

	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			rl.logger.Warn("builder.walk.error", "path", path, "err", err)
			return nil
		}
		relPath, relErr := filepath.Rel(rootPath, path)
		if relErr != nil {
			return nil
		}
		if relPath == ".git" || relPath == "node_modules" {
			return fs.SkipDir
		}
		if rl.excluded(relPath, excludeGlobs) {
			result.SkipReasons["excluded"]++
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if maxFileSize > 0 && info.Size() > maxFileSize {
			result.SkipReasons["too_large"]++
			return nil
		}

		sf := SourceFile{Path: relPath, FullPath: path, Size: info.Size()}
		if isManifestFile(relPath) {
			sf.Manifest = true
		} else if stack, ok := lang.ForFile(relPath, nil); ok {
			sf.Stack = stack
		} else {
			result.SkipReasons["unsupported_language"]++
			return nil
		}

		result.Files = append(result.Files, sf)
		result.TotalSize += info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("builder: walk repository: %w", err)
	}
	result.PackageManagers = coverage.Detect(rootPath)
	return result, nil
}

func (rl *RepoLoader) excluded(relPath string, globs []string) bool {
	normalized := filepath.ToSlash(relPath)
	for _, pattern := range globs {
		if matchesExcludeGlob(normalized, filepath.ToSlash(pattern)) {
			return true
		}
	}
	return false
}

// matchesExcludeGlob supports the handful of shapes a config file actually
// uses: a directory-and-everything-under-it (dir/**), an extension match
// (*.ext), a trailing path at any depth (**/name), and otherwise an exact
// match of the whole relative path (a bare name matches only at the root).
func matchesExcludeGlob(path, pattern string) bool {
	switch {
	case strings.HasSuffix(pattern, "/**"):
		prefix := strings.TrimSuffix(pattern, "/**")
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	case strings.HasPrefix(pattern, "*.") && !strings.Contains(pattern, "/"):
		return strings.HasSuffix(path, pattern[1:])
	case strings.HasPrefix(pattern, "**/"):
		suffix := pattern[3:]
		return path == suffix || strings.HasSuffix(path, "/"+suffix)
	default:
		return path == pattern
	}
}

func isManifestFile(relPath string) bool {
	base := filepath.Base(relPath)
	switch base {
	case "go.mod", "package.json", "requirements.txt", "Pipfile", "Cargo.toml":
		return true
	}
	return false
}
