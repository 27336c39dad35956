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

package coverage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
}

func TestDetect_PrefersLockfileOverBarePackageJSON(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "package.json")
	touch(t, dir, "yarn.lock")

	managers := Detect(dir)
	assert.Equal(t, []PackageManager{Yarn}, managers)
}

func TestDetect_DefaultsToNpmWithoutLockfile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "package.json")

	managers := Detect(dir)
	assert.Equal(t, []PackageManager{Npm}, managers)
}

func TestDetect_MultipleEcosystemsInOneRepo(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "package.json")
	touch(t, dir, "package-lock.json")
	touch(t, dir, "pyproject.toml")

	managers := Detect(dir)
	assert.ElementsMatch(t, []PackageManager{Npm, Pip}, managers)
}

func TestPrimaryForRepo_NoManifestFound(t *testing.T) {
	dir := t.TempDir()
	_, ok := PrimaryForRepo(dir)
	assert.False(t, ok)
}

func TestNeedsInstall_NodeModulesMissing(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, Npm.NeedsInstall(dir))

	require.NoError(t, os.Mkdir(filepath.Join(dir, "node_modules"), 0o755))
	assert.False(t, Npm.NeedsInstall(dir))
}

func TestNeedsInstall_PipNeverNeedsSeparateInstall(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Pip.NeedsInstall(dir))
}

func TestInstallCmd_MatchesEcosystem(t *testing.T) {
	cmd, args := Pip.InstallCmd()
	assert.Equal(t, "pip", cmd)
	assert.Equal(t, []string{"install", "-r", "requirements.txt"}, args)
}
