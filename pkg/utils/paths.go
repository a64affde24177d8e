/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CanonicalPath returns the absolute, cleaned form of p with symbolic links
// resolved for the longest prefix of p that exists on disk. Paths that do not
// exist yet are still canonicalized so they can be compared against a base
// directory.
func CanonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path of %q: %w", p, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	dir, rest := abs, ""
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(dir), rest)
		dir = parent
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, rest), nil
		}
	}
}

// CanonicalDir canonicalizes dir and checks that it is an existing directory.
func CanonicalDir(dir string) (string, error) {
	canonical, err := CanonicalPath(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return "", fmt.Errorf("failed to stat directory %q: %w", canonical, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%q is not a directory", canonical)
	}
	return canonical, nil
}

// IsWithin reports whether target lies inside base. Both arguments must
// already be canonical.
func IsWithin(base, target string) bool {
	if target == base {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}

// ResolveWithin joins rel onto the canonical base directory, canonicalizes the
// result and reports whether it stayed inside base.
func ResolveWithin(base, rel string) (string, bool, error) {
	target, err := CanonicalPath(filepath.Join(base, rel))
	if err != nil {
		return "", false, err
	}
	return target, IsWithin(base, target), nil
}
