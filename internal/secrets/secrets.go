// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of
// plain-text files. The filename is the key name and the trimmed file
// contents are the value.
//
// Supported key files: grobid-api-key, grobid-basic-auth.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GrobidAPIKey is the key file holding the GROBID service API key.
const GrobidAPIKey = "grobid-api-key"

// Load reads every regular file in dir into a key-to-value map. A missing
// directory yields an empty map, not an error. Dotfiles and subdirectories
// are ignored, and unreadable files produce a warning on stderr but do not
// abort the load.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		value, err := readSecret(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

func readSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
