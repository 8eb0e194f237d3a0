package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"polylab/internal/language"
)

// languageForPath guesses the input language from the file extension.
func languageForPath(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return language.LangGo, true
	case ".star", ".bzl", ".sky":
		return language.LangStarlark, true
	case ".jsonnet", ".libsonnet":
		return language.LangJsonnet, true
	}
	return "", false
}

// readInput reads path, or stdin for "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
