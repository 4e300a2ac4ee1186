package main

import (
	"os"
	"path/filepath"
	"strings"
)

// resolveTarget expands a CLI target argument (spec section 6) into a
// concrete list of .aivi source files: a bare file, every .aivi file
// directly inside a directory, or every .aivi file under a directory
// tree when the target ends in "/...".
func resolveTarget(target string) ([]string, error) {
	recursive := false
	dir := target
	if strings.HasSuffix(target, "/...") {
		recursive = true
		dir = strings.TrimSuffix(target, "/...")
	}

	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return []string{dir}, nil
	}

	var files []string
	if recursive {
		err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && strings.HasSuffix(path, ".aivi") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return files, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".aivi") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
