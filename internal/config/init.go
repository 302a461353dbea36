package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// DefaultConfigFileName is written by InitializeConfiguration when no path is given.
	DefaultConfigFileName = "treedump.yaml"

	defaultConfigurationTemplate = `root: .
output: structure.txt
skip_unreadable_directories: false
clipboard: false
tokens:
  enabled: false
  model: gpt-4o
`
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	FileSystem afero.Fs
	FilePath   string
	Force      bool
}

// InitializeConfiguration writes the default configuration and returns its path.
// An existing file is only replaced when Force is set.
func InitializeConfiguration(options InitOptions) (string, error) {
	fileSystem := options.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	destinationPath := options.FilePath
	if destinationPath == "" {
		destinationPath = DefaultConfigFileName
	}

	if _, err := fileSystem.Stat(destinationPath); err == nil {
		if !options.Force {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, err)
	}

	if directory := filepath.Dir(destinationPath); directory != "." {
		if err := fileSystem.MkdirAll(directory, 0o755); err != nil {
			return "", fmt.Errorf("create configuration directory %s: %w", directory, err)
		}
	}
	if err := afero.WriteFile(fileSystem, destinationPath, []byte(defaultConfigurationTemplate), 0o600); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}
	return destinationPath, nil
}
