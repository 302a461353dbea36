// Package config loads optional treedump configuration files.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const defaultConfigType = "yaml"

// LoadOptions controls where application configuration is read from.
type LoadOptions struct {
	FileSystem afero.Fs
	FilePath   string
}

// ApplicationConfiguration holds defaults that command-line flags override.
// Pointer fields distinguish an unset value from an explicit false.
type ApplicationConfiguration struct {
	Root                      string             `mapstructure:"root"`
	Output                    string             `mapstructure:"output"`
	SkipUnreadableDirectories *bool              `mapstructure:"skip_unreadable_directories"`
	Clipboard                 *bool              `mapstructure:"clipboard"`
	Tokens                    TokenConfiguration `mapstructure:"tokens"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// LoadApplicationConfiguration reads the file named by options.FilePath. An
// empty path yields the zero configuration; a named file must exist.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	if options.FilePath == "" {
		return ApplicationConfiguration{}, nil
	}
	fileSystem := options.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}

	info, statErr := fileSystem.Stat(options.FilePath)
	if statErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", options.FilePath, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", options.FilePath)
	}

	reader := viper.New()
	reader.SetFs(fileSystem)
	reader.SetConfigFile(options.FilePath)
	if filepath.Ext(options.FilePath) == "" {
		reader.SetConfigType(defaultConfigType)
	}
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", options.FilePath, readErr)
	}
	var configuration ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&configuration); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", options.FilePath, decodeErr)
	}
	return configuration, nil
}

// BoolOrDefault dereferences value, returning fallback when it is unset.
func BoolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

// StringOrDefault returns fallback when value is empty.
func StringOrDefault(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
