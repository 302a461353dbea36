// Package clipboard copies finished output to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/afero"
)

// ErrUnsupported reports a platform without a usable clipboard utility.
var ErrUnsupported = errors.New("clipboard is not supported on this system")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	unsupported bool
	writeAll    func(string) error
}

// NewService constructs a clipboard Service.
func NewService() *Service {
	return &Service{unsupported: clipboard.Unsupported, writeAll: clipboard.WriteAll}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if service.unsupported {
		return ErrUnsupported
	}
	return service.writeAll(text)
}

// CopyFile reads the file at path and hands its content to copier.
func CopyFile(copier Copier, fileSystem afero.Fs, path string) error {
	content, readErr := afero.ReadFile(fileSystem, path)
	if readErr != nil {
		return fmt.Errorf("read %s: %w", path, readErr)
	}
	return copier.Copy(string(content))
}

var _ Copier = (*Service)(nil)
