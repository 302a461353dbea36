package clipboard

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceCopy(t *testing.T) {
	t.Run("writes text", func(t *testing.T) {
		var written []string
		service := &Service{writeAll: func(text string) error {
			written = append(written, text)
			return nil
		}}
		require.NoError(t, service.Copy("structure\n\n"))
		assert.Equal(t, []string{"structure\n\n"}, written)
	})

	t.Run("unsupported platform", func(t *testing.T) {
		service := &Service{unsupported: true, writeAll: func(string) error {
			t.Fatal("writeAll must not be called")
			return nil
		}}
		require.ErrorIs(t, service.Copy("x"), ErrUnsupported)
	})

	t.Run("propagates write failures", func(t *testing.T) {
		service := &Service{writeAll: func(string) error { return errors.New("xclip missing") }}
		require.EqualError(t, service.Copy("x"), "xclip missing")
	})
}

type recordingCopier struct {
	copied string
}

func (copier *recordingCopier) Copy(text string) error {
	copier.copied = text
	return nil
}

func TestCopyFile(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fileSystem, "/out/structure.txt", []byte("structure\n\n"), 0o644))

	copier := &recordingCopier{}
	require.NoError(t, CopyFile(copier, fileSystem, "/out/structure.txt"))
	assert.Equal(t, "structure\n\n", copier.copied)

	err := CopyFile(copier, fileSystem, "/out/missing.txt")
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "read /out/missing.txt")
}
