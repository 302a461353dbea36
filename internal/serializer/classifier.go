package serializer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"unicode/utf8"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// sampleLength defines the maximum number of bytes read when classifying a file.
const sampleLength = 2048

// ErrInvalidEncoding reports content that does not decode as UTF-8.
var ErrInvalidEncoding = errors.New("invalid UTF-8")

// Classifier decides whether a file should be rendered as text.
type Classifier struct {
	fileSystem afero.Fs
	logger     *zap.Logger
}

// NewClassifier constructs a Classifier reading from fileSystem.
func NewClassifier(fileSystem afero.Fs, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{fileSystem: fileSystem, logger: logger}
}

// IsText reads up to sampleLength bytes from the file at path and reports
// whether they decode as UTF-8. Open, read and decode failures all classify
// the file as not text.
func (classifier *Classifier) IsText(path string) bool {
	if sampleError := classifier.sample(path); sampleError != nil {
		classifier.logger.Debug("file is not text", zap.String("path", path), zap.Error(sampleError))
		return false
	}
	return true
}

func (classifier *Classifier) sample(path string) error {
	fileHandle, openError := classifier.fileSystem.Open(path)
	if openError != nil {
		return openError
	}
	defer fileHandle.Close()

	// The extra bytes let a rune that starts inside the sample finish past it.
	buffer := make([]byte, sampleLength+utf8.UTFMax-1)
	bytesRead, readError := io.ReadFull(fileHandle, buffer)
	if readError != nil && !errors.Is(readError, io.EOF) && !errors.Is(readError, io.ErrUnexpectedEOF) {
		return readError
	}
	return validateEncoding(boundedSample(buffer[:bytesRead]))
}

// boundedSample returns the first sampleLength bytes of data, extended to the
// end of a rune that straddles the bound. An incomplete sequence at the end of
// data is kept so that validation rejects it.
func boundedSample(data []byte) []byte {
	if len(data) <= sampleLength {
		return data
	}
	boundary := len(trimPartialRune(data[:sampleLength]))
	if boundary == sampleLength {
		return data[:sampleLength]
	}
	_, width := utf8.DecodeRune(data[boundary:])
	return data[:boundary+width]
}

// sampleable reports whether a directory entry can be opened for classification
// without side effects. Named pipes, sockets and devices are never opened.
func sampleable(mode fs.FileMode) bool {
	return mode.IsRegular() || mode&fs.ModeSymlink != 0
}

// trimPartialRune drops an incomplete UTF-8 sequence from the end of data.
func trimPartialRune(data []byte) []byte {
	for back := 1; back <= utf8.UTFMax && back <= len(data); back++ {
		start := len(data) - back
		if !utf8.RuneStart(data[start]) {
			continue
		}
		if utf8.FullRune(data[start:]) {
			return data
		}
		return data[:start]
	}
	return data
}

// validateEncoding returns an error wrapping ErrInvalidEncoding that names the
// offset of the first byte that does not decode.
func validateEncoding(data []byte) error {
	if utf8.Valid(data) {
		return nil
	}
	for offset := 0; offset < len(data); {
		decodedRune, width := utf8.DecodeRune(data[offset:])
		if decodedRune == utf8.RuneError && width == 1 {
			return fmt.Errorf("%w at byte offset %d", ErrInvalidEncoding, offset)
		}
		offset += width
	}
	return ErrInvalidEncoding
}
