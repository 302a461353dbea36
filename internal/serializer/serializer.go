// Package serializer writes every file under a directory tree into a single
// text document of path-delimited records.
package serializer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/treedump/internal/tokenizer"
	"github.com/temirov/treedump/internal/types"
)

const (
	// DefaultRoot is the directory serialized when no root is given.
	DefaultRoot = "."
	// DefaultOutputPath is the file written when no output path is given.
	DefaultOutputPath = "structure.txt"
)

// ErrRootNotDirectory reports a root path that exists but is not a directory.
var ErrRootNotDirectory = errors.New("root is not a directory")

// DirectoryErrorPolicy selects what happens when a directory cannot be listed.
type DirectoryErrorPolicy int

const (
	// DirectoryErrorsAbort fails the run on the first unreadable directory.
	DirectoryErrorsAbort DirectoryErrorPolicy = iota
	// DirectoryErrorsSkip logs the unreadable directory and continues the walk.
	DirectoryErrorsSkip
)

// Options configures a single serialization run.
type Options struct {
	Root            string
	OutputPath      string
	DirectoryErrors DirectoryErrorPolicy
	TokenCounter    tokenizer.Counter
	TokenModel      string
}

// Serializer walks a directory tree and writes one record per file.
type Serializer struct {
	fileSystem afero.Fs
	classifier *Classifier
	logger     *zap.Logger
}

// NewSerializer constructs a Serializer over fileSystem.
func NewSerializer(fileSystem afero.Fs, logger *zap.Logger) *Serializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Serializer{
		fileSystem: fileSystem,
		classifier: NewClassifier(fileSystem, logger),
		logger:     logger,
	}
}

// Serialize writes the records of options.Root into options.OutputPath,
// truncating any previous output. Empty root and output paths fall back to
// DefaultRoot and DefaultOutputPath.
func (serializer *Serializer) Serialize(options Options) (summary types.Summary, err error) {
	rootPath := options.Root
	if rootPath == "" {
		rootPath = DefaultRoot
	}
	outputPath := options.OutputPath
	if outputPath == "" {
		outputPath = DefaultOutputPath
	}

	absoluteRoot, absoluteRootError := filepath.Abs(rootPath)
	if absoluteRootError != nil {
		return summary, fmt.Errorf("resolve root %s: %w", rootPath, absoluteRootError)
	}
	absoluteOutput, absoluteOutputError := filepath.Abs(outputPath)
	if absoluteOutputError != nil {
		return summary, fmt.Errorf("resolve output %s: %w", outputPath, absoluteOutputError)
	}

	rootInfo, statError := serializer.fileSystem.Stat(absoluteRoot)
	if statError != nil {
		return summary, fmt.Errorf("stat root %s: %w", rootPath, statError)
	}
	if !rootInfo.IsDir() {
		return summary, fmt.Errorf("%w: %s", ErrRootNotDirectory, rootPath)
	}

	sink, createError := serializer.fileSystem.Create(absoluteOutput)
	if createError != nil {
		return summary, fmt.Errorf("open output %s: %w", outputPath, createError)
	}
	writer := newRecordWriter(sink)
	sinkInfo, sinkStatError := sink.Stat()
	defer func() {
		flushError := writer.flush()
		closeError := sink.Close()
		if err != nil {
			return
		}
		if flushError != nil {
			err = fmt.Errorf("write output %s: %w", outputPath, flushError)
		} else if closeError != nil {
			err = fmt.Errorf("close output %s: %w", outputPath, closeError)
		}
	}()

	if sinkStatError != nil {
		return summary, fmt.Errorf("stat output %s: %w", outputPath, sinkStatError)
	}

	run := &walkRun{
		serializer: serializer,
		options:    options,
		root:       absoluteRoot,
		outputPath: absoluteOutput,
		outputInfo: sinkInfo,
		writer:     writer,
	}
	if options.TokenCounter != nil {
		run.summary.Model = options.TokenModel
	}

	writer.writeHeader()
	walkError := run.walkDirectory(absoluteRoot)
	summary = run.summary
	if walkError != nil {
		return summary, walkError
	}
	if writer.err != nil {
		return summary, fmt.Errorf("write output %s: %w", outputPath, writer.err)
	}
	return summary, nil
}

// walkRun holds the state of one Serialize call.
type walkRun struct {
	serializer *Serializer
	options    Options
	root       string
	outputPath string
	outputInfo fs.FileInfo
	writer     *recordWriter
	summary    types.Summary
}

// walkDirectory emits the files of directoryPath in name order, then descends
// into its subdirectories in name order.
func (run *walkRun) walkDirectory(directoryPath string) error {
	entries, readError := afero.ReadDir(run.serializer.fileSystem, directoryPath)
	if readError != nil {
		if run.options.DirectoryErrors == DirectoryErrorsSkip {
			run.serializer.logger.Warn("skipping unreadable directory", zap.String("path", directoryPath), zap.Error(readError))
			relativePath, relativeError := run.relativePath(directoryPath)
			if relativeError != nil {
				return relativeError
			}
			run.summary.SkippedDirectories = append(run.summary.SkippedDirectories, relativePath)
			return nil
		}
		return fmt.Errorf("read directory %s: %w", directoryPath, readError)
	}

	var subdirectories []string
	for _, entry := range entries {
		entryPath := filepath.Join(directoryPath, entry.Name())
		if run.isDirectory(entryPath, entry) {
			// Directory symlinks are listed but not followed.
			if entry.Mode()&fs.ModeSymlink == 0 {
				subdirectories = append(subdirectories, entryPath)
			}
			continue
		}
		if run.isOutput(entryPath, entry) {
			continue
		}
		if emitError := run.emit(entryPath, entry); emitError != nil {
			return emitError
		}
	}

	for _, subdirectory := range subdirectories {
		if walkError := run.walkDirectory(subdirectory); walkError != nil {
			return walkError
		}
	}
	return nil
}

func (run *walkRun) isDirectory(entryPath string, entry fs.FileInfo) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Mode()&fs.ModeSymlink == 0 {
		return false
	}
	targetInfo, statError := run.serializer.fileSystem.Stat(entryPath)
	return statError == nil && targetInfo.IsDir()
}

// isOutput reports whether entry is the sink of this run, either by path or,
// when the root or output is reached through a symlink, by file identity.
func (run *walkRun) isOutput(entryPath string, entry fs.FileInfo) bool {
	return entryPath == run.outputPath || os.SameFile(run.outputInfo, entry)
}

func (run *walkRun) relativePath(path string) (string, error) {
	relativePath, relativeError := filepath.Rel(run.root, path)
	if relativeError != nil {
		return "", fmt.Errorf("relative path of %s: %w", path, relativeError)
	}
	return relativePath, nil
}

// emit writes a single record and updates the summary.
func (run *walkRun) emit(filePath string, entry fs.FileInfo) error {
	relativePath, relativeError := run.relativePath(filePath)
	if relativeError != nil {
		return relativeError
	}
	run.writer.beginRecord(relativePath)
	kind, size, tokens := run.writeBody(filePath, entry)
	run.summary.Add(kind, size, tokens)
	if run.writer.err != nil {
		return fmt.Errorf("write record for %s: %w", filePath, run.writer.err)
	}
	return nil
}

func (run *walkRun) writeBody(filePath string, entry fs.FileInfo) (types.RecordKind, int64, int) {
	if !sampleable(entry.Mode()) || !run.serializer.classifier.IsText(filePath) {
		run.writer.writeBinaryMarker()
		return types.RecordKindBinary, 0, 0
	}

	content, readError := run.readText(filePath)
	if readError != nil {
		run.serializer.logger.Debug("file could not be read", zap.String("path", filePath), zap.Error(readError))
		run.writer.writeUnreadableMarker(readError)
		return types.RecordKindUnreadable, 0, 0
	}
	run.writer.writeContent(content)
	return types.RecordKindText, int64(len(content)), run.countTokens(filePath, content)
}

// readText reads the whole file and requires every byte range to decode.
func (run *walkRun) readText(filePath string) ([]byte, error) {
	content, readError := afero.ReadFile(run.serializer.fileSystem, filePath)
	if readError != nil {
		return nil, readError
	}
	if encodingError := validateEncoding(content); encodingError != nil {
		return nil, encodingError
	}
	return content, nil
}

func (run *walkRun) countTokens(filePath string, content []byte) int {
	if run.options.TokenCounter == nil {
		return 0
	}
	countResult, countError := tokenizer.CountBytes(run.options.TokenCounter, content)
	if countError != nil {
		run.serializer.logger.Warn("failed to count tokens", zap.String("path", filePath), zap.Error(countError))
		return 0
	}
	return countResult.Tokens
}
