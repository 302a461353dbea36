package cli

import (
	"bytes"
	"errors"
	"io/fs"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/treedump/internal/tokenizer"
)

const (
	testRoot   = "/project"
	testOutput = "/out/structure.txt"
)

type stubCounter struct{}

func (stubCounter) Name() string { return "stub" }

func (stubCounter) CountString(input string) (int, error) { return len([]rune(input)), nil }

type stubCopier struct {
	copied []string
	err    error
}

func (copier *stubCopier) Copy(text string) error {
	if copier.err != nil {
		return copier.err
	}
	copier.copied = append(copier.copied, text)
	return nil
}

// lockedDirectoryFs rejects Open for a single directory.
type lockedDirectoryFs struct {
	afero.Fs
	lockedPath string
}

func (fileSystem lockedDirectoryFs) Open(name string) (afero.File, error) {
	if name == fileSystem.lockedPath {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return fileSystem.Fs.Open(name)
}

type commandHarness struct {
	fileSystem afero.Fs
	copier     *stubCopier
	logs       *observer.ObservedLogs
	stdout     *bytes.Buffer
	verbose    *bool
	counterFor string
}

func newHarness(t *testing.T) *commandHarness {
	t.Helper()
	fileSystem := afero.NewMemMapFs()
	require.NoError(t, fileSystem.MkdirAll(testRoot, 0o755))
	require.NoError(t, afero.WriteFile(fileSystem, testRoot+"/a.txt", []byte("hello\n"), 0o644))
	require.NoError(t, afero.WriteFile(fileSystem, testRoot+"/b.bin", []byte{0xff, 0x00}, 0o644))
	return &commandHarness{fileSystem: fileSystem, copier: &stubCopier{}, stdout: &bytes.Buffer{}}
}

func (harness *commandHarness) execute(arguments ...string) error {
	core, logs := observer.New(zapcore.DebugLevel)
	harness.logs = logs
	dependencies := Dependencies{
		FileSystem: harness.fileSystem,
		NewLogger: func(verbose bool) (*zap.Logger, error) {
			harness.verbose = &verbose
			return zap.New(core), nil
		},
		NewTokenCounter: func(cfg tokenizer.Config) (tokenizer.Counter, string, error) {
			harness.counterFor = cfg.Model
			return stubCounter{}, cfg.Model, nil
		},
		Copier: harness.copier,
	}
	command := NewRootCommand(dependencies)
	command.SetOut(harness.stdout)
	command.SetErr(&bytes.Buffer{})
	command.SetArgs(normalizeBooleanFlagArguments(command, arguments))
	return command.Execute()
}

func (harness *commandHarness) read(t *testing.T, path string) string {
	t.Helper()
	content, err := afero.ReadFile(harness.fileSystem, path)
	require.NoError(t, err)
	return string(content)
}

func (harness *commandHarness) summaryFields(t *testing.T) map[string]interface{} {
	t.Helper()
	entries := harness.logs.FilterMessage(summaryLogMessage).All()
	require.Len(t, entries, 1)
	return entries[0].ContextMap()
}

const expectedStructure = "structure\n\n" +
	"-----\na.txt\nhello\n\n" +
	"-----\nb.bin\n[Binary file or not displayable]\n"

func TestRootCommandWritesStructure(t *testing.T) {
	harness := newHarness(t)

	require.NoError(t, harness.execute(testRoot, "-o", testOutput))
	assert.Equal(t, expectedStructure, harness.read(t, testOutput))

	fields := harness.summaryFields(t)
	assert.EqualValues(t, 2, fields["records"])
	assert.EqualValues(t, 1, fields["text"])
	assert.EqualValues(t, 1, fields["binary"])
	assert.NotContains(t, fields, "tokens")
	require.NotNil(t, harness.verbose)
	assert.False(t, *harness.verbose)
	assert.Empty(t, harness.copier.copied)
}

func TestRootCommandConfigurationPrecedence(t *testing.T) {
	harness := newHarness(t)
	configuration := "root: " + testRoot + "\noutput: /out/from-config.txt\ntokens:\n  enabled: true\n  model: config-model\n"
	require.NoError(t, afero.WriteFile(harness.fileSystem, "/cfg.yaml", []byte(configuration), 0o644))

	t.Run("configuration supplies defaults", func(t *testing.T) {
		require.NoError(t, harness.execute("--config", "/cfg.yaml"))
		assert.Equal(t, expectedStructure, harness.read(t, "/out/from-config.txt"))
		assert.Equal(t, "config-model", harness.counterFor)

		fields := harness.summaryFields(t)
		assert.EqualValues(t, len("hello\n"), fields["tokens"])
		assert.Equal(t, "config-model", fields["model"])
	})

	t.Run("flags override configuration", func(t *testing.T) {
		require.NoError(t, harness.execute("--config", "/cfg.yaml", "-o", "/out/from-flag.txt", "--tokens", "no"))
		assert.Equal(t, expectedStructure, harness.read(t, "/out/from-flag.txt"))
		assert.NotContains(t, harness.summaryFields(t), "tokens")
	})
}

func TestRootCommandModelFlag(t *testing.T) {
	harness := newHarness(t)
	require.NoError(t, harness.execute(testRoot, "-o", testOutput, "--tokens", "--model", "gpt-4o-mini", "-v"))
	assert.Equal(t, "gpt-4o-mini", harness.counterFor)
	require.NotNil(t, harness.verbose)
	assert.True(t, *harness.verbose)
}

func TestRootCommandClipboard(t *testing.T) {
	t.Run("copies written output", func(t *testing.T) {
		harness := newHarness(t)
		require.NoError(t, harness.execute(testRoot, "-o", testOutput, "--clipboard"))
		assert.Equal(t, []string{expectedStructure}, harness.copier.copied)
		assert.Equal(t, 1, harness.logs.FilterMessage(clipboardLogMessage).Len())
	})

	t.Run("reports copy failures", func(t *testing.T) {
		harness := newHarness(t)
		harness.copier.err = errors.New("no display")
		err := harness.execute(testRoot, "-o", testOutput, "--clipboard", "yes")
		require.ErrorContains(t, err, "copy output to clipboard: no display")
		assert.Equal(t, expectedStructure, harness.read(t, testOutput))
	})
}

func TestRootCommandDirectoryErrors(t *testing.T) {
	newLockedHarness := func(t *testing.T) *commandHarness {
		harness := newHarness(t)
		require.NoError(t, afero.WriteFile(harness.fileSystem, testRoot+"/locked/c.txt", []byte("c"), 0o644))
		harness.fileSystem = lockedDirectoryFs{Fs: harness.fileSystem, lockedPath: testRoot + "/locked"}
		return harness
	}

	t.Run("aborts by default", func(t *testing.T) {
		harness := newLockedHarness(t)
		err := harness.execute(testRoot, "-o", testOutput)
		require.ErrorIs(t, err, fs.ErrPermission)
	})

	t.Run("skips when requested", func(t *testing.T) {
		harness := newLockedHarness(t)
		require.NoError(t, harness.execute(testRoot, "-o", testOutput, "--skip-unreadable-dirs", "on"))
		assert.Equal(t, expectedStructure, harness.read(t, testOutput))
		assert.Equal(t, []interface{}{"locked"}, harness.summaryFields(t)["skipped_directories"])
	})
}

func TestRootCommandRejectsMissingRoot(t *testing.T) {
	harness := newHarness(t)
	err := harness.execute("/missing", "-o", testOutput)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRootCommandRejectsExtraArguments(t *testing.T) {
	harness := newHarness(t)
	require.Error(t, harness.execute(testRoot, "/other"))
}

func TestRootCommandVersion(t *testing.T) {
	harness := newHarness(t)
	require.NoError(t, harness.execute("--version"))
	assert.Contains(t, harness.stdout.String(), "treedump version: ")
}

func TestInitCommand(t *testing.T) {
	harness := newHarness(t)

	require.NoError(t, harness.execute("init", "/cfg/treedump.yaml"))
	assert.Equal(t, "wrote configuration to /cfg/treedump.yaml\n", harness.stdout.String())
	assert.Contains(t, harness.read(t, "/cfg/treedump.yaml"), "output: structure.txt")

	require.ErrorContains(t, harness.execute("init", "/cfg/treedump.yaml"), "already exists")
	require.NoError(t, harness.execute("init", "/cfg/treedump.yaml", "--force"))
}
