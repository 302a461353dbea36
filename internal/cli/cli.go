// Package cli provides the command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/treedump/internal/config"
	"github.com/temirov/treedump/internal/serializer"
	"github.com/temirov/treedump/internal/services/clipboard"
	"github.com/temirov/treedump/internal/tokenizer"
	"github.com/temirov/treedump/internal/utils"
)

const (
	outputFlagName         = "output"
	outputFlagShorthand    = "o"
	skipUnreadableFlagName = "skip-unreadable-dirs"
	clipboardFlagName      = "clipboard"
	tokensFlagName         = "tokens"
	modelFlagName          = "model"
	configFlagName         = "config"
	verboseFlagName        = "verbose"
	verboseFlagShorthand   = "v"
	forceFlagName          = "force"

	rootUse              = "treedump [root]"
	rootShortDescription = "write a directory tree into a single text file"
	rootLongDescription  = `treedump walks a directory and writes every file it finds into one text file.
Each record holds the file path relative to the root followed by the file content,
or a marker when the file is binary or cannot be read.`
	rootUsageExample = `  # Serialize the current directory into structure.txt
  treedump

  # Serialize ./src into src.txt and keep going past unreadable directories
  treedump src -o src.txt --skip-unreadable-dirs

  # Report token counts and copy the result to the clipboard
  treedump --tokens --clipboard`
	initUse              = "init [path]"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write a configuration file with the default settings.
Pass the file to treedump with --config.`
	versionTemplate = "treedump version: {{.Version}}\n"

	outputFlagDescription         = "output file path"
	skipUnreadableFlagDescription = "skip directories that cannot be listed instead of failing"
	clipboardFlagDescription      = "copy the written output to the clipboard"
	tokensFlagDescription         = "count tokens of text files"
	modelFlagDescription          = "tokenizer model to use for token counting"
	configFlagDescription         = "path to a configuration file"
	verboseFlagDescription        = "enable debug logging"
	forceFlagDescription          = "overwrite an existing configuration file"

	summaryLogMessage        = "wrote structure"
	clipboardLogMessage      = "copied output to clipboard"
	initCompletedFormat      = "wrote configuration to %s\n"
	clipboardCopyErrorFormat = "copy output to clipboard: %w"
)

// Dependencies carries the collaborators used by the commands. Nil fields are
// replaced with production implementations.
type Dependencies struct {
	FileSystem      afero.Fs
	NewLogger       func(verbose bool) (*zap.Logger, error)
	NewTokenCounter func(tokenizer.Config) (tokenizer.Counter, string, error)
	Copier          clipboard.Copier
}

func (dependencies Dependencies) withDefaults() Dependencies {
	if dependencies.FileSystem == nil {
		dependencies.FileSystem = afero.NewOsFs()
	}
	if dependencies.NewLogger == nil {
		dependencies.NewLogger = utils.NewApplicationLogger
	}
	if dependencies.NewTokenCounter == nil {
		dependencies.NewTokenCounter = tokenizer.NewCounter
	}
	if dependencies.Copier == nil {
		dependencies.Copier = clipboard.NewService()
	}
	return dependencies
}

// Execute runs the treedump application with the process arguments.
func Execute() error {
	rootCommand := NewRootCommand(Dependencies{})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// commandOptions stores the raw flag values of the root command.
type commandOptions struct {
	output         string
	skipUnreadable bool
	clipboard      bool
	tokens         bool
	model          string
	configPath     string
	verbose        bool
}

// runOptions is the resolved configuration of a single run.
type runOptions struct {
	root           string
	output         string
	skipUnreadable bool
	clipboard      bool
	tokens         bool
	model          string
}

// NewRootCommand builds the root Cobra command.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	dependencies = dependencies.withDefaults()
	var options commandOptions

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Example:      rootUsageExample,
		Version:      utils.GetApplicationVersion(),
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			logger, loggerErr := dependencies.NewLogger(options.verbose)
			if loggerErr != nil {
				return fmt.Errorf("initialize logger: %w", loggerErr)
			}
			defer func() { _ = logger.Sync() }()

			configuration, configErr := config.LoadApplicationConfiguration(config.LoadOptions{
				FileSystem: dependencies.FileSystem,
				FilePath:   options.configPath,
			})
			if configErr != nil {
				return configErr
			}
			return runSerialize(dependencies, logger, resolveRunOptions(command, arguments, options, configuration))
		},
	}
	rootCommand.SetVersionTemplate(versionTemplate)

	flags := rootCommand.Flags()
	flags.StringVarP(&options.output, outputFlagName, outputFlagShorthand, serializer.DefaultOutputPath, outputFlagDescription)
	registerBooleanFlag(flags, &options.skipUnreadable, skipUnreadableFlagName, skipUnreadableFlagDescription)
	registerBooleanFlag(flags, &options.clipboard, clipboardFlagName, clipboardFlagDescription)
	registerBooleanFlag(flags, &options.tokens, tokensFlagName, tokensFlagDescription)
	flags.StringVar(&options.model, modelFlagName, tokenizer.DefaultModel, modelFlagDescription)
	flags.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	flags.BoolVarP(&options.verbose, verboseFlagName, verboseFlagShorthand, false, verboseFlagDescription)

	rootCommand.AddCommand(createInitCommand(dependencies))
	return rootCommand
}

// resolveRunOptions applies flag > configuration file > default precedence.
func resolveRunOptions(command *cobra.Command, arguments []string, options commandOptions, configuration config.ApplicationConfiguration) runOptions {
	flags := command.Flags()
	resolved := runOptions{
		root:           config.StringOrDefault(configuration.Root, serializer.DefaultRoot),
		output:         config.StringOrDefault(configuration.Output, serializer.DefaultOutputPath),
		skipUnreadable: config.BoolOrDefault(configuration.SkipUnreadableDirectories, false),
		clipboard:      config.BoolOrDefault(configuration.Clipboard, false),
		tokens:         config.BoolOrDefault(configuration.Tokens.Enabled, false),
		model:          config.StringOrDefault(configuration.Tokens.Model, tokenizer.DefaultModel),
	}
	if len(arguments) > 0 {
		resolved.root = arguments[0]
	}
	if flags.Changed(outputFlagName) {
		resolved.output = options.output
	}
	if flags.Changed(skipUnreadableFlagName) {
		resolved.skipUnreadable = options.skipUnreadable
	}
	if flags.Changed(clipboardFlagName) {
		resolved.clipboard = options.clipboard
	}
	if flags.Changed(tokensFlagName) {
		resolved.tokens = options.tokens
	}
	if flags.Changed(modelFlagName) {
		resolved.model = options.model
	}
	return resolved
}

func runSerialize(dependencies Dependencies, logger *zap.Logger, options runOptions) error {
	serializerOptions := serializer.Options{
		Root:       options.root,
		OutputPath: options.output,
	}
	if options.skipUnreadable {
		serializerOptions.DirectoryErrors = serializer.DirectoryErrorsSkip
	}
	if options.tokens {
		counter, model, counterErr := dependencies.NewTokenCounter(tokenizer.Config{Model: options.model})
		if counterErr != nil {
			return counterErr
		}
		serializerOptions.TokenCounter = counter
		serializerOptions.TokenModel = model
	}

	summary, serializeErr := serializer.NewSerializer(dependencies.FileSystem, logger).Serialize(serializerOptions)
	if serializeErr != nil {
		return serializeErr
	}

	fields := []zap.Field{
		zap.String("output", options.output),
		zap.Int("records", summary.Records),
		zap.Int("text", summary.Text),
		zap.Int("binary", summary.Binary),
		zap.Int("unreadable", summary.Unreadable),
		zap.String("size", utils.FormatFileSize(summary.Bytes)),
	}
	if options.tokens {
		fields = append(fields, zap.Int("tokens", summary.Tokens), zap.String("model", summary.Model))
	}
	if len(summary.SkippedDirectories) > 0 {
		fields = append(fields, zap.Strings("skipped_directories", summary.SkippedDirectories))
	}
	logger.Info(summaryLogMessage, fields...)

	if !options.clipboard {
		return nil
	}
	if copyErr := clipboard.CopyFile(dependencies.Copier, dependencies.FileSystem, options.output); copyErr != nil {
		return fmt.Errorf(clipboardCopyErrorFormat, copyErr)
	}
	logger.Info(clipboardLogMessage, zap.String("output", options.output))
	return nil
}

// createInitCommand returns the init subcommand.
func createInitCommand(dependencies Dependencies) *cobra.Command {
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			initOptions := config.InitOptions{FileSystem: dependencies.FileSystem, Force: force}
			if len(arguments) > 0 {
				initOptions.FilePath = arguments[0]
			}
			writtenPath, initErr := config.InitializeConfiguration(initOptions)
			if initErr != nil {
				return initErr
			}
			_, writeErr := fmt.Fprintf(command.OutOrStdout(), initCompletedFormat, writtenPath)
			return writeErr
		},
	}
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, forceFlagDescription)
	return initCommand
}
