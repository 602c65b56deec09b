package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hyde/internal/repositories"
	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/shared"
	"github.com/desertthunder/hyde/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Components left nil are built from the configuration on first use.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	httpClient *http.Client
	api        *services.APIService
	store      *repositories.PlaylistStore
	search     services.SearchProvider
	chat       services.StreamCompleter
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	HTTPClient *http.Client
	API        *services.APIService
	Store      *repositories.PlaylistStore
	Search     services.SearchProvider
	Chat       services.StreamCompleter
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		httpClient: opts.HTTPClient,
		api:        opts.API,
		store:      opts.Store,
		search:     opts.Search,
		chat:       opts.Chat,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, searchCommand, playlistCommand, chatCommand, recommendCommand, cacheCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the env file and configuration, then applies the log level. It runs ahead of every command.
//
// A missing config file falls back to the defaults unless --config was given explicitly. setup creates the file,
// so it never requires one.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadEnvFile(cmd.String("env")); err != nil {
		return ctx, err
	}

	path := cmd.String("config")
	required := cmd.IsSet("config") && cmd.Args().First() != "setup"
	config, err := loadConfig(path, required)
	if err != nil {
		return ctx, err
	}
	if err := config.ApplyEnv(); err != nil {
		return ctx, err
	}
	if err := config.Validate(); err != nil {
		return ctx, err
	}

	level := config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	ll, err := shared.ParseLogLevel(level)
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	shared.SetLogLevel(r.logger, ll)

	r.config = config
	r.configPath = path
	return ctx, nil
}

func loadConfig(path string, required bool) (*shared.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if required {
			return nil, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
		return shared.DefaultConfig(), nil
	}
	return shared.LoadConfig(path)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("%s\n", ui.Title(title))
}
