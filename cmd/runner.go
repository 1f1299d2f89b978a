package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/monthlify/internal/covers"
	"github.com/desertthunder/monthlify/internal/repositories"
	"github.com/desertthunder/monthlify/internal/services"
	"github.com/desertthunder/monthlify/internal/shared"
	"github.com/desertthunder/monthlify/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    *services.SpotifyService
	library    services.Library
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	covers     *covers.Renderer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Library, when set, replaces the token-bound Spotify library for every command.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    *services.SpotifyService
	Library    services.Library
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
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
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		library:    opts.Library,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		covers:     covers.NewRenderer(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, spotifyCommand, previewCommand, createCommand, coverCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// configFile returns the config path given by --config, then the runner's default.
func (r *Runner) configFile(cmd *cli.Command) string {
	if path := cmd.String("config"); path != "" {
		return path
	}
	if r.configPath != "" {
		return r.configPath
	}
	return defaultConfigPath
}

// userLibrary returns the library bound to the token stored by `spotify auth`.
//
// Refreshed tokens are written back to the config file.
func (r *Runner) userLibrary(ctx context.Context) (services.Library, error) {
	if r.library != nil {
		return r.library, nil
	}
	if r.spotify == nil {
		return nil, fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrServiceUnavailable)
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run `monthlify spotify auth` first", shared.ErrNotAuthenticated)
	}

	lib := r.spotify.WithToken(ctx, token)
	lib.SetTokenRefreshCallback(r.saveToken)
	return lib, nil
}

func (r *Runner) saveToken(token *oauth2.Token) {
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		r.logger.Warn("failed to update token", "error", err)
		return
	}
	if r.configPath == "" {
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to save refreshed token", "error", err)
		return
	}
	r.logger.Debug("refreshed token saved", "path", r.configPath)
}

// recorder opens the configured database for materialization history. It returns nil when the
// database can't be opened; history is optional for the CLI.
func (r *Runner) recorder() (tasks.Recorder, func()) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		r.logger.Warn("playlist history disabled", "error", err)
		return nil, func() {}
	}
	if err := shared.RunMigrations(db); err != nil {
		r.logger.Warn("playlist history disabled", "error", err)
		db.Close()
		return nil, func() {}
	}
	return repositories.NewPlaylistRecordRepository(db), func() { db.Close() }
}

// localBackend answers backend operations in process, reporting engine progress on progress when set.
func (r *Runner) localBackend(ctx context.Context, recorder tasks.Recorder, progress chan<- tasks.ProgressUpdate) (*tasks.LibraryBackend, error) {
	lib, err := r.userLibrary(ctx)
	if err != nil {
		return nil, err
	}
	engine := tasks.NewPlaylistEngine(r.covers, recorder, shared.WithLogger(r.logger, "component", "engine"))
	return tasks.NewLibraryBackend(engine, lib).WithProgress(progress), nil
}

// confirm asks a yes/no question on the runner's input. Anything but y/yes declines.
func (r *Runner) confirm(question string) bool {
	r.writePlain("%s [y/N]: ", question)

	answer, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
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

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
