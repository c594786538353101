package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pathum-vimukthi/bookvault/internal/library"
	"github.com/pathum-vimukthi/bookvault/internal/models"
	"github.com/pathum-vimukthi/bookvault/internal/repositories"
	"github.com/pathum-vimukthi/bookvault/internal/services"
	"github.com/pathum-vimukthi/bookvault/internal/session"
	"github.com/pathum-vimukthi/bookvault/internal/shared"
	"github.com/urfave/cli/v3"
)

const (
	defaultConfigPath = "config.toml"
	envAPIURL         = "BOOKVAULT_API_URL"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session store, API client and view-model are built on first use by [Runner.connect].
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	storage    session.Storage

	db       *sql.DB
	session  *session.Store
	api      *services.Client
	library  *library.ViewModel
	prompter *shared.Prompter
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	// Config skips loading the --config file when set.
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	// Storage replaces the sqlite session database when set.
	Storage session.Storage
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
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
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		storage:    opts.Storage,
		prompter:   shared.NewPrompter(opts.Input, opts.Output),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, booksCommand, statsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:     "bookvault",
		Usage:    "Track the books you own and how far you have read",
		Version:  "0.1.0",
		Flags:    rootFlags(),
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

// before resolves configuration and log level from the root flags.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.IsSet("config") {
		r.configPath = cmd.String("config")
	}
	if r.configPath == "" {
		r.configPath = defaultConfigPath
	}

	if r.config == nil {
		config, err := r.loadConfig()
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	if url := strings.TrimSpace(cmd.String("api-url")); url != "" {
		r.config.API.BaseURL = url
	}

	level, err := shared.ParseLogLevel(r.config.Log.Level)
	if err != nil {
		return ctx, err
	}
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	r.logger.Debug("configuration resolved", "path", r.configPath, "api", r.config.API.BaseURL)
	return ctx, nil
}

func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

func (r *Runner) loadConfig() (*shared.Config, error) {
	if _, err := os.Stat(r.configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		return shared.DefaultConfig(), nil
	}
	return shared.LoadConfig(r.configPath)
}

// connect opens the session storage and builds the API client.
func (r *Runner) connect(ctx context.Context) error {
	if r.session != nil {
		return nil
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}

	storage := r.storage
	if storage == nil {
		db, err := shared.OpenStorage(ctx, r.config.Storage)
		if err != nil {
			return err
		}
		r.db = db
		storage = repositories.NewKeyValueRepository(db)
	}

	vm, err := library.New(r.config.Display.Locale)
	if err != nil {
		return err
	}

	r.session = session.NewStore(storage, r.logger)
	r.api = services.NewClient(r.config.API.BaseURL, r.session, services.Options{
		HTTPClient:        r.httpClient,
		Logger:            r.logger,
		UserAgent:         r.config.API.UserAgent,
		RequestsPerSecond: r.config.API.RequestsPerSecond,
	})
	r.library = vm
	return nil
}

// authenticated connects and fails with [shared.ErrNotAuthenticated] when no session is stored.
func (r *Runner) authenticated(ctx context.Context) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if !r.session.Authenticated() {
		return fmt.Errorf("%w: no stored session", shared.ErrNotAuthenticated)
	}
	return nil
}

// SetLogger replaces the logger used by commands and by clients built afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the session database.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// books fetches the collection, applying the 401 policy.
func (r *Runner) books(ctx context.Context) ([]models.Book, error) {
	books, err := r.api.ListBooks(ctx)
	if err != nil {
		return nil, r.session.Guard(err)
	}
	r.logger.Debug("fetched books", "count", len(books))
	return books, nil
}

// findBook fetches the collection and returns the book with id.
func (r *Runner) findBook(ctx context.Context, id string) (models.Book, error) {
	books, err := r.books(ctx)
	if err != nil {
		return models.Book{}, err
	}
	for _, b := range books {
		if b.ID == models.BookID(id) {
			return b, nil
		}
	}
	return models.Book{}, fmt.Errorf("%w: id %s", shared.ErrBookNotFound, id)
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
