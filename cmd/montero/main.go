// Package main is the Montero CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"github.com/hyperjump/montero/internal/autocomplete"
	"github.com/hyperjump/montero/internal/cli"
	"github.com/hyperjump/montero/internal/config"
	"github.com/hyperjump/montero/internal/directory"
	"github.com/hyperjump/montero/internal/dom"
	"github.com/hyperjump/montero/internal/importer"
	"github.com/hyperjump/montero/internal/lookup"
	"github.com/hyperjump/montero/internal/models"
	"github.com/hyperjump/montero/internal/novedades"
	"github.com/hyperjump/montero/internal/server"
	"github.com/hyperjump/montero/internal/storage"
	"github.com/hyperjump/montero/internal/watcher"
	"github.com/hyperjump/montero/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/montero/config.yaml"

// loadConfig loads config from path. When path is the default and config.yaml
// exists in the current directory, that file is used instead so "montero server"
// from a project checkout picks up the local config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// loadConfigOrDefaults is loadConfig for client commands: a missing default
// config file is not an error.
func loadConfigOrDefaults(path string) *config.Config {
	cfg, _, err := loadConfig(path)
	if err != nil {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}
	return cfg
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "lookup":
		runLookup()
	case "cases":
		runCases()
	case "import":
		runImport()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("montero version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds the storage and index shared by the server and import commands.
type Components struct {
	Storage   *storage.SQLiteStorage
	Directory *directory.Index
	Importer  *importer.Importer
}

// Close releases all components.
func (c *Components) Close() {
	if c.Directory != nil {
		_ = c.Directory.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	for _, p := range []string{cfg.Storage.DatabasePath, cfg.Storage.DirectoryIndexPath} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	dir, err := directory.Open(cfg.Storage.DirectoryIndexPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize directory index: %w", err)
	}
	im := importer.New(store, importer.WithDirectory(dir), importer.WithLogger(logger))
	return &Components{Storage: store, Directory: dir, Importer: im}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	im := components.Importer
	watchSvc := watcher.New(cfg.Import.Directories, cfg.Import.Extensions,
		func(path string) {
			if _, err := im.ImportFile(context.Background(), path); err != nil {
				logger.Warn("import failed", zap.String("path", path), zap.Error(err))
			}
		},
		watcher.WithLogger(logger),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Import.Directories) > 0 {
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExisting()
	}

	srv := server.NewServer(components.Storage, cfg, logger,
		server.WithDirectory(components.Directory),
		server.WithImporter(im),
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// argsReorder moves flags that follow positional arguments to the front so
// flag.Parse sees them ("montero lookup 12345678 -type CE").
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// lookupOptions are the inputs of one "montero lookup" run.
type lookupOptions struct {
	ServerURL  string
	Type       string
	Number     string
	Simplified bool
	CaseForm   bool
	Timeout    time.Duration
}

// engineConfig builds the engine configuration from the autocomplete section.
func engineConfig(ac *config.AutocompleteConfig) autocomplete.Config {
	return autocomplete.Config{
		Endpoint:     ac.Endpoint,
		AutoLock:     autocomplete.Bool(ac.AutoLockOrDefault()),
		ShowMessages: autocomplete.Bool(ac.ShowMessagesOrDefault()),
		MinDigits:    ac.MinDigits,
		Debounce:     ac.Debounce(),
	}
}

// newLookupEngine builds the engine for opts over form: the new-case preset
// or the default usuario form.
func newLookupEngine(cfg *config.Config, opts lookupOptions, form autocomplete.FieldAccessor, notifier autocomplete.Notifier, logger *zap.Logger) *autocomplete.Engine {
	hc := &http.Client{Timeout: opts.Timeout}
	ecfg := engineConfig(&cfg.Autocomplete)
	if opts.CaseForm {
		client := lookup.NewCasesClient(lookup.WithBaseURL(opts.ServerURL),
			lookup.WithHTTPClient(hc), lookup.WithLogger(logger))
		return novedades.NewCaseSearch(form, client, ecfg,
			autocomplete.WithLogger(logger), autocomplete.WithNotifier(notifier))
	}
	if opts.Simplified {
		ecfg.Identifier = autocomplete.Simplified{DefaultType: opts.Type}
	}
	client := lookup.NewClient(cfg.Autocomplete.Endpoint,
		lookup.WithBaseURL(opts.ServerURL), lookup.WithHTTPClient(hc), lookup.WithLogger(logger))
	return autocomplete.New(ecfg, form, client,
		autocomplete.WithLogger(logger), autocomplete.WithNotifier(notifier))
}

// identifierFields returns the type and value field ids used by opts. The
// type field is empty in simplified mode.
func identifierFields(opts lookupOptions) (string, string) {
	switch {
	case opts.CaseForm:
		return novedades.IDTypeField, novedades.IDNumberField
	case opts.Simplified:
		return "", autocomplete.DefaultValueField
	default:
		return autocomplete.DefaultTypeField, autocomplete.DefaultValueField
	}
}

// runLookupOnce fills an in-memory form from the portal and reports the outcome.
func runLookupOnce(ctx context.Context, cfg *config.Config, opts lookupOptions, logger *zap.Logger) (*cli.LookupResult, error) {
	box := autocomplete.NewMessageBox(cfg.Autocomplete.MessageTTL())
	typeField, valueField := identifierFields(opts)
	form := autocomplete.NewMemoryForm(valueField)
	if typeField != "" {
		form.AddField(typeField)
		form.Type(typeField, opts.Type)
	}
	form.Type(valueField, opts.Number)
	mapping := autocomplete.DefaultMapping()
	if opts.CaseForm {
		mapping = novedades.NewCaseMapping()
	}
	for _, m := range mapping {
		form.AddField(strings.TrimPrefix(m.Selector, "#"))
	}

	engine := newLookupEngine(cfg, opts, form, box, logger)
	if _, ok := engine.Request(); !ok {
		return nil, fmt.Errorf("identifier must be a type and at least %d digits", engine.Config().MinDigits)
	}
	state := engine.Search(ctx)
	msg, _ := box.Current()
	return cli.NewLookupResult(state, form, engine.Autocompleted(), msg.Text, typeField, valueField), nil
}

// runPageLookup types the identifier into a live form page and runs the
// engine against it, so the fill happens in the browser.
func runPageLookup(ctx context.Context, cfg *config.Config, opts lookupOptions, page *rod.Page, logger *zap.Logger) (*cli.LookupResult, error) {
	typeField, valueField := identifierFields(opts)
	form := dom.NewForm(page,
		dom.WithContext(ctx),
		dom.WithAnchor("#"+valueField),
		dom.WithMessageTTL(0),
		dom.WithLogger(logger))
	defer form.Close()

	engine := newLookupEngine(cfg, opts, form, form, logger)
	if engine.Inert() {
		return nil, fmt.Errorf("page has no #%s field", valueField)
	}
	if opts.CaseForm {
		novedades.ResetCaseForm(engine)
	}
	if typeField != "" && !form.SetValue(typeField, opts.Type) {
		return nil, fmt.Errorf("failed to set #%s", typeField)
	}
	if !form.SetValue(valueField, opts.Number) {
		return nil, fmt.Errorf("failed to set #%s", valueField)
	}
	if _, ok := engine.Request(); !ok {
		return nil, fmt.Errorf("identifier must be a type and at least %d digits", engine.Config().MinDigits)
	}
	state := engine.Search(ctx)
	msg, _ := form.Message()
	ecfg := engine.Config()
	return cli.NewFormLookupResult(state, form, ecfg.Targets(), engine.Autocompleted(), msg.Text), nil
}

func runLookup() {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "portal URL (default: portal.base_url from config)")
	idType := fs.String("type", autocomplete.DefaultFixedType, "identification type (CC, CE, PA, TI, PT)")
	simplified := fs.Bool("simplified", false, "fixed-type form without a type selector")
	caseForm := fs.Bool("case-form", false, "use the new-case form preset")
	pageURL := fs.String("page", "", "fill the form on this page in a browser instead of in memory")
	browserURL := fs.String("browser", "", "DevTools URL of a running browser (default: launch one)")
	showBrowser := fs.Bool("show-browser", false, "launch the browser with a visible window")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: montero lookup [flags] <numero>")
		os.Exit(1)
	}
	number := strings.TrimSpace(fs.Arg(0))
	if !utils.IsDigits(number) {
		fmt.Fprintf(os.Stderr, "Invalid identification number %q: digits only\n", number)
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := loadConfigOrDefaults(*configPath)
	base := *serverURL
	if base == "" {
		base = cfg.Portal.BaseURL
	}
	logger := zap.NewNop()
	if cfg.Debug {
		if l, err := utils.NewLogger(true); err == nil {
			logger = l
		}
	}

	ctx := context.Background()
	opts := lookupOptions{
		ServerURL:  base,
		Type:       strings.ToUpper(strings.TrimSpace(*idType)),
		Number:     number,
		Simplified: *simplified,
		CaseForm:   *caseForm,
		Timeout:    *timeout,
	}
	var res *cli.LookupResult
	if *pageURL == "" {
		res, err = runLookupOnce(ctx, cfg, opts, logger)
	} else {
		var session *dom.Session
		session, err = dom.Open(ctx, *pageURL, dom.SessionConfig{
			ControlURL: *browserURL,
			Headless:   !*showBrowser,
			Logger:     logger,
		})
		if err == nil {
			res, err = runPageLookup(ctx, cfg, opts, session.Page(), logger)
			session.Close()
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lookup failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteLookup(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if res.State == autocomplete.StateError {
		os.Exit(2)
	}
}

// runCasesCommand executes one "montero cases" subcommand against store.
func runCasesCommand(ctx context.Context, w io.Writer, store *novedades.Store, args []string, priority string, now time.Time, format cli.OutputFormat) error {
	if err := store.Load(ctx); err != nil {
		return err
	}
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	parseID := func() (int64, error) {
		if len(args) < 2 {
			return 0, fmt.Errorf("%s requires a case id", sub)
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid case id %q", args[1])
		}
		return id, nil
	}

	switch sub {
	case "list":
		return cli.WriteCases(w, store.Filter(priority), format)
	case "stats":
		return cli.WriteStats(w, store.Stats(now), format)
	case "close":
		id, err := parseID()
		if err != nil {
			return err
		}
		c, err := store.Close(ctx, id)
		if err != nil {
			return err
		}
		return cli.WriteCases(w, []*models.Case{c}, format)
	case "comment":
		id, err := parseID()
		if err != nil {
			return err
		}
		text := strings.TrimSpace(strings.Join(args[2:], " "))
		if text == "" {
			return fmt.Errorf("comment requires text")
		}
		c, err := store.AddComment(ctx, id, text)
		if err != nil {
			return err
		}
		return cli.WriteCases(w, []*models.Case{c}, format)
	case "delete":
		id, err := parseID()
		if err != nil {
			return err
		}
		if err := store.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(w, "Deleted case %d\n", id)
		return nil
	default:
		return fmt.Errorf("unknown cases subcommand %q", sub)
	}
}

func runCases() {
	fs := flag.NewFlagSet("cases", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "portal URL (default: portal.base_url from config)")
	priority := fs.String("priority", "", "only list cases with this priority (baja, media, alta, critica)")
	user := fs.String("user", os.Getenv("USER"), "acting user recorded in case history")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := loadConfigOrDefaults(*configPath)
	base := *serverURL
	if base == "" {
		base = cfg.Portal.BaseURL
	}
	client := novedades.NewClient(base,
		novedades.WithUser(*user),
		novedades.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}))
	store := novedades.NewStore(client)
	if err := runCasesCommand(context.Background(), os.Stdout, store, fs.Args(), *priority, time.Now(), format); err != nil {
		fmt.Fprintf(os.Stderr, "cases: %v\n", err)
		os.Exit(1)
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: montero import [flags] <file.xlsx>...")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	failed := false
	for _, path := range fs.Args() {
		report, err := components.Importer.ImportFile(context.Background(), path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Import %s failed: %v\n", path, err)
			failed = true
			continue
		}
		if err := cli.WriteImportReport(os.Stdout, report, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			failed = true
		}
	}
	if failed {
		components.Close()
		os.Exit(1)
	}
}

// writeInitialConfig writes a default config to path unless one exists.
func writeInitialConfig(path string, force bool) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return nil, fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if err := config.Save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path to create")
	force := fs.Bool("force", false, "overwrite an existing config")
	_ = fs.Parse(os.Args[2:])

	cfg, err := writeInitialConfig(*configPath, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *configPath)
	fmt.Printf("  database:  %s\n", cfg.Storage.DatabasePath)
	fmt.Printf("  directory: %s\n", cfg.Storage.DirectoryIndexPath)
	fmt.Printf("  portal:    %s\n", cfg.Portal.BaseURL)
}

func printUsage() {
	fmt.Println(`montero - Portal usuario lookup and novedades service

Usage:
  montero server [flags]                  Start the portal API server
  montero lookup [flags] <numero>         Run the autocomplete engine once and print the filled fields
  montero cases [flags] [subcommand]      Work with novedades (list, stats, close <id>, comment <id> <text>, delete <id>)
  montero import [flags] <file.xlsx>...   Import usuarios and empresas from workbooks
  montero init [flags]                    Write a default config file
  montero version                         Show version
  montero help                            Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/montero/config.yaml)
  --debug            Enable debug logging

Lookup Flags:
  --server string    Portal URL (default: portal.base_url from config)
  --type string      Identification type (default: CC)
  --simplified       Fixed-type form without a type selector
  --case-form        Use the new-case form preset
  --page string      Fill the form on this page in a browser instead of in memory
  --browser string   DevTools URL of a running browser (default: launch a headless one)
  --show-browser     Launch the browser with a visible window
  --timeout duration Request timeout (default: 10s)
  --output string    Output format: text or json (default: text)

Cases Flags:
  --server string    Portal URL (default: portal.base_url from config)
  --priority string  Only list cases with this priority
  --user string      Acting user recorded in case history (default: $USER)
  --output string    Output format: text or json (default: text)

Examples:
  montero server
  montero lookup 12345678
  montero lookup --type CE --case-form 7654321
  montero lookup --page http://localhost:8080/novedades --case-form --type CE 7654321
  montero cases --priority critica
  montero cases stats --output json
  montero cases comment 12 "Llamar al empleado"
  montero import afiliados.xlsx`)
}
