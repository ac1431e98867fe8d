package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coda-audio/coda/internal/audio"
	"github.com/coda-audio/coda/internal/config"
	"github.com/coda-audio/coda/internal/credits"
	"github.com/coda-audio/coda/internal/database"
	"github.com/coda-audio/coda/internal/event"
	"github.com/coda-audio/coda/internal/federation"
	"github.com/coda-audio/coda/internal/importer"
	"github.com/coda-audio/coda/internal/library"
	"github.com/coda-audio/coda/internal/logging"
	"github.com/coda-audio/coda/internal/maintenance"
	"github.com/coda-audio/coda/internal/musicbrainz"
	"github.com/coda-audio/coda/internal/watcher"
	"github.com/coda-audio/coda/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("CODA_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, logCloser := logging.New(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	if logCloser != nil {
		defer logCloser.Close() //nolint:errcheck
	}
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	parser, err := credits.Config{
		JoinPhrases: cfg.Music.JoinPhrases,
		Default:     cfg.Music.DefaultJoinPhrase,
	}.Compile()
	if err != nil {
		return fmt.Errorf("compiling join-phrase grammar: %w", err)
	}

	libraryStore := library.NewStore(db)
	defaultLibID, err := ensureDefaultLibrary(context.Background(), libraryStore, cfg, logger)
	if err != nil {
		return fmt.Errorf("ensuring default library: %w", err)
	}

	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	mbClient := musicbrainz.New(cfg.MusicBrainz, logger)
	extractor := audio.NewFileExtractor()
	outbox := federation.NewOutbox(cfg.Federation, logger)

	processor := importer.NewProcessor(db, parser, mbClient, extractor, eventBus,
		outbox, logger, cfg.Worker.RetryAttempts)

	importWorker := worker.New(libraryStore, processor, cfg.Worker, logger)
	eventBus.Subscribe(event.UploadCreated, importWorker.HandleUploadCreated)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Music.ImportPath != "" {
		if err := os.MkdirAll(cfg.Music.ImportPath, 0o750); err != nil {
			logger.Warn("creating import directory failed",
				slog.String("path", cfg.Music.ImportPath), slog.Any("error", err))
		}
		supported := watcher.ProbeFSNotify(cfg.Music.ImportPath, 2*time.Second)
		logger.Info("fsnotify probe result",
			slog.String("path", cfg.Music.ImportPath), slog.Bool("supported", supported))

		importWatcher := watcher.NewService(cfg.Music.ImportPath, defaultLibID,
			libraryStore, eventBus, logger)
		go importWatcher.Start(ctx)
	}

	go importWorker.Start(ctx)

	maintenanceService := maintenance.NewService(db, cfg.Database.Path, logger)
	go maintenanceService.StartScheduler(ctx, 24*time.Hour)

	logger.Info("coda started",
		slog.String("library_path", cfg.Music.LibraryPath),
		slog.String("import_path", cfg.Music.ImportPath))

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// ensureDefaultLibrary makes sure a local actor and a default regular
// library exist, returning the library id the import watcher feeds.
func ensureDefaultLibrary(ctx context.Context, store *library.Store, cfg *config.Config, logger *slog.Logger) (string, error) {
	domain := cfg.Federation.Domain
	if domain == "" {
		domain = "localhost"
	}

	actor, err := store.GetLocalActorByUsername(ctx, "library")
	if err != nil {
		return "", err
	}
	if actor == nil {
		actor = &library.Actor{
			PreferredUsername: "library",
			Domain:            domain,
			FID:               fmt.Sprintf("https://%s/federation/actors/library", domain),
			IsLocal:           true,
		}
		if err := store.CreateActor(ctx, actor); err != nil {
			return "", err
		}
		logger.Info("created local service actor", slog.String("id", actor.ID))
	}

	lib, err := store.GetLibraryByName(ctx, actor.ID, "Default")
	if err != nil {
		return "", err
	}
	if lib == nil {
		lib = &library.Library{
			ActorID: actor.ID,
			Name:    "Default",
			FID:     fmt.Sprintf("https://%s/federation/music/libraries/default", domain),
			Type:    library.TypeRegular,
		}
		if err := store.CreateLibrary(ctx, lib); err != nil {
			return "", err
		}
		logger.Info("created default library", slog.String("id", lib.ID))
	}
	return lib.ID, nil
}
