// Package container provides dependency injection for the fueltrack application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"

	"fjacquet/fueltrack/internal/config"
	"fjacquet/fueltrack/internal/importer"
	"fjacquet/fueltrack/internal/loader"
	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/processor"
	"fjacquet/fueltrack/internal/storage"
	"fjacquet/fueltrack/internal/store"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation - all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger     logging.Logger
	config     *config.Config
	keywords   *store.KeywordStore
	dictionary models.KeywordDictionary
	loader     *loader.Loader
	repository storage.Repository
	importer   *importer.Importer
	processor  *processor.Processor
}

// Option adjusts container construction.
type Option func(*options)

type options struct {
	withoutStorage bool
	dictionary     store.DictionaryLoader
}

// WithoutStorage skips opening the repository; the importer and processor are then
// unavailable. Used by commands that only read files.
func WithoutStorage() Option {
	return func(o *options) { o.withoutStorage = true }
}

// WithDictionaryLoader replaces the keywords file lookup.
func WithDictionaryLoader(l store.DictionaryLoader) Option {
	return func(o *options) { o.dictionary = l }
}

// NewContainer creates and wires all application dependencies.
// This is the main entry point for dependency injection in the application.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	return NewContainerWithLogger(context.Background(), cfg, config.ConfigureLoggingFromConfig(cfg))
}

// NewContainerWithLogger is NewContainer with an injected logger.
func NewContainerWithLogger(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	logger = logging.OrDefault(logger)

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	keywords := store.NewKeywordStore(cfg.Ingest.KeywordsFile, logger)
	var dictLoader store.DictionaryLoader = keywords
	if o.dictionary != nil {
		dictLoader = o.dictionary
	}
	dict, err := dictLoader.LoadDictionary()
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword dictionary: %w", err)
	}

	tableLoader := loader.New(dict, loader.Options{
		MaxSheets:       cfg.Ingest.MaxSheets,
		MaxHeaderOffset: cfg.Ingest.MaxHeaderOffset,
	}, logger)

	c := &Container{
		logger:     logger,
		config:     cfg,
		keywords:   keywords,
		dictionary: dict,
		loader:     tableLoader,
	}
	if o.withoutStorage {
		return c, nil
	}

	repo, err := OpenRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.repository = repo
	c.importer = importer.New(tableLoader, repo, logger, importer.WithDayFirst(cfg.Ingest.DayFirst))
	c.processor = processor.New(repo, logger,
		processor.WithMaxCounterJump(cfg.Anomaly.MaxCounterJump),
		processor.WithWorkers(cfg.Processor.Workers))

	logger.Debug("Container initialized successfully",
		logging.F(logging.FieldDriver, cfg.Database.Driver),
		logging.F("keyword_fields", len(dict.Entries)))

	return c, nil
}

// OpenRepository opens the storage backend selected by cfg.Database.Driver.
func OpenRepository(ctx context.Context, cfg *config.Config, logger logging.Logger) (storage.Repository, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.Database.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database %s: %w", cfg.Database.Path, err)
		}
		return repo, nil
	case config.DriverPostgres:
		repo, err := storage.NewPostgresRepository(ctx, config.NormalizeDatabaseURL(cfg.Database.URL), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database: %w", err)
		}
		return repo, nil
	case config.DriverMemory:
		return storage.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Database.Driver)
	}
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetKeywordStore returns the keyword dictionary store.
func (c *Container) GetKeywordStore() *store.KeywordStore {
	return c.keywords
}

// GetDictionary returns the keyword dictionary loaded at startup.
func (c *Container) GetDictionary() models.KeywordDictionary {
	return c.dictionary
}

// GetLoader returns the table loader.
func (c *Container) GetLoader() *loader.Loader {
	return c.loader
}

// HasStorage reports whether a repository was opened.
func (c *Container) HasStorage() bool {
	return c.repository != nil
}

// GetRepository returns the storage backend, nil when built WithoutStorage.
func (c *Container) GetRepository() storage.Repository {
	return c.repository
}

// GetImporter returns the importer.
func (c *Container) GetImporter() *importer.Importer {
	return c.importer
}

// GetProcessor returns the processor.
func (c *Container) GetProcessor() *processor.Processor {
	return c.processor
}

// Close releases the storage backend.
func (c *Container) Close() error {
	if c.repository == nil {
		return nil
	}
	if err := c.repository.Close(); err != nil {
		return fmt.Errorf("failed to close repository: %w", err)
	}
	return nil
}
