package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/DiogoFolques/ClaimPT-dataprocessing/api"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/api/handler"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/api/middleware"
	appconfig "github.com/DiogoFolques/ClaimPT-dataprocessing/config"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/cache"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/cas"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/database"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/dataset"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/models"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/repository"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/services"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/internal/split"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/pkg/storage"
	"github.com/DiogoFolques/ClaimPT-dataprocessing/pkg/taskqueue"
)

// command line options
type config struct {
	// batch split mode
	Input         string  // corpus file to split
	OutTrainJSON  string  // train output, JSON array
	OutTestJSON   string  // test output, JSON array
	OutTrainJSONL string  // train output, one document per line
	OutTestJSONL  string  // test output, one document per line
	TestSize      float64 // claim share routed to test
	KeepRatio     bool    // preserve the global claim-doc ratio in test
	Seed          int64   // shuffle seed

	// conversion modes
	ConvertDir string // CAS export directory to convert
	ConvertOut string // converted corpus output path
	BundleDir  string // annotation root to bundle

	// server mode
	Serve        bool          // run the HTTP API
	Port         int           // server port
	Mode         string        // gin mode (debug/release)
	LogLevel     string        // log level
	LogFile      string        // log file, empty for stdout
	ReadTimeout  time.Duration // read timeout
	WriteTimeout time.Duration // write timeout
	StoragePath  string        // dataset and artifact storage path
	DataDir      string        // data directory
	CacheType    string        // cache type (memory/redis)
	ConfigFile   string        // config file path

	// task queue
	QueueEnabled     bool          // enable async processing
	QueueType        string        // queue backend
	RedisAddr        string        // redis address
	RedisPassword    string        // redis password
	RedisDB          int           // redis database number
	QueueConcurrency int           // worker concurrency
	QueueRetryLimit  int           // max retries per task
	QueueRetryDelay  time.Duration // delay between retries
}

func main() {
	// .env values feed the environment lookups below
	_ = godotenv.Load()

	cfg := parseFlags()

	var appConfig *appconfig.Config
	if cfg.ConfigFile != "" {
		var err error
		appConfig, err = appconfig.Load(cfg.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load config file: %v, using command line args\n", err)
		} else {
			updateConfigFromFile(&cfg, appConfig)
		}
	}

	logger := setupLogger(cfg)

	switch {
	case cfg.BundleDir != "":
		runBundle(cfg, logger)
	case cfg.ConvertDir != "" && !cfg.Serve:
		runConvert(cfg, logger)
	case cfg.Serve:
		runServer(cfg, logger)
	default:
		runSplit(cfg, logger)
	}
}

// runBundle collects scattered CAS JSON exports under one directory
func runBundle(cfg config, logger *logrus.Logger) {
	count, err := cas.BundleDir(cfg.BundleDir, logger)
	if err != nil {
		logger.Fatalf("Failed to bundle CAS files: %v", err)
	}
	fmt.Printf("Bundled %d CAS files into %s\n", count, filepath.Join(cfg.BundleDir, cas.BundleOutputDir))
}

// runConvert turns a directory of CAS exports into a corpus file
func runConvert(cfg config, logger *logrus.Logger) {
	docs, err := cas.ConvertDir(cfg.ConvertDir, logger)
	if err != nil {
		logger.Fatalf("Failed to convert CAS directory: %v", err)
	}

	if err := dataset.WriteJSONFile(cfg.ConvertOut, docs); err != nil {
		logger.Fatalf("Failed to write converted corpus: %v", err)
	}
	fmt.Printf("Converted %d documents into %s\n", len(docs), cfg.ConvertOut)
}

// runSplit partitions a corpus file and writes the requested outputs
func runSplit(cfg config, logger *logrus.Logger) {
	if cfg.Input == "" {
		fmt.Fprintln(os.Stderr, "Usage: a corpus file is required, pass it with -input (or run with -serve)")
		flag.Usage()
		os.Exit(2)
	}

	docs, err := dataset.LoadFile(cfg.Input)
	if err != nil {
		logger.Fatalf("Failed to load corpus: %v", err)
	}

	corpus, err := dataset.Summarize(docs)
	if err != nil {
		logger.Fatalf("Failed to summarize corpus: %v", err)
	}

	splitCfg := split.Config{
		TestSize:  cfg.TestSize,
		KeepRatio: cfg.KeepRatio,
		Seed:      cfg.Seed,
	}
	assignment, err := split.NewPartitioner(splitCfg).Split(corpus)
	if err != nil {
		logger.Fatalf("Failed to split corpus: %v", err)
	}

	stats := split.ComputeStats(corpus, assignment, splitCfg)
	train, test := assignment.Materialize(docs)

	outputs := []struct {
		path  string
		docs  []models.Document
		jsonl bool
	}{
		{cfg.OutTrainJSON, train, false},
		{cfg.OutTestJSON, test, false},
		{cfg.OutTrainJSONL, train, true},
		{cfg.OutTestJSONL, test, true},
	}
	for _, out := range outputs {
		if out.path == "" {
			continue
		}
		if out.jsonl {
			err = dataset.WriteJSONLFile(out.path, out.docs)
		} else {
			err = dataset.WriteJSONFile(out.path, out.docs)
		}
		if err != nil {
			logger.Fatalf("Failed to write %s: %v", out.path, err)
		}
	}

	fmt.Print(stats.Report())
}

// runServer wires the services and runs the HTTP API
func runServer(cfg config, logger *logrus.Logger) {
	gin.SetMode(cfg.Mode)
	logger.Info("Starting ClaimPT data processing server...")

	if err := setupDatabase(cfg, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	fileStorage, err := setupStorage(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	cacheService, err := setupCache(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}

	var queue taskqueue.Queue
	if cfg.QueueEnabled {
		queue, err = setupTaskQueue(cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		logger.Info("Task queue initialized successfully")
	}

	datasetService := services.NewDatasetService(
		fileStorage,
		services.WithDatasetLogger(logger),
		services.WithDatasetRepository(repository.NewDatasetRepository()),
	)

	splitOptions := []services.SplitOption{
		services.WithLogger(logger),
		services.WithSplitRepository(repository.NewSplitRepository()),
		services.WithCache(cacheService),
	}
	if queue != nil {
		splitOptions = append(splitOptions,
			services.WithTaskQueue(queue),
			// runs stay synchronous unless the request asks for async
			services.WithAsyncProcessing(false),
		)
	}
	splitService := services.NewSplitService(datasetService, fileStorage, splitOptions...)

	// start the worker when async processing is available
	var worker taskqueue.Worker
	if queue != nil {
		redisQueue, ok := queue.(*taskqueue.RedisQueue)
		if !ok {
			logger.Fatalf("Task queue type %s does not support workers", cfg.QueueType)
		}
		worker = taskqueue.NewRedisWorker(redisQueue, queueConfig(cfg))

		processor := services.NewTaskProcessor(splitService, datasetService, logger)
		for _, taskType := range processor.GetTaskTypes() {
			worker.RegisterHandler(taskType, processor)
		}

		go func() {
			if err := worker.Start(); err != nil {
				logger.Fatalf("Failed to start task worker: %v", err)
			}
		}()
		defer worker.Stop()
		logger.Info("Task worker started")
	}

	datasetHandler := handler.NewDatasetHandler(datasetService)
	splitHandler := handler.NewSplitHandler(splitService)
	r := api.SetupRouter(datasetHandler, splitHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Infof("Server is running on port %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// parseFlags parses the command line
func parseFlags() config {
	cfg := config{}

	// batch split mode, mirroring the standalone splitter
	flag.StringVar(&cfg.Input, "input", "", "Corpus file to split (.json or .jsonl)")
	flag.StringVar(&cfg.OutTrainJSON, "out-train-json", "train.json", "Train output path (JSON array)")
	flag.StringVar(&cfg.OutTestJSON, "out-test-json", "test.json", "Test output path (JSON array)")
	flag.StringVar(&cfg.OutTrainJSONL, "out-train-jsonl", "train.jsonl", "Train output path (JSON lines)")
	flag.StringVar(&cfg.OutTestJSONL, "out-test-jsonl", "test.jsonl", "Test output path (JSON lines)")
	flag.Float64Var(&cfg.TestSize, "test-size", 0.20, "Share of claims routed to the test split, in (0, 1)")
	flag.BoolVar(&cfg.KeepRatio, "keep-ratio", false, "Top up the test split with claim-free documents to match the global ratio")
	flag.Int64Var(&cfg.Seed, "seed", 42, "Shuffle seed")

	// conversion modes
	flag.StringVar(&cfg.ConvertDir, "convert-dir", "", "Convert a directory of CAS JSON exports into a corpus file and exit")
	flag.StringVar(&cfg.ConvertOut, "convert-out", "corpus.json", "Output path for -convert-dir")
	flag.StringVar(&cfg.BundleDir, "bundle-dir", "", "Collect per-document CAS JSON files under <dir>/jsons and exit")

	// server mode
	flag.BoolVar(&cfg.Serve, "serve", false, "Run the HTTP API server")
	flag.IntVar(&cfg.Port, "port", 8080, "Server port")
	flag.StringVar(&cfg.Mode, "mode", "debug", "Run mode (debug/release)")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	flag.StringVar(&cfg.LogFile, "log-file", "", "Log file path (empty logs to stdout)")
	flag.DurationVar(&cfg.ReadTimeout, "read-timeout", 30*time.Second, "Read timeout")
	flag.DurationVar(&cfg.WriteTimeout, "write-timeout", 30*time.Second, "Write timeout")
	flag.StringVar(&cfg.StoragePath, "storage", "./data/files", "Dataset and artifact storage path")
	flag.StringVar(&cfg.DataDir, "data-dir", "./data", "Data directory path")
	flag.StringVar(&cfg.CacheType, "cache", "memory", "Cache type (memory/redis)")
	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to config file")

	// task queue
	flag.BoolVar(&cfg.QueueEnabled, "queue", false, "Enable the task queue for async split runs")
	flag.StringVar(&cfg.QueueType, "queue-type", "redis", "Task queue type (redis)")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", "localhost:6379", "Redis address for task queue")
	flag.StringVar(&cfg.RedisPassword, "redis-password", "", "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number")
	flag.IntVar(&cfg.QueueConcurrency, "queue-concurrency", 10, "Task queue concurrency")
	flag.IntVar(&cfg.QueueRetryLimit, "queue-retry", 3, "Max retry attempts for failed tasks")
	flag.DurationVar(&cfg.QueueRetryDelay, "queue-retry-delay", time.Minute, "Delay between retry attempts")

	// environment overrides take precedence over flag defaults
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.RedisAddr = redisAddr
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}

	flag.Parse()
	return cfg
}

// updateConfigFromFile overrides flag defaults with config file values
func updateConfigFromFile(cfg *config, appConfig *appconfig.Config) {
	// only parameters left at their flag defaults are updated

	if flag.Lookup("port").DefValue == fmt.Sprint(cfg.Port) {
		cfg.Port = appConfig.Server.Port
	}
	if flag.Lookup("storage").DefValue == cfg.StoragePath && appConfig.Storage.Path != "" {
		cfg.StoragePath = appConfig.Storage.Path
	}
	if flag.Lookup("cache").DefValue == cfg.CacheType {
		cfg.CacheType = appConfig.Cache.Type
	}
	if flag.Lookup("log-level").DefValue == cfg.LogLevel {
		cfg.LogLevel = appConfig.Log.Level
	}
	if flag.Lookup("log-file").DefValue == cfg.LogFile {
		cfg.LogFile = appConfig.Log.File
	}

	// split parameters
	if flag.Lookup("test-size").DefValue == fmt.Sprint(cfg.TestSize) {
		cfg.TestSize = appConfig.Split.TestSize
	}
	if flag.Lookup("keep-ratio").DefValue == fmt.Sprint(cfg.KeepRatio) {
		cfg.KeepRatio = appConfig.Split.KeepRatio
	}
	if flag.Lookup("seed").DefValue == fmt.Sprint(cfg.Seed) {
		cfg.Seed = appConfig.Split.Seed
	}

	// task queue
	if flag.Lookup("queue").DefValue == fmt.Sprint(cfg.QueueEnabled) {
		cfg.QueueEnabled = appConfig.Queue.Enable
	}
	if flag.Lookup("queue-type").DefValue == cfg.QueueType {
		cfg.QueueType = appConfig.Queue.Type
	}
	if flag.Lookup("redis-addr").DefValue == cfg.RedisAddr {
		cfg.RedisAddr = appConfig.Queue.RedisAddr
	}
	if flag.Lookup("redis-password").DefValue == cfg.RedisPassword {
		cfg.RedisPassword = appConfig.Queue.RedisPassword
	}
	if flag.Lookup("redis-db").DefValue == fmt.Sprint(cfg.RedisDB) {
		cfg.RedisDB = appConfig.Queue.RedisDB
	}
	if flag.Lookup("queue-concurrency").DefValue == fmt.Sprint(cfg.QueueConcurrency) {
		cfg.QueueConcurrency = appConfig.Queue.Concurrency
	}
	if flag.Lookup("queue-retry").DefValue == fmt.Sprint(cfg.QueueRetryLimit) {
		cfg.QueueRetryLimit = appConfig.Queue.RetryLimit
	}
	if appConfig.Queue.RetryDelay > 0 {
		cfg.QueueRetryDelay = time.Duration(appConfig.Queue.RetryDelay) * time.Second
	}
}

// setupLogger configures the shared logger
func setupLogger(cfg config) *logrus.Logger {
	logger := middleware.GetLogger()

	switch cfg.LogLevel {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.LogFile != "" {
		logger.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	return logger
}

// setupStorage creates the dataset and artifact store
func setupStorage(cfg config) (storage.Storage, error) {
	if err := os.MkdirAll(cfg.StoragePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %v", err)
	}

	return storage.NewLocalStorage(storage.LocalConfig{
		Path: cfg.StoragePath,
	})
}

// setupCache creates the report cache
func setupCache(cfg config) (cache.Cache, error) {
	cacheConfig := cache.Config{
		Type:            cfg.CacheType,
		DefaultTTL:      24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}

	if cfg.CacheType == "redis" {
		cacheConfig.RedisAddr = cfg.RedisAddr
		cacheConfig.RedisPassword = cfg.RedisPassword
	}

	return cache.NewCache(cacheConfig)
}

// setupDatabase initializes the metadata database
func setupDatabase(cfg config, logger *logrus.Logger) error {
	dbPath := filepath.Join(cfg.DataDir, "claimpt.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %v", err)
	}

	dbConfig := &database.Config{
		Type: "sqlite",
		DSN:  dbPath,
	}

	return database.Setup(dbConfig, logger)
}

// queueConfig maps the command line options to a queue configuration
func queueConfig(cfg config) *taskqueue.Config {
	return &taskqueue.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		Concurrency:   cfg.QueueConcurrency,
		RetryLimit:    cfg.QueueRetryLimit,
		RetryDelay:    cfg.QueueRetryDelay,
	}
}

// setupTaskQueue creates the task queue
func setupTaskQueue(cfg config, logger *logrus.Logger) (taskqueue.Queue, error) {
	logger.WithFields(logrus.Fields{
		"type":        cfg.QueueType,
		"redis_addr":  cfg.RedisAddr,
		"concurrency": cfg.QueueConcurrency,
		"retry_limit": cfg.QueueRetryLimit,
	}).Info("Setting up task queue")

	return taskqueue.NewQueue(cfg.QueueType, queueConfig(cfg))
}
