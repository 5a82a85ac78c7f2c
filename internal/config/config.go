package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Paths     PathsConfig     `toml:"paths"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Palette   PaletteConfig   `toml:"palette"`
	Trace     TraceConfig     `toml:"trace"`
	API       APIConfig       `toml:"api"`
	Queue     QueueConfig     `toml:"queue"`
	Worker    WorkerConfig    `toml:"worker"`
	Storage   StorageConfig   `toml:"storage"`
	Database  DatabaseConfig  `toml:"database"`
	Webhook   WebhookConfig   `toml:"webhook"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Progress  ProgressConfig  `toml:"progress"`
}

type PathsConfig struct {
	LowResDir  string `toml:"low_res_dir"`
	HighResDir string `toml:"high_res_dir"`
	ResultDir  string `toml:"result_dir"`
	JobFile    string `toml:"job_file"`
}

type PipelineConfig struct {
	Concurrency    int     `toml:"concurrency"`
	Tolerance      int     `toml:"tolerance"`
	MinConfidence  float64 `toml:"min_confidence"`
	WhiteThreshold int     `toml:"white_threshold"`
	CanvasSize     int     `toml:"canvas_size"`
	ShrinkFactor   float64 `toml:"shrink_factor"`
	MaxVectorKiB   int     `toml:"max_vector_kib"`
	SourceType     string  `toml:"source_type"`
}

type PaletteConfig struct {
	BaseClusters     int     `toml:"base_clusters"`
	PixelsPerCluster int     `toml:"pixels_per_cluster"`
	MaxClusters      int     `toml:"max_clusters"`
	MaxIterations    int     `toml:"max_iterations"`
	Delta            float64 `toml:"delta"`
	Seed             uint64  `toml:"seed"`
	MaxDimension     int     `toml:"max_dimension"`
}

type TraceConfig struct {
	FilterSpeckle   int     `toml:"filter_speckle"`
	ColorPrecision  int     `toml:"color_precision"`
	LayerDifference int     `toml:"layer_difference"`
	Mode            string  `toml:"mode"`
	CornerThreshold float64 `toml:"corner_threshold"`
	LengthThreshold float64 `toml:"length_threshold"`
	MaxIterations   int     `toml:"max_iterations"`
	SpliceThreshold float64 `toml:"splice_threshold"`
	PathPrecision   int     `toml:"path_precision"`
}

type APIConfig struct {
	Addr                   string `toml:"addr"`
	RateLimit              int    `toml:"rate_limit"`
	RateLimitWindowSeconds int    `toml:"rate_limit_window_seconds"`
}

func (a APIConfig) RateLimitWindow() time.Duration {
	return time.Duration(a.RateLimitWindowSeconds) * time.Second
}

type QueueConfig struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Name          string `toml:"name"`
	MaxRetry      int    `toml:"max_retry"`
}

func (q QueueConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

type WorkerConfig struct {
	Concurrency   int    `toml:"concurrency"`
	MaxActiveJobs int    `toml:"max_active_jobs"`
	MetricsAddr   string `toml:"metrics_addr"`
}

type StorageConfig struct {
	Endpoint      string `toml:"endpoint"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	Bucket        string `toml:"bucket"`
	UseSSL        bool   `toml:"use_ssl"`
	LowResPrefix  string `toml:"low_res_prefix"`
	HighResPrefix string `toml:"high_res_prefix"`
	ResultPrefix  string `toml:"result_prefix"`
}

type DatabaseConfig struct {
	DSN string `toml:"dsn"`
}

type WebhookConfig struct {
	URL            string `toml:"url"`
	Secret         string `toml:"secret"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func (w WebhookConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

type TelemetryConfig struct {
	Exporter     string `toml:"exporter"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	OTLPInsecure bool   `toml:"otlp_insecure"`
}

type ProgressConfig struct {
	RedisKeyPrefix string `toml:"redis_key_prefix"`
	TTLSeconds     int    `toml:"ttl_seconds"`
	LogEvery       int    `toml:"log_every"`
}

func (p ProgressConfig) TTL() time.Duration {
	return time.Duration(p.TTLSeconds) * time.Second
}

func Default() Config {
	defaultWorkerSlots := max(1, runtime.NumCPU()/2)

	return Config{
		Paths: PathsConfig{
			LowResDir:  "download",
			HighResDir: "upscale",
			ResultDir:  "result",
		},
		Pipeline: PipelineConfig{
			Concurrency:    16,
			Tolerance:      30,
			MinConfidence:  0.5,
			WhiteThreshold: 250,
			CanvasSize:     300,
			ShrinkFactor:   0.65,
			MaxVectorKiB:   90,
			SourceType:     "local_file",
		},
		Palette: PaletteConfig{
			BaseClusters:     4,
			PixelsPerCluster: 6000,
			MaxClusters:      8,
			MaxIterations:    100,
			Delta:            1.0,
			Seed:             0,
			MaxDimension:     300,
		},
		Trace: TraceConfig{
			FilterSpeckle:   16,
			ColorPrecision:  5,
			LayerDifference: 16,
			Mode:            "spline",
			CornerThreshold: 60,
			LengthThreshold: 4.0,
			MaxIterations:   10,
			SpliceThreshold: 45,
			PathPrecision:   2,
		},
		API: APIConfig{
			Addr:                   ":8080",
			RateLimit:              500,
			RateLimitWindowSeconds: 60,
		},
		Queue: QueueConfig{
			RedisAddr: "localhost:6379",
			Name:      "default",
			MaxRetry:  3,
		},
		Worker: WorkerConfig{
			Concurrency:   max(2, runtime.NumCPU()),
			MaxActiveJobs: defaultWorkerSlots,
			MetricsAddr:   ":9091",
		},
		Storage: StorageConfig{
			Endpoint:      "localhost:9000",
			AccessKey:     "minioadmin",
			SecretKey:     "minioadmin",
			Bucket:        "logocrunch",
			LowResPrefix:  "low",
			HighResPrefix: "high",
			ResultPrefix:  "results",
		},
		Webhook: WebhookConfig{
			TimeoutSeconds: 10,
		},
		Telemetry: TelemetryConfig{
			Exporter: "none",
		},
		Progress: ProgressConfig{
			RedisKeyPrefix: "logocrunch:progress",
			TTLSeconds:     24 * 60 * 60,
			LogEvery:       50,
		},
	}
}

// Load returns the defaults overridden by environment variables.
func Load() Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// LoadFile layers defaults, the TOML file at path and the environment. An
// empty path skips the file; a missing file is an error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadService is the startup path of the long-running binaries: .env, the
// TOML file named by LOGOCRUNCH_CONFIG, the environment, then validation.
func LoadService() (Config, error) {
	if err := LoadEnvFiles(".env"); err != nil {
		return Config{}, err
	}
	cfg, err := LoadFile(os.Getenv("LOGOCRUNCH_CONFIG"))
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadEnvFiles loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Paths.LowResDir = env("LOGOCRUNCH_LOW_RES_DIR", c.Paths.LowResDir)
	c.Paths.HighResDir = env("LOGOCRUNCH_HIGH_RES_DIR", c.Paths.HighResDir)
	c.Paths.ResultDir = env("LOGOCRUNCH_RESULT_DIR", c.Paths.ResultDir)
	c.Paths.JobFile = env("LOGOCRUNCH_JOB_FILE", c.Paths.JobFile)

	c.Pipeline.Concurrency = envInt("LOGOCRUNCH_CONCURRENCY", c.Pipeline.Concurrency)
	c.Pipeline.Tolerance = envInt("LOGOCRUNCH_TOLERANCE", c.Pipeline.Tolerance)
	c.Pipeline.MinConfidence = envFloat("LOGOCRUNCH_MIN_CONFIDENCE", c.Pipeline.MinConfidence)
	c.Pipeline.WhiteThreshold = envInt("LOGOCRUNCH_WHITE_THRESHOLD", c.Pipeline.WhiteThreshold)
	c.Pipeline.ShrinkFactor = envFloat("LOGOCRUNCH_SHRINK_FACTOR", c.Pipeline.ShrinkFactor)
	c.Pipeline.MaxVectorKiB = envInt("LOGOCRUNCH_MAX_VECTOR_KIB", c.Pipeline.MaxVectorKiB)
	c.Pipeline.SourceType = env("LOGOCRUNCH_SOURCE_TYPE", c.Pipeline.SourceType)

	c.Trace.Mode = env("LOGOCRUNCH_TRACE_MODE", c.Trace.Mode)

	c.API.Addr = env("LOGOCRUNCH_API_ADDR", c.API.Addr)
	c.API.RateLimit = envInt("LOGOCRUNCH_API_RATE_LIMIT", c.API.RateLimit)
	c.API.RateLimitWindowSeconds = envInt("LOGOCRUNCH_API_RATE_LIMIT_WINDOW_SECONDS", c.API.RateLimitWindowSeconds)

	c.Queue.RedisAddr = env("REDIS_ADDR", c.Queue.RedisAddr)
	c.Queue.RedisPassword = env("REDIS_PASSWORD", c.Queue.RedisPassword)
	c.Queue.RedisDB = envInt("REDIS_DB", c.Queue.RedisDB)
	c.Queue.Name = env("ASYNC_QUEUE", c.Queue.Name)
	c.Queue.MaxRetry = envInt("ASYNC_MAX_RETRY", c.Queue.MaxRetry)

	c.Worker.Concurrency = envInt("WORKER_CONCURRENCY", c.Worker.Concurrency)
	c.Worker.MaxActiveJobs = envInt("WORKER_MAX_ACTIVE_JOBS", c.Worker.MaxActiveJobs)
	c.Worker.MetricsAddr = env("WORKER_METRICS_ADDR", c.Worker.MetricsAddr)

	c.Storage.Endpoint = env("MINIO_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKey = env("MINIO_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = env("MINIO_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = env("MINIO_BUCKET", c.Storage.Bucket)
	c.Storage.UseSSL = envBool("MINIO_USE_SSL", c.Storage.UseSSL)

	c.Database.DSN = env("POSTGRES_DSN", c.Database.DSN)

	c.Webhook.URL = env("LOGOCRUNCH_WEBHOOK_URL", c.Webhook.URL)
	c.Webhook.Secret = env("LOGOCRUNCH_WEBHOOK_SECRET", c.Webhook.Secret)
	c.Webhook.TimeoutSeconds = envInt("LOGOCRUNCH_WEBHOOK_TIMEOUT_SECONDS", c.Webhook.TimeoutSeconds)

	c.Telemetry.Exporter = env("OTEL_TRACES_EXPORTER", c.Telemetry.Exporter)
	c.Telemetry.OTLPEndpoint = env("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.OTLPEndpoint)
	c.Telemetry.OTLPInsecure = envBool("OTEL_EXPORTER_OTLP_INSECURE", c.Telemetry.OTLPInsecure)
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
