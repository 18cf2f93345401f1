//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/weaviate/chaos-harness/entities/schema"
	"github.com/weaviate/chaos-harness/entities/sweep"
)

// DefaultConfigFile is read when no config file is provided. It is
// optional: a missing file leaves the defaults in place.
const DefaultConfigFile string = "./chaos-harness.yaml"

const (
	DefaultOrigin         = "http://localhost:8080"
	DefaultGRPCHost       = "localhost:50051"
	DefaultRequestTimeout = 30 * time.Second

	DefaultPollInterval       = 500 * time.Millisecond
	DefaultConvergenceTimeout = 20 * time.Minute

	DefaultSweepClass        = "Benchmark"
	DefaultDatasetDir        = "./datasets/sift"
	DefaultK                 = 10
	DefaultQueryLimit        = 1000
	DefaultQueryParallelism  = 8
	DefaultImportBatchSize   = 100
	DefaultResultsPath       = "./sweep-results.db"
	DefaultDistance          = "l2-squared"
	DefaultChurnClass        = "Paragraph"
	DefaultChurnSecondClass  = "Paragraph2"
	DefaultChurnDataset      = "./datasets/wiki.jsonl"
	DefaultBackupBackend     = "filesystem"
	DefaultDeleteCount       = 5000
	DefaultListLimit         = 50000
	DefaultSettlePeriod      = 60 * time.Second
	DefaultTombstoneTimeout  = 30 * time.Minute
	DefaultTombstoneInterval = 5 * time.Second
	DefaultBackupPoll        = time.Second
	DefaultBackupTimeout     = time.Hour

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Flags are input options shared by every command. Zero values leave the
// config file and environment untouched.
type Flags struct {
	ConfigFile       string        `long:"config-file" description:"path to config file (default: ./chaos-harness.yaml)"`
	Origin           string        `long:"origin" description:"http origin of the weaviate instance, e.g. http://localhost:8080"`
	GRPCHost         string        `long:"grpc-host" description:"host:port of the grpc api"`
	RequestTimeout   time.Duration `long:"request-timeout" description:"timeout of every single remote call"`
	ExpectedReplicas int           `long:"expected-replicas" description:"skip node discovery and expect this many nodes"`
	MetricsListen    string        `long:"metrics-listen" description:"address to serve the harness metrics on, e.g. :2112"`
	LogLevel         string        `long:"log-level" description:"panic, fatal, error, warn, info, debug or trace"`
	LogFormat        string        `long:"log-format" description:"text or json"`
}

type Config struct {
	Weaviate    Weaviate    `json:"weaviate" yaml:"weaviate"`
	Convergence Convergence `json:"convergence" yaml:"convergence"`
	Sweep       Sweep       `json:"sweep" yaml:"sweep"`
	Churn       Churn       `json:"churn" yaml:"churn"`
	Monitoring  Monitoring  `json:"monitoring" yaml:"monitoring"`
	Logging     Logging     `json:"logging" yaml:"logging"`
}

type Weaviate struct {
	Origin         string        `json:"origin" yaml:"origin"`
	GRPCHost       string        `json:"grpcHost" yaml:"grpc_host"`
	GRPCSecure     bool          `json:"grpcSecure" yaml:"grpc_secure"`
	RequestTimeout time.Duration `json:"requestTimeout" yaml:"request_timeout"`
	APIKey         string        `json:"apiKey" yaml:"api_key"`
}

type Convergence struct {
	PollInterval     time.Duration `json:"pollInterval" yaml:"poll_interval"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`
	ExpectedReplicas int           `json:"expectedReplicas" yaml:"expected_replicas"`
}

type Sweep struct {
	Class            string     `json:"class" yaml:"class"`
	Grid             sweep.Grid `json:"grid" yaml:"grid"`
	DatasetDir       string     `json:"datasetDir" yaml:"dataset_dir"`
	K                int        `json:"k" yaml:"k"`
	QueryLimit       int        `json:"queryLimit" yaml:"query_limit"`
	QueryParallelism int        `json:"queryParallelism" yaml:"query_parallelism"`
	QPS              float64    `json:"qps" yaml:"qps"`
	BatchSize        int        `json:"batchSize" yaml:"batch_size"`
	ResultsPath      string     `json:"resultsPath" yaml:"results_path"`
}

type Churn struct {
	DatasetPath       string        `json:"datasetPath" yaml:"dataset_path"`
	Class             string        `json:"class" yaml:"class"`
	SecondClass       string        `json:"secondClass" yaml:"second_class"`
	BatchSize         int           `json:"batchSize" yaml:"batch_size"`
	BackupBackend     string        `json:"backupBackend" yaml:"backup_backend"`
	BackupPoll        time.Duration `json:"backupPoll" yaml:"backup_poll"`
	BackupTimeout     time.Duration `json:"backupTimeout" yaml:"backup_timeout"`
	DeleteCount       int           `json:"deleteCount" yaml:"delete_count"`
	ListLimit         int           `json:"listLimit" yaml:"list_limit"`
	Seed              int64         `json:"seed" yaml:"seed"`
	Settle            time.Duration `json:"settle" yaml:"settle"`
	WaitTombstones    bool          `json:"waitTombstones" yaml:"wait_tombstones"`
	TombstoneTimeout  time.Duration `json:"tombstoneTimeout" yaml:"tombstone_timeout"`
	TombstoneInterval time.Duration `json:"tombstoneInterval" yaml:"tombstone_interval"`
}

type Monitoring struct {
	// MetricsOrigin is where the remote service exposes its metrics.
	MetricsOrigin string `json:"metricsOrigin" yaml:"metrics_origin"`
	// Listen serves the harness' own metrics when set.
	Listen string `json:"listen" yaml:"listen"`
}

type Logging struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns a config that is valid without any further input.
func Default() Config {
	return Config{
		Weaviate: Weaviate{
			Origin:         DefaultOrigin,
			GRPCHost:       DefaultGRPCHost,
			RequestTimeout: DefaultRequestTimeout,
		},
		Convergence: Convergence{
			PollInterval: DefaultPollInterval,
			Timeout:      DefaultConvergenceTimeout,
		},
		Sweep: Sweep{
			Class:            DefaultSweepClass,
			Grid:             sweep.DefaultGrid(DefaultDistance),
			DatasetDir:       DefaultDatasetDir,
			K:                DefaultK,
			QueryLimit:       DefaultQueryLimit,
			QueryParallelism: DefaultQueryParallelism,
			BatchSize:        DefaultImportBatchSize,
			ResultsPath:      DefaultResultsPath,
		},
		Churn: Churn{
			DatasetPath:       DefaultChurnDataset,
			Class:             DefaultChurnClass,
			SecondClass:       DefaultChurnSecondClass,
			BatchSize:         DefaultImportBatchSize,
			BackupBackend:     DefaultBackupBackend,
			BackupPoll:        DefaultBackupPoll,
			BackupTimeout:     DefaultBackupTimeout,
			DeleteCount:       DefaultDeleteCount,
			ListLimit:         DefaultListLimit,
			Settle:            DefaultSettlePeriod,
			TombstoneTimeout:  DefaultTombstoneTimeout,
			TombstoneInterval: DefaultTombstoneInterval,
		},
		Monitoring: Monitoring{
			MetricsOrigin: "http://localhost:2112",
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Validate the configuration
func (c *Config) Validate() error {
	if err := validateOrigin("weaviate.origin", c.Weaviate.Origin); err != nil {
		return configErr(err)
	}
	if c.Weaviate.GRPCHost == "" {
		return configErr(fmt.Errorf("weaviate.grpc_host must be set"))
	}
	if c.Weaviate.RequestTimeout <= 0 {
		return configErr(fmt.Errorf("weaviate.request_timeout must be positive"))
	}
	if err := c.Convergence.Validate(); err != nil {
		return configErr(err)
	}
	if err := c.Sweep.Validate(); err != nil {
		return configErr(err)
	}
	if err := c.Churn.Validate(); err != nil {
		return configErr(err)
	}
	if c.Monitoring.MetricsOrigin != "" {
		if err := validateOrigin("monitoring.metrics_origin", c.Monitoring.MetricsOrigin); err != nil {
			return configErr(err)
		}
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return configErr(fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return configErr(fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	return nil
}

func (c Convergence) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("convergence.poll_interval must be positive")
	}
	if c.Timeout < c.PollInterval {
		return fmt.Errorf("convergence.timeout must be at least one poll interval")
	}
	if c.ExpectedReplicas < 0 {
		return fmt.Errorf("convergence.expected_replicas must not be negative")
	}
	return nil
}

func (s Sweep) Validate() error {
	if err := schema.ValidateClassName(s.Class); err != nil {
		return fmt.Errorf("sweep.class: %w", err)
	}
	if err := s.Grid.Validate(); err != nil {
		return fmt.Errorf("sweep.%w", err)
	}
	if !schema.IsValidDistance(s.Grid.Distance) {
		return fmt.Errorf("sweep.grid: unsupported distance %q", s.Grid.Distance)
	}
	if s.K < 1 {
		return fmt.Errorf("sweep.k must be positive")
	}
	if s.QueryLimit < 1 {
		return fmt.Errorf("sweep.query_limit must be positive")
	}
	if s.QueryParallelism < 1 {
		return fmt.Errorf("sweep.query_parallelism must be positive")
	}
	if s.QPS < 0 {
		return fmt.Errorf("sweep.qps must not be negative")
	}
	if s.BatchSize < 1 {
		return fmt.Errorf("sweep.batch_size must be positive")
	}
	return nil
}

func (c Churn) Validate() error {
	if err := schema.ValidateClassName(c.Class); err != nil {
		return fmt.Errorf("churn.class: %w", err)
	}
	if err := schema.ValidateClassName(c.SecondClass); err != nil {
		return fmt.Errorf("churn.second_class: %w", err)
	}
	if c.Class == c.SecondClass {
		return fmt.Errorf("churn.class and churn.second_class must differ")
	}
	if c.BackupBackend == "" {
		return fmt.Errorf("churn.backup_backend must be set")
	}
	if c.BackupPoll <= 0 || c.BackupTimeout <= 0 {
		return fmt.Errorf("churn.backup_poll and churn.backup_timeout must be positive")
	}
	if c.DeleteCount < 0 {
		return fmt.Errorf("churn.delete_count must not be negative")
	}
	if c.ListLimit < 1 {
		return fmt.Errorf("churn.list_limit must be positive")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("churn.batch_size must be positive")
	}
	if c.Settle < 0 {
		return fmt.Errorf("churn.settle must not be negative")
	}
	if c.WaitTombstones && (c.TombstoneTimeout <= 0 || c.TombstoneInterval <= 0) {
		return fmt.Errorf("churn.tombstone_timeout and churn.tombstone_interval must be positive")
	}
	return nil
}

func validateOrigin(name, origin string) error {
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, origin)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must contain a host, got %q", name, origin)
	}
	return nil
}

// LoadConfig from config locations. The load order for configuration values if the following
// 1. Config file
// 2. Environment variables
// 3. Command line flags
// If a config option is specified multiple times in different locations, the latest one will be used in this order.
func LoadConfig(flags *Flags, logger logrus.FieldLogger) (Config, error) {
	config := Default()

	configFileName := flags.ConfigFile
	explicit := configFileName != ""
	if !explicit {
		configFileName = DefaultConfigFile
	}

	file, err := os.ReadFile(configFileName)
	if err != nil && explicit {
		return config, configErr(err)
	}

	if len(file) > 0 {
		logger.WithField("action", "config_load").WithField("config_file_path", configFileName).
			Info("loading config file")
		if err := parseConfigFile(file, configFileName, &config); err != nil {
			return config, configErr(err)
		}
	}

	if err := FromEnv(&config); err != nil {
		return config, configErr(err)
	}

	fromFlags(flags, &config)

	return config, config.Validate()
}

// parseConfigFile decodes on top of config so that keys missing from the
// file keep their defaults.
func parseConfigFile(file []byte, name string, config *Config) error {
	m := regexp.MustCompile(`.*\.(\w+)$`).FindStringSubmatch(name)
	if len(m) < 2 {
		return fmt.Errorf("config file does not have a file ending, got '%s'", name)
	}

	switch m[1] {
	case "json":
		err := json.Unmarshal(file, config)
		if err != nil {
			return fmt.Errorf("error unmarshalling the json config file: %w", err)
		}
	case "yaml", "yml":
		err := yaml.Unmarshal(file, config)
		if err != nil {
			return fmt.Errorf("error unmarshalling the yaml config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension '%s', use .yaml or .json", m[1])
	}

	return nil
}

// fromFlags parses values from flags given as parameter and overrides values in the config
func fromFlags(flags *Flags, config *Config) {
	if flags.Origin != "" {
		config.Weaviate.Origin = flags.Origin
	}
	if flags.GRPCHost != "" {
		config.Weaviate.GRPCHost = flags.GRPCHost
	}
	if flags.RequestTimeout > 0 {
		config.Weaviate.RequestTimeout = flags.RequestTimeout
	}
	if flags.ExpectedReplicas > 0 {
		config.Convergence.ExpectedReplicas = flags.ExpectedReplicas
	}
	if flags.MetricsListen != "" {
		config.Monitoring.Listen = flags.MetricsListen
	}
	if flags.LogLevel != "" {
		config.Logging.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		config.Logging.Format = flags.LogFormat
	}
}

func configErr(err error) error {
	return fmt.Errorf("invalid config: %w", err)
}
