package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "tracepaper.yml"
	defaultPort       = 8000
	defaultHost       = "127.0.0.1"
	defaultEnv        = "development"
	defaultDataDir    = "data"

	defaultDBDriver   = "sqlite"
	defaultDBFile     = "tracepaper.db"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "tracepaper"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
	defaultRedisDB   = 0

	defaultVectorProvider   = "flat"
	defaultVectorDimension  = 384
	defaultVectorIndexFile  = "vector_index.json"
	defaultQdrantURL        = "http://localhost:6333"
	defaultQdrantCollection = "tracepaper"

	defaultEmbeddingModel    = "intfloat/e5-small-v2"
	defaultSummaryModel      = "google/flan-t5-base"
	defaultSummaryMaxTokens  = 512
	defaultTranscriptionName = "whisper-1"

	defaultWatcherBackendURL = "http://localhost:8000"
	defaultWatcherDirectory  = "watched_folders"
	defaultWatcherRescanSec  = 300
	defaultWatcherDebounceMS = 500

	defaultBackupIntervalHours = 24
	defaultBackupKeep          = 7

	defaultTransformTimeoutMS = 2000
)

var defaultWatcherExtensions = []string{".md", ".txt", ".pdf"}

// AppConfig holds runtime configuration loaded from YAML. A missing config
// file yields the defaults, so the server runs without any config at all.
type AppConfig struct {
	Host           string
	Port           int
	Env            string // "development" | "production"
	DataDir        string
	AllowedOrigins []string
	AuthToken      string

	Database   DatabaseConfig
	Redis      RedisConfig
	Vector     VectorConfig
	AI         AIConfig
	Watcher    WatcherConfig
	Backup     BackupConfig
	Transforms TransformsConfig
}

type DatabaseConfig struct {
	Driver    string // "sqlite" | "mysql"
	Path      string // sqlite file, relative paths resolve under DataDir
	DSN       string
	Host      string
	Port      int
	User      string
	Password  string
	Name      string
	Charset   string
	ParseTime bool
	Loc       string
	Params    map[string]string
}

type RedisConfig struct {
	Enable   bool
	URL      string
	Host     string
	Port     int
	Username string
	Password string
	DB       int
	TLS      bool
}

type VectorConfig struct {
	Provider  string // "flat" | "qdrant"
	Dimension int
	Path      string // flat snapshot file, relative paths resolve under DataDir
	Qdrant    QdrantConfig
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type AIConfig struct {
	Embedding     ProviderConfig
	Summary       ProviderConfig
	Transcription TranscriptionConfig
}

// ProviderConfig selects and addresses one model capability.
type ProviderConfig struct {
	Provider  string // "openai" | "openai_compatible" | "anthropic"
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
}

type TranscriptionConfig struct {
	Enable  bool
	BaseURL string
	APIKey  string
	Model   string
}

type WatcherConfig struct {
	BackendURL     string
	Directories    []string
	Extensions     []string
	RescanInterval int // seconds, 0 disables the periodic rescan
	DebounceMS     int
}

type BackupConfig struct {
	Enable        bool
	IntervalHours int
	Keep          int
	S3            S3Config
}

type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	Prefix          string
}

type TransformsConfig struct {
	Enable    bool
	Dir       string // relative paths resolve under DataDir
	TimeoutMS int
}

type rawAppConfig struct {
	Host               string              `yaml:"host"`
	Port               int                 `yaml:"port"`
	Env                string              `yaml:"env"`
	NodeEnv            string              `yaml:"node_env"`
	DataDir            string              `yaml:"data_dir"`
	Data               string              `yaml:"data"`
	AllowedOrigins     []string            `yaml:"allowed_origins"`
	CORSAllowedOrigins []string            `yaml:"cors_allowed_origins"`
	AuthToken          string              `yaml:"auth_token"`
	Token              string              `yaml:"token"`
	Database           rawDatabaseConfig   `yaml:"database"`
	Redis              rawRedisConfig      `yaml:"redis"`
	Vector             rawVectorConfig     `yaml:"vector"`
	AI                 rawAIConfig         `yaml:"ai"`
	Watcher            rawWatcherConfig    `yaml:"watcher"`
	Backup             rawBackupConfig     `yaml:"backup"`
	Transforms         rawTransformsConfig `yaml:"transforms"`
}

type rawDatabaseConfig struct {
	Driver    string            `yaml:"driver"`
	Path      string            `yaml:"path"`
	File      string            `yaml:"file"`
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	Enable   *bool  `yaml:"enable"`
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       *int   `yaml:"db"`
	TLS      *bool  `yaml:"tls"`
}

type rawVectorConfig struct {
	Provider  string          `yaml:"provider"`
	Backend   string          `yaml:"backend"`
	Dimension int             `yaml:"dimension"`
	Dim       int             `yaml:"dim"`
	Path      string          `yaml:"path"`
	Qdrant    rawQdrantConfig `yaml:"qdrant"`
}

type rawQdrantConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

type rawAIConfig struct {
	Embedding     rawProviderConfig      `yaml:"embedding"`
	Summary       rawProviderConfig      `yaml:"summary"`
	Transcription rawTranscriptionConfig `yaml:"transcription"`
}

type rawProviderConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	Key       string `yaml:"key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type rawTranscriptionConfig struct {
	Enable  *bool  `yaml:"enable"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

type rawWatcherConfig struct {
	BackendURL     string   `yaml:"backend_url"`
	APIURL         string   `yaml:"api_url"`
	Directories    []string `yaml:"directories"`
	Dirs           []string `yaml:"dirs"`
	Extensions     []string `yaml:"extensions"`
	RescanInterval *int     `yaml:"rescan_interval"`
	DebounceMS     *int     `yaml:"debounce_ms"`
}

type rawBackupConfig struct {
	Enable        *bool       `yaml:"enable"`
	IntervalHours int         `yaml:"interval_hours"`
	Keep          int         `yaml:"keep"`
	S3            rawS3Config `yaml:"s3"`
}

type rawS3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       *bool  `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
}

type rawTransformsConfig struct {
	Enable    *bool  `yaml:"enable"`
	Dir       string `yaml:"dir"`
	TimeoutMS *int   `yaml:"timeout_ms"`
}

// Load reads the YAML config at path. An absent file is not an error: the
// defaults describe a fully local setup (sqlite + flat index, no redis).
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	raw := rawAppConfig{}
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	applyRawAppConfig(&cfg, raw)
	if err := validateAppConfig(&cfg, path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateAppConfig(cfg *AppConfig, path string) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	switch cfg.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("invalid database.driver %q in %q, expected sqlite or mysql", cfg.Database.Driver, path)
	}
	if cfg.Database.Driver == "mysql" && (cfg.Database.Port < 1 || cfg.Database.Port > 65535) {
		return fmt.Errorf("invalid database.port %d in %q, expected 1-65535", cfg.Database.Port, path)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d in %q, expected 1-65535", cfg.Redis.Port, path)
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d in %q, expected >= 0", cfg.Redis.DB, path)
	}
	switch cfg.Vector.Provider {
	case "flat", "qdrant":
	default:
		return fmt.Errorf("invalid vector.provider %q in %q, expected flat or qdrant", cfg.Vector.Provider, path)
	}
	if cfg.Vector.Dimension < 1 {
		return fmt.Errorf("invalid vector.dimension %d in %q, expected >= 1", cfg.Vector.Dimension, path)
	}
	return nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Host:    defaultHost,
		Port:    defaultPort,
		Env:     defaultEnv,
		DataDir: defaultDataDir,
		Database: DatabaseConfig{
			Driver:    defaultDBDriver,
			Path:      defaultDBFile,
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Vector: VectorConfig{
			Provider:  defaultVectorProvider,
			Dimension: defaultVectorDimension,
			Path:      defaultVectorIndexFile,
			Qdrant: QdrantConfig{
				URL:        defaultQdrantURL,
				Collection: defaultQdrantCollection,
			},
		},
		AI: AIConfig{
			Embedding: ProviderConfig{
				Provider: "openai_compatible",
				Model:    defaultEmbeddingModel,
			},
			Summary: ProviderConfig{
				Provider:  "openai_compatible",
				Model:     defaultSummaryModel,
				MaxTokens: defaultSummaryMaxTokens,
			},
			Transcription: TranscriptionConfig{
				Model: defaultTranscriptionName,
			},
		},
		Watcher: WatcherConfig{
			BackendURL:     defaultWatcherBackendURL,
			Directories:    []string{defaultWatcherDirectory},
			Extensions:     append([]string(nil), defaultWatcherExtensions...),
			RescanInterval: defaultWatcherRescanSec,
			DebounceMS:     defaultWatcherDebounceMS,
		},
		Backup: BackupConfig{
			IntervalHours: defaultBackupIntervalHours,
			Keep:          defaultBackupKeep,
		},
		Transforms: TransformsConfig{
			Dir:       "transforms",
			TimeoutMS: defaultTransformTimeoutMS,
		},
	}
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if v := strings.TrimSpace(raw.Host); v != "" {
		cfg.Host = v
	}
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.NodeEnv); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.DataDir); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(raw.Data); v != "" {
		cfg.DataDir = v
	}
	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSAllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSAllowedOrigins)
	}
	if v := strings.TrimSpace(raw.AuthToken); v != "" {
		cfg.AuthToken = v
	}
	if v := strings.TrimSpace(raw.Token); v != "" {
		cfg.AuthToken = v
	}

	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw.Database)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw.Redis)
	cfg.Vector = applyRawVectorConfig(cfg.Vector, raw.Vector)
	cfg.AI.Embedding = applyRawProviderConfig(cfg.AI.Embedding, raw.AI.Embedding)
	cfg.AI.Summary = applyRawProviderConfig(cfg.AI.Summary, raw.AI.Summary)
	cfg.AI.Transcription = applyRawTranscriptionConfig(cfg.AI.Transcription, raw.AI.Transcription)
	cfg.Watcher = applyRawWatcherConfig(cfg.Watcher, raw.Watcher)
	cfg.Backup = applyRawBackupConfig(cfg.Backup, raw.Backup)
	cfg.Transforms = applyRawTransformsConfig(cfg.Transforms, raw.Transforms)

	cfg.Env = normalizeEnv(cfg.Env)
}

func applyRawDatabaseConfig(current DatabaseConfig, raw rawDatabaseConfig) DatabaseConfig {
	cfg := current
	if v := strings.ToLower(strings.TrimSpace(raw.Driver)); v != "" {
		cfg.Driver = v
	}
	if v := strings.TrimSpace(raw.Path); v != "" {
		cfg.Path = v
	}
	if v := strings.TrimSpace(raw.File); v != "" {
		cfg.Path = v
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.URL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.Host); v != "" {
		cfg.Host = v
	}
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Username); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(raw.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.DBName); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.Charset); v != "" {
		cfg.Charset = v
	}
	if raw.ParseTime != nil {
		cfg.ParseTime = *raw.ParseTime
	}
	if v := strings.TrimSpace(raw.Loc); v != "" {
		cfg.Loc = v
	}
	if raw.Params != nil {
		cfg.Params = copyStringMap(raw.Params)
	}
	return cfg
}

func applyRawRedisConfig(current RedisConfig, raw rawRedisConfig) RedisConfig {
	cfg := current
	if raw.Enable != nil {
		cfg.Enable = *raw.Enable
	}
	if v := normalizeRedisRawURL(raw.URL); v != "" {
		cfg.URL = v
		cfg.Enable = cfg.Enable || raw.Enable == nil
	}
	if v := strings.TrimSpace(raw.Host); v != "" {
		cfg.Host = v
	}
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(raw.Password); v != "" {
		cfg.Password = v
	}
	if raw.DB != nil {
		cfg.DB = *raw.DB
	}
	if raw.TLS != nil {
		cfg.TLS = *raw.TLS
	}
	return cfg
}

func applyRawVectorConfig(current VectorConfig, raw rawVectorConfig) VectorConfig {
	cfg := current
	if v := strings.ToLower(strings.TrimSpace(raw.Provider)); v != "" {
		cfg.Provider = v
	}
	if v := strings.ToLower(strings.TrimSpace(raw.Backend)); v != "" {
		cfg.Provider = v
	}
	if raw.Dimension != 0 {
		cfg.Dimension = raw.Dimension
	}
	if raw.Dim != 0 {
		cfg.Dimension = raw.Dim
	}
	if v := strings.TrimSpace(raw.Path); v != "" {
		cfg.Path = v
	}
	if v := strings.TrimSpace(raw.Qdrant.URL); v != "" {
		cfg.Qdrant.URL = v
	}
	if v := strings.TrimSpace(raw.Qdrant.APIKey); v != "" {
		cfg.Qdrant.APIKey = v
	}
	if v := strings.TrimSpace(raw.Qdrant.Collection); v != "" {
		cfg.Qdrant.Collection = v
	}
	return cfg
}

func applyRawProviderConfig(current ProviderConfig, raw rawProviderConfig) ProviderConfig {
	cfg := current
	if v := strings.ToLower(strings.TrimSpace(raw.Provider)); v != "" {
		cfg.Provider = v
	}
	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(raw.Endpoint); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(raw.APIKey); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(raw.Key); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(raw.Model); v != "" {
		cfg.Model = v
	}
	if raw.MaxTokens != 0 {
		cfg.MaxTokens = raw.MaxTokens
	}
	return cfg
}

func applyRawTranscriptionConfig(current TranscriptionConfig, raw rawTranscriptionConfig) TranscriptionConfig {
	cfg := current
	if raw.Enable != nil {
		cfg.Enable = *raw.Enable
	}
	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(raw.APIKey); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(raw.Model); v != "" {
		cfg.Model = v
	}
	return cfg
}

func applyRawWatcherConfig(current WatcherConfig, raw rawWatcherConfig) WatcherConfig {
	cfg := current
	if v := strings.TrimSpace(raw.BackendURL); v != "" {
		cfg.BackendURL = v
	}
	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.BackendURL = v
	}
	switch {
	case raw.Directories != nil:
		cfg.Directories = normalizeList(raw.Directories)
	case raw.Dirs != nil:
		cfg.Directories = normalizeList(raw.Dirs)
	}
	if raw.Extensions != nil {
		cfg.Extensions = normalizeExtensions(raw.Extensions)
	}
	if raw.RescanInterval != nil && *raw.RescanInterval >= 0 {
		cfg.RescanInterval = *raw.RescanInterval
	}
	if raw.DebounceMS != nil && *raw.DebounceMS >= 0 {
		cfg.DebounceMS = *raw.DebounceMS
	}
	if len(cfg.Directories) == 0 {
		cfg.Directories = []string{defaultWatcherDirectory}
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = append([]string(nil), defaultWatcherExtensions...)
	}
	return cfg
}

func applyRawBackupConfig(current BackupConfig, raw rawBackupConfig) BackupConfig {
	cfg := current
	if raw.Enable != nil {
		cfg.Enable = *raw.Enable
	}
	if raw.IntervalHours > 0 {
		cfg.IntervalHours = raw.IntervalHours
	}
	if raw.Keep > 0 {
		cfg.Keep = raw.Keep
	}
	if v := strings.TrimSpace(raw.S3.Endpoint); v != "" {
		cfg.S3.Endpoint = v
	}
	if v := strings.TrimSpace(raw.S3.Region); v != "" {
		cfg.S3.Region = v
	}
	if v := strings.TrimSpace(raw.S3.Bucket); v != "" {
		cfg.S3.Bucket = v
	}
	if v := strings.TrimSpace(raw.S3.AccessKeyID); v != "" {
		cfg.S3.AccessKeyID = v
	}
	if v := strings.TrimSpace(raw.S3.SecretAccessKey); v != "" {
		cfg.S3.SecretAccessKey = v
	}
	if raw.S3.PathStyle != nil {
		cfg.S3.PathStyle = *raw.S3.PathStyle
	}
	if v := strings.TrimSpace(raw.S3.Prefix); v != "" {
		cfg.S3.Prefix = v
	}
	return cfg
}

func applyRawTransformsConfig(current TransformsConfig, raw rawTransformsConfig) TransformsConfig {
	cfg := current
	if raw.Enable != nil {
		cfg.Enable = *raw.Enable
	}
	if v := strings.TrimSpace(raw.Dir); v != "" {
		cfg.Dir = v
	}
	if raw.TimeoutMS != nil && *raw.TimeoutMS > 0 {
		cfg.TimeoutMS = *raw.TimeoutMS
	}
	return cfg
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

// DSNValue builds the MySQL DSN from either the explicit dsn field or the
// host/port/user parts.
func (c DatabaseConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultDBHost
	}
	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}
	user := strings.TrimSpace(c.User)
	if user == "" {
		user = defaultDBUser
	}
	password := strings.TrimSpace(c.Password)
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = defaultDBName
	}
	charset := strings.TrimSpace(c.Charset)
	if charset == "" {
		charset = defaultDBCharset
	}
	loc := strings.TrimSpace(c.Loc)
	if loc == "" {
		loc = defaultDBLoc
	}

	params := neturl.Values{}
	for key, value := range c.Params {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			params.Set(k, v)
		}
	}
	if params.Get("charset") == "" {
		params.Set("charset", charset)
	}
	if params.Get("parseTime") == "" {
		params.Set("parseTime", strconv.FormatBool(c.ParseTime))
	}
	if params.Get("loc") == "" {
		params.Set("loc", loc)
	}

	auth := user
	if password != "" {
		auth += ":" + password
	}

	dsn := fmt.Sprintf("%s@tcp(%s)/%s", auth, net.JoinHostPort(host, strconv.Itoa(port)), name)
	if query := params.Encode(); query != "" {
		dsn += "?" + query
	}
	return dsn
}

// URLValue builds the redis URL from either the explicit url field or the
// host/port/db parts.
func (c RedisConfig) URLValue() string {
	if u := normalizeRedisRawURL(c.URL); u != "" {
		return u
	}

	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultRedisHost
	}
	port := c.Port
	if port == 0 {
		port = defaultRedisPort
	}
	db := c.DB
	if db < 0 {
		db = defaultRedisDB
	}

	scheme := "redis"
	if c.TLS {
		scheme = "rediss"
	}

	u := &neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + strconv.Itoa(db),
	}
	username := strings.TrimSpace(c.Username)
	password := strings.TrimSpace(c.Password)
	if username != "" {
		if password != "" {
			u.User = neturl.UserPassword(username, password)
		} else {
			u.User = neturl.User(username)
		}
	} else if password != "" {
		u.User = neturl.UserPassword("", password)
	}
	return u.String()
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		out = append(out, trimmed)
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) Addr() string {
	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultHost
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}
