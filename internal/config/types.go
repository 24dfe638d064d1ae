package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Detection DetectionConfig `yaml:"detection" mapstructure:"detection"`
	Anonymize AnonymizeConfig `yaml:"anonymize" mapstructure:"anonymize"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RateLimit    struct {
		Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
		RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min"`
		Burst          int  `yaml:"burst" mapstructure:"burst"`
	} `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// DetectionConfig controls the detection sources and fusion.
type DetectionConfig struct {
	Enabled         bool    `yaml:"enabled" mapstructure:"enabled"`
	ConfidenceFloor float64 `yaml:"confidence_floor" mapstructure:"confidence_floor"`
	Pattern         struct {
		Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	} `yaml:"pattern" mapstructure:"pattern"`
	Keyword struct {
		Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	} `yaml:"keyword" mapstructure:"keyword"`
	NER NERConfig `yaml:"ner" mapstructure:"ner"`
}

// NERConfig configures the statistical recognizer collaborator.
type NERConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	ModelPath         string        `yaml:"model_path" mapstructure:"model_path"`
	VocabPath         string        `yaml:"vocab_path" mapstructure:"vocab_path"`
	Labels            []string      `yaml:"labels" mapstructure:"labels"`
	MaxSequenceLength int           `yaml:"max_sequence_length" mapstructure:"max_sequence_length"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// AnonymizeConfig sets the default rewrite behavior.
type AnonymizeConfig struct {
	DefaultMode    string `yaml:"default_mode" mapstructure:"default_mode"` // redact, mask, replace, or hash
	MaskCharacter  string `yaml:"mask_character" mapstructure:"mask_character"`
	PreserveLength bool   `yaml:"preserve_length" mapstructure:"preserve_length"`
	HashLength     int    `yaml:"hash_length" mapstructure:"hash_length"`
}

// CacheConfig configures the optional redis response cache.
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
		Path     string `yaml:"path" mapstructure:"path"`
		MaxSize  int    `yaml:"max_size" mapstructure:"max_size"`
		MaxAge   int    `yaml:"max_age" mapstructure:"max_age"`
		Compress bool   `yaml:"compress" mapstructure:"compress"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Events          struct {
		BroadcastRequests   bool `yaml:"broadcast_requests" mapstructure:"broadcast_requests"`
		BroadcastDetections bool `yaml:"broadcast_detections" mapstructure:"broadcast_detections"`
		BroadcastSystem     bool `yaml:"broadcast_system" mapstructure:"broadcast_system"`
	} `yaml:"events" mapstructure:"events"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 4 << 20,
		},
		Detection: DetectionConfig{
			Enabled:         true,
			ConfidenceFloor: 0.5,
			NER: NERConfig{
				Enabled:           false,
				MaxSequenceLength: 256,
				Timeout:           5 * time.Second,
			},
		},
		Anonymize: AnonymizeConfig{
			DefaultMode:   "replace",
			MaskCharacter: "*",
			HashLength:    8,
		},
		Cache: CacheConfig{
			Enabled:        false,
			RedisURL:       "redis://localhost:6379/0",
			MaxConnections: 10,
			MinIdleConns:   2,
			DefaultTTL:     5 * time.Minute,
			KeyPrefix:      "sentinel",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled:        true,
			Path:           "/ws",
			MaxConnections: 100,
			PingInterval:   54 * time.Second,
			PongTimeout:    60 * time.Second,
			WriteTimeout:   10 * time.Second,
			AllowedOrigins: []string{"*"},
		},
	}
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.RequestsPerMin = 600
	cfg.Server.RateLimit.Burst = 30
	cfg.Detection.Pattern.Enabled = true
	cfg.Detection.Keyword.Enabled = true
	cfg.WebSocket.Events.BroadcastRequests = true
	cfg.WebSocket.Events.BroadcastDetections = true
	cfg.WebSocket.Events.BroadcastSystem = true
	return cfg
}
