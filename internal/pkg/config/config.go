package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Elastic   ElasticConfig   `mapstructure:"elastic"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Places    PlacesConfig    `mapstructure:"places"`
	Explore   ExploreConfig   `mapstructure:"explore"`
	Client    ClientConfig    `mapstructure:"client"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File redirects logs away from stdout; the terminal client needs it.
	File string `mapstructure:"file"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	// AdminToken guards the operator endpoints; empty disables them.
	AdminToken string `mapstructure:"admin_token"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type ElasticConfig struct {
	URL   string `mapstructure:"url"`
	Index string `mapstructure:"index"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// UpstreamConfig points at the third-party places and geocoding APIs.
type UpstreamConfig struct {
	PlacesURL     string        `mapstructure:"places_url"`
	APIKey        string        `mapstructure:"api_key"`
	GeocoderURL   string        `mapstructure:"geocoder_url"`
	CountriesURL  string        `mapstructure:"countries_url"`
	LocalitiesURL string        `mapstructure:"localities_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// PlacesConfig selects the place store and how places are served.
type PlacesConfig struct {
	Backend      string `mapstructure:"backend"`
	DefaultLimit int    `mapstructure:"default_limit"`
	MaxLimit     int    `mapstructure:"max_limit"`
	TileCacheTTL int    `mapstructure:"tile_cache_ttl"`
	CityCacheTTL int    `mapstructure:"city_cache_ttl"`
	// FetchUpstreamOnMiss fills an empty bbox from the upstream provider.
	FetchUpstreamOnMiss bool `mapstructure:"fetch_upstream_on_miss"`
}

// ExploreConfig tunes the discovery engine.
type ExploreConfig struct {
	TileSize              float64       `mapstructure:"tile_size"`
	DiscoveryRadius       float64       `mapstructure:"discovery_radius"`
	DiscoveryRadiusMeters float64       `mapstructure:"discovery_radius_meters"`
	Distance              string        `mapstructure:"distance"`
	MoveStep              float64       `mapstructure:"move_step"`
	Debounce              time.Duration `mapstructure:"debounce"`
	SwipeThreshold        float64       `mapstructure:"swipe_threshold"`
	RareProbability       float64       `mapstructure:"rare_probability"`
	QueryMode             string        `mapstructure:"query_mode"`
	Category              string        `mapstructure:"category"`
	FetchLimit            int           `mapstructure:"fetch_limit"`
	StartLat              float64       `mapstructure:"start_lat"`
	StartLng              float64       `mapstructure:"start_lng"`
}

// Radius returns the discovery radius in the unit of the configured distance.
func (e ExploreConfig) Radius() float64 {
	if e.Distance == "haversine" {
		return e.DiscoveryRadiusMeters
	}
	return e.DiscoveryRadius
}

// ClientConfig is used by the terminal explorer.
type ClientConfig struct {
	APIURL   string `mapstructure:"api_url"`
	PlayerID string `mapstructure:"player_id"`
	Sound    bool   `mapstructure:"sound"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PLACEQUEST_DATABASE_HOST → database.host
	v.SetEnvPrefix("PLACEQUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.admin_token", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "quest")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "placequest")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("elastic.url", "http://localhost:9200")
	v.SetDefault("elastic.index", "places")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("upstream.places_url", "https://api.overturemapsapi.com/places")
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.geocoder_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("upstream.countries_url", "https://api.overturemapsapi.com/countries")
	v.SetDefault("upstream.localities_url", "https://api.overturemapsapi.com/places/categories")
	v.SetDefault("upstream.user_agent", "placequest/1.0")
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "region-import")
	v.SetDefault("places.backend", "postgres")
	v.SetDefault("places.default_limit", 50)
	v.SetDefault("places.max_limit", 200)
	v.SetDefault("places.tile_cache_ttl", 300)
	v.SetDefault("places.city_cache_ttl", 3600)
	v.SetDefault("places.fetch_upstream_on_miss", true)
	v.SetDefault("explore.tile_size", 0.1)
	v.SetDefault("explore.discovery_radius", 0.005)
	v.SetDefault("explore.discovery_radius_meters", 555.0)
	v.SetDefault("explore.distance", "euclidean")
	v.SetDefault("explore.move_step", 0.002)
	v.SetDefault("explore.debounce", 300*time.Millisecond)
	v.SetDefault("explore.swipe_threshold", 30.0)
	v.SetDefault("explore.rare_probability", 0.1)
	v.SetDefault("explore.query_mode", "bbox")
	v.SetDefault("explore.category", "all")
	v.SetDefault("explore.fetch_limit", 50)
	v.SetDefault("explore.start_lat", 25.2048)
	v.SetDefault("explore.start_lng", 55.2708)
	v.SetDefault("client.api_url", "http://localhost:8080")
	v.SetDefault("client.player_id", "player-1")
	v.SetDefault("client.sound", true)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	switch c.Places.Backend {
	case "postgres":
	case "elastic":
		if c.Elastic.URL == "" {
			errs = append(errs, "elastic.url is required when places.backend is elastic")
		}
	default:
		errs = append(errs, fmt.Sprintf("places.backend must be postgres or elastic, got %q", c.Places.Backend))
	}
	if c.Places.DefaultLimit <= 0 || c.Places.MaxLimit < c.Places.DefaultLimit {
		errs = append(errs, "places.default_limit must be positive and not above places.max_limit")
	}

	errs = append(errs, c.Explore.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (e ExploreConfig) validate() []string {
	var errs []string
	if e.TileSize <= 0 {
		errs = append(errs, "explore.tile_size must be positive")
	}
	if e.MoveStep <= 0 {
		errs = append(errs, "explore.move_step must be positive")
	}
	if e.Debounce < 0 {
		errs = append(errs, "explore.debounce must not be negative")
	}
	if e.RareProbability < 0 || e.RareProbability > 1 {
		errs = append(errs, fmt.Sprintf("explore.rare_probability must be within [0,1], got %g", e.RareProbability))
	}
	switch e.Distance {
	case "euclidean", "haversine":
	default:
		errs = append(errs, fmt.Sprintf("explore.distance must be euclidean or haversine, got %q", e.Distance))
	}
	if e.Radius() <= 0 {
		errs = append(errs, "explore discovery radius must be positive")
	}
	switch e.QueryMode {
	case "bbox", "radius":
	default:
		errs = append(errs, fmt.Sprintf("explore.query_mode must be bbox or radius, got %q", e.QueryMode))
	}
	return errs
}
