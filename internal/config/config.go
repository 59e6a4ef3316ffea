// Package config loads application configuration from file, environment,
// and defaults, and owns global logger initialization.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Live   LiveConfig   `yaml:"live" mapstructure:"live"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// DataConfig points at the on-disk source layers and artifacts.
type DataConfig struct {
	AssetFiles      []string `yaml:"asset_files" mapstructure:"asset_files"`             // emitting assets (CSV)
	CleanAssetFiles []string `yaml:"clean_asset_files" mapstructure:"clean_asset_files"` // zero-emission assets (CSV)
	FossilOpsFiles  []string `yaml:"fossil_ops_files" mapstructure:"fossil_ops_files"`   // fossil operations (CSV), optional
	DataCenterFile  string   `yaml:"data_center_file" mapstructure:"data_center_file"`   // data-center registry JSON, optional
	ZoneDir         string   `yaml:"zone_dir" mapstructure:"zone_dir"`                   // per-zone YAML configs
	BoundaryFile    string   `yaml:"boundary_file" mapstructure:"boundary_file"`         // zone polygons (.geojson or .shp)
	CountryMixFile  string   `yaml:"country_mix_file" mapstructure:"country_mix_file"`   // per-country baseline JSON
	FuelWeightsFile string   `yaml:"fuel_weights_file" mapstructure:"fuel_weights_file"` // per-fuel gCO2/kWh JSON
	ModelFile       string   `yaml:"model_file" mapstructure:"model_file"`               // trained model artifact JSON
	SnapshotPath    string   `yaml:"snapshot_path" mapstructure:"snapshot_path"`         // sqlite snapshot cache, "" disables
}

// EngineConfig holds the spatial and temporal tuning constants.
type EngineConfig struct {
	RadiusKm           float64 `yaml:"radius_km" mapstructure:"radius_km"`
	ZoneNeighborK      int     `yaml:"zone_neighbor_k" mapstructure:"zone_neighbor_k"`
	ZoneNeighborMaxKm  float64 `yaml:"zone_neighbor_max_km" mapstructure:"zone_neighbor_max_km"`
	ZoneCapacityMaxKm  float64 `yaml:"zone_capacity_max_km" mapstructure:"zone_capacity_max_km"`
	PolygonFallbackDeg float64 `yaml:"polygon_fallback_deg" mapstructure:"polygon_fallback_deg"`
	TrendClamp         float64 `yaml:"trend_clamp" mapstructure:"trend_clamp"`
	CleanZoneCI        float64 `yaml:"clean_zone_ci" mapstructure:"clean_zone_ci"`
}

// LiveConfig configures the real-time grid intensity feed.
type LiveConfig struct {
	Enabled     bool     `yaml:"enabled" mapstructure:"enabled"`
	BaseURL     string   `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Countries   []string `yaml:"countries" mapstructure:"countries"` // ISO3 codes eligible for live override
}

// Timeout returns the live-feed timeout as a duration.
func (c LiveConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GRIDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8000)
	v.SetDefault("engine.radius_km", 300.0)
	v.SetDefault("engine.zone_neighbor_k", 3)
	v.SetDefault("engine.zone_neighbor_max_km", 1000.0)
	v.SetDefault("engine.zone_capacity_max_km", 500.0)
	v.SetDefault("engine.polygon_fallback_deg", 0.5)
	v.SetDefault("engine.trend_clamp", 0.15)
	v.SetDefault("engine.clean_zone_ci", 100.0)
	v.SetDefault("live.enabled", true)
	v.SetDefault("live.base_url", "https://api.carbonintensity.org.uk")
	v.SetDefault("live.timeout_secs", 5)
	v.SetDefault("live.countries", []string{"GBR"})
	v.SetDefault("data.zone_dir", "data/zones")
	v.SetDefault("data.boundary_file", "data/zones.geojson")
	v.SetDefault("data.country_mix_file", "data/country_energy_mix.json")
	v.SetDefault("data.fuel_weights_file", "data/carbon_intensity_per_source.json")
	v.SetDefault("data.model_file", "data/trained_model.json")
	v.SetDefault("data.snapshot_path", ".cache/snapshots.db")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
