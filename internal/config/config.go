package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Filter   FilterConfig   `yaml:"filter" mapstructure:"filter"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Viewer   ViewerConfig   `yaml:"viewer" mapstructure:"viewer"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig points at the three input datasets.
type DataConfig struct {
	IndicatorsPath   string `yaml:"indicators_path" mapstructure:"indicators_path"`
	GradesPath       string `yaml:"grades_path" mapstructure:"grades_path"`
	ObservationsPath string `yaml:"observations_path" mapstructure:"observations_path"`
}

// FilterConfig names the study area and the excluded geographic units.
// These were hard-coded constants in earlier iterations of the analysis;
// they are configuration so the pipeline runs against synthetic data too.
type FilterConfig struct {
	StateCode     string   `yaml:"state_code" mapstructure:"state_code"`
	CountyName    string   `yaml:"county_name" mapstructure:"county_name"`
	ExcludeGEOIDs []string `yaml:"exclude_geoids" mapstructure:"exclude_geoids"`
	ProfilePath   string   `yaml:"profile_path" mapstructure:"profile_path"`
}

// AnalysisConfig configures the spatial-statistics stages.
type AnalysisConfig struct {
	TargetEPSG int      `yaml:"target_epsg" mapstructure:"target_epsg"`
	Indicators []string `yaml:"indicators" mapstructure:"indicators"`
}

// ReportConfig configures report rendering.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// ViewerConfig configures the local report viewer.
type ViewerConfig struct {
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
	v.SetEnvPrefix("HOLCSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.indicators_path", "data/ejscreen_blockgroups.geojson")
	v.SetDefault("data.grades_path", "data/holc_grades.geojson")
	v.SetDefault("data.observations_path", "data/observations.csv")
	v.SetDefault("filter.state_code", "NC")
	v.SetDefault("filter.county_name", "Durham County")
	v.SetDefault("analysis.target_epsg", 4326)
	v.SetDefault("analysis.indicators", model.AllIndicators)
	v.SetDefault("report.output_dir", "report")
	v.SetDefault("viewer.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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
