package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DriverSimulator = "simulator"
	DriverBridge    = "bridge"
)

// Bridge hosts run on the instrument PC next to the vendor software.
const (
	BridgeOutputDir     = `C:\Program Files (x86)\BMG\CLARIOstar\User\Data`
	BridgeProtocolDBDir = `C:\Program Files (x86)\BMG\CLARIOstar\User\Definit`

	SimulatorOutputDir     = "data"
	SimulatorProtocolDBDir = "definit"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Instrument InstrumentConfig `mapstructure:"instrument"`
	Paths      PathsConfig      `mapstructure:"paths"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	GRPCPort        int           `mapstructure:"grpc_port"`
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type InstrumentConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	Driver        string        `mapstructure:"driver"`
	BridgeAddress string        `mapstructure:"bridge_address"`
	Timeout       time.Duration `mapstructure:"timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

// PathsConfig names the directories handed to the instrument. Empty values
// default by driver.
type PathsConfig struct {
	OutputDir     string `mapstructure:"output_dir"`
	ProtocolDBDir string `mapstructure:"protocol_db_dir"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"output-path":       "paths.output_dir",
	"db-directory-path": "paths.protocol_db_dir",
	"endpoint":          "instrument.endpoint",
	"port":              "server.http_port",
}

// RegisterFlags adds the command line overrides to a flag set.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "configs/config.yaml", "path to the config file")
	flags.String("output-path", "", "directory the reader writes assay results to")
	flags.String("db-directory-path", "", "directory of the reader protocol database")
	flags.String("endpoint", "", "instrument endpoint name")
	flags.Int("port", 0, "HTTP port")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("instrument.endpoint", "CLARIOstar")
	v.SetDefault("instrument.driver", DriverSimulator)
	v.SetDefault("instrument.bridge_address", "127.0.0.1:7700")
	v.SetDefault("instrument.timeout", "10m")
	v.SetDefault("instrument.poll_interval", "0s")

	// empty means "pick by driver", see applyPathDefaults
	v.SetDefault("paths.output_dir", "")
	v.SetDefault("paths.protocol_db_dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads the config file at path, then environment (OPR_ prefix), then
// any flags that were set explicitly. A missing file is not an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("OPR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyPathDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyPathDefaults fills unset paths. The simulator writes on this host, so
// it gets local directories instead of the instrument PC layout.
func (c *Config) applyPathDefaults() {
	outputDir, protocolDBDir := BridgeOutputDir, BridgeProtocolDBDir
	if c.Instrument.Driver == DriverSimulator {
		outputDir, protocolDBDir = SimulatorOutputDir, SimulatorProtocolDBDir
	}

	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = outputDir
	}
	if c.Paths.ProtocolDBDir == "" {
		c.Paths.ProtocolDBDir = protocolDBDir
	}
}

func (c *Config) Validate() error {
	switch c.Instrument.Driver {
	case DriverSimulator:
	case DriverBridge:
		if c.Instrument.BridgeAddress == "" {
			return fmt.Errorf("instrument.bridge_address is required for the bridge driver")
		}
	default:
		return fmt.Errorf("unknown instrument.driver %q", c.Instrument.Driver)
	}

	if c.Instrument.Endpoint == "" {
		return fmt.Errorf("instrument.endpoint must not be empty")
	}
	if c.Instrument.PollInterval < 0 {
		return fmt.Errorf("instrument.poll_interval must not be negative")
	}
	return nil
}
