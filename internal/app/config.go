package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Tom4hawk/ADSBTranslatorService/internal/demod"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/feed"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/natsink"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/rtlsdr"
)

// Default configuration constants
const (
	DefaultFrequency      = 1090000000 // 1090 MHz
	DefaultSampleRate     = demod.SampleRate
	DefaultGain           = 40 // Manual gain
	DefaultSourceAddress  = "127.0.0.1:30001"
	DefaultOutputListen   = ":30003"
	DefaultAircraftTTL    = 120
	DefaultReconnectDelay = 60 * time.Second
	DefaultBaudRate       = 3000000
	DefaultStatsInterval  = 30 * time.Second
)

// Source types
const (
	SourceTCP    = "tcp"
	SourceSerial = "serial"
	SourceRTLSDR = "rtlsdr"
)

// SourceConfig selects where frames come from
type SourceConfig struct {
	Type           string        `yaml:"type"`
	Address        string        `yaml:"address"`
	Format         string        `yaml:"format"`
	SerialPort     string        `yaml:"serial_port"`
	BaudRate       int           `yaml:"baud_rate"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	RTLSDR         rtlsdr.Config `yaml:"rtlsdr"`
}

// TranslatorConfig holds the decoding options
type TranslatorConfig struct {
	AircraftTTL        int  `yaml:"aircraft_ttl"`
	FixSingleBitErrors bool `yaml:"fix_single_bit_errors"`
}

// OutputConfig controls the SBS TCP server and console echo
type OutputConfig struct {
	Listen string `yaml:"listen"`
	Stdout bool   `yaml:"stdout"`
}

// HTTPConfig enables the status API when Listen is set
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// ArchiveConfig enables the daily SBS archive when Dir is set
type ArchiveConfig struct {
	Dir     string `yaml:"dir"`
	UTC     bool   `yaml:"utc"`
	MaxDays int    `yaml:"max_days"`
}

// Config holds application configuration
type Config struct {
	Source        SourceConfig     `yaml:"source"`
	Translator    TranslatorConfig `yaml:"translator"`
	Output        OutputConfig     `yaml:"output"`
	HTTP          HTTPConfig       `yaml:"http"`
	NATS          natsink.Config   `yaml:"nats"`
	Archive       ArchiveConfig    `yaml:"archive"`
	StatsInterval time.Duration    `yaml:"stats_interval"`
	Verbose       bool             `yaml:"verbose"`
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Type:           SourceTCP,
			Address:        DefaultSourceAddress,
			Format:         string(feed.FormatAVR),
			BaudRate:       DefaultBaudRate,
			ReconnectDelay: DefaultReconnectDelay,
			RTLSDR: rtlsdr.Config{
				Frequency:  DefaultFrequency,
				SampleRate: DefaultSampleRate,
				Gain:       DefaultGain,
			},
		},
		Translator: TranslatorConfig{
			AircraftTTL: DefaultAircraftTTL,
		},
		Output: OutputConfig{
			Listen: DefaultOutputListen,
		},
		NATS: natsink.Config{
			Subject: natsink.DefaultSubject,
		},
		Archive: ArchiveConfig{
			UTC: true,
		},
		StatsInterval: DefaultStatsInterval,
	}
}

// LoadConfigFile reads a YAML file over the defaults. Unknown keys are
// rejected so typos do not pass silently.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	format, err := feed.ParseFormat(c.Source.Format)
	if err != nil {
		return err
	}

	switch c.Source.Type {
	case SourceTCP:
		if c.Source.Address == "" {
			return errors.New("tcp source requires an address")
		}
	case SourceSerial:
		if c.Source.SerialPort == "" {
			return errors.New("serial source requires a port")
		}
		if c.Source.BaudRate <= 0 {
			return fmt.Errorf("invalid baud rate %d", c.Source.BaudRate)
		}
	case SourceRTLSDR:
		if format != feed.FormatAVR {
			return fmt.Errorf("rtlsdr source produces avr frames, not %s", format)
		}
		if c.Source.RTLSDR.SampleRate != DefaultSampleRate {
			return fmt.Errorf("unsupported sample rate %d, the demodulator needs %d", c.Source.RTLSDR.SampleRate, DefaultSampleRate)
		}
	default:
		return fmt.Errorf("unknown source type %q", c.Source.Type)
	}

	if c.Source.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect delay must be positive, got %s", c.Source.ReconnectDelay)
	}
	if c.Translator.AircraftTTL <= 0 {
		return fmt.Errorf("aircraft TTL must be positive, got %d", c.Translator.AircraftTTL)
	}
	if c.Output.Listen == "" {
		return errors.New("SBS output listen address is required")
	}
	if c.Archive.MaxDays < 0 {
		return fmt.Errorf("archive max days must not be negative, got %d", c.Archive.MaxDays)
	}
	if c.StatsInterval <= 0 {
		return fmt.Errorf("stats interval must be positive, got %s", c.StatsInterval)
	}
	return nil
}
