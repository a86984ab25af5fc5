// Package config loads daemon settings from an optional YAML file and the
// command line. Flags given explicitly on the command line override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/dcf77-sensor/internal/gpio"
	"github.com/sweeney/dcf77-sensor/internal/receiver"
)

// ErrHelp is returned by Load when -h or --help was requested.
var ErrHelp = pflag.ErrHelp

// Config is the complete daemon configuration.
type Config struct {
	Chip            string        `yaml:"chip"`
	DataPin         int           `yaml:"data_pin"`
	EnablePin       int           `yaml:"enable_pin"`
	EnableActiveLow bool          `yaml:"enable_active_low"`
	Bias            string        `yaml:"bias"`
	Broker          string        `yaml:"broker"`
	ClientID        string        `yaml:"client_id"`
	HTTP            string        `yaml:"http"`
	Heartbeat       time.Duration `yaml:"heartbeat"`
	LogLevel        string        `yaml:"log_level"`
	SetClock        bool          `yaml:"set_clock"`
	Simulate        bool          `yaml:"simulate"`
	QueueSize       int           `yaml:"queue_size"`
	SampleOffsetMs  int           `yaml:"sample_offset_ms"`

	// PrintLevel is command line only: read the data line once and exit.
	PrintLevel bool `yaml:"-"`
	// Path is the file the settings were read from, if any.
	Path string `yaml:"-"`
}

// Default returns the settings used when neither file nor flag sets a key.
func Default() Config {
	g := gpio.DefaultConfig()
	return Config{
		Chip:            g.Chip,
		DataPin:         g.DataPin,
		EnablePin:       g.EnablePin,
		EnableActiveLow: g.EnableActiveLow,
		Bias:            string(g.Bias),
		Broker:          "tcp://192.168.1.200:1883",
		ClientID:        "dcf77-sensor",
		HTTP:            ":80",
		Heartbeat:       15 * time.Minute,
		LogLevel:        "info",
		QueueSize:       receiver.DefaultQueueSize,
		SampleOffsetMs:  int(receiver.DefaultSampleOffset / time.Millisecond),
	}
}

// Load parses args (without the program name). A file named by --config is
// read first; flags the user set explicitly are then applied on top.
func Load(args []string) (Config, error) {
	def := Default()
	var fl Config

	fs := pflag.NewFlagSet("dcf77-sensor", pflag.ContinueOnError)
	path := fs.StringP("config", "c", "", "YAML configuration file")
	fs.StringVar(&fl.Chip, "chip", def.Chip, "GPIO chip name")
	fs.IntVar(&fl.DataPin, "data-pin", def.DataPin, "BCM line of the receiver data output")
	fs.IntVar(&fl.EnablePin, "enable-pin", def.EnablePin, "BCM line of the receiver power-on input (-1 to disable)")
	fs.BoolVar(&fl.EnableActiveLow, "enable-active-low", def.EnableActiveLow, "Receiver is powered on by driving the enable line low")
	fs.StringVar(&fl.Bias, "bias", def.Bias, "Data line bias: pullup, pulldown or none")
	fs.StringVar(&fl.Broker, "broker", def.Broker, "MQTT broker address (empty to disable)")
	fs.StringVar(&fl.ClientID, "client-id", def.ClientID, "MQTT client ID")
	fs.StringVar(&fl.HTTP, "http", def.HTTP, "HTTP status address (empty to disable)")
	fs.DurationVar(&fl.Heartbeat, "heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.StringVar(&fl.LogLevel, "log-level", def.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&fl.SetClock, "set-clock", def.SetClock, "Set the system clock from each decoded minute")
	fs.BoolVar(&fl.Simulate, "simulate", def.Simulate, "Use a software DCF77 transmitter instead of GPIO")
	fs.IntVar(&fl.QueueSize, "queue-size", def.QueueSize, "Notifications buffered between engine and sinks")
	fs.IntVar(&fl.SampleOffsetMs, "sample-offset", def.SampleOffsetMs, "Milliseconds after an edge at which the bit is sampled")
	fs.BoolVar(&fl.PrintLevel, "print-level", false, "Print the current data line level and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := def
	if *path != "" {
		if err := cfg.readFile(*path); err != nil {
			return Config{}, err
		}
	}
	fs.Visit(func(f *pflag.Flag) { cfg.apply(f.Name, fl) })

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Path = path
	return nil
}

// apply copies the flag named name from fl.
func (c *Config) apply(name string, fl Config) {
	switch name {
	case "chip":
		c.Chip = fl.Chip
	case "data-pin":
		c.DataPin = fl.DataPin
	case "enable-pin":
		c.EnablePin = fl.EnablePin
	case "enable-active-low":
		c.EnableActiveLow = fl.EnableActiveLow
	case "bias":
		c.Bias = fl.Bias
	case "broker":
		c.Broker = fl.Broker
	case "client-id":
		c.ClientID = fl.ClientID
	case "http":
		c.HTTP = fl.HTTP
	case "heartbeat":
		c.Heartbeat = fl.Heartbeat
	case "log-level":
		c.LogLevel = fl.LogLevel
	case "set-clock":
		c.SetClock = fl.SetClock
	case "simulate":
		c.Simulate = fl.Simulate
	case "queue-size":
		c.QueueSize = fl.QueueSize
	case "sample-offset":
		c.SampleOffsetMs = fl.SampleOffsetMs
	case "print-level":
		c.PrintLevel = fl.PrintLevel
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	if c.SampleOffsetMs <= 0 || c.SampleOffsetMs >= 1000 {
		return fmt.Errorf("config: sample_offset_ms must be between 1 and 999, got %d", c.SampleOffsetMs)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("config: queue_size must be positive, got %d", c.QueueSize)
	}
	if c.Heartbeat < 0 {
		return errors.New("config: heartbeat must not be negative")
	}
	if c.Simulate {
		return nil
	}
	return c.GPIO().Validate()
}

// GPIO returns the receiver wiring.
func (c Config) GPIO() gpio.Config {
	return gpio.Config{
		Chip:            c.Chip,
		DataPin:         c.DataPin,
		Bias:            gpio.Bias(c.Bias),
		EnablePin:       c.EnablePin,
		EnableActiveLow: c.EnableActiveLow,
	}
}

// Engine returns the decoder tuning.
func (c Config) Engine() receiver.Config {
	return receiver.Config{
		SampleOffset: time.Duration(c.SampleOffsetMs) * time.Millisecond,
		QueueSize:    c.QueueSize,
	}
}

// Level returns the parsed log level. It is valid after Validate.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
