package robot

import (
	"errors"
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

const DefaultConfigFile = "keyteleop.toml"

// Link kinds.
const (
	LinkRosbridge = "rosbridge"
	LinkSerial    = "serial"
)

var (
	// ErrInvalidConfig is wrapped by every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFrameWithoutStamp is returned when frame_id is set but stamped is not.
	ErrFrameWithoutStamp = fmt.Errorf("%w: 'frame_id' can only be set when 'stamped' is true", ErrInvalidConfig)
)

// Config holds the teleoperation configuration. It is read once at startup.
type Config struct {
	Stamped     bool     `toml:"stamped"`
	FrameID     string   `toml:"frame_id"`
	Topic       string   `toml:"topic"`
	Link        string   `toml:"link"`
	URL         string   `toml:"url"`
	Port        string   `toml:"port"`
	Baud        int      `toml:"baud"`
	LinearScale float64  `toml:"linear_scale"`
	TurnScale   float64  `toml:"turn_scale"`
	Dwell       Duration `toml:"dwell"`
	KeepAlive   Duration `toml:"keepalive"`
	LogLevel    string   `toml:"log_level"`
}

// Duration is a time.Duration that reads and writes as a string ("500ms")
// in TOML.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// DefaultConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultConfig() Config {
	return Config{
		Topic:       "/cmd_vel",
		Link:        LinkRosbridge,
		URL:         "ws://localhost:9090",
		Baud:        115200,
		LinearScale: 0.3,
		TurnScale:   1.0,
		Dwell:       Duration(500 * time.Millisecond),
		KeepAlive:   Duration(5 * time.Second),
		LogLevel:    "info",
	}
}

// MessageType returns the ROS message type published with this config.
func (c *Config) MessageType() string {
	if c.Stamped {
		return TwistStampedType
	}
	return TwistType
}

// Validate checks option combinations. It must run before the terminal is
// switched to raw mode or any link is opened.
func (c *Config) Validate() error {
	if !c.Stamped && c.FrameID != "" {
		return ErrFrameWithoutStamp
	}
	if c.Topic == "" {
		return fmt.Errorf("%w: topic is empty", ErrInvalidConfig)
	}
	switch c.Link {
	case LinkRosbridge:
		if c.URL == "" {
			return fmt.Errorf("%w: rosbridge link needs a url", ErrInvalidConfig)
		}
	case LinkSerial:
		if c.Baud <= 0 {
			return fmt.Errorf("%w: baud must be positive, got %d", ErrInvalidConfig, c.Baud)
		}
	default:
		return fmt.Errorf("%w: unknown link %q", ErrInvalidConfig, c.Link)
	}
	if c.LinearScale <= 0 || c.TurnScale <= 0 {
		return fmt.Errorf("%w: scales must be positive", ErrInvalidConfig)
	}
	if c.Dwell <= 0 {
		return fmt.Errorf("%w: dwell must be positive", ErrInvalidConfig)
	}
	if c.KeepAlive <= 0 {
		return fmt.Errorf("%w: keepalive must be positive", ErrInvalidConfig)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// ValidateTarget checks that the chosen link has somewhere to connect to.
// A serial port may be left empty in the file and picked interactively, so
// this runs after that prompt.
func (c *Config) ValidateTarget() error {
	if c.Link == LinkSerial && c.Port == "" {
		return fmt.Errorf("%w: serial link needs a port", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Keys missing from
// the file keep their default values.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	return fileExists(DefaultConfigFile)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
