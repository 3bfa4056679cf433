package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/gwillem/keyteleop/pkg/link"
	"github.com/gwillem/keyteleop/pkg/logging"
	"github.com/gwillem/keyteleop/pkg/robot"
	"github.com/gwillem/keyteleop/pkg/teleop"
	"github.com/gwillem/keyteleop/pkg/terminal"
)

type DriveCommand struct {
	Config      string        `long:"config" short:"c" description:"TOML config file (default: keyteleop.toml if present)"`
	Stamped     bool          `long:"stamped" description:"Publish TwistStamped with a time/frame header"`
	NoStamped   bool          `long:"no-stamped" description:"Publish plain Twist even if the config file enables stamping"`
	FrameID     string        `long:"frame-id" description:"Header frame id, requires --stamped"`
	Topic       string        `long:"topic" description:"Velocity command topic"`
	Link        string        `long:"link" choice:"rosbridge" choice:"serial" description:"Transport to the robot"`
	URL         string        `long:"url" description:"rosbridge websocket URL"`
	Port        string        `long:"port" description:"Serial device for the serial link"`
	Baud        int           `long:"baud" description:"Serial baud rate"`
	LinearScale float64       `long:"linear-scale" description:"Linear speed in m/s for W/S"`
	TurnScale   float64       `long:"turn-scale" description:"Angular speed in rad/s for A/D"`
	Dwell       time.Duration `long:"dwell" description:"How long each keystroke moves the robot"`
	KeepAlive   time.Duration `long:"keepalive" description:"Link heartbeat interval"`
	LogLevel    string        `long:"log-level" description:"debug, info, warn or error"`
}

const dialTimeout = 10 * time.Second

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	keyStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (c *DriveCommand) Execute(args []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	// Must fail before the terminal or the link is touched
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Link == robot.LinkSerial && cfg.Port == "" {
		port, err := selectPort()
		if err != nil {
			return err
		}
		cfg.Port = port
	}
	if err := cfg.ValidateTarget(); err != nil {
		return err
	}

	return drive(cfg)
}

// loadConfig merges defaults, the config file and flags, in that order.
func (c *DriveCommand) loadConfig() (*robot.Config, error) {
	var cfg *robot.Config
	switch {
	case c.Config != "":
		loaded, err := robot.LoadConfigFrom(c.Config)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	case robot.ConfigExists():
		loaded, err := robot.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	default:
		d := robot.DefaultConfig()
		cfg = &d
	}
	if err := c.applyFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag that was given a value.
func (c *DriveCommand) applyFlags(cfg *robot.Config) error {
	switch {
	case c.Stamped && c.NoStamped:
		return fmt.Errorf("%w: --stamped and --no-stamped are exclusive", robot.ErrInvalidConfig)
	case c.Stamped:
		cfg.Stamped = true
	case c.NoStamped:
		cfg.Stamped = false
	}
	setString(&cfg.FrameID, c.FrameID)
	setString(&cfg.Topic, c.Topic)
	setString(&cfg.Link, c.Link)
	setString(&cfg.URL, c.URL)
	setString(&cfg.Port, c.Port)
	setString(&cfg.LogLevel, c.LogLevel)
	if c.Baud != 0 {
		cfg.Baud = c.Baud
	}
	if c.LinearScale != 0 {
		cfg.LinearScale = c.LinearScale
	}
	if c.TurnScale != 0 {
		cfg.TurnScale = c.TurnScale
	}
	if c.Dwell != 0 {
		cfg.Dwell = robot.Duration(c.Dwell)
	}
	if c.KeepAlive != 0 {
		cfg.KeepAlive = robot.Duration(c.KeepAlive)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func drive(cfg *robot.Config) error {
	guard, err := terminal.Acquire(os.Stdin)
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	// Deferred first so it runs last, after the robot has been stopped
	defer func() {
		if err := guard.Release(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}()

	stdout := terminal.NewCRLFWriter(os.Stdout)
	logger, err := logging.New(terminal.NewCRLFWriter(os.Stderr), cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx := context.Background()
	l, err := openLink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer l.Close()

	session, err := teleop.OpenSession(ctx, l, teleop.SessionConfig{
		Topic:       cfg.Topic,
		LinearScale: cfg.LinearScale,
		TurnScale:   cfg.TurnScale,
		Stamped:     cfg.Stamped,
		FrameID:     cfg.FrameID,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	ctrl, err := newController(session, terminal.NewKeyReader(os.Stdin), cfg, stdout, logger)
	if err != nil {
		return err
	}

	printBanner(stdout, cfg)
	return ctrl.Run(ctx)
}

// newController builds the control loop for an open session. The session is
// shut down if the controller cannot be built.
func newController(session *teleop.Session, keys teleop.KeyReader, cfg *robot.Config, out io.Writer, logger zerolog.Logger) (*teleop.Controller, error) {
	ctrl, err := teleop.NewController(teleop.Config{
		Session: session,
		Keys:    keys,
		Dwell:   time.Duration(cfg.Dwell),
		Out:     out,
		Logger:  logger,
	})
	if err != nil {
		return nil, errors.Join(err, session.Shutdown())
	}
	return ctrl, nil
}

func openLink(ctx context.Context, cfg *robot.Config, logger zerolog.Logger) (link.Link, error) {
	opts := link.Options{
		KeepAlive: time.Duration(cfg.KeepAlive),
		Logger:    logger,
	}
	switch cfg.Link {
	case robot.LinkSerial:
		return link.OpenSerial(cfg.Port, cfg.Baud, opts)
	default:
		ctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		return link.DialRosbridge(ctx, cfg.URL, opts)
	}
}

func printBanner(w io.Writer, cfg *robot.Config) {
	target := cfg.URL
	if cfg.Link == robot.LinkSerial {
		target = cfg.Port
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("keyteleop"))
	sb.WriteString(dimStyle.Render(fmt.Sprintf("  %s %s → %s", cfg.Link, target, cfg.Topic)))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("---------------------------"))
	sb.WriteString("\n")
	sb.WriteString("Moving around:\n")
	fmt.Fprintf(&sb, "        %s\n", keyStyle.Render("W"))
	fmt.Fprintf(&sb, "   %s    %s    %s\n", keyStyle.Render("A"), keyStyle.Render("G"), keyStyle.Render("D"))
	fmt.Fprintf(&sb, "        %s\n", keyStyle.Render("S"))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("CTRL-C to quit"))
	sb.WriteString("\n")

	fmt.Fprint(w, sb.String())
}
