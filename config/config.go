// Package config builds a logging setup from a YAML document: levels,
// formatter, dispatch queue, platform hooks and appenders (optionally
// buffered).
//
//	level: info
//	loggers:
//	  wifi: verbose
//	queue:
//	  size: 64
//	  flush_period: 500ms
//	hooks:
//	  native: true
//	  console_buffer: 128
//	appenders:
//	  - kind: console
//	  - kind: udp
//	    address: 192.168.1.10:514
//	    buffer: {size: 4096, max_drain: 16}
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/abyssdigger/fwlgr"
	"github.com/abyssdigger/fwlgr/appender"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Appender kinds.
const (
	KindConsole = "console"
	KindFile    = "file"
	KindUDP     = "udp"
	KindSerial  = "serial"
	KindMQTT    = "mqtt"
	KindCBOR    = "cbor"
	KindSlog    = "slog"
)

// Config is the root of the YAML document.
type Config struct {
	Level     string            `yaml:"level"`
	Fallback  string            `yaml:"fallback"` // stderr, stdout, discard or platform (default)
	Format    FormatConfig      `yaml:"format"`
	Loggers   map[string]string `yaml:"loggers"` // per-source levels
	Queue     QueueConfig       `yaml:"queue"`
	Hooks     HooksConfig       `yaml:"hooks"`
	Appenders []AppenderConfig  `yaml:"appenders"`
}

// FormatConfig selects the context formatter. Empty selects the default one.
type FormatConfig struct {
	TimeFormat  string `yaml:"time_format"`
	LevelPrefix string `yaml:"level_prefix"` // code, full or none
	Color       bool   `yaml:"color"`
	Delimiter   string `yaml:"delimiter"`
}

type QueueConfig struct {
	Size        int           `yaml:"size"`
	FlushPeriod time.Duration `yaml:"flush_period"`
}

type HooksConfig struct {
	Native        bool `yaml:"native"`
	ConsoleBuffer int  `yaml:"console_buffer"`
}

// AppenderConfig describes one appender. Only the settings of its kind are
// used.
type AppenderConfig struct {
	Kind   string        `yaml:"kind"`
	Buffer *BufferConfig `yaml:"buffer"`

	// console
	Target string `yaml:"target"` // platform (default), stdout or stderr
	// file, cbor
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	// udp
	Address string `yaml:"address"`
	// serial
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
	// mqtt
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
	Retained bool   `yaml:"retained"`
}

// BufferConfig wraps an appender with a store-and-forward buffer.
type BufferConfig struct {
	Size        int   `yaml:"size"`
	AutoRelease *bool `yaml:"auto_release"` // true when omitted
	MaxDrain    int   `yaml:"max_drain"`
}

// Parse decodes a YAML document.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}
	return &c, nil
}

// Load reads and decodes a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return c, nil
}

// Apply configures the logging context. All levels are checked and all
// appenders are built before anything changes, so a failing document leaves
// the context untouched.
func (c *Config) Apply(lg *fwlgr.Logging) error {
	level := fwlgr.DEFAULT_LOG_LEVEL
	if c.Level != "" {
		var err error
		if level, err = fwlgr.ParseLevel(c.Level); err != nil {
			return errors.Wrap(err, "level")
		}
	}
	sources := make(map[string]fwlgr.LogLevel, len(c.Loggers))
	for name, s := range c.Loggers {
		l, err := fwlgr.ParseLevel(s)
		if err != nil {
			return errors.Wrapf(err, "logger %q", name)
		}
		sources[name] = l
	}
	formatter, err := c.Format.formatter()
	if err != nil {
		return err
	}
	fallback, err := c.fallback(lg)
	if err != nil {
		return err
	}
	appenders, err := c.buildAppenders(lg, formatter)
	if err != nil {
		return err
	}

	lg.SetLevel(level).SetFallback(fallback).SetFormatter(formatter)
	for name, l := range sources {
		lg.Named(name).SetLevel(l)
	}
	for _, a := range appenders {
		lg.AddAppender(a)
	}
	lg.UseQueue(c.Queue.Size, c.Queue.FlushPeriod)
	lg.HookNative(c.Hooks.Native)
	lg.HookConsole(c.Hooks.ConsoleBuffer)
	return nil
}

func (c *Config) fallback(lg *fwlgr.Logging) (io.Writer, error) {
	switch strings.ToLower(c.Fallback) {
	case "", "platform":
		return lg.Platform().Raw(), nil
	case "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "discard":
		return io.Discard, nil
	}
	return nil, errors.Errorf("unknown fallback %q", c.Fallback)
}

func (f FormatConfig) formatter() (fwlgr.Formatter, error) {
	if f == (FormatConfig{}) {
		return nil, nil
	}
	opts := fwlgr.LayoutOptions{
		TimeFormat: f.TimeFormat,
		Delimiter:  f.Delimiter,
	}
	switch strings.ToLower(f.LevelPrefix) {
	case "", "none":
	case "code":
		opts.PrefixMap = fwlgr.LevelCodes
	case "full":
		opts.PrefixMap = fwlgr.LevelFullNames
	default:
		return nil, errors.Errorf("unknown level prefix %q", f.LevelPrefix)
	}
	if f.Color {
		opts.ColorMap = fwlgr.LevelColorOnBlackMap
	}
	return fwlgr.NewLayoutFormatter(opts), nil
}

// Text appenders get the configured formatter, nil keeps their own default.
func (c *Config) buildAppenders(lg *fwlgr.Logging, f fwlgr.Formatter) ([]fwlgr.Appender, error) {
	list := make([]fwlgr.Appender, 0, len(c.Appenders))
	for i, ac := range c.Appenders {
		a, err := ac.build(lg, f)
		if err != nil {
			closeAll(list)
			return nil, errors.Wrapf(err, "appender #%d (%s)", i+1, ac.Kind)
		}
		if ac.Buffer != nil {
			a = lg.NewBufferedAppender(a, ac.Buffer.options())
		}
		list = append(list, a)
	}
	return list, nil
}

func closeAll(list []fwlgr.Appender) {
	for _, a := range list {
		if c, ok := a.(io.Closer); ok {
			c.Close()
		}
	}
}

func (b *BufferConfig) options() fwlgr.BufferOptions {
	opts := fwlgr.BufferOptions{
		Size:        b.Size,
		AutoRelease: true,
		MaxDrain:    b.MaxDrain,
	}
	if b.AutoRelease != nil {
		opts.AutoRelease = *b.AutoRelease
	}
	return opts
}

func (ac *AppenderConfig) build(lg *fwlgr.Logging, f fwlgr.Formatter) (fwlgr.Appender, error) {
	switch strings.ToLower(ac.Kind) {
	case KindConsole:
		switch strings.ToLower(ac.Target) {
		case "", "platform":
			return appender.NewPlatformConsole(lg.Platform(), f), nil
		case "stdout":
			return appender.NewConsole(os.Stdout, f), nil
		case "stderr":
			return appender.NewConsole(os.Stderr, f), nil
		}
		return nil, errors.Errorf("unknown console target %q", ac.Target)
	case KindFile:
		return appender.NewFile(appender.FileOptions{
			Path:       ac.Path,
			MaxSizeMB:  ac.MaxSizeMB,
			MaxBackups: ac.MaxBackups,
			MaxAgeDays: ac.MaxAgeDays,
			Compress:   ac.Compress,
			Formatter:  f,
		})
	case KindUDP:
		return appender.NewUDP(appender.UDPOptions{Address: ac.Address, Formatter: f})
	case KindSerial:
		return appender.NewSerial(appender.SerialOptions{Port: ac.Port, Baud: ac.Baud, Formatter: f})
	case KindMQTT:
		return appender.NewMQTT(appender.MQTTOptions{
			Broker:    ac.Broker,
			Topic:     ac.Topic,
			ClientID:  ac.ClientID,
			Username:  ac.Username,
			Password:  ac.Password,
			QoS:       ac.QoS,
			Retained:  ac.Retained,
			Formatter: f,
		})
	case KindCBOR:
		return appender.NewCBORFile(ac.Path)
	case KindSlog:
		return appender.NewSlog(nil), nil
	}
	return nil, errors.Errorf("unknown appender kind %q", ac.Kind)
}
