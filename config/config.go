// Package config loads the recorder settings from a YAML file.
//
// Key names follow the recorder's historical settings store. Unset keys
// take their defaults; non-positive numeric values fall back to the
// default rather than failing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/obinnaokechukwu/vrrec/capture"
	"github.com/obinnaokechukwu/vrrec/pacer"
	"github.com/obinnaokechukwu/vrrec/serialsync"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full recorder configuration.
type Config struct {
	EyeVR string `yaml:"eye_vr"`

	VideoCodec     string `yaml:"video_codec"`
	VideoBitrate   int    `yaml:"video_bitrate"` // kbit/s
	VideoWidth     int    `yaml:"video_width"`
	VideoHeight    int    `yaml:"video_height"`
	VideoFramerate int    `yaml:"video_framerate"`
	Output         string `yaml:"output"`

	SerialSync   bool   `yaml:"serial_sync"`
	PortName     string `yaml:"port_name"`
	PortRate     int    `yaml:"port_rate"`
	PortDataBits int    `yaml:"port_databits"`
	PortParity   string `yaml:"port_parity"`
	PortStopBits string `yaml:"port_stopbits"`

	GoProSync bool `yaml:"gopro_sync"`
	GoProPort int  `yaml:"gopro_port"`

	DropPolicy       string `yaml:"drop_policy"`
	MaxDroppedFrames int    `yaml:"max_dropped_frames"`

	LogLevel string `yaml:"log_level"`

	MarkerURL      string `yaml:"marker_url"`
	MarkerUsername string `yaml:"marker_username"`
	MarkerPerson   string `yaml:"marker_person"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		EyeVR:          "right",
		VideoCodec:     "libx264",
		VideoBitrate:   2500,
		VideoWidth:     800,
		VideoHeight:    600,
		VideoFramerate: 30,
		Output:         "recording.avi",
		SerialSync:     true,
		PortName:       "COM1",
		PortRate:       9600,
		PortDataBits:   8,
		PortParity:     "none",
		PortStopBits:   "one",
		GoProSync:      false,
		GoProPort:      7755,
		DropPolicy:     "repeat",
		LogLevel:       "info",
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping cfg's values for absent keys, and
// validates the result. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return cfg.Validate()
}

// Save writes cfg to path as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate replaces non-positive numbers with defaults and checks the
// enumerated settings.
func (c *Config) Validate() error {
	def := Default()
	positive := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	positive(&c.VideoBitrate, def.VideoBitrate)
	positive(&c.VideoWidth, def.VideoWidth)
	positive(&c.VideoHeight, def.VideoHeight)
	positive(&c.VideoFramerate, def.VideoFramerate)
	positive(&c.PortRate, def.PortRate)
	positive(&c.GoProPort, def.GoProPort)
	if c.MaxDroppedFrames < 0 {
		c.MaxDroppedFrames = 0
	}
	if c.VideoCodec == "" {
		c.VideoCodec = def.VideoCodec
	}
	if c.Output == "" {
		c.Output = def.Output
	}

	var errs []error
	if _, err := capture.ParseEye(c.EyeVR); err != nil {
		errs = append(errs, err)
	}
	if c.PortDataBits < 4 || c.PortDataBits > 8 {
		errs = append(errs, fmt.Errorf("port_databits %d outside 4..8", c.PortDataBits))
	}
	if _, err := serialsync.ParseParity(c.PortParity); err != nil {
		errs = append(errs, err)
	}
	if _, err := serialsync.ParseStopBits(c.PortStopBits); err != nil {
		errs = append(errs, err)
	}
	if _, err := pacer.ParseDropPolicy(c.DropPolicy); err != nil {
		errs = append(errs, err)
	}
	if !validLogLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.SerialSync && c.PortName == "" {
		errs = append(errs, errors.New("serial_sync requires port_name"))
	}
	if c.GoProPort > 65535 {
		errs = append(errs, fmt.Errorf("gopro_port %d out of range", c.GoProPort))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func validLogLevel(s string) bool {
	switch strings.ToLower(s) {
	case "disable", "fatal", "error", "warn", "info", "debug":
		return true
	}
	return false
}

// Eye returns the configured mirror eye. Call after Validate.
func (c Config) Eye() capture.Eye {
	eye, _ := capture.ParseEye(c.EyeVR)
	return eye
}

// BitRateBits converts the kbit/s bitrate to bit/s.
func (c Config) BitRateBits() int64 {
	return int64(c.VideoBitrate) * 1000
}

// Serial returns the sync-pulse port settings.
func (c Config) Serial() serialsync.Config {
	parity, _ := serialsync.ParseParity(c.PortParity)
	stop, _ := serialsync.ParseStopBits(c.PortStopBits)
	return serialsync.Config{
		Port:     c.PortName,
		BaudRate: c.PortRate,
		DataBits: c.PortDataBits,
		Parity:   parity,
		StopBits: stop,
	}
}

// Pacer returns the pacing settings.
func (c Config) Pacer() pacer.Config {
	drop, _ := pacer.ParseDropPolicy(c.DropPolicy)
	return pacer.Config{
		FrameRate:        c.VideoFramerate,
		DropPolicy:       drop,
		MaxDroppedFrames: c.MaxDroppedFrames,
	}
}

// TriggerAddr is the UDP address the trigger listener binds.
func (c Config) TriggerAddr() string {
	return fmt.Sprintf(":%d", c.GoProPort)
}
