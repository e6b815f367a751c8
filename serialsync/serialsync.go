// Package serialsync sends the recording synchronization pulse to external
// hardware over a serial line.
package serialsync

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kataras/golog"
	"go.bug.st/serial"
)

// DefaultMarker is the byte written as the pulse.
const DefaultMarker byte = '1'

var (
	// ErrNoPort is returned when no port name is configured.
	ErrNoPort = errors.New("serialsync: no port configured")

	// ErrShortWrite is returned when the port accepted no bytes.
	ErrShortWrite = errors.New("serialsync: marker not written")
)

type (
	Parity   = serial.Parity
	StopBits = serial.StopBits
)

// Config describes the port and the marker byte.
type Config struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
	// Marker defaults to DefaultMarker when zero.
	Marker byte
}

// Mode converts the config into a serial.Mode.
func (c Config) Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   c.Parity,
		StopBits: c.StopBits,
	}
}

// Opener opens a port for writing. The default is serial.Open.
type Opener func(port string, mode *serial.Mode) (io.WriteCloser, error)

func openSerial(port string, mode *serial.Mode) (io.WriteCloser, error) {
	return serial.Open(port, mode)
}

// Pulser writes one marker per Pulse. The port is held only for the
// duration of the write.
type Pulser struct {
	cfg    Config
	open   Opener
	logger *golog.Logger
}

// New returns a Pulser using serial.Open. A nil logger uses golog.Default.
func New(cfg Config, logger *golog.Logger) *Pulser {
	return NewWithOpener(cfg, openSerial, logger)
}

// NewWithOpener returns a Pulser that opens ports with open.
func NewWithOpener(cfg Config, open Opener, logger *golog.Logger) *Pulser {
	if logger == nil {
		logger = golog.Default
	}
	if cfg.Marker == 0 {
		cfg.Marker = DefaultMarker
	}
	return &Pulser{cfg: cfg, open: open, logger: logger}
}

// Pulse opens the port, writes the marker and closes the port.
func (p *Pulser) Pulse() error {
	if p.cfg.Port == "" {
		return ErrNoPort
	}

	port, err := p.open(p.cfg.Port, p.cfg.Mode())
	if err != nil {
		return fmt.Errorf("serialsync: open %s: %w", p.cfg.Port, err)
	}

	n, werr := port.Write([]byte{p.cfg.Marker})
	if werr == nil && n != 1 {
		werr = ErrShortWrite
	}
	if werr == nil {
		if d, ok := port.(interface{ Drain() error }); ok {
			werr = d.Drain()
		}
	}
	cerr := port.Close()

	if werr != nil {
		return fmt.Errorf("serialsync: write %s: %w", p.cfg.Port, werr)
	}
	if cerr != nil {
		return fmt.Errorf("serialsync: close %s: %w", p.cfg.Port, cerr)
	}

	p.logger.Infof("sync pulse sent port=%s baud=%d marker=%q", p.cfg.Port, p.cfg.BaudRate, p.cfg.Marker)
	return nil
}

// ParseParity accepts none, odd or even in any case.
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return serial.NoParity, nil
	case "odd":
		return serial.OddParity, nil
	case "even":
		return serial.EvenParity, nil
	default:
		return serial.NoParity, fmt.Errorf("serialsync: unknown parity %q", s)
	}
}

// ParseStopBits accepts one, onepointfive or two in any case.
func ParseStopBits(s string) (StopBits, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one", "":
		return serial.OneStopBit, nil
	case "onepointfive":
		return serial.OnePointFiveStopBits, nil
	case "two":
		return serial.TwoStopBits, nil
	default:
		return serial.OneStopBit, fmt.Errorf("serialsync: unknown stop bits %q", s)
	}
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("serialsync: list ports: %w", err)
	}
	return ports, nil
}
