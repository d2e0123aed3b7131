package spi

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	spiconn "periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/moodlights/hausbus"
	"github.com/coreman2200/moodlights/logging"
	"github.com/coreman2200/moodlights/model"
)

// RefreshRate is the WS281x data rate in kHz; the SPI clock runs at
// three symbols per bit plus margin.
const RefreshRate physic.Frequency = 800

var ErrPayloadShape = errors.New("payload is not a whole number of RGB triples")

// Framed sends hausbus frames over an SPI connection, e.g. to an SPI UART
// bridge driving the RS485 transceiver.
type Framed struct {
	mu     sync.Mutex
	conn   spiconn.Conn
	closer io.Closer
}

func NewFramed(p spiconn.Port, speed physic.Frequency) (*Framed, error) {
	c, err := p.Connect(speed, spiconn.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("spi connect: %w", err)
	}
	f := &Framed{conn: c}
	if pc, ok := p.(io.Closer); ok {
		f.closer = pc
	}
	return f, nil
}

func (f *Framed) Send(src, dst byte, payload []byte) error {
	frame, err := hausbus.Encode(src, dst, payload)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn.Tx(frame, nil)
}

func (f *Framed) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Strip mirrors payloads onto a local LED strip or, as a fallback, the
// terminal. Bus addresses are ignored.
type Strip struct {
	mu     sync.Mutex
	drawer display.Drawer
	closer io.Closer
}

func NewStrip(p spiconn.Port, lamps int) (*Strip, error) {
	opts := nrzled.Opts{
		NumPixels: lamps,
		Channels:  3,
		Freq:      ((RefreshRate * 3) + 100) * physic.KiloHertz,
	}
	d, err := nrzled.NewSPI(p, &opts)
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	if err := d.Halt(); err != nil {
		return nil, err
	}

	s := &Strip{drawer: d}
	if pc, ok := p.(io.Closer); ok {
		s.closer = pc
	}
	return s, nil
}

// NewConsole draws payloads as colored blocks on stdout.
func NewConsole(lamps int) *Strip {
	return &Strip{drawer: screen.New(lamps)}
}

func (s *Strip) Send(_, _ byte, payload []byte) error {
	img, err := Image(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawer.Draw(s.drawer.Bounds(), img, image.Point{})
}

func (s *Strip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.drawer.Halt()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Image lays a payload out as a one row image, one pixel per lamp.
func Image(payload []byte) (*image.NRGBA, error) {
	if len(payload)%3 != 0 {
		return nil, fmt.Errorf("%d bytes: %w", len(payload), ErrPayloadShape)
	}

	n := len(payload) / 3
	im := image.NewNRGBA(image.Rect(0, 0, n, 1))
	for x := 0; x < n; x++ {
		im.SetNRGBA(x, 0, color.NRGBA{
			R: payload[x*3],
			G: payload[x*3+1],
			B: payload[x*3+2],
			A: 255,
		})
	}
	return im, nil
}

type Config struct {
	Dev     string
	SpeedHz int
	// Strip selects the LED strip mirror instead of framed bus output.
	Strip bool
	Lamps int
}

// Open initializes the host drivers and opens the configured SPI port. When no
// port can be opened the console fallback is returned instead.
func Open(cfg Config) (model.Bus, error) {
	log := logging.New("spi")

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	p, err := spireg.Open(cfg.Dev)
	if err != nil {
		log.Warn().Err(err).Str("dev", cfg.Dev).Msg("failed to find a SPI port, printing at the console")
		return NewConsole(cfg.Lamps), nil
	}

	var bus model.Bus
	if cfg.Strip {
		bus, err = NewStrip(p, cfg.Lamps)
	} else {
		speed := physic.Frequency(cfg.SpeedHz) * physic.Hertz
		if speed <= 0 {
			speed = physic.MegaHertz
		}
		bus, err = NewFramed(p, speed)
	}
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	log.Info().
		Str("dev", cfg.Dev).
		Bool("strip", cfg.Strip).
		Int("speed_hz", cfg.SpeedHz).
		Msg("SPI bus open")
	return bus, nil
}
