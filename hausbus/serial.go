package hausbus

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tarm/serial"

	"github.com/coreman2200/moodlights/logging"
)

var ErrClosed = errors.New("serial bus closed")

type SerialConfig struct {
	Port string
	Baud int
}

// Serial writes one frame per Send to the underlying line. Writes are
// serialized; there is no arbitration, retry or acknowledgement.
type Serial struct {
	mu  sync.Mutex
	w   io.WriteCloser
	log zerolog.Logger
}

func NewSerial(w io.WriteCloser) *Serial {
	return &Serial{w: w, log: logging.New("hausbus")}
}

// OpenSerial opens the UART attached to the bus transceiver.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Baud <= 0 {
		cfg.Baud = 9600
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}

	s := NewSerial(p)
	s.log.Info().Str("port", cfg.Port).Int("baud", cfg.Baud).Msg("serial bus open")
	return s, nil
}

func (s *Serial) Send(src, dst byte, payload []byte) error {
	frame, err := Encode(src, dst, payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		return ErrClosed
	}
	if _, err := s.w.Write(frame); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}

	s.log.Trace().Uint8("src", src).Uint8("dst", dst).Int("len", len(payload)).Msg("frame sent")
	return nil
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}
