package model

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Lamps is the number of lamps on one moodlight controller.
const Lamps = 10

var ErrOutOfRange = errors.New("lamp index out of range")

type Option func(*LampBank)

// WithRand sets the generator used by Rand and RandAll.
func WithRand(r *rand.Rand) Option {
	return func(b *LampBank) {
		b.rnd = r
	}
}

// LampBank holds the colors of a fixed bank of lamps and the bus addresses
// the bank's payload is sent from and to.
type LampBank struct {
	src byte
	dst byte

	mu    sync.RWMutex
	lamps [Lamps]Color
	rnd   *rand.Rand
}

func NewLampBank(src, dst byte, opts ...Option) *LampBank {
	b := &LampBank{
		src: src,
		dst: dst,
	}
	for _, o := range opts {
		o(b)
	}
	if b.rnd == nil {
		b.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	b.SetAll(Black)
	return b
}

func (b *LampBank) Source() byte {
	return b.src
}

func (b *LampBank) Destination() byte {
	return b.dst
}

func (b *LampBank) Len() int {
	return Lamps
}

func checkIndex(i uint) error {
	if i >= Lamps {
		return fmt.Errorf("lamp %d: %w", i, ErrOutOfRange)
	}
	return nil
}

func (b *LampBank) Set(i uint, c Color) error {
	if err := checkIndex(i); err != nil {
		return err
	}

	b.mu.Lock()
	b.lamps[i] = c
	b.mu.Unlock()
	return nil
}

func (b *LampBank) SetAll(c Color) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.lamps {
		b.lamps[i] = c
	}
}

func (b *LampBank) Get(i uint) (Color, error) {
	if err := checkIndex(i); err != nil {
		return Color{}, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lamps[i], nil
}

// Snapshot copies every lamp under a single lock.
func (b *LampBank) Snapshot() [Lamps]Color {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lamps
}

func (b *LampBank) Blank(i uint) error {
	return b.Set(i, Black)
}

func (b *LampBank) BlankAll() {
	b.SetAll(Black)
}

func (b *LampBank) Rand(i uint) error {
	if err := checkIndex(i); err != nil {
		return err
	}

	b.mu.Lock()
	b.lamps[i] = RandomColor(b.rnd)
	b.mu.Unlock()
	return nil
}

func (b *LampBank) RandAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.lamps {
		b.lamps[i] = RandomColor(b.rnd)
	}
}

// Update applies f to every lamp in one critical section, so no payload
// observes a partially applied change.
func (b *LampBank) Update(f func(i int, c Color) Color) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, c := range b.lamps {
		b.lamps[i] = f(i, c)
	}
}

// Payload serializes the bank for the bus: one gamma corrected R,G,B triple
// per lamp, lamp 0 first. No header, no length, no checksum.
func (b *LampBank) Payload() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	buf := make([]byte, 0, Lamps*3)
	for _, c := range b.lamps {
		g := c.Gamma()
		buf = append(buf, g.R, g.G, g.B)
	}

	return buf
}
