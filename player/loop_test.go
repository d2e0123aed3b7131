package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/moodlights/model"
)

type countingSender struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (c *countingSender) Send(_, _ byte, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return c.err
}

func (c *countingSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func TestLooperTransmitsUntilCancelled(t *testing.T) {
	b := model.NewLampBank(1, 2)
	b.SetAll(model.Color{R: 10})
	s := &countingSender{}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := NewLooper(b, s, nil, 100).Run(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.GreaterOrEqual(t, s.count(), 2)
	for _, p := range s.payloads {
		assert.Equal(t, b.Payload(), p)
	}
}

func TestLooperKeepsGoingOnSendError(t *testing.T) {
	s := &countingSender{err: errors.New("bus down")}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_ = NewLooper(model.NewLampBank(1, 2), s, Static(), 100).Run(ctx)
	assert.GreaterOrEqual(t, s.count(), 2)
}

func TestEffectByName(t *testing.T) {
	for _, name := range []string{"static", "random", "rainbow", "chase"} {
		e, err := EffectByName(name)
		require.NoError(t, err, name)
		assert.NotNil(t, e)
	}
	_, err := EffectByName("strobe")
	assert.Error(t, err)
	assert.Equal(t, []string{"chase", "rainbow", "random", "static"}, EffectNames())
}

func TestHue(t *testing.T) {
	assert.Equal(t, model.Color{R: 255}, Hue(0))
	assert.Equal(t, model.Color{G: 255, B: 255}, Hue(180))
	assert.Equal(t, model.Color{R: 255}, Hue(360))
}

func TestRainbow(t *testing.T) {
	b := model.NewLampBank(1, 2)
	Rainbow()(b, 0)

	c0, _ := b.Get(0)
	c5, _ := b.Get(5)
	assert.Equal(t, model.Color{R: 255}, c0)
	assert.Equal(t, model.Color{G: 255, B: 255}, c5)

	// five seconds later the wheel has turned half way
	Rainbow()(b, 5*time.Second)
	c0, _ = b.Get(0)
	assert.Equal(t, model.Color{G: 255, B: 255}, c0)
}

func TestRandomHoldsWithinSlot(t *testing.T) {
	b := model.NewLampBank(1, 2)
	e := Random()

	e(b, 0)
	first := b.Snapshot()
	e(b, 500*time.Millisecond)
	assert.Equal(t, first, b.Snapshot())
	e(b, 1500*time.Millisecond)
	assert.NotEqual(t, first, b.Snapshot())
}

func TestChase(t *testing.T) {
	b := model.NewLampBank(1, 2)
	purple := model.Color{R: 0x80, B: 0x80}
	require.NoError(t, b.Set(4, purple))

	e := Chase()
	e(b, 0)
	snap := b.Snapshot()
	assert.Equal(t, purple, snap[0])
	for _, c := range snap[1:] {
		assert.Equal(t, model.Black, c)
	}

	e(b, 3*chaseStep)
	snap = b.Snapshot()
	assert.Equal(t, model.Black, snap[0])
	assert.Equal(t, purple, snap[3])

	e(b, model.Lamps*chaseStep)
	c, _ := b.Get(0)
	assert.Equal(t, purple, c)
}
