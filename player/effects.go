package player

import (
	"fmt"
	"math"
	"sort"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/coreman2200/moodlights/model"
)

// Effect mutates the bank for the frame at elapsed time since start.
type Effect func(b *model.LampBank, elapsed time.Duration)

const (
	// degrees of hue per second
	rainbowSpeed = 36.0
	chaseStep    = 200 * time.Millisecond
	randomHold   = time.Second
)

var effects = map[string]func() Effect{
	"static":  Static,
	"random":  Random,
	"rainbow": Rainbow,
	"chase":   Chase,
}

func EffectNames() []string {
	names := make([]string, 0, len(effects))
	for k := range effects {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func EffectByName(name string) (Effect, error) {
	f, ok := effects[name]
	if !ok {
		return nil, fmt.Errorf("unknown effect %q (have %v)", name, EffectNames())
	}
	return f(), nil
}

// Static leaves the bank alone; the looper just keeps refreshing the bus.
func Static() Effect {
	return func(*model.LampBank, time.Duration) {}
}

// Random gives every lamp a new random color once per randomHold.
func Random() Effect {
	last := time.Duration(-1)
	return func(b *model.LampBank, elapsed time.Duration) {
		slot := elapsed / randomHold
		if slot == last {
			return
		}
		last = slot
		b.RandAll()
	}
}

// Hue returns a fully saturated color on the hue wheel, h in degrees.
func Hue(h float64) model.Color {
	r, g, b := colorful.Hsv(math.Mod(h, 360), 1, 1).RGB255()
	return model.Color{R: r, G: g, B: b}
}

// Rainbow spreads the hue wheel over the bank and turns it with time.
func Rainbow() Effect {
	return func(b *model.LampBank, elapsed time.Duration) {
		base := elapsed.Seconds() * rainbowSpeed
		b.Update(func(i int, _ model.Color) model.Color {
			return Hue(base + float64(i)*360/model.Lamps)
		})
	}
}

// Chase walks a single lit lamp along the bank. The lit color is the first
// non-black lamp found on the first frame, white if the bank is dark.
func Chase() Effect {
	var lit model.Color
	return func(b *model.LampBank, elapsed time.Duration) {
		if lit == model.Black {
			lit = model.Color{R: 255, G: 255, B: 255}
			for _, c := range b.Snapshot() {
				if c != model.Black {
					lit = c
					break
				}
			}
		}

		pos := int(elapsed/chaseStep) % model.Lamps
		b.Update(func(i int, _ model.Color) model.Color {
			if i == pos {
				return lit
			}
			return model.Black
		})
	}
}
