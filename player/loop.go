package player

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/moodlights/logging"
	"github.com/coreman2200/moodlights/model"
)

const DFLT_FPS = 30

// Looper re-applies an effect to the bank and transmits it on every frame.
type Looper struct {
	Bank   *model.LampBank
	Sender model.Sender
	Effect Effect
	FPS    int

	log zerolog.Logger
}

func NewLooper(b *model.LampBank, s model.Sender, e Effect, fps int) *Looper {
	if fps <= 0 {
		fps = DFLT_FPS
	}
	if e == nil {
		e = Static()
	}
	return &Looper{
		Bank:   b,
		Sender: s,
		Effect: e,
		FPS:    fps,
		log:    logging.New("player"),
	}
}

func (l *Looper) frame(elapsed time.Duration) {
	l.Effect(l.Bank, elapsed)
	if err := model.Transmit(l.Sender, l.Bank); err != nil {
		l.log.Warn().Err(err).Msg("transmit failed")
	}
}

// Run blocks until ctx is done and returns ctx.Err(). Transmit failures are
// logged and the loop carries on with the next frame.
func (l *Looper) Run(ctx context.Context) error {
	delta := time.Second / time.Duration(l.FPS)
	ticker := time.NewTicker(delta)
	defer ticker.Stop()

	start := time.Now()
	l.log.Debug().Int("fps", l.FPS).Msg("looper started")
	l.frame(0)

	for {
		select {
		case t := <-ticker.C:
			l.frame(t.Sub(start))

		case <-ctx.Done():
			l.log.Debug().Msg("looper stopped")
			return ctx.Err()
		}
	}
}
