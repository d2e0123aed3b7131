package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/moodlights/config"
	"github.com/coreman2200/moodlights/hausbus"
	"github.com/coreman2200/moodlights/logging"
	"github.com/coreman2200/moodlights/model"
	"github.com/coreman2200/moodlights/mqttbus"
	"github.com/coreman2200/moodlights/player"
	"github.com/coreman2200/moodlights/spi"
)

func main() {
	var (
		configPath = flag.String("config", "moodlights.yaml", "path to moodlights.yaml")
		transport  = flag.String("transport", "", "bus transport: serial | spi | strip | mqtt | console")
		src        = flag.Int("src", -1, "source bus address")
		dst        = flag.Int("dst", -1, "destination bus address")
		effect     = flag.String("effect", "", fmt.Sprintf("keep transmitting with an effect %v", player.EffectNames()))
		fps        = flag.Int("fps", 0, "frames per second for -effect")
		logLevel   = flag.String("log-level", "", "trace | debug | info | warn | error")
		seed       = flag.Int64("seed", 0, "random seed (0 uses the clock)")
		blank      = flag.Bool("blank", false, "turn every lamp off first")
		random     = flag.Bool("rand", false, "give every lamp a random color")
		show       = flag.Bool("show", false, "print lamp colors before transmitting")
		all        colorFlag
		set        lampFlags
	)
	flag.Var(&all, "all", "set every lamp to COLOR (RRGGBB or #RRGGBB)")
	flag.Var(&set, "set", "set one lamp, index=COLOR (repeatable; COLOR may be off or random)")
	flag.Parse()

	// ---- Config: file, then env, then flags ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Init(*logLevel)
		log.Fatal().Err(err).Str("path", *configPath).Msg("cannot load config")
	}
	if *transport != "" {
		cfg.Transport = *transport
	}
	if *src >= 0 {
		cfg.Source = *src
	}
	if *dst >= 0 {
		cfg.Destination = *dst
	}
	if *effect != "" {
		cfg.Effect = *effect
	}
	if *fps > 0 {
		cfg.FPS = *fps
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logging.Init(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("bad configuration")
	}

	var fx player.Effect
	if cfg.Effect != "" {
		if fx, err = player.EffectByName(cfg.Effect); err != nil {
			log.Fatal().Err(err).Msg("bad effect")
		}
	}

	// ---- Lamp state ----
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	s, d := cfg.Addresses()
	bank := model.NewLampBank(s, d, model.WithRand(rand.New(rand.NewSource(*seed))))
	if err := applyState(bank, cfg.Lamps, *blank, all, set, *random); err != nil {
		log.Fatal().Err(err).Msg("cannot set lamps")
	}
	if *show {
		for i, c := range bank.Snapshot() {
			fmt.Printf("%d: %s\n", i, c)
		}
	}

	// ---- Transport ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	changed := make(chan struct{}, 1)
	b, err := openBus(cfg, bank, changed)
	if err != nil {
		log.Fatal().Err(err).Str("transport", cfg.Transport).Msg("cannot open bus")
	}
	defer b.Close()

	if err := run(ctx, cfg, bank, b, fx, changed); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("transmit failed")
		b.Close()
		os.Exit(1)
	}
}

// run transmits once, or keeps running while an effect or the MQTT
// controller has work to do.
func run(ctx context.Context, cfg *config.Config, bank *model.LampBank, b model.Bus, fx player.Effect, changed <-chan struct{}) error {
	if fx == nil && cfg.Transport != "mqtt" {
		return model.Transmit(b, bank)
	}

	if fx != nil {
		go func() {
			_ = player.NewLooper(bank, b, fx, cfg.FPS).Run(ctx)
		}()
	} else if err := model.Transmit(b, bank); err != nil {
		log.Warn().Err(err).Msg("initial transmit failed")
	}

	log.Info().Str("transport", cfg.Transport).Str("effect", cfg.Effect).Msg("running, press Ctrl+C to stop")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return ctx.Err()
		case <-changed:
			if err := model.Transmit(b, bank); err != nil {
				log.Warn().Err(err).Msg("transmit failed")
			}
		}
	}
}

func openBus(cfg *config.Config, bank *model.LampBank, changed chan<- struct{}) (model.Bus, error) {
	switch cfg.Transport {
	case "serial":
		return hausbus.OpenSerial(hausbus.SerialConfig{Port: cfg.Serial.Port, Baud: cfg.Serial.Baud})

	case "spi", "strip":
		return spi.Open(spi.Config{
			Dev:     cfg.SPI.Dev,
			SpeedHz: cfg.SPI.SpeedHz,
			Strip:   cfg.Transport == "strip",
			Lamps:   model.Lamps,
		})

	case "mqtt":
		ctrl := mqttbus.NewController(bank, cfg.MQTT.Prefix, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		client, err := mqttbus.Connect(mqttbus.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Prefix:   cfg.MQTT.Prefix,
		}, func(c MQTT.Client) {
			if err := ctrl.Subscribe(c); err != nil {
				log.Error().Err(err).Msg("mqtt subscribe failed")
			}
		})
		if err != nil {
			return nil, err
		}
		return mqttbus.NewPublisher(client, cfg.MQTT.Prefix), nil

	default:
		return spi.NewConsole(model.Lamps), nil
	}
}
