// Package mqttbus bridges a lamp bank to an MQTT broker: payloads are
// published as frames and lamp colors can be set by message.
package mqttbus

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/coreman2200/moodlights/logging"
	"github.com/coreman2200/moodlights/model"
)

const (
	DefaultPrefix  = "moodlights"
	DefaultTimeout = 5 * time.Second

	CommandOff    = "off"
	CommandRandom = "random"
)

var (
	ErrTimeout    = errors.New("mqtt operation timed out")
	ErrBadTopic   = errors.New("unknown command topic")
	ErrBadCommand = errors.New("malformed command")
)

type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Prefix   string
}

func wait(t MQTT.Token, d time.Duration) error {
	if !t.WaitTimeout(d) {
		return ErrTimeout
	}
	return t.Error()
}

// Publisher is a model.Sender that publishes each payload to
// <prefix>/frame/<src>/<dst>.
type Publisher struct {
	client  MQTT.Client
	prefix  string
	Timeout time.Duration
}

func NewPublisher(client MQTT.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{client: client, prefix: prefix, Timeout: DefaultTimeout}
}

func FrameTopic(prefix string, src, dst byte) string {
	return fmt.Sprintf("%s/frame/%d/%d", prefix, src, dst)
}

func (p *Publisher) Send(src, dst byte, payload []byte) error {
	t := p.client.Publish(FrameTopic(p.prefix, src, dst), 0, false, payload)
	return wait(t, p.Timeout)
}

func (p *Publisher) Close() error {
	if p.client.IsConnected() {
		p.client.Publish(p.prefix+"/online", 0, true, "offline").WaitTimeout(p.Timeout)
		p.client.Disconnect(250)
	}
	return nil
}

// Controller applies color commands received on
//
//	<prefix>/lamp/<index>/set
//	<prefix>/all/set
//
// A body is a color ("#RRGGBB" or "RRGGBB"), "off" or "random".
type Controller struct {
	bank   *model.LampBank
	prefix string
	log    zerolog.Logger

	// OnChange runs after every applied command, typically to transmit.
	OnChange func()
}

func NewController(bank *model.LampBank, prefix string, onChange func()) *Controller {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Controller{
		bank:     bank,
		prefix:   prefix,
		log:      logging.New("mqtt"),
		OnChange: onChange,
	}
}

func (c *Controller) Topics() []string {
	return []string{
		c.prefix + "/lamp/+/set",
		c.prefix + "/all/set",
	}
}

func (c *Controller) Subscribe(client MQTT.Client) error {
	for _, topic := range c.Topics() {
		if err := wait(client.Subscribe(topic, 0, c.Handle), DefaultTimeout); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		c.log.Debug().Str("topic", topic).Msg("subscribed")
	}
	return nil
}

// Handle is the MQTT message callback. Bad commands are logged and dropped.
func (c *Controller) Handle(_ MQTT.Client, msg MQTT.Message) {
	if err := c.Apply(msg.Topic(), msg.Payload()); err != nil {
		c.log.Warn().Err(err).Str("topic", msg.Topic()).Msg("command dropped")
		return
	}
	if c.OnChange != nil {
		c.OnChange()
	}
}

func (c *Controller) Apply(topic string, body []byte) error {
	rest := strings.TrimPrefix(topic, c.prefix+"/")
	if rest == topic {
		return fmt.Errorf("%s: %w", topic, ErrBadTopic)
	}
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 2 && parts[0] == "all" && parts[1] == "set":
		return c.applyAll(string(body))
	case len(parts) == 3 && parts[0] == "lamp" && parts[2] == "set":
		i, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", topic, ErrBadTopic)
		}
		return c.applyOne(uint(i), string(body))
	default:
		return fmt.Errorf("%s: %w", topic, ErrBadTopic)
	}
}

func (c *Controller) applyAll(cmd string) error {
	switch cmd {
	case CommandOff:
		c.bank.BlankAll()
	case CommandRandom:
		c.bank.RandAll()
	default:
		col, ok := model.ParseColor(cmd)
		if !ok {
			return fmt.Errorf("%q: %w", cmd, ErrBadCommand)
		}
		c.bank.SetAll(col)
	}
	return nil
}

func (c *Controller) applyOne(i uint, cmd string) error {
	switch cmd {
	case CommandOff:
		return c.bank.Blank(i)
	case CommandRandom:
		return c.bank.Rand(i)
	default:
		col, ok := model.ParseColor(cmd)
		if !ok {
			return fmt.Errorf("%q: %w", cmd, ErrBadCommand)
		}
		return c.bank.Set(i, col)
	}
}

// Connect dials the broker. onConnect runs on every (re)connect, after the
// online marker is published.
func Connect(cfg Config, onConnect func(MQTT.Client)) (MQTT.Client, error) {
	log := logging.New("mqtt")
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	opts := MQTT.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetWill(prefix+"/online", "offline", 0, true)
	opts.OnConnect = func(client MQTT.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("connected")
		client.Publish(prefix+"/online", 0, true, "online")
		if onConnect != nil {
			onConnect(client)
		}
	}
	opts.OnConnectionLost = func(_ MQTT.Client, err error) {
		log.Warn().Err(err).Msg("connection lost")
	}

	client := MQTT.NewClient(opts)
	if err := wait(client.Connect(), DefaultTimeout); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return client, nil
}
