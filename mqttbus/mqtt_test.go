package mqttbus

import (
	"errors"
	"sync"
	"testing"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/moodlights/model"
)

// Mock MQTT client for testing
type MockMQTTClient struct {
	mu             sync.Mutex
	publishCalls   []PublishCall
	subscribeCalls []string
	connected      bool
	token          *MockToken
}

type PublishCall struct {
	Payload  interface{}
	Topic    string
	QoS      byte
	Retained bool
}

func (m *MockMQTTClient) tok() MQTT.Token {
	if m.token != nil {
		return m.token
	}
	return &MockToken{}
}

func (m *MockMQTTClient) IsConnected() bool      { return m.connected }
func (m *MockMQTTClient) IsConnectionOpen() bool { return m.connected }
func (m *MockMQTTClient) Connect() MQTT.Token {
	m.connected = true
	return m.tok()
}
func (m *MockMQTTClient) Disconnect(quiesce uint) { m.connected = false }

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishCalls = append(m.publishCalls, PublishCall{Topic: topic, QoS: qos, Retained: retained, Payload: payload})
	return m.tok()
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, callback MQTT.MessageHandler) MQTT.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeCalls = append(m.subscribeCalls, topic)
	return m.tok()
}

func (m *MockMQTTClient) SubscribeMultiple(filters map[string]byte, callback MQTT.MessageHandler) MQTT.Token {
	return m.tok()
}
func (m *MockMQTTClient) Unsubscribe(topics ...string) MQTT.Token             { return m.tok() }
func (m *MockMQTTClient) AddRoute(topic string, callback MQTT.MessageHandler) {}
func (m *MockMQTTClient) OptionsReader() MQTT.ClientOptionsReader             { return MQTT.ClientOptionsReader{} }

type MockToken struct {
	err     error
	timeout bool
}

func (m *MockToken) Wait() bool                     { return !m.timeout }
func (m *MockToken) WaitTimeout(time.Duration) bool { return !m.timeout }
func (m *MockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (m *MockToken) Error() error { return m.err }

type MockMessage struct {
	topic   string
	payload []byte
}

func (m *MockMessage) Duplicate() bool   { return false }
func (m *MockMessage) Qos() byte         { return 0 }
func (m *MockMessage) Retained() bool    { return false }
func (m *MockMessage) Topic() string     { return m.topic }
func (m *MockMessage) MessageID() uint16 { return 0 }
func (m *MockMessage) Payload() []byte   { return m.payload }
func (m *MockMessage) Ack()              {}

func TestPublisherSend(t *testing.T) {
	client := &MockMQTTClient{}
	p := NewPublisher(client, "")

	b := model.NewLampBank(1, 2)
	require.NoError(t, b.Set(3, model.Color{R: 255}))
	require.NoError(t, model.Transmit(p, b))

	require.Len(t, client.publishCalls, 1)
	call := client.publishCalls[0]
	assert.Equal(t, "moodlights/frame/1/2", call.Topic)
	assert.Equal(t, byte(0), call.QoS)
	assert.False(t, call.Retained)
	assert.Equal(t, b.Payload(), call.Payload)
}

func TestPublisherErrors(t *testing.T) {
	client := &MockMQTTClient{token: &MockToken{timeout: true}}
	p := NewPublisher(client, "x")
	assert.True(t, errors.Is(p.Send(1, 2, nil), ErrTimeout))

	broken := errors.New("not connected")
	client.token = &MockToken{err: broken}
	assert.True(t, errors.Is(p.Send(1, 2, nil), broken))
}

func TestPublisherClose(t *testing.T) {
	client := &MockMQTTClient{connected: true}
	p := NewPublisher(client, "x")
	require.NoError(t, p.Close())

	assert.False(t, client.connected)
	require.Len(t, client.publishCalls, 1)
	assert.Equal(t, "x/online", client.publishCalls[0].Topic)
	assert.Equal(t, "offline", client.publishCalls[0].Payload)
}

func TestControllerSubscribe(t *testing.T) {
	client := &MockMQTTClient{}
	c := NewController(model.NewLampBank(1, 2), "home/moods", nil)
	require.NoError(t, c.Subscribe(client))
	assert.Equal(t, []string{"home/moods/lamp/+/set", "home/moods/all/set"}, client.subscribeCalls)
}

func TestControllerApply(t *testing.T) {
	tests := []struct {
		name   string
		topic  string
		body   string
		err    error
		lamp   uint
		expect model.Color
	}{
		{"set one", "moodlights/lamp/3/set", "#FF8000", nil, 3, model.Color{R: 0xFF, G: 0x80}},
		{"set one no hash", "moodlights/lamp/0/set", "0a0b0c", nil, 0, model.Color{R: 0x0A, G: 0x0B, B: 0x0C}},
		{"set all", "moodlights/all/set", "112233", nil, 9, model.Color{R: 0x11, G: 0x22, B: 0x33}},
		{"blank one", "moodlights/lamp/5/set", "off", nil, 5, model.Black},
		{"out of range", "moodlights/lamp/10/set", "FFFFFF", model.ErrOutOfRange, 9, model.Color{R: 1, G: 1, B: 1}},
		{"bad color", "moodlights/lamp/1/set", "GG0000", ErrBadCommand, 1, model.Color{R: 1, G: 1, B: 1}},
		{"bad index", "moodlights/lamp/x/set", "FFFFFF", ErrBadTopic, 1, model.Color{R: 1, G: 1, B: 1}},
		{"foreign prefix", "other/all/set", "FFFFFF", ErrBadTopic, 1, model.Color{R: 1, G: 1, B: 1}},
		{"unknown verb", "moodlights/all/get", "FFFFFF", ErrBadTopic, 1, model.Color{R: 1, G: 1, B: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := model.NewLampBank(1, 2)
			bank.SetAll(model.Color{R: 1, G: 1, B: 1})
			c := NewController(bank, "", nil)

			err := c.Apply(tt.topic, []byte(tt.body))
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			got, err := bank.Get(tt.lamp)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestControllerHandle(t *testing.T) {
	bank := model.NewLampBank(1, 2)
	changes := 0
	c := NewController(bank, "", func() { changes++ })

	c.Handle(nil, &MockMessage{topic: "moodlights/all/set", payload: []byte("random")})
	c.Handle(nil, &MockMessage{topic: "moodlights/lamp/2/set", payload: []byte("nonsense")})
	c.Handle(nil, &MockMessage{topic: "moodlights/lamp/2/set", payload: []byte("random")})
	c.Handle(nil, &MockMessage{topic: "moodlights/all/set", payload: []byte(CommandOff)})

	assert.Equal(t, 3, changes)
	for _, col := range bank.Snapshot() {
		assert.Equal(t, model.Black, col)
	}
}
