package mqtt

import (
	"fmt"
	"log"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultBufferCapacity is the number of messages held while disconnected.
const DefaultBufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client pahomqtt.Client
	buffer *ringBuffer
}

// NewRealPublisher connects to the MQTT broker at the given address.
// brokerAddr format: "tcp://host:port"
//
// Messages published while the broker is unreachable are buffered and
// flushed on reconnect, oldest dropped first when the buffer fills.
func NewRealPublisher(brokerAddr string) (*RealPublisher, error) {
	p := &RealPublisher{buffer: newRingBuffer(DefaultBufferCapacity)}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerAddr)
	opts.SetClientID("valve-regulator")
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetOnConnectHandler(p.onConnect)

	p.client = pahomqtt.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timeout connecting to MQTT broker %s", brokerAddr)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", brokerAddr, err)
	}

	return p, nil
}

// Publish sends a valve event to the broker with QoS 0.
func (p *RealPublisher) Publish(event ValveEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("formatting payload: %w", err)
	}
	return p.publish(Topic, 0, false, payload)
}

// PublishSystem sends a system event to the broker with QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("formatting system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnected() {
		p.buffer.Add(bufferedMessage{topic: topic, qos: qos, retained: retained, payload: payload})
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("timeout publishing to %s", topic)
	}
	return token.Error()
}

// onConnect flushes any messages buffered while the connection was down.
func (p *RealPublisher) onConnect(client pahomqtt.Client) {
	msgs := p.buffer.Drain()
	if len(msgs) == 0 {
		return
	}
	log.Printf("MQTT reconnected, flushing %d buffered messages", len(msgs))
	for _, msg := range msgs {
		token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("Timeout flushing buffered message to %s", msg.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("Error flushing buffered message to %s: %v", msg.topic, err)
		}
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second to finish in-flight messages
	return nil
}
