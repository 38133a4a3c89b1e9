package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"liyu1981.xyz/iwown-health-service/pkg/common"
)

const mqttPublishTimeout = 5 * time.Second

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type MQTTPublisher struct {
	client mqttClient
	topic  string
}

func NewMQTTPublisher(brokerURL, clientID, topic string) (*MQTTPublisher, error) {
	logger := common.GetLoggerWith(common.LoggerNameEvents)

	url := strings.TrimSpace(brokerURL)
	if strings.HasPrefix(url, "mqtt://") {
		url = "tcp://" + strings.TrimPrefix(url, "mqtt://")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(url)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	}
	opts.OnConnect = func(_ mqtt.Client) {
		logger.Info("MQTT connected", zap.String("broker", url))
	}

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if ok := tok.WaitTimeout(15 * time.Second); !ok {
		return nil, fmt.Errorf("connect to mqtt broker %s: timeout", url)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", url, err)
	}
	return &MQTTPublisher{client: c, topic: topic}, nil
}

func (p *MQTTPublisher) Name() string {
	return "mqtt:" + p.topic
}

// Publish sends the event to <topic>/<device_id> with QoS 1.
func (p *MQTTPublisher) Publish(ctx context.Context, evt HealthUploadEvent) error {
	payload, err := evt.Encode()
	if err != nil {
		return err
	}

	timeout := mqttPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	tok := p.client.Publish(p.topic+"/"+evt.DeviceID, 1, false, payload)
	if !tok.WaitTimeout(timeout) {
		return fmt.Errorf("publish to %s: timeout", p.topic)
	}
	return tok.Error()
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
