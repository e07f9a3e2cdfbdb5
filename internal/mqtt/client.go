// Package mqtt mirrors device state to field controllers over MQTT and feeds
// their sensor readings back into the state store.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultConnectTimeout = 10 * time.Second
	publishTimeout        = 5 * time.Second
	ingestTimeout         = 10 * time.Second
	disconnectWait        = 250 // ms
	qosAtLeastOnce        = 1
)

type Options struct {
	Broker           string
	ClientID         string
	Username         string
	Password         string
	TopicPrefix      string
	SubscribeSensors bool
	ConnectTimeout   time.Duration // bound on Connect; 0 means 10s
}

// SensorIngester stores a fresh sensor reading.
type SensorIngester interface {
	Ingest(ctx context.Context, snap models.SensorSnapshot) error
}

type Client struct {
	client    paho.Client
	topics    Topics
	sensors   SensorIngester
	subscribe bool
	timeout   time.Duration
	log       *logger.Logger
}

// NewClient configures, but does not connect, a client. sensors may be nil
// when sensor subscription is disabled.
func NewClient(opts Options, sensors SensorIngester, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	c := &Client{
		topics:    NewTopics(opts.TopicPrefix),
		sensors:   sensors,
		subscribe: opts.SubscribeSensors && sensors != nil,
		timeout:   opts.ConnectTimeout,
		log:       log.Named("mqtt"),
	}

	po := paho.NewClientOptions()
	po.AddBroker(opts.Broker)
	po.SetClientID(opts.ClientID)
	po.SetUsername(opts.Username)
	po.SetPassword(opts.Password)
	po.SetKeepAlive(10 * time.Second)
	po.SetPingTimeout(5 * time.Second)
	po.SetAutoReconnect(true)
	po.SetMaxReconnectInterval(time.Minute)
	po.SetConnectRetry(true)
	po.SetConnectRetryInterval(5 * time.Second)
	po.SetOrderMatters(false)
	po.SetWill(c.topics.Availability(), availabilityOffline, qosAtLeastOnce, true)
	po.SetOnConnectHandler(c.onConnect)
	po.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warnw("mqtt_connection_lost", "err", err)
	})

	if c.timeout <= 0 {
		c.timeout = defaultConnectTimeout
	}

	c.client = paho.NewClient(po)
	return c
}

// Connect waits at most the connect timeout. On ErrConnectTimeout the client
// is still usable: paho keeps retrying in the background and onConnect runs
// once the broker answers.
func (c *Client) Connect() error {
	c.log.Infow("mqtt_connecting")
	token := c.client.Connect()
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("%w after %v", ErrConnectTimeout, c.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Disconnect announces offline when connected and stops the client,
// including any connect retries still running.
func (c *Client) Disconnect() {
	if c.client.IsConnected() {
		if err := c.publish(c.topics.Availability(), availabilityOffline); err != nil {
			c.log.Warnw("mqtt_offline_publish_failed", "err", err)
		}
	}
	c.client.Disconnect(disconnectWait)
	c.log.Infow("mqtt_disconnected")
}

// PublishDeviceStatus publishes the retained ON/OFF state of device.
func (c *Client) PublishDeviceStatus(device models.Device, on bool) error {
	return c.publish(c.topics.DeviceStatus(device), powerPayload(on))
}

func (c *Client) publish(topic, payload string) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, qosAtLeastOnce, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrPublishFailed, topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

func (c *Client) onConnect(client paho.Client) {
	c.log.Infow("mqtt_connected")

	if c.subscribe {
		topic := c.topics.SensorData()
		if token := client.Subscribe(topic, qosAtLeastOnce, c.handleSensor); token.Wait() && token.Error() != nil {
			c.log.Errorw("mqtt_subscribe_failed", "topic", topic, "err", token.Error())
		} else {
			c.log.Infow("mqtt_subscribed", "topic", topic)
		}
	}

	go func() {
		if err := c.publish(c.topics.Availability(), availabilityOnline); err != nil {
			c.log.Warnw("mqtt_online_publish_failed", "err", err)
		}
	}()
}

func (c *Client) handleSensor(_ paho.Client, msg paho.Message) {
	snap, err := decodeSensor(msg.Payload())
	if err != nil {
		c.log.Warnw("mqtt_sensor_rejected", "topic", msg.Topic(), "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()
	if err := c.sensors.Ingest(ctx, snap); err != nil {
		c.log.Errorw("mqtt_sensor_ingest_failed", "err", err)
		return
	}
	c.log.Debugw("mqtt_sensor_ingested", "topic", msg.Topic())
}

// decodeSensor accepts the JSON object the field controller publishes. At
// least one reading must be present.
func decodeSensor(payload []byte) (models.SensorSnapshot, error) {
	var snap models.SensorSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return models.SensorSnapshot{}, fmt.Errorf("%w: %w", ErrInvalidSensor, err)
	}
	if snap.Temperature == nil && snap.Humidity == nil && snap.SoilMoisture == nil {
		return models.SensorSnapshot{}, fmt.Errorf("%w: no readings", ErrInvalidSensor)
	}
	return snap, nil
}
