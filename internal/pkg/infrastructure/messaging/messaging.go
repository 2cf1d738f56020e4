package messaging

import (
	"errors"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/iot-for-tillgenglighet/messaging-golang/pkg/messaging"
)

//PingTopic is the routing key health checks publish on
const PingTopic = "agrosense.health.ping"

var errNotConnected = errors.New("messaging is not connected")

//Publisher is the part of messaging.Context that is needed to send topic messages
type Publisher interface {
	PublishOnTopic(message messaging.TopicMessage) error
}

//Connect loads the RabbitMQ settings for serviceName from the environment and opens a messaging context
func Connect(serviceName string, log logging.Logger) (*messaging.Context, error) {
	config := messaging.LoadConfiguration(serviceName)

	messenger, err := messaging.Initialize(config)
	if err != nil {
		log.Errorf("Failed to initialize messaging for %s: %s", serviceName, err.Error())
		return nil, err
	}

	return messenger, nil
}

//Ping is a throwaway message used to confirm that the broker accepts publications
type Ping struct {
	Origin    string `json:"origin"`
	Timestamp string `json:"timestamp"`
}

//NewPing creates a ping stamped with the current time
func NewPing(origin string) *Ping {
	return &Ping{
		Origin:    origin,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

//ContentType returns the content type of the serialized ping
func (p *Ping) ContentType() string {
	return "application/json"
}

//TopicName returns the routing key pings are published with
func (p *Ping) TopicName() string {
	return PingTopic
}

//CheckConnection publishes a ping and reports whether the broker took it
func CheckConnection(publisher Publisher, origin string) error {
	if publisher == nil {
		return errNotConnected
	}
	return publisher.PublishOnTopic(NewPing(origin))
}
