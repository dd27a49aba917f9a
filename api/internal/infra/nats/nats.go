package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"mashub/api/internal/config"
	"mashub/api/internal/domain"
	"mashub/api/internal/logger"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const LOG_SUBJECT_PREFIX = "mashub.logs."

type NatsInfra struct {
	Nc *nats.Conn
	Js jetstream.JetStream

	subject string
	stream  string
}

func Init(ctx context.Context, config *config.Config, log logger.Logger) (*NatsInfra, error) {
	nc, err := nats.Connect(config.Nats.Url,
		nats.MaxReconnects(100),
		nats.ReconnectWait(3*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.TemplNatsInfo("disconnected", nc.ConnectedUrl())
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.TemplNatsInfo("reconnected", nc.ConnectedUrl())
		}))
	if err != nil {
		log.TemplNatsError("connect failed", config.Nats.Url, err)
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := InitWebhooksStream(ctx, js, config.Nats.Stream, config.Nats.Subject); err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream %s: %w", config.Nats.Stream, err)
	}

	log.TemplNatsInfo("connected", nc.ConnectedUrl())
	return &NatsInfra{Nc: nc, Js: js, subject: config.Nats.Subject, stream: config.Nats.Stream}, nil
}

func InitWebhooksStream(ctx context.Context, js jetstream.JetStream, name, subject string) (jetstream.Stream, error) {
	return js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       name,
		Subjects:   []string{subject},
		Duplicates: 10 * time.Minute,
	})
}

// PublishProcessed emits a processed notification. The webhook id is the
// JetStream msg id, so a redelivered publish is deduplicated by the server.
func (n *NatsInfra) PublishProcessed(ctx context.Context, ev domain.ProcessedEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.JsPublishMsgId(ctx, n.subject, data, ev.WebhookID)
}

// jetstream publish with msgId
func (n *NatsInfra) JsPublishMsgId(ctx context.Context, subj string, jsonMsg []byte, msgId string) error {
	_, err := n.Js.Publish(ctx, subj, jsonMsg, jetstream.WithMsgID(msgId))
	return err
}

// SendLog makes NatsInfra a logger sink. Core nats, fire and forget.
func (n *NatsInfra) SendLog(logstream string, payload []byte) error {
	return n.Nc.Publish(LogSubject(logstream), payload)
}

func LogSubject(logstream string) string {
	return LOG_SUBJECT_PREFIX + logstream
}

func (n *NatsInfra) Close() {
	if n == nil || n.Nc == nil {
		return
	}
	if err := n.Nc.Drain(); err != nil {
		n.Nc.Close()
	}
}
