package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"estateoracle/internal/bootstrap/logging"
	"estateoracle/internal/errs"
	"estateoracle/internal/ports"
)

// publisher is the slice of *nats.Conn the notifier needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes each notification as JSON on <subject>.<entity id>.
type NATSNotifier struct {
	conn    *nats.Conn
	pub     publisher
	subject string
}

func DialNATS(ctx context.Context, url string, subject string, clientName string) (*NATSNotifier, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("nats url is required")
	}
	logCtx := logging.WithComponent(ctx, "notify.nats")

	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn(logCtx, "nats disconnected", slog.Any("err", errs.Loggable(err)))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Info(logCtx, "nats reconnected", slog.String("url", c.ConnectedUrlRedacted()))
		}),
	)
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}

	logging.Info(logCtx, "nats notifier ready", slog.String("subject", subject))
	return &NATSNotifier{conn: conn, pub: conn, subject: strings.TrimSuffix(subject, ".")}, nil
}

func newNATSNotifier(pub publisher, subject string) *NATSNotifier {
	return &NATSNotifier{pub: pub, subject: strings.TrimSuffix(subject, ".")}
}

func (n *NATSNotifier) Subject(entityID string) string {
	entity := strings.TrimSpace(entityID)
	if entity == "" {
		entity = "unknown"
	}
	return n.subject + "." + entity
}

func (n *NATSNotifier) Notify(ctx context.Context, notification ports.OracleNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return errs.Wrap(err, "encode notification")
	}
	if err := n.pub.Publish(n.Subject(notification.EntityID), payload); err != nil {
		return errs.Wrapf(err, "publish %s", n.Subject(notification.EntityID))
	}
	return nil
}

// Close flushes buffered messages and closes the connection.
func (n *NATSNotifier) Close() error {
	if n == nil || n.conn == nil {
		return nil
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return errs.Wrap(err, "drain nats")
	}
	return nil
}

// Nop drops notifications.
type Nop struct{}

func (Nop) Notify(context.Context, ports.OracleNotification) error { return nil }

var (
	_ ports.Notifier = (*NATSNotifier)(nil)
	_ ports.Notifier = Nop{}
)
