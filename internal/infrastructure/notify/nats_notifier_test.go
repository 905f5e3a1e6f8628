package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"estateoracle/internal/ports"
)

type recordedMessage struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	messages []recordedMessage
	err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, recordedMessage{subject: subject, data: data})
	return nil
}

func TestNotifyPublishesPerEntitySubject(t *testing.T) {
	pub := &fakePublisher{}
	notifier := newNATSNotifier(pub, "estateoracle.oracle.")

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := notifier.Notify(context.Background(), ports.OracleNotification{
		Type:       "dispatched",
		EntityID:   "7",
		Pending:    true,
		DispatchID: "d-1",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(pub.messages) != 1 || pub.messages[0].subject != "estateoracle.oracle.7" {
		t.Fatalf("messages = %+v", pub.messages)
	}

	var decoded ports.OracleNotification
	if err := json.Unmarshal(pub.messages[0].data, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Type != "dispatched" || !decoded.Pending || !decoded.OccurredAt.Equal(at) {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestNotifyWrapsPublishError(t *testing.T) {
	boom := errors.New("no responders")
	notifier := newNATSNotifier(&fakePublisher{err: boom}, "estateoracle.oracle")

	err := notifier.Notify(context.Background(), ports.OracleNotification{Type: "status"})
	if !errors.Is(err, boom) {
		t.Fatalf("Notify() error = %v", err)
	}
	if notifier.Subject("") != "estateoracle.oracle.unknown" {
		t.Fatalf("subject = %s", notifier.Subject(""))
	}
}
