package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaServiceKeysByBaseName(t *testing.T) {
	w := &fakeWriter{}
	at := time.Date(2026, 1, 31, 20, 0, 0, 0, time.UTC)
	svc := &kafkaService{writer: w, topic: "stagecap.events", now: func() time.Time { return at }}

	err := svc.Publish(context.Background(), EventError, Payload{"base": "ep", "error": errors.New("boom")})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "ep" {
		t.Fatalf("unexpected messages: %+v", w.msgs)
	}
	var doc struct {
		Event   string            `json:"event"`
		At      time.Time         `json:"at"`
		Payload map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(w.msgs[0].Value, &doc); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if doc.Event != "error" || !doc.At.Equal(at) || doc.Payload["error"] != "boom" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestMultiServiceJoinsErrors(t *testing.T) {
	good := &fakeWriter{}
	bad := &fakeWriter{err: errors.New("broker down")}
	m := multiService{
		&kafkaService{writer: good, now: time.Now},
		&kafkaService{writer: bad, topic: "t", now: time.Now},
	}
	if err := m.Publish(context.Background(), EventTest, nil); err == nil {
		t.Fatal("expected joined error")
	}
	if len(good.msgs) != 1 {
		t.Fatal("healthy transport should still publish")
	}
	if err := m.Close(); err != nil || !good.closed || !bad.closed {
		t.Fatalf("close not propagated: %v", err)
	}
}

func TestKafkaTransportUsesRequestTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	svc := newKafkaService([]string{ln.Addr().String()}, "stagecap.events", 1500*time.Millisecond, nil)
	writer, ok := svc.writer.(*kafka.Writer)
	if !ok {
		t.Fatalf("writer is %T", svc.writer)
	}
	transport, ok := writer.Transport.(*kafka.Transport)
	if !ok || transport.Dial == nil {
		t.Fatalf("transport has no dial func: %#v", writer.Transport)
	}
	if transport.DialTimeout != 1500*time.Millisecond {
		t.Fatalf("DialTimeout = %v", transport.DialTimeout)
	}
	conn, err := transport.Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = conn.Close()
}
