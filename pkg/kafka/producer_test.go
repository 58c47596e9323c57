package kafka

import (
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

func TestParseBrokers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"localhost:9092", []string{"localhost:9092"}},
		{"kafka-1:9092, kafka-2:9092 ,", []string{"kafka-1:9092", "kafka-2:9092"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseBrokers(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseBrokers(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseBrokers(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestConfigMechanism(t *testing.T) {
	if m, err := (Config{}).mechanism(); err != nil || m != nil {
		t.Errorf("disabled sasl: got %v, %v", m, err)
	}

	m, err := Config{SASLEnabled: true, SASLUsername: "u", SASLPassword: "p"}.mechanism()
	if err != nil {
		t.Fatalf("plain: %v", err)
	}
	if _, ok := m.(plain.Mechanism); !ok {
		t.Errorf("plain: got %T", m)
	}

	if _, err := (Config{SASLEnabled: true, SASLMechanism: "SCRAM-SHA-512", SASLUsername: "u", SASLPassword: "p"}).mechanism(); err != nil {
		t.Errorf("scram-512: %v", err)
	}

	if _, err := (Config{SASLEnabled: true, SASLMechanism: "GSSAPI"}).mechanism(); err == nil {
		t.Error("expected error for unsupported mechanism")
	}
}

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092", "localhost:9093"}, TLS: true})
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	if len(p.brokers) != 2 {
		t.Fatalf("expected 2 brokers, got %d", len(p.brokers))
	}
	if p.transport.TLS == nil {
		t.Error("expected TLS config on transport")
	}

	w1 := p.writer("sportsmaker.payment.transactions")
	w2 := p.writer("sportsmaker.payment.transactions")
	if w1 != w2 {
		t.Error("expected writer to be reused per topic")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestMessageConversion(t *testing.T) {
	msgs := toKafkaMessages([]Message{{
		Key:     []byte("tx-1"),
		Value:   []byte(`{"type":"payment.transaction.completed"}`),
		Headers: map[string]string{"event_type": "payment.transaction.completed"},
	}})
	if len(msgs) != 1 || len(msgs[0].Headers) != 1 {
		t.Fatalf("unexpected conversion: %+v", msgs)
	}

	back := fromKafkaMessage(kafkago.Message{
		Topic:   "t",
		Key:     msgs[0].Key,
		Value:   msgs[0].Value,
		Headers: msgs[0].Headers,
	})
	if back.Headers["event_type"] != "payment.transaction.completed" {
		t.Errorf("header lost: %v", back.Headers)
	}
	if string(back.Key) != "tx-1" || back.Topic != "t" {
		t.Errorf("key/topic lost: %+v", back)
	}
}
