package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishEncodesEvent(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "wordcloud-generated")

	err := p.Publish(context.Background(), Event{
		Key:     "busan-v1",
		Value:   map[string]int{"words": 80},
		Headers: map[string]string{"type": "cloud_generated"},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "busan-v1" {
		t.Errorf("key = %q", msg.Key)
	}
	if string(msg.Value) != `{"words":80}` {
		t.Errorf("value = %s", msg.Value)
	}
	if len(msg.Headers) != 1 || msg.Headers[0].Key != "type" || string(msg.Headers[0].Value) != "cloud_generated" {
		t.Errorf("headers = %v", msg.Headers)
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := newProducer(&fakeWriter{err: boom}, "t")
	if err := p.Publish(context.Background(), Event{Key: "k", Value: 1}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestPublishRejectsUnencodableValue(t *testing.T) {
	p := newProducer(&fakeWriter{}, "t")
	if err := p.Publish(context.Background(), Event{Key: "k", Value: make(chan int)}); err == nil {
		t.Error("expected marshal error")
	}
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		f.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestConsumerCommitsHandledMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{
		msgs: []kafka.Message{
			{Offset: 1, Key: []byte("a"), Value: []byte(`{"n":1}`)},
			{Offset: 2, Key: []byte("b"), Value: []byte(`not json`)},
			{Offset: 3, Key: []byte("c"), Value: []byte(`{"n":3}`)},
		},
		cancel: cancel,
	}
	var seen []int
	c := newConsumer(r, "t", func(_ context.Context, _ []byte, value []byte) error {
		v, err := DecodeJSON[struct{ N int }](value)
		if err != nil {
			return err
		}
		seen = append(seen, v.N)
		return nil
	})

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 3 {
		t.Errorf("handled = %v, want [1 3]", seen)
	}
	if len(r.committed) != 2 || r.committed[0] != 1 || r.committed[1] != 3 {
		t.Errorf("committed offsets = %v, want [1 3]", r.committed)
	}
	if !r.closed {
		t.Error("reader not closed on shutdown")
	}
}
