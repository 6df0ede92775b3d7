package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	loc := time.FixedZone("UTC+10", 10*60*60)
	p := newPublisher(w, "history.posts", loc, nil)
	p.now = func() time.Time { return time.Date(2024, 7, 19, 20, 0, 0, 0, time.UTC) }

	require.NoError(t, p.Publish(context.Background(), "On this day in 1969: #Apollo11"))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "2024-07-20", string(msg.Key), "key uses the configured timezone")

	var m Message
	require.NoError(t, json.Unmarshal(msg.Value, &m))
	assert.Equal(t, "2024-07-20", m.Day)
	assert.Equal(t, "On this day in 1969: #Apollo11", m.Text)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishError(t *testing.T) {
	p := newPublisher(&fakeWriter{err: errors.New("broker down")}, "t", nil, nil)
	err := p.Publish(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, "kafka", p.Name())
}
