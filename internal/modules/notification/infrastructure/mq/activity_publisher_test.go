package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	msgs   []Message
	err    error
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, msg Message) (PublishResult, error) {
	if f.err != nil {
		return PublishResult{}, f.err
	}
	f.msgs = append(f.msgs, msg)
	return PublishResult{Offset: int64(len(f.msgs))}, nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func TestPublishActivity_KeyedByGroup(t *testing.T) {
	fp := &fakePublisher{}
	ap := NewActivityPublisher(fp, "tasknest.activity")

	err := ap.PublishActivity(context.Background(), Activity{
		Kind: "todo:added", ActorId: "UA", GroupId: "G1", Recipients: 2, OccurredAt: time.Now(),
	})

	require.NoError(t, err)
	require.Len(t, fp.msgs, 1)
	msg := fp.msgs[0]
	assert.Equal(t, "tasknest.activity", msg.Topic)
	assert.Equal(t, "G1", string(msg.Key))
	assert.Equal(t, "todo:added", msg.Headers["kind"])

	var decoded Activity
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, 2, decoded.Recipients)
}

func TestPublishActivity_DirectEventKeyedByTarget(t *testing.T) {
	fp := &fakePublisher{}
	ap := NewActivityPublisher(fp, "t")

	require.NoError(t, ap.PublishActivity(context.Background(), Activity{Kind: "group:invited", TargetId: "UB"}))

	assert.Equal(t, "UB", string(fp.msgs[0].Key))
}

func TestPublishActivity_ErrorAndClose(t *testing.T) {
	fp := &fakePublisher{err: errors.New("broker down")}
	ap := NewActivityPublisher(fp, "t")

	assert.Error(t, ap.PublishActivity(context.Background(), Activity{Kind: "todo:added"}))
	require.NoError(t, ap.Close())
	assert.True(t, fp.closed)
}
