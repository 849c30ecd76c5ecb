package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/sub"
)

func TestEncodeDecode(t *testing.T) {
	ev := committed("abc")
	ev.Vertices = 3
	ev.Time = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	msg, err := Encode(ev)
	require.NoError(t, err)
	assert.True(t, len(msg) > len(TopicImportCommitted))
	assert.Equal(t, TopicImportCommitted+" ", string(msg[:len(TopicImportCommitted)+1]))

	got, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, ev, got)

	_, err = Decode([]byte("nospace"))
	assert.Error(t, err)
}

func TestSocketPublisher_DeliversToSubscriber(t *testing.T) {
	addr := fmt.Sprintf("inproc://events-%d", time.Now().UnixNano())
	pubSock, err := ListenSocket(addr, nil)
	require.NoError(t, err)
	defer pubSock.Close()

	subSock, err := sub.NewSocket()
	require.NoError(t, err)
	defer subSock.Close()
	require.NoError(t, subSock.SetOption(mangos.OptionSubscribe, []byte(TopicImportFailed)))
	require.NoError(t, subSock.SetOption(mangos.OptionRecvDeadline, 100*time.Millisecond))
	require.NoError(t, subSock.Dial(addr))

	bus := NewBus()
	defer bus.Shutdown()
	busSub, err := bus.Subscribe(context.Background(), "", 10)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pubSock.Forward(ctx, busSub)

	// PUB/SUB connection setup is asynchronous; keep publishing until the
	// subscriber sees a failed-import event.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		bus.Publish(ctx, committed("ignored"))
		bus.Publish(ctx, Event{Topic: TopicImportFailed, ImportID: "f1", Error: "boom"})

		msg, err := subSock.Recv()
		if err != nil {
			continue
		}
		ev, err := Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, TopicImportFailed, ev.Topic)
		assert.Equal(t, "f1", ev.ImportID)
		return
	}
	t.Fatal("subscriber never received an event")
}

func TestListenSocket_BadAddress(t *testing.T) {
	_, err := ListenSocket("bogus://nowhere", nil)
	assert.Error(t, err)
}
