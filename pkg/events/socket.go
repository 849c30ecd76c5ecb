package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
)

// SocketPublisher forwards events over a mangos PUB socket. Each message is
// the topic, a space, then the JSON-encoded event, so SUB sockets can
// filter with OptionSubscribe on the topic prefix.
type SocketPublisher struct {
	sock   mangos.Socket
	addr   string
	logger logging.Logger
}

// ListenSocket opens a PUB socket listening on addr (tcp://, ipc://,
// inproc://, ws://).
func ListenSocket(addr string, logger logging.Logger) (*SocketPublisher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := sock.SetOption(mangos.OptionSendDeadline, time.Second); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to set send deadline: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	logger.Info("event socket listening", logging.String("addr", addr))
	return &SocketPublisher{sock: sock, addr: addr, logger: logger.With(logging.Component("events"))}, nil
}

// Addr returns the listen address.
func (p *SocketPublisher) Addr() string {
	return p.addr
}

// Publish encodes and sends ev. PUB sockets drop messages for slow
// subscribers rather than block.
func (p *SocketPublisher) Publish(_ context.Context, ev Event) error {
	msg, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := p.sock.Send(msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Topic, err)
	}
	return nil
}

// Forward publishes everything sub delivers until the subscription ends
// or ctx is done.
func (p *SocketPublisher) Forward(ctx context.Context, sub *Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Channel():
			if !ok {
				return
			}
			if err := p.Publish(ctx, ev); err != nil {
				p.logger.Warn("dropping event", logging.String("topic", ev.Topic), logging.Error(err))
			}
		}
	}
}

// Close closes the socket.
func (p *SocketPublisher) Close() error {
	return p.sock.Close()
}

// Encode frames ev as "<topic> <json>".
func Encode(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	msg := make([]byte, 0, len(ev.Topic)+1+len(body))
	msg = append(msg, ev.Topic...)
	msg = append(msg, ' ')
	return append(msg, body...), nil
}

// Decode parses a message produced by Encode.
func Decode(msg []byte) (Event, error) {
	i := bytes.IndexByte(msg, ' ')
	if i < 0 {
		return Event{}, fmt.Errorf("failed to decode event: missing topic separator")
	}
	var ev Event
	if err := json.Unmarshal(msg[i+1:], &ev); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return ev, nil
}
