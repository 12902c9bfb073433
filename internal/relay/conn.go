package relay

import "errors"

var (
	// ErrConnClosed is returned by Conn.Send once the connection has been
	// closed.
	ErrConnClosed = errors.New("relay: connection closed")

	// ErrSendQueueFull is returned by Conn.Send when the connection's
	// outbound queue has no room left. The relay treats it as a dead peer.
	ErrSendQueueFull = errors.New("relay: send queue full")

	// ErrRegistryClosed is returned by Registry.Register after shutdown.
	ErrRegistryClosed = errors.New("relay: registry closed")
)

// Kind tells the transport which frame type to use for a Message.
type Kind int

const (
	// KindText is a UTF-8 text payload.
	KindText Kind = iota
	// KindBinary is an opaque binary payload.
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Message is an opaque payload together with its frame kind.
type Message struct {
	Kind    Kind
	Payload []byte
}

// Text builds a text message.
func Text(s string) Message {
	return Message{Kind: KindText, Payload: []byte(s)}
}

// withPrefix returns a copy of m whose payload is prefix followed by the
// original payload. The kind is preserved.
func (m Message) withPrefix(prefix string) Message {
	payload := make([]byte, 0, len(prefix)+len(m.Payload))
	payload = append(payload, prefix...)
	payload = append(payload, m.Payload...)
	return Message{Kind: m.Kind, Payload: payload}
}

// Conn is one live client session as seen by the relay. The transport
// adapter owns the underlying stream; the relay only references it.
//
// Send must not block: it either queues msg for delivery or returns an
// error (ErrConnClosed, ErrSendQueueFull, or a transport error). Close asks
// the adapter to release the connection and must be idempotent.
// Implementations must be comparable; the registry keys on the value itself,
// so pointer types are the norm.
type Conn interface {
	ID() string
	Send(msg Message) error
	Close()
}
