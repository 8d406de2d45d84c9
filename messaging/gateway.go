package messaging

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-crm/messaging/domain"
	"github.com/sirupsen/logrus"
)

// Gateway routes payloads to the channel registered for a kind. The
// registry is fixed at construction; there is no runtime registration.
type Gateway struct {
	channels map[domain.ChannelKind]domain.Channel
}

// NewGateway validates and freezes the channel registry. Nil channels are
// skipped so callers can pass "disabled" slots straight from config.
func NewGateway(channels ...domain.Channel) (*Gateway, error) {
	g := &Gateway{channels: make(map[domain.ChannelKind]domain.Channel, len(channels))}
	for _, ch := range channels {
		if ch == nil {
			continue
		}
		kind := ch.Kind()
		if !kind.Valid() {
			return nil, fmt.Errorf("unknown channel kind %q", kind)
		}
		if _, dup := g.channels[kind]; dup {
			return nil, fmt.Errorf("channel %s registered twice", kind)
		}
		g.channels[kind] = ch
	}
	return g, nil
}

// Dispatch sends payload through the channel registered for kind. A kind
// without a channel is dropped with a warning and is not an error.
func (g *Gateway) Dispatch(ctx context.Context, kind domain.ChannelKind, payload domain.MessagePayload) error {
	ch, ok := g.channels[kind]
	if !ok {
		logrus.WithFields(logrus.Fields{
			"channel":     kind,
			"customer_id": payload.Meta(domain.MetaCustomerID),
		}).Warn("[GATEWAY] Channel not configured, payload dropped")
		return nil
	}
	return ch.Send(ctx, payload)
}

// Has reports whether a channel is registered for kind.
func (g *Gateway) Has(kind domain.ChannelKind) bool {
	_, ok := g.channels[kind]
	return ok
}

// Kinds returns the registered kinds in declaration order.
func (g *Gateway) Kinds() []domain.ChannelKind {
	out := make([]domain.ChannelKind, 0, len(g.channels))
	for _, k := range domain.AllChannelKinds {
		if _, ok := g.channels[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
