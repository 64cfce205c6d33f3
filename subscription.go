package stomp

// Subscription is a live subscription as the caller sees it: the
// token used on SUBSCRIBE/UNSUBSCRIBE/ACK/NACK, the destination, the
// extra headers the SUBSCRIBE frame was built with (retained so a
// reconnect can replay it verbatim, §4.4), and an opaque Context value
// for caller bookkeeping (a channel, a callback, whatever the
// transport layer above this core wants to hang off it).
type Subscription struct {
	Token       string
	Destination string
	Ack         string
	Extra       []HeaderField
	Context     interface{}
}

// subscriptionRegistry tracks the currently-active subscriptions in
// insertion order. remove strips a token from that order immediately,
// so a token that is unsubscribed and later resubscribed is replayed
// at its new position rather than duplicated at its old one (§8
// scenario 5: SUBSCRIBE A, UNSUBSCRIBE A, SUBSCRIBE B replays as just
// B).
type subscriptionRegistry struct {
	order   []string
	byToken map[string]*Subscription
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{byToken: make(map[string]*Subscription)}
}

func (r *subscriptionRegistry) add(sub *Subscription) error {
	if _, exists := r.byToken[sub.Token]; exists {
		return ErrDuplicateSubscription
	}
	r.byToken[sub.Token] = sub
	r.order = append(r.order, sub.Token)
	return nil
}

func (r *subscriptionRegistry) remove(token string) (*Subscription, error) {
	sub, ok := r.byToken[token]
	if !ok {
		return nil, ErrUnknownSubscription
	}
	delete(r.byToken, token)
	for i, t := range r.order {
		if t == token {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return sub, nil
}

// removeByDestination removes the first subscription (in insertion
// order) matching destination, for the 1.0 UNSUBSCRIBE fallback when
// the caller never synthesized a token (§4.5).
func (r *subscriptionRegistry) removeByDestination(destination string) (*Subscription, error) {
	for _, token := range r.order {
		if sub, ok := r.byToken[token]; ok && sub.Destination == destination {
			return r.remove(token)
		}
	}
	return nil, ErrUnknownSubscription
}

func (r *subscriptionRegistry) get(token string) (*Subscription, bool) {
	sub, ok := r.byToken[token]
	return sub, ok
}

// replay returns every still-active subscription in original
// insertion order, for replaying SUBSCRIBE frames after a reset.
func (r *subscriptionRegistry) replay() []*Subscription {
	out := make([]*Subscription, 0, len(r.byToken))
	for _, token := range r.order {
		if sub, ok := r.byToken[token]; ok {
			out = append(out, sub)
		}
	}
	return out
}

func (r *subscriptionRegistry) reset() {
	r.order = nil
	r.byToken = make(map[string]*Subscription)
}
