package stomp

import (
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// Endpoint is one host:port pair parsed out of a failover URI.
type Endpoint struct {
	Host string
	Port int
}

// Options controls reconnect pacing and endpoint ordering, parsed
// from a failover URI's query string (§4.4). Field names and defaults
// follow the spec's worked examples.
type Options struct {
	InitialReconnectDelay time.Duration
	MaxReconnectDelay     time.Duration
	UseExponentialBackOff bool
	BackOffMultiplier     float64
	MaxReconnectAttempts  int // <0 means unlimited
	// StartupMaxReconnectAttempts bounds attempts before any
	// successful connect; 0 means "same as MaxReconnectAttempts"
	// (§4.4).
	StartupMaxReconnectAttempts int
	Randomize                   bool
}

var defaultOptions = Options{
	InitialReconnectDelay:       10 * time.Millisecond,
	MaxReconnectDelay:           30 * time.Second,
	UseExponentialBackOff:       true,
	BackOffMultiplier:           2.0,
	MaxReconnectAttempts:        -1,
	StartupMaxReconnectAttempts: 0,
	Randomize:                   false,
}

// knownFailoverOptions are the only query keys ParseFailoverURI
// accepts; §4.4: "Unknown options are rejected."
var knownFailoverOptions = map[string]bool{
	"initialReconnectDelay":       true,
	"maxReconnectDelay":           true,
	"useExponentialBackOff":       true,
	"backOffMultiplier":           true,
	"maxReconnectAttempts":        true,
	"startupMaxReconnectAttempts": true,
	"randomize":                   true,
}

// FailoverURI is a parsed "failover:(tcp://host:port,...)?opt=val"
// address generator, holding the endpoint list and reconnect options
// (§4.4). It performs no I/O and owns no connection; callers draw
// endpoints from a FailoverIterator.
type FailoverURI struct {
	Endpoints []Endpoint
	Options   Options
}

// ParseFailoverURI parses a failover URI of the form
//
//	failover:(tcp://host1:port1,tcp://host2:port2)?randomize=true
//
// or a bare single-endpoint "tcp://host:port" with no failover
// wrapper, for symmetry with a plain address.
func ParseFailoverURI(raw string) (*FailoverURI, error) {
	const prefix = "failover:"
	body := raw
	query := ""
	opts := defaultOptions

	if strings.HasPrefix(raw, prefix) {
		body = strings.TrimPrefix(raw, prefix)
		if i := strings.IndexByte(body, '?'); i >= 0 {
			query = body[i+1:]
			body = body[:i]
		}
		body = strings.TrimPrefix(body, "(")
		body = strings.TrimSuffix(body, ")")
	} else if i := strings.IndexByte(body, '?'); i >= 0 {
		query = body[i+1:]
		body = body[:i]
	}

	parts := strings.Split(body, ",")
	endpoints := make([]Endpoint, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ep, err := parseEndpoint(p)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	if query != "" {
		values, err := url.ParseQuery(query)
		if err != nil {
			return nil, errors.Wrap(err, "stomp: invalid failover options")
		}
		if err := applyOptions(&opts, values); err != nil {
			return nil, err
		}
	}

	return &FailoverURI{Endpoints: endpoints, Options: opts}, nil
}

func parseEndpoint(s string) (Endpoint, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, errors.Wrapf(err, "stomp: invalid endpoint %q", s)
	}
	host := u.Hostname()
	portStr := u.Port()
	if host == "" || portStr == "" {
		return Endpoint{}, errors.Errorf("stomp: endpoint %q missing host or port", s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Endpoint{}, errors.Wrapf(err, "stomp: invalid port in endpoint %q", s)
	}
	return Endpoint{Host: host, Port: port}, nil
}

func applyOptions(opts *Options, values url.Values) error {
	for key := range values {
		if !knownFailoverOptions[key] {
			return errors.Errorf("stomp: unknown failover option %q", key)
		}
	}
	if v := values.Get("initialReconnectDelay"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "stomp: invalid initialReconnectDelay")
		}
		opts.InitialReconnectDelay = time.Duration(ms) * time.Millisecond
	}
	if v := values.Get("maxReconnectDelay"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "stomp: invalid maxReconnectDelay")
		}
		opts.MaxReconnectDelay = time.Duration(ms) * time.Millisecond
	}
	if v := values.Get("backOffMultiplier"); v != "" {
		mult, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "stomp: invalid backOffMultiplier")
		}
		opts.BackOffMultiplier = mult
	}
	if v := values.Get("useExponentialBackOff"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "stomp: invalid useExponentialBackOff")
		}
		opts.UseExponentialBackOff = b
	}
	if v := values.Get("maxReconnectAttempts"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "stomp: invalid maxReconnectAttempts")
		}
		opts.MaxReconnectAttempts = n
	}
	if v := values.Get("startupMaxReconnectAttempts"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "stomp: invalid startupMaxReconnectAttempts")
		}
		opts.StartupMaxReconnectAttempts = n
	}
	if v := values.Get("randomize"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "stomp: invalid randomize")
		}
		opts.Randomize = b
	}
	return nil
}

// Iterator returns a fresh FailoverIterator over u's endpoint list.
// priorSuccess distinguishes a first-ever connection attempt from a
// reconnect after a previously successful one: the spec's external
// surface exposes no "mark success" call, so the caller (the
// transport layer) tracks that fact and passes it in when it builds a
// new iterator following a connection loss (§4.4).
func (u *FailoverURI) Iterator(priorSuccess bool) *FailoverIterator {
	order := make([]int, len(u.Endpoints))
	for i := range order {
		order[i] = i
	}
	var rng *rand.Rand
	if u.Options.Randomize {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	var bo backoff.BackOff
	if u.Options.UseExponentialBackOff {
		// The functional constructors (rather than building a zero
		// ExponentialBackOff and assigning its exported fields) ensure
		// Reset() runs after the configured InitialInterval is in
		// place, so currentInterval is seeded from it instead of from
		// NewExponentialBackOff's own 500ms default.
		bo = backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(u.Options.InitialReconnectDelay),
			backoff.WithMaxInterval(u.Options.MaxReconnectDelay),
			backoff.WithMultiplier(u.Options.BackOffMultiplier),
			backoff.WithRandomizationFactor(0),
			backoff.WithMaxElapsedTime(0),
		)
	} else {
		bo = &backoff.ConstantBackOff{Interval: u.Options.InitialReconnectDelay}
	}

	maxAttempts := u.Options.MaxReconnectAttempts
	if !priorSuccess && u.Options.StartupMaxReconnectAttempts != 0 {
		maxAttempts = u.Options.StartupMaxReconnectAttempts
	}

	return &FailoverIterator{
		uri:          u,
		order:        order,
		rng:          rng,
		backoff:      bo,
		priorSuccess: priorSuccess,
		maxAttempts:  maxAttempts,
	}
}

// FailoverIterator yields a reconnect sequence: endpoint, delay before
// dialing it, and a *FailoverExhaustedError once the attempt budget is
// exhausted. Each iterator owns its own randomized order and backoff
// state; nothing is shared across iterators (§5: "Failover owns only
// its iteration state").
type FailoverIterator struct {
	uri          *FailoverURI
	order        []int
	rng          *rand.Rand
	backoff      backoff.BackOff
	priorSuccess bool
	maxAttempts  int
	attempt      int
}

// Next returns the endpoint for the next connection attempt and the
// delay to wait before dialing it. The very first call always yields
// a zero delay, whether or not priorSuccess was set: a reconnect
// after a prior success still waits for the first attempt only if the
// caller itself chooses to delay — this component reports purely the
// attempt-indexed backoff schedule (§8 scenario 6).
func (it *FailoverIterator) Next() (Endpoint, time.Duration, error) {
	if it.maxAttempts >= 0 && it.attempt >= it.maxAttempts {
		return Endpoint{}, 0, newFailoverExhaustedError(it.attempt)
	}

	n := len(it.order)
	idx := it.order[it.attempt%n]
	ep := it.uri.Endpoints[idx]

	var delay time.Duration
	if it.attempt > 0 {
		delay = it.backoff.NextBackOff()
		if maxDelay := it.uri.Options.MaxReconnectDelay; maxDelay > 0 && delay > maxDelay {
			delay = maxDelay
		}
	}
	it.attempt++
	return ep, delay, nil
}

// Attempt returns how many endpoints this iterator has yielded so far.
func (it *FailoverIterator) Attempt() int { return it.attempt }
