package stomp

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestParseFailoverURIEndpoints(t *testing.T) {
	uri, err := ParseFailoverURI("failover:(tcp://a:61613,tcp://b:61614)?randomize=false")
	assert.NilError(t, err)
	assert.Equal(t, len(uri.Endpoints), 2)
	assert.Equal(t, uri.Endpoints[0].Host, "a")
	assert.Equal(t, uri.Endpoints[0].Port, 61613)
	assert.Equal(t, uri.Endpoints[1].Host, "b")
	assert.Equal(t, uri.Endpoints[1].Port, 61614)
	assert.Equal(t, uri.Options.Randomize, false)
}

func TestParseFailoverURINoEndpoints(t *testing.T) {
	_, err := ParseFailoverURI("failover:()")
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

func TestParseFailoverURIOptions(t *testing.T) {
	uri, err := ParseFailoverURI(
		"failover:(tcp://a:61613)?initialReconnectDelay=100&maxReconnectDelay=400&backOffMultiplier=2&maxReconnectAttempts=4")
	assert.NilError(t, err)
	assert.Equal(t, uri.Options.InitialReconnectDelay, 100*time.Millisecond)
	assert.Equal(t, uri.Options.MaxReconnectDelay, 400*time.Millisecond)
	assert.Equal(t, uri.Options.BackOffMultiplier, 2.0)
	assert.Equal(t, uri.Options.MaxReconnectAttempts, 4)
}

// TestFailoverBackoffSequence matches the worked example of a
// two-endpoint list with a 100ms initial delay, 2x multiplier, and a
// 400ms cap: delays grow 0, 100, 200, 400, 400(capped from 800).
func TestFailoverBackoffSequence(t *testing.T) {
	uri, err := ParseFailoverURI(
		"failover:(tcp://a:61613,tcp://b:61614)?initialReconnectDelay=100&maxReconnectDelay=400&backOffMultiplier=2")
	assert.NilError(t, err)

	it := uri.Iterator(false)
	wantDelays := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 400 * time.Millisecond}
	wantHosts := []string{"a", "b", "a", "b", "a"}

	for i, wantDelay := range wantDelays {
		ep, delay, err := it.Next()
		assert.NilError(t, err)
		assert.Equal(t, ep.Host, wantHosts[i])
		assert.Equal(t, delay, wantDelay)
	}
}

func TestFailoverExhaustion(t *testing.T) {
	uri, err := ParseFailoverURI("failover:(tcp://a:61613)?maxReconnectAttempts=2")
	assert.NilError(t, err)

	it := uri.Iterator(false)
	_, _, err = it.Next()
	assert.NilError(t, err)
	_, _, err = it.Next()
	assert.NilError(t, err)
	_, _, err = it.Next()
	assert.ErrorType(t, err, func(err error) bool {
		_, ok := err.(*FailoverExhaustedError)
		return ok
	})
}

func TestParseFailoverURIRejectsUnknownOption(t *testing.T) {
	_, err := ParseFailoverURI("failover:(tcp://a:61613)?bogus=1")
	if err == nil {
		t.Fatal("expected an error for an unrecognized failover option")
	}
}

func TestFailoverConstantBackOffWhenExponentialDisabled(t *testing.T) {
	uri, err := ParseFailoverURI(
		"failover:(tcp://a:61613)?useExponentialBackOff=false&initialReconnectDelay=100")
	assert.NilError(t, err)
	assert.Equal(t, uri.Options.UseExponentialBackOff, false)

	it := uri.Iterator(false)
	wantDelays := []time.Duration{0, 100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond}
	for _, wantDelay := range wantDelays {
		_, delay, err := it.Next()
		assert.NilError(t, err)
		assert.Equal(t, delay, wantDelay)
	}
}

func TestFailoverStartupMaxReconnectAttempts(t *testing.T) {
	uri, err := ParseFailoverURI(
		"failover:(tcp://a:61613)?maxReconnectAttempts=10&startupMaxReconnectAttempts=1")
	assert.NilError(t, err)

	// Before any successful connect, the startup budget applies.
	startup := uri.Iterator(false)
	_, _, err = startup.Next()
	assert.NilError(t, err)
	_, _, err = startup.Next()
	assert.ErrorType(t, err, func(err error) bool {
		_, ok := err.(*FailoverExhaustedError)
		return ok
	})

	// After a prior success, the regular budget applies instead.
	reconnect := uri.Iterator(true)
	for i := 0; i < 10; i++ {
		_, _, err = reconnect.Next()
		assert.NilError(t, err)
	}
	_, _, err = reconnect.Next()
	assert.ErrorType(t, err, func(err error) bool {
		_, ok := err.(*FailoverExhaustedError)
		return ok
	})
}

func TestFailoverRandomizeCoversAllEndpoints(t *testing.T) {
	uri, err := ParseFailoverURI("failover:(tcp://a:1,tcp://b:2,tcp://c:3)?randomize=true")
	assert.NilError(t, err)

	it := uri.Iterator(false)
	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		ep, _, err := it.Next()
		assert.NilError(t, err)
		seen[ep.Host] = true
	}
	assert.Equal(t, len(seen), 3)
}
