package stomp

import (
	"fmt"
	"time"
)

// HeartBeat is a heart-beat proposal or negotiated agreement, in the
// send/receive shape CONNECT and CONNECTED exchange it in (§4.2). A
// zero value means "no heart-beats in that direction."
type HeartBeat struct {
	Send time.Duration
	Recv time.Duration
}

// String renders the heart-beat header value "x,y" in milliseconds,
// grounded on the teacher's Heartbeat.toString.
func (h HeartBeat) String() string {
	if h.Send == 0 && h.Recv == 0 {
		return ""
	}
	return fmt.Sprintf("%d,%d", h.Send.Milliseconds(), h.Recv.Milliseconds())
}

// Negotiate combines this client-proposed heart-beat with the peer's
// proposal from a CONNECTED frame, per the STOMP rule that each side's
// effective interval is the larger of what it offered and what the
// peer is willing to receive in that direction.
func (h HeartBeat) Negotiate(peer HeartBeat) HeartBeat {
	var out HeartBeat
	if h.Send != 0 && peer.Recv != 0 {
		out.Send = maxDuration(h.Send, peer.Recv)
	}
	if h.Recv != 0 && peer.Send != 0 {
		out.Recv = maxDuration(h.Recv, peer.Send)
	}
	return out
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// parseHeartBeat parses a "x,y" heart-beat header value into
// millisecond durations. A malformed value is treated as "none
// proposed," matching the wire's forgiving stance on this header.
func parseHeartBeat(v string) HeartBeat {
	var s, r int
	if _, err := fmt.Sscanf(v, "%d,%d", &s, &r); err != nil {
		return HeartBeat{}
	}
	return HeartBeat{
		Send: time.Duration(s) * time.Millisecond,
		Recv: time.Duration(r) * time.Millisecond,
	}
}

// Config is the session configuration: everything needed to build a
// CONNECT frame and interpret its CONNECTED reply. It deliberately
// carries nothing about how bytes reach the wire — no Dial, no TLS —
// since transport is out of scope for this core; the teacher's
// TransportConfig (Dial/TLSConfig/TLSHandshakeTimeout) has no home
// here and is dropped rather than carried as dead weight.
type Config struct {
	// URI is the parsed failover address this configuration connects
	// through, set via ParseFailoverURI (§4.4, §6). Nil means the
	// caller is driving a single fixed endpoint itself and has no use
	// for reconnect iteration.
	URI *FailoverURI

	// Host is the virtual host requested on CONNECT. Defaults to "/"
	// via DefaultConfig.
	Host string

	// Login and Passcode authenticate the client, per §4.2. Both
	// empty means no credentials are sent.
	Login    string
	Passcode string

	// RequestedVersions lists the versions offered in accept-version,
	// in preference order. Defaults to [V1_1, V1_0] via DefaultConfig.
	RequestedVersions []Version

	// HeartBeat is the client's heart-beat proposal.
	HeartBeat HeartBeat
}

// DefaultConfig is a ready-to-use configuration requesting both
// supported versions with no authentication and no heart-beats.
var DefaultConfig = Config{
	Host:              "/",
	RequestedVersions: []Version{V1_1, V1_0},
}
