package stomp

// This file holds the Commands component: stateless functions that
// build outbound Frames and validate inbound ones. Nothing here
// retains state between calls or touches a connection — that split
// mirrors the teacher's Transport, which already separated "build the
// headers for verb X" from "write it to conn" (transport.go); Commands
// keeps the former half only.

// reservedHeaders are headers a caller-supplied extra-header list must
// not override, per verb, grounded on teacher's forbidden map.
var reservedHeaders = map[string]map[string]bool{
	cmdSend: {
		hdrDestination:   true,
		hdrContentType:   true,
		hdrContentLength: true,
		hdrReceipt:       true,
		hdrTransaction:   true,
	},
	cmdSubscribe: {
		hdrDestination: true,
		hdrID:          true,
		hdrAck:         true,
		hdrReceipt:     true,
	},
}

func addExtra(f *Frame, command string, extra []HeaderField) {
	reserved := reservedHeaders[command]
	for _, h := range extra {
		if reserved[h.Name] {
			continue
		}
		f.Add(h.Name, h.Value)
	}
}

// Connect builds a CONNECT frame requesting the given versions, with
// optional login/passcode/host and heart-beat proposal. versions must
// be non-empty. Per §4.2, "accept-version" is a comma-joined list for
// any request that includes 1.1; a pure 1.0-only request omits the
// header entirely, since 1.0 brokers predate it (§8 scenario 1).
func Connect(versions []Version, host, login, passcode string, heartbeat HeartBeat) *Frame {
	f := NewFrame(cmdConnect)
	if !isV10Only(versions) {
		f.Add(hdrAcceptVersion, joinVersions(versions))
	}
	f.AddIf(hdrHost, host)
	f.AddIf(hdrLogin, login)
	f.AddIf(hdrPasscode, passcode)
	if hb := heartbeat.String(); hb != "" {
		f.Add(hdrHeartBeat, hb)
	}
	return f
}

// isV10Only reports whether versions names only 1.0, the one case
// where CONNECT omits accept-version.
func isV10Only(versions []Version) bool {
	for _, v := range versions {
		if v != V1_0 {
			return false
		}
	}
	return len(versions) > 0
}

func joinVersions(versions []Version) string {
	s := ""
	for i, v := range versions {
		if i > 0 {
			s += ","
		}
		s += v.String()
	}
	return s
}

// Send builds a SEND frame for destination with an optional
// transaction id, receipt id, content type, and extra headers. body
// may be nil. Content-length is added automatically by Compile.
func Send(destination string, body []byte, contentType, transaction, receipt string, extra []HeaderField) *Frame {
	f := NewFrame(cmdSend)
	f.Add(hdrDestination, destination)
	f.AddIf(hdrContentType, contentType)
	f.AddIf(hdrTransaction, transaction)
	f.AddIf(hdrReceipt, receipt)
	addExtra(f, cmdSend, extra)
	f.Body = body
	return f
}

// Subscribe builds a SUBSCRIBE frame. ack is one of "auto", "client",
// or "client-individual" (§4.3); id must already be resolved by the
// caller (Session assigns one when the caller omits it).
func Subscribe(id, destination, ack, receipt string, extra []HeaderField) *Frame {
	f := NewFrame(cmdSubscribe)
	f.Add(hdrDestination, destination)
	f.Add(hdrID, id)
	f.AddIf(hdrAck, ack)
	f.AddIf(hdrReceipt, receipt)
	addExtra(f, cmdSubscribe, extra)
	return f
}

// Unsubscribe builds an UNSUBSCRIBE frame for a previously assigned
// subscription id.
func Unsubscribe(id, receipt string) *Frame {
	f := NewFrame(cmdUnsubscribe)
	f.Add(hdrID, id)
	f.AddIf(hdrReceipt, receipt)
	return f
}

// UnsubscribeDestination builds an UNSUBSCRIBE frame keyed by
// destination instead of id, the 1.0 fallback for a subscription that
// was never given a synthesized id (§4.5).
func UnsubscribeDestination(destination, receipt string) *Frame {
	f := NewFrame(cmdUnsubscribe)
	f.Add(hdrDestination, destination)
	f.AddIf(hdrReceipt, receipt)
	return f
}

// Ack builds an ACK frame acknowledging messageID (and, from 1.1 on,
// the owning subscription id the caller resolved).
func Ack(messageID, subscription, transaction, receipt string) *Frame {
	f := NewFrame(cmdAck)
	f.Add(hdrMessageID, messageID)
	f.AddIf(hdrSubscription, subscription)
	f.AddIf(hdrTransaction, transaction)
	f.AddIf(hdrReceipt, receipt)
	return f
}

// Nack builds a NACK frame. The caller must ensure the negotiated
// version supports NACK (1.1+); Session enforces that before calling.
func Nack(messageID, subscription, transaction, receipt string) *Frame {
	f := NewFrame(cmdNack)
	f.Add(hdrMessageID, messageID)
	f.AddIf(hdrSubscription, subscription)
	f.AddIf(hdrTransaction, transaction)
	f.AddIf(hdrReceipt, receipt)
	return f
}

// Begin builds a BEGIN frame opening transaction id.
func Begin(id, receipt string) *Frame {
	f := NewFrame(cmdBegin)
	f.Add(hdrTransaction, id)
	f.AddIf(hdrReceipt, receipt)
	return f
}

// Commit builds a COMMIT frame closing transaction id.
func Commit(id, receipt string) *Frame {
	f := NewFrame(cmdCommit)
	f.Add(hdrTransaction, id)
	f.AddIf(hdrReceipt, receipt)
	return f
}

// Abort builds an ABORT frame discarding transaction id.
func Abort(id, receipt string) *Frame {
	f := NewFrame(cmdAbort)
	f.Add(hdrTransaction, id)
	f.AddIf(hdrReceipt, receipt)
	return f
}

// Disconnect builds a DISCONNECT frame, optionally requesting a
// receipt so the caller can confirm an orderly shutdown (§4.6).
func Disconnect(receipt string) *Frame {
	f := NewFrame(cmdDisconnect)
	f.AddIf(hdrReceipt, receipt)
	return f
}

// Beat builds the heart-beat sentinel frame.
func Beat() *Frame { return NewFrame(cmdHeartbeat) }

// requireHeaders returns a ProtocolError if any of names is missing
// from f, naming the first one found absent.
func requireHeaders(f *Frame, names ...string) error {
	for _, n := range names {
		if _, ok := f.Get(n); !ok {
			return newProtocolError(f.Command, "missing required header "+n)
		}
	}
	return nil
}

// ValidateConnected checks an inbound CONNECTED frame. Per §4.5, the
// "version" header is optional on the wire (its absence means the
// broker negotiated 1.0); Session.HandleConnected applies that default
// once this has confirmed the frame is at least a well-formed
// CONNECTED. "session" and "server" are likewise optional (§3).
func ValidateConnected(f *Frame) error {
	if f.Command != cmdConnected {
		return newProtocolError(f.Command, "expected CONNECTED")
	}
	return nil
}

// ValidateMessage checks an inbound MESSAGE frame. Under 1.1, the
// subscription header is additionally mandatory (§4.5).
func ValidateMessage(f *Frame, v Version) error {
	if f.Command != cmdMessage {
		return newProtocolError(f.Command, "expected MESSAGE")
	}
	if err := requireHeaders(f, requiredHeaders[cmdMessage]...); err != nil {
		return err
	}
	if v != V1_0 {
		return requireHeaders(f, hdrSubscription)
	}
	return nil
}

// ValidateReceipt checks an inbound RECEIPT frame.
func ValidateReceipt(f *Frame) error {
	if f.Command != cmdReceipt {
		return newProtocolError(f.Command, "expected RECEIPT")
	}
	return requireHeaders(f, requiredHeaders[cmdReceipt]...)
}

// ValidateError checks an inbound ERROR frame. The message header is
// conventional, not mandatory (§4.7), so only the command is checked.
func ValidateError(f *Frame) error {
	if f.Command != cmdError {
		return newProtocolError(f.Command, "expected ERROR")
	}
	return nil
}
