package stomp

// State is a position in the session lifecycle (§5):
//
//	Initial -> Connecting -> Connected -> Disconnecting -> Disconnected
//
// An ERROR frame can also drive the session to Disconnected from
// Connected directly. A caller-initiated Reset returns the session to
// Initial from any state.
type State int

const (
	Initial State = iota
	Connecting
	Connected
	Disconnecting
	Disconnected
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is the client-side STOMP state machine: it builds outbound
// Frames and interprets inbound ones, tracking negotiated version,
// subscriptions, open transactions, and outstanding receipts. It
// performs no I/O and holds no connection; the caller is responsible
// for moving the Frames Session produces across whatever transport it
// chooses (§5, §9).
//
// Grounded on the teacher's Client in client.go: Session keeps its
// receipt bookkeeping (receipts.Mark/Clear) and its Tx-returning Begin,
// but every method that used to write to a Transport now just returns
// the Frame instead.
type Session struct {
	config  Config
	state   State
	version Version

	server    string
	sessionID string

	peerHeartBeat  HeartBeat
	effectiveBeats HeartBeat

	subs *subscriptionRegistry
	txs  *transactionRegistry

	pendingReceipts map[string]bool
	lastSubForMsg   map[string]string
}

// NewSession returns a Session in the Initial state, ready to build a
// CONNECT frame.
func NewSession(config Config) *Session {
	return &Session{
		config:          config,
		state:           Initial,
		subs:            newSubscriptionRegistry(),
		txs:             newTransactionRegistry(),
		pendingReceipts: make(map[string]bool),
		lastSubForMsg:   make(map[string]string),
	}
}

// State reports the session's current lifecycle position.
func (s *Session) State() State { return s.state }

// Version returns the wire version negotiated on CONNECTED. It is
// only meaningful once State is Connected or later.
func (s *Session) Version() Version { return s.version }

// Server returns the "server" header from CONNECTED, if the peer sent
// one (§4.2, supplemented: not every broker advertises it).
func (s *Session) Server() string { return s.server }

// SessionID returns the "session" header from CONNECTED, if present.
func (s *Session) SessionID() string { return s.sessionID }

// HeartBeat returns the negotiated send/recv intervals, the larger of
// what each side offered and the other was willing to receive.
// Transmitting heart-beats on this schedule is the transport's job;
// this core only computes the agreement (§1 Non-goals).
func (s *Session) HeartBeat() HeartBeat { return s.effectiveBeats }

func (s *Session) requireState(state State, action string) error {
	if s.state != state {
		return newStateError(s.state, action)
	}
	return nil
}

// Connect builds the CONNECT frame and moves the session to
// Connecting. It is only valid from Initial.
func (s *Session) Connect() (*Frame, error) {
	if err := s.requireState(Initial, "connect"); err != nil {
		return nil, err
	}
	versions := s.config.RequestedVersions
	if len(versions) == 0 {
		versions = []Version{V1_1, V1_0}
	}
	f := Connect(versions, s.config.Host, s.config.Login, s.config.Passcode, s.config.HeartBeat)
	s.state = Connecting
	return f, nil
}

// HandleConnected validates and applies an inbound CONNECTED frame,
// negotiating the wire version and heart-beat agreement, and moves
// the session to Connected. Only valid from Connecting.
func (s *Session) HandleConnected(f *Frame) error {
	if err := s.requireState(Connecting, "handle CONNECTED"); err != nil {
		return err
	}
	if err := ValidateConnected(f); err != nil {
		return err
	}
	got := Version(f.Header(hdrVersion))
	if got == "" {
		got = V1_0
	}
	versions := s.config.RequestedVersions
	if len(versions) == 0 {
		versions = []Version{V1_1, V1_0}
	}
	if !hasVersion(versions, got) {
		return newUnsupportedVersionError(versions, string(got))
	}
	s.version = got
	s.server = f.Header(hdrServer)
	s.sessionID = f.Header(hdrSession)
	s.peerHeartBeat = parseHeartBeat(f.Header(hdrHeartBeat))
	s.effectiveBeats = s.config.HeartBeat.Negotiate(s.peerHeartBeat)
	s.state = Connected
	return nil
}

// Subscribe builds a SUBSCRIBE frame for destination and registers
// the subscription. If token is empty, one is generated. ack selects
// the acknowledgement mode ("auto", "client", "client-individual");
// empty defaults to the broker's default ("auto").
func (s *Session) Subscribe(token, destination, ack string, extra []HeaderField) (*Frame, *Subscription, error) {
	if err := s.requireState(Connected, "subscribe"); err != nil {
		return nil, nil, err
	}
	if token == "" {
		id, err := newUUID()
		if err != nil {
			return nil, nil, err
		}
		token = id
	}
	sub := &Subscription{Token: token, Destination: destination, Ack: ack, Extra: extra}
	if err := s.subs.add(sub); err != nil {
		return nil, nil, err
	}
	return Subscribe(token, destination, ack, "", extra), sub, nil
}

// Unsubscribe builds an UNSUBSCRIBE frame for a registered token and
// deregisters it.
func (s *Session) Unsubscribe(token string) (*Frame, error) {
	if err := s.requireState(Connected, "unsubscribe"); err != nil {
		return nil, err
	}
	if _, err := s.subs.remove(token); err != nil {
		return nil, err
	}
	return Unsubscribe(token, ""), nil
}

// UnsubscribeDestination builds an UNSUBSCRIBE frame for the
// subscription registered against destination and deregisters it. It
// is the 1.0 fallback named in §4.5 for a subscription whose caller
// never synthesized a token; Subscribe in this package always does,
// so this exists for callers bridging in subscriptions tracked only
// by destination.
func (s *Session) UnsubscribeDestination(destination string) (*Frame, error) {
	if err := s.requireState(Connected, "unsubscribe"); err != nil {
		return nil, err
	}
	if _, err := s.subs.removeByDestination(destination); err != nil {
		return nil, err
	}
	return UnsubscribeDestination(destination, ""), nil
}

// Send builds a SEND frame outside of any transaction.
func (s *Session) Send(destination string, body []byte, contentType, receipt string, extra []HeaderField) (*Frame, error) {
	if err := s.requireState(Connected, "send"); err != nil {
		return nil, err
	}
	f := Send(destination, body, contentType, "", receipt, extra)
	s.trackReceipt(receipt)
	return f, nil
}

// sendIn builds a SEND frame scoped to transaction, for Tx.Send.
func (s *Session) sendIn(transaction, destination string, body []byte, contentType, receipt string, extra []HeaderField) (*Frame, error) {
	if err := s.requireState(Connected, "send"); err != nil {
		return nil, err
	}
	if !s.txs.isOpen(transaction) {
		return nil, ErrTxDone
	}
	f := Send(destination, body, contentType, transaction, receipt, extra)
	s.trackReceipt(receipt)
	return f, nil
}

// resolveSubscription returns subscription if non-empty, otherwise the
// token the session last observed on a MESSAGE for messageID (§4.5).
func (s *Session) resolveSubscription(messageID, subscription string) string {
	if subscription != "" {
		return subscription
	}
	return s.lastSubForMsg[messageID]
}

// Ack builds an ACK frame, resolving subscription from the last
// MESSAGE observed for messageID if the caller leaves it empty.
func (s *Session) Ack(messageID, subscription, receipt string) (*Frame, error) {
	if err := s.requireState(Connected, "ack"); err != nil {
		return nil, err
	}
	f := Ack(messageID, s.resolveSubscription(messageID, subscription), "", receipt)
	s.trackReceipt(receipt)
	return f, nil
}

func (s *Session) ackIn(transaction, messageID, subscription, receipt string) (*Frame, error) {
	if err := s.requireState(Connected, "ack"); err != nil {
		return nil, err
	}
	if !s.txs.isOpen(transaction) {
		return nil, ErrTxDone
	}
	f := Ack(messageID, s.resolveSubscription(messageID, subscription), transaction, receipt)
	s.trackReceipt(receipt)
	return f, nil
}

// Nack builds a NACK frame. The caller must be on a version that
// supports it (1.1+); this is a protocol error the Session rejects
// rather than silently emitting a frame the broker will refuse.
func (s *Session) Nack(messageID, subscription, receipt string) (*Frame, error) {
	if err := s.requireState(Connected, "nack"); err != nil {
		return nil, err
	}
	if s.version != nackSupportedFrom {
		return nil, newProtocolError(cmdNack, "NACK is not supported under STOMP 1.0")
	}
	f := Nack(messageID, s.resolveSubscription(messageID, subscription), "", receipt)
	s.trackReceipt(receipt)
	return f, nil
}

func (s *Session) nackIn(transaction, messageID, subscription, receipt string) (*Frame, error) {
	if err := s.requireState(Connected, "nack"); err != nil {
		return nil, err
	}
	if s.version != nackSupportedFrom {
		return nil, newProtocolError(cmdNack, "NACK is not supported under STOMP 1.0")
	}
	if !s.txs.isOpen(transaction) {
		return nil, ErrTxDone
	}
	f := Nack(messageID, s.resolveSubscription(messageID, subscription), transaction, receipt)
	s.trackReceipt(receipt)
	return f, nil
}

// Begin opens a new transaction, returning both the BEGIN frame and a
// Tx handle for the caller to drive Send/Ack/Nack/Commit/Abort
// through. If id is empty, one is generated.
func (s *Session) Begin(id, receipt string) (*Frame, *Tx, error) {
	if err := s.requireState(Connected, "begin"); err != nil {
		return nil, nil, err
	}
	if id == "" {
		gen, err := newUUID()
		if err != nil {
			return nil, nil, err
		}
		id = gen
	}
	if !s.txs.begin(id) {
		return nil, nil, newStateError(s.state, "begin transaction "+id+": already open")
	}
	s.trackReceipt(receipt)
	return Begin(id, receipt), &Tx{id: id, session: s}, nil
}

func (s *Session) commitTx(id, receipt string) (*Frame, error) {
	if err := s.requireState(Connected, "commit"); err != nil {
		return nil, err
	}
	if err := s.txs.end(id); err != nil {
		return nil, err
	}
	s.trackReceipt(receipt)
	return Commit(id, receipt), nil
}

func (s *Session) abortTx(id, receipt string) (*Frame, error) {
	if err := s.requireState(Connected, "abort"); err != nil {
		return nil, err
	}
	if err := s.txs.end(id); err != nil {
		return nil, err
	}
	s.trackReceipt(receipt)
	return Abort(id, receipt), nil
}

// Disconnect builds a DISCONNECT frame and moves the session to
// Disconnecting. The caller should treat a matching RECEIPT (or the
// underlying connection closing) as the signal the shutdown completed
// (§4.6).
func (s *Session) Disconnect(receipt string) (*Frame, error) {
	if err := s.requireState(Connected, "disconnect"); err != nil {
		return nil, err
	}
	s.state = Disconnecting
	s.trackReceipt(receipt)
	return Disconnect(receipt), nil
}

// Message validates an inbound MESSAGE frame and records its
// message-id -> subscription mapping, for later Ack/Nack calls that
// omit the subscription explicitly.
func (s *Session) Message(f *Frame) error {
	if err := ValidateMessage(f, s.version); err != nil {
		return err
	}
	if id := f.Header(hdrMessageID); id != "" {
		s.lastSubForMsg[id] = f.Header(hdrSubscription)
	}
	return nil
}

// Receipt validates an inbound RECEIPT frame and reports whether it
// matches a receipt id this session is waiting on.
func (s *Session) Receipt(f *Frame) error {
	if err := ValidateReceipt(f); err != nil {
		return err
	}
	id := f.Header(hdrReceiptID)
	if !s.pendingReceipts[id] {
		return newProtocolError(cmdReceipt, "receipt id "+id+" does not match any outstanding receipt")
	}
	delete(s.pendingReceipts, id)
	if s.state == Disconnecting {
		s.state = Disconnected
	}
	return nil
}

// Error validates an inbound ERROR frame and moves the session to
// Disconnected: per §4.7, an ERROR is always fatal to the connection.
func (s *Session) Error(f *Frame) error {
	if err := ValidateError(f); err != nil {
		return err
	}
	s.state = Disconnected
	return nil
}

func (s *Session) trackReceipt(receipt string) {
	if receipt != "" {
		s.pendingReceipts[receipt] = true
	}
}

// Replay returns every still-active subscription in original
// insertion order (§6: "Session.replay() → [Subscription]"), letting
// a caller rebuild its own SUBSCRIBE frames and contexts after a
// reconnect without going through Reset. Reset uses the same
// underlying order to build its SUBSCRIBE frames directly.
func (s *Session) Replay() []*Subscription {
	return s.subs.replay()
}

// Reset tears down everything the Session believes about the current
// connection — negotiated version, receipts, transactions — while
// keeping the subscription registry's insertion history, and returns
// fresh SUBSCRIBE frames that replay every still-active subscription
// in its original order (§4.4 supplement: a failover reconnect begins
// with a new CONNECT, followed by these frames, so the broker's view
// of live subscriptions matches the session's before it). Reset moves
// the session back to Initial, ready for Connect. It is the caller's
// explicit decision to call this — Session never resets itself.
func (s *Session) Reset() []*Frame {
	subs := s.subs.replay()
	frames := make([]*Frame, len(subs))
	for i, sub := range subs {
		frames[i] = Subscribe(sub.Token, sub.Destination, sub.Ack, "", sub.Extra)
	}
	s.txs.reset()
	s.pendingReceipts = make(map[string]bool)
	s.lastSubForMsg = make(map[string]string)
	s.version = ""
	s.server = ""
	s.sessionID = ""
	s.peerHeartBeat = HeartBeat{}
	s.effectiveBeats = HeartBeat{}
	s.state = Initial
	return frames
}
