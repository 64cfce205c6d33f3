package stomp

// Version identifies a requested or negotiated STOMP wire version.
//
// Single source of truth for the enumerations every other component
// consults: command verbs, header names, required headers, the
// escaping rule, and the first version that supports NACK. Command
// verbs are grouped by origin (client or server) only; there is no
// per-version command set, and NACK's 1.1 gating via nackSupportedFrom
// is the only version-dependent command rule. No other file in this
// package hard-codes a verb string; other files compare versions only
// against the constants defined here.
type Version string

const (
	// V1_0 is STOMP 1.0: no header escaping, no mandatory subscription
	// id, no NACK.
	V1_0 Version = "1.0"

	// V1_1 is STOMP 1.1: header escaping, mandatory subscription id on
	// the wire, NACK, heart-beat negotiation.
	V1_1 Version = "1.1"
)

func (v Version) String() string { return string(v) }

// escapingEnabled reports whether header escaping applies when
// compiling or parsing frames at version v. Only 1.0 goes without it.
func escapingEnabled(v Version) bool { return v != V1_0 }

// Client-originated command verbs.
const (
	cmdConnect     = "CONNECT"
	cmdSend        = "SEND"
	cmdSubscribe   = "SUBSCRIBE"
	cmdUnsubscribe = "UNSUBSCRIBE"
	cmdAck         = "ACK"
	cmdNack        = "NACK"
	cmdBegin       = "BEGIN"
	cmdCommit      = "COMMIT"
	cmdAbort       = "ABORT"
	cmdDisconnect  = "DISCONNECT"
)

// Server-originated command verbs.
const (
	cmdConnected = "CONNECTED"
	cmdMessage   = "MESSAGE"
	cmdReceipt   = "RECEIPT"
	cmdError     = "ERROR"
)

// cmdHeartbeat is the sentinel command on a Frame produced by the
// parser (or accepted by the compiler) for a bare heart-beat byte.
const cmdHeartbeat = ""

// Header name constants, following wjmboss-stompngo's HK_* block.
const (
	hdrAcceptVersion = "accept-version"
	hdrAck           = "ack"
	hdrContentLength = "content-length"
	hdrContentType   = "content-type"
	hdrDestination   = "destination"
	hdrHeartBeat     = "heart-beat"
	hdrHost          = "host"
	hdrID            = "id"
	hdrLogin         = "login"
	hdrMessage       = "message"
	hdrMessageID     = "message-id"
	hdrPasscode      = "passcode"
	hdrReceipt       = "receipt"
	hdrReceiptID     = "receipt-id"
	hdrServer        = "server"
	hdrSession       = "session"
	hdrSubscription  = "subscription"
	hdrTransaction   = "transaction"
	hdrVersion       = "version"
)

// binarySafe names the commands whose body may contain arbitrary
// bytes and therefore get an automatic content-length on emit.
var binarySafe = map[string]bool{
	cmdSend:    true,
	cmdMessage: true,
	cmdError:   true,
}

// nackSupportedFrom is the first version that understands NACK and
// heart-beat bytes.
const nackSupportedFrom = V1_1

// requiredHeaders lists, per server-originated command, the headers
// that must be present regardless of version. MESSAGE additionally
// requires "subscription" from 1.1 on, handled separately since it is
// version-conditional (see commands.go).
var requiredHeaders = map[string][]string{
	cmdMessage: {hdrDestination, hdrMessageID},
	cmdReceipt: {hdrReceiptID},
}

// hasVersion reports whether v appears in the set.
func hasVersion(set []Version, v Version) bool {
	for _, x := range set {
		if x == v {
			return true
		}
	}
	return false
}
