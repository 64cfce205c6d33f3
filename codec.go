package stomp

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Compile serializes f into wire bytes for version v. It fails only
// for a command that is not a non-empty uppercase ASCII token, or for
// a header that cannot be represented under STOMP 1.0, which has no
// escaping.
//
// Compile never mutates f. If f carries a body and no content-length
// header, and f.Command is one of the binary-safe commands
// (SEND, MESSAGE, ERROR), a content-length header is synthesized for
// the emitted bytes only, satisfying the content-length safety
// property (§8) without the caller having to remember to set it.
func Compile(f *Frame, v Version) ([]byte, error) {
	if f.IsHeartbeat() {
		return []byte{'\n'}, nil
	}
	if !validCommandToken(f.Command) {
		return nil, newProtocolError(f.Command, "command must be a non-empty uppercase ASCII token")
	}

	headers := f.HeaderList()
	if _, ok := f.Get(hdrContentLength); !ok && len(f.Body) > 0 && binarySafe[f.Command] {
		headers = append(headers, HeaderField{Name: hdrContentLength, Value: strconv.Itoa(len(f.Body))})
	}

	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	escape := escapingEnabled(v)
	for _, h := range headers {
		name, value := h.Name, h.Value
		if escape {
			name = encodeHeaderComponent(name)
			value = encodeHeaderComponent(value)
		} else if strings.ContainsAny(name, ":\n") || strings.ContainsAny(value, ":\n") {
			return nil, newProtocolError(f.Command, fmt.Sprintf("header %q cannot be represented under STOMP 1.0", h.Name))
		}
		buf.WriteString(name)
		buf.WriteByte(':')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes(), nil
}

// encodeHeaderComponent applies the STOMP 1.1 escape rule on emit:
// the inverse of decodeHeaderComponent. Backslash must be encoded
// first or a later substitution's backslash would itself be escaped.
func encodeHeaderComponent(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, ":", "\\c")
	return s
}

// decodeHeaderComponent applies the STOMP 1.1 escape rule on receive:
// \n -> LF, \c -> ':', \\ -> '\'. Any other backslash sequence is a
// parse error (§4.1).
func decodeHeaderComponent(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var out strings.Builder
	out.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", errors.New("truncated escape sequence")
		}
		switch s[i] {
		case 'n':
			out.WriteByte('\n')
		case 'c':
			out.WriteByte(':')
		case '\\':
			out.WriteByte('\\')
		default:
			return "", errors.Errorf("invalid escape sequence \\%c", s[i])
		}
	}
	return out.String(), nil
}

// parserState tracks where in the grammar (§4.1) the Parser currently
// is: awaiting a command line, collecting headers, or reading a body.
type parserState int

const (
	stateAwaitCommand parserState = iota
	stateHeaders
	stateBody
)

// Parser incrementally decodes a byte stream into Frames. Add and Get
// may be called any number of times in any chunking; a frame split
// across calls parses identically to the same bytes delivered whole
// (§4.1, Round-trip 2). Parser is single-owner and performs no I/O.
type Parser struct {
	version Version

	buf []byte
	pos int // read cursor into buf
	off int // absolute stream offset of buf[0], for ParseError.Offset

	poisoned error

	state       parserState
	command     string
	headers     []HeaderField
	headerIndex map[string]int
	contentLen  int
	haveLen     bool
}

// NewParser returns a Parser that decodes frames at wire version v.
func NewParser(v Version) *Parser {
	return &Parser{version: v, state: stateAwaitCommand}
}

// Add appends b to the parser's internal buffer. It never blocks and
// never parses; call Get to pull completed frames out.
func (p *Parser) Add(b []byte) {
	if p.poisoned != nil || len(b) == 0 {
		return
	}
	p.buf = append(p.buf, b...)
}

// Get returns the next complete frame, or (nil, nil) if more bytes
// are needed. A non-nil error poisons the parser: every subsequent
// call to Get returns the same error, per §4.1 ("the parser does not
// automatically recover").
func (p *Parser) Get() (*Frame, error) {
	if p.poisoned != nil {
		return nil, p.poisoned
	}
	for {
		switch p.state {
		case stateAwaitCommand:
			f, done, err := p.scanCommandOrHeartbeat()
			if err != nil {
				return nil, p.poison(err)
			}
			if !done {
				p.compact()
				return nil, nil
			}
			if f != nil {
				p.compact()
				return f, nil
			}
			// command line consumed, fall through to header scanning
		case stateHeaders:
			done, err := p.scanHeaders()
			if err != nil {
				return nil, p.poison(err)
			}
			if !done {
				p.compact()
				return nil, nil
			}
		case stateBody:
			f, done, err := p.scanBody()
			if err != nil {
				return nil, p.poison(err)
			}
			if !done {
				p.compact()
				return nil, nil
			}
			p.resetFrameState()
			p.compact()
			return f, nil
		}
	}
}

// poison wraps err as a ParseError carrying the absolute byte offset
// the scan had reached, and latches it so every subsequent Get call
// returns the same failure (§4.1, §7: "the parser does not
// automatically recover").
func (p *Parser) poison(err error) error {
	pe := newParseError(p.off+p.pos, err.Error())
	p.poisoned = pe
	return pe
}

// compact discards already-consumed bytes so the buffer does not grow
// without bound across many Add/Get cycles.
func (p *Parser) compact() {
	if p.pos == 0 {
		return
	}
	p.off += p.pos
	p.buf = append(p.buf[:0], p.buf[p.pos:]...)
	p.pos = 0
}

func (p *Parser) resetFrameState() {
	p.command = ""
	p.headers = nil
	p.headerIndex = nil
	p.contentLen = 0
	p.haveLen = false
	p.state = stateAwaitCommand
}

// scanCommandOrHeartbeat consumes either a single heart-beat ("\n" or
// "\r\n") or a full command line. done is false when more bytes are
// needed; f is non-nil only for a heart-beat.
func (p *Parser) scanCommandOrHeartbeat() (f *Frame, done bool, err error) {
	if p.pos >= len(p.buf) {
		return nil, false, nil
	}
	switch p.buf[p.pos] {
	case '\n':
		p.pos++
		return NewFrame(cmdHeartbeat), true, nil
	case '\r':
		if p.pos+1 >= len(p.buf) {
			return nil, false, nil
		}
		if p.buf[p.pos+1] != '\n' {
			return nil, false, errors.New("stray CR before command")
		}
		p.pos += 2
		return NewFrame(cmdHeartbeat), true, nil
	}

	idx := bytes.IndexByte(p.buf[p.pos:], '\n')
	if idx < 0 {
		return nil, false, nil
	}
	line := p.buf[p.pos : p.pos+idx]
	line = bytes.TrimSuffix(line, []byte("\r"))
	command := string(line)
	if !validCommandToken(command) {
		return nil, true, errors.Errorf("malformed command token %q", command)
	}
	p.pos += idx + 1
	p.command = command
	p.headers = nil
	p.headerIndex = map[string]int{}
	p.state = stateHeaders
	return nil, true, nil
}

// scanHeaders consumes header lines until the blank line that ends
// the header block.
func (p *Parser) scanHeaders() (done bool, err error) {
	for {
		idx := bytes.IndexByte(p.buf[p.pos:], '\n')
		if idx < 0 {
			return false, nil
		}
		line := p.buf[p.pos : p.pos+idx]
		line = bytes.TrimSuffix(line, []byte("\r"))
		p.pos += idx + 1
		if len(line) == 0 {
			n, have, err := p.resolveContentLength()
			if err != nil {
				return false, err
			}
			p.contentLen, p.haveLen = n, have
			p.state = stateBody
			return true, nil
		}

		sep := bytes.IndexByte(line, ':')
		if sep < 0 {
			return false, errors.Errorf("header line %q missing ':'", line)
		}
		name, value := string(line[:sep]), string(line[sep+1:])
		if escapingEnabled(p.version) {
			name, err = decodeHeaderComponent(name)
			if err != nil {
				return false, errors.Wrapf(err, "header name %q", line[:sep])
			}
			value, err = decodeHeaderComponent(value)
			if err != nil {
				return false, errors.Wrapf(err, "header %q value", name)
			}
		}
		if _, ok := p.headerIndex[name]; !ok {
			p.headerIndex[name] = len(p.headers)
		}
		p.headers = append(p.headers, HeaderField{Name: name, Value: value})
	}
}

func (p *Parser) resolveContentLength() (int, bool, error) {
	i, ok := p.headerIndex[hdrContentLength]
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(p.headers[i].Value)
	if err != nil || n < 0 {
		return 0, false, errors.Errorf("invalid content-length %q", p.headers[i].Value)
	}
	return n, true, nil
}

// scanBody consumes the body and the terminating NUL, either reading
// exactly contentLen bytes (when content-length was present) or
// scanning for the first NUL.
func (p *Parser) scanBody() (f *Frame, done bool, err error) {
	if p.haveLen {
		need := p.pos + p.contentLen + 1
		if len(p.buf) < need {
			return nil, false, nil
		}
		body := p.buf[p.pos : p.pos+p.contentLen]
		if p.buf[p.pos+p.contentLen] != 0 {
			return nil, false, errors.New("content-length overrun: frame not NUL-terminated")
		}
		frame := p.buildFrame(body)
		p.pos = need
		return frame, true, nil
	}

	idx := bytes.IndexByte(p.buf[p.pos:], 0)
	if idx < 0 {
		return nil, false, nil
	}
	body := p.buf[p.pos : p.pos+idx]
	frame := p.buildFrame(body)
	p.pos += idx + 1
	return frame, true, nil
}

func (p *Parser) buildFrame(body []byte) *Frame {
	f := NewFrame(p.command)
	f.Body = append([]byte(nil), body...)
	for _, h := range p.headers {
		f.Add(h.Name, h.Value)
	}
	return f
}
