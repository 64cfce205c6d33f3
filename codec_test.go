package stomp

import (
	"bytes"
	"testing"
)

func TestCompileRoundTrip(t *testing.T) {
	f := NewFrame(cmdSend)
	f.Add(hdrDestination, "/queue/a")
	f.Body = []byte("hello")

	out, err := Compile(f, V1_1)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	p := NewParser(V1_1)
	p.Add(out)
	got, err := p.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil frame for complete input")
	}
	if got.Command != cmdSend {
		t.Fatalf("Command = %q, want SEND", got.Command)
	}
	if v, _ := got.Get(hdrDestination); v != "/queue/a" {
		t.Fatalf("destination = %q", v)
	}
	if string(got.Body) != "hello" {
		t.Fatalf("body = %q", got.Body)
	}
	if v, ok := got.Get(hdrContentLength); !ok || v != "5" {
		t.Fatalf("content-length = %q ok=%v, want 5", v, ok)
	}
}

func TestCompileHeaderEscaping11(t *testing.T) {
	f := NewFrame(cmdSend)
	f.Add(hdrDestination, "/queue/a")
	f.Add("x-note", "a:b\nc\\d")

	out, err := Compile(f, V1_1)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !bytes.Contains(out, []byte("x-note:a\\cb\\nc\\\\d\n")) {
		t.Fatalf("escaped header not found in output:\n%s", out)
	}

	p := NewParser(V1_1)
	p.Add(out)
	got, err := p.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v, _ := got.Get("x-note"); v != "a:b\nc\\d" {
		t.Fatalf("round-tripped header = %q, want %q", v, "a:b\nc\\d")
	}
}

func TestCompileRejectsUnescapableUnder10(t *testing.T) {
	f := NewFrame(cmdSend)
	f.Add(hdrDestination, "/queue/a")
	f.Add("x-note", "has:colon")

	if _, err := Compile(f, V1_0); err == nil {
		t.Fatal("expected error compiling a colon-valued header under STOMP 1.0")
	}
}

func TestParserSplitAcrossChunks(t *testing.T) {
	f := NewFrame(cmdSend)
	f.Add(hdrDestination, "/queue/a")
	f.Body = []byte("payload")
	whole, err := Compile(f, V1_1)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	p := NewParser(V1_1)
	for i := 0; i < len(whole); i++ {
		p.Add(whole[i : i+1])
		got, err := p.Get()
		if err != nil {
			t.Fatalf("Get at byte %d: %v", i, err)
		}
		if i < len(whole)-1 {
			if got != nil {
				t.Fatalf("Get returned a frame before input was complete (byte %d)", i)
			}
			continue
		}
		if got == nil {
			t.Fatalf("Get returned nil after full input delivered")
		}
		if string(got.Body) != "payload" {
			t.Fatalf("body = %q, want payload", got.Body)
		}
	}
}

func TestParserHeartbeatSentinel(t *testing.T) {
	p := NewParser(V1_1)
	p.Add([]byte("\n"))
	f, err := p.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if f == nil || !f.IsHeartbeat() {
		t.Fatalf("expected heartbeat sentinel frame, got %+v", f)
	}
}

func TestParserContentLengthOverrun(t *testing.T) {
	p := NewParser(V1_1)
	p.Add([]byte("SEND\ndestination:/queue/a\ncontent-length:3\n\nabcXYZ\x00"))
	if _, err := p.Get(); err == nil {
		t.Fatal("expected error for content-length not followed by NUL")
	}
	// parser stays poisoned
	if _, err := p.Get(); err == nil {
		t.Fatal("expected Parser to remain poisoned after a parse error")
	}
}

func TestParserNulDelimitedBodyNoContentLength(t *testing.T) {
	p := NewParser(V1_0)
	p.Add([]byte("MESSAGE\ndestination:/queue/a\nmessage-id:1\n\nhello world\x00"))
	f, err := p.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(f.Body) != "hello world" {
		t.Fatalf("body = %q", f.Body)
	}
}

func TestCompileHeartbeat(t *testing.T) {
	out, err := Compile(Beat(), V1_1)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !bytes.Equal(out, []byte("\n")) {
		t.Fatalf("heartbeat bytes = %q, want a single LF", out)
	}
}
