package stomp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFrameHeaderFirstWins(t *testing.T) {
	f := NewFrame(cmdSend)
	f.Add(hdrDestination, "/queue/a")
	f.Add(hdrDestination, "/queue/b")

	if got, _ := f.Get(hdrDestination); got != "/queue/a" {
		t.Fatalf("Get(destination) = %q, want first occurrence /queue/a", got)
	}

	want := []HeaderField{
		{Name: hdrDestination, Value: "/queue/a"},
		{Name: hdrDestination, Value: "/queue/b"},
	}
	if diff := cmp.Diff(want, f.HeaderList()); diff != "" {
		t.Fatalf("HeaderList mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameAddIfSkipsEmpty(t *testing.T) {
	f := NewFrame(cmdSubscribe)
	f.AddIf(hdrReceipt, "")
	f.AddIf(hdrAck, "client")

	if _, ok := f.Get(hdrReceipt); ok {
		t.Fatalf("AddIf added an empty-valued header")
	}
	if v, ok := f.Get(hdrAck); !ok || v != "client" {
		t.Fatalf("AddIf(ack, client) not recorded, got %q ok=%v", v, ok)
	}
}

func TestFrameClone(t *testing.T) {
	orig := NewFrame(cmdSend)
	orig.Add(hdrDestination, "/queue/a")
	orig.Body = []byte("payload")

	clone := orig.Clone()
	clone.Add(hdrDestination, "/queue/b")
	clone.Body[0] = 'P'

	if v, _ := orig.Get(hdrDestination); v != "/queue/a" {
		t.Fatalf("mutating clone's headers leaked into original: %q", v)
	}
	if orig.Body[0] != 'p' {
		t.Fatalf("mutating clone's body leaked into original: %q", orig.Body)
	}
}

func TestIsHeartbeat(t *testing.T) {
	if !Beat().IsHeartbeat() {
		t.Fatal("Beat() frame should report IsHeartbeat")
	}
	if NewFrame(cmdSend).IsHeartbeat() {
		t.Fatal("SEND frame should not report IsHeartbeat")
	}
}

func TestValidCommandToken(t *testing.T) {
	cases := map[string]bool{
		"SEND":  true,
		"":      false,
		"send":  false,
		"SEND1": false,
		"S END": false,
	}
	for in, want := range cases {
		if got := validCommandToken(in); got != want {
			t.Errorf("validCommandToken(%q) = %v, want %v", in, got, want)
		}
	}
}
