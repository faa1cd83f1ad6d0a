package gateway

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient() *Client {
	return &Client{send: make(chan []byte, 64)}
}

func TestBuildEnvelope(t *testing.T) {
	ts := time.Date(2026, 3, 4, 22, 30, 0, 123456789, time.UTC)
	data := []byte(`{"symbol":"AAPL","close":103.5}`)

	buf := buildEnvelope("AAPL", data, ts, 7)

	var env struct {
		Symbol string          `json:"symbol"`
		Data   json.RawMessage `json:"data"`
		TS     time.Time       `json:"ts"`
		Seq    int64           `json:"seq"`
	}
	if err := json.Unmarshal(buf, &env); err != nil {
		t.Fatalf("envelope is not valid JSON: %v\n%s", err, buf)
	}
	if env.Symbol != "AAPL" {
		t.Errorf("symbol: got %q", env.Symbol)
	}
	if string(env.Data) != string(data) {
		t.Errorf("data: got %s, want %s", env.Data, data)
	}
	if !env.TS.Equal(ts) {
		t.Errorf("ts: got %v, want %v", env.TS, ts)
	}
	if env.Seq != 7 {
		t.Errorf("seq: got %d, want 7", env.Seq)
	}
}

func TestBroadcastFansOutToAllClients(t *testing.T) {
	h := NewHub(nil)
	c1 := newTestClient()
	c2 := newTestClient()
	h.clients[c1] = true
	h.clients[c2] = true

	h.Broadcast("AAPL", []byte(`{"symbol":"AAPL"}`))

	for i, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			var env struct {
				Symbol string `json:"symbol"`
				Seq    int64  `json:"seq"`
			}
			if err := json.Unmarshal(msg, &env); err != nil {
				t.Fatalf("client %d: bad envelope: %v", i, err)
			}
			if env.Symbol != "AAPL" || env.Seq != 1 {
				t.Errorf("client %d: got symbol=%q seq=%d", i, env.Symbol, env.Seq)
			}
		default:
			t.Errorf("client %d received nothing", i)
		}
	}
}

func TestBroadcastSequenceIncreases(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient()
	h.clients[c] = true

	h.Broadcast("AAPL", []byte(`{}`))
	h.Broadcast("MSFT", []byte(`{}`))

	var seqs []int64
	for i := 0; i < 2; i++ {
		msg := <-c.send
		var env struct {
			Seq int64 `json:"seq"`
		}
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatal(err)
		}
		seqs = append(seqs, env.Seq)
	}
	if seqs[0] != 1 || seqs[1] != 2 {
		t.Errorf("seqs: got %v, want [1 2]", seqs)
	}
}

func TestBroadcastSkipsSlowClients(t *testing.T) {
	h := NewHub(nil)
	slow := &Client{send: make(chan []byte)} // unbuffered, nobody reading
	fast := newTestClient()
	h.clients[slow] = true
	h.clients[fast] = true

	done := make(chan struct{})
	go func() {
		h.Broadcast("AAPL", []byte(`{}`))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a slow client")
	}
	select {
	case <-fast.send:
	default:
		t.Error("fast client received nothing")
	}
}

func TestAddClientReplaysLatest(t *testing.T) {
	h := NewHub(nil)
	h.Broadcast("AAPL", []byte(`{"symbol":"AAPL","close":103.5}`))

	c := newTestClient()
	h.AddClient(c)

	select {
	case msg := <-c.send:
		var env struct {
			Symbol string          `json:"symbol"`
			Data   json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("bad replay envelope: %v", err)
		}
		if env.Symbol != "AAPL" {
			t.Errorf("replay symbol: got %q", env.Symbol)
		}
	default:
		t.Fatal("new client did not receive the latest state")
	}

	if h.ClientCount() != 1 {
		t.Errorf("client count: got %d, want 1", h.ClientCount())
	}
	h.RemoveClient(c)
	if h.ClientCount() != 0 {
		t.Errorf("client count after remove: got %d, want 0", h.ClientCount())
	}
}
