package majordomo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeController is a minimal in-process controller peer. It greets on
// connect, answers get_state with a canned snapshot, and records every
// set_state frame it receives.
type fakeController struct {
	t   *testing.T
	srv *httptest.Server

	connections   atomic.Int32
	stateRequests atomic.Int32

	garbage atomic.Bool // when true, each connection first sends an unparseable frame

	mu       sync.Mutex
	conns    []*websocket.Conn
	commands []ControlMessage
}

func newFakeController(t *testing.T) *fakeController {
	t.Helper()

	fc := &fakeController{t: t}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	fc.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fc.connections.Add(1)

		fc.mu.Lock()
		fc.conns = append(fc.conns, conn)
		fc.mu.Unlock()

		if fc.garbage.Load() {
			_ = conn.WriteMessage(websocket.TextMessage, []byte("not json at all"))
		}
		_ = conn.WriteJSON(Message{Hello: true, Note: "simulatore pronto"})

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var head struct {
				Method string `json:"method"`
			}
			if err := json.Unmarshal(data, &head); err != nil {
				continue
			}

			switch head.Method {
			case MethodGetState:
				fc.stateRequests.Add(1)
				_ = conn.WriteMessage(websocket.TextMessage,
					[]byte(`{"method":"get_state","data":`+snapshotDoc+`}`))
			case MethodSetState:
				var cmd ControlMessage
				if err := json.Unmarshal(data, &cmd); err == nil {
					fc.mu.Lock()
					fc.commands = append(fc.commands, cmd)
					fc.mu.Unlock()
				}
				_ = conn.WriteJSON(Message{OK: boolPtr(true)})
			}
		}
	}))

	t.Cleanup(fc.srv.Close)
	return fc
}

func boolPtr(b bool) *bool { return &b }

// url returns the ws:// address of the fake controller.
func (fc *fakeController) url() string {
	return "ws" + strings.TrimPrefix(fc.srv.URL, "http")
}

// dropConnections closes every accepted connection, simulating a link
// failure from the controller side.
func (fc *fakeController) dropConnections() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for _, conn := range fc.conns {
		conn.Close()
	}
	fc.conns = nil
}

func (fc *fakeController) lastCommand() (ControlMessage, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.commands) == 0 {
		return ControlMessage{}, false
	}
	return fc.commands[len(fc.commands)-1], true
}

// testLogger routes client logs through the test log for debugging.
type testLogger struct{ t *testing.T }

func (l testLogger) Debug(msg string, args ...any) { l.t.Logf("DEBUG %s %v", msg, args) }
func (l testLogger) Info(msg string, args ...any)  { l.t.Logf("INFO %s %v", msg, args) }
func (l testLogger) Warn(msg string, args ...any)  { l.t.Logf("WARN %s %v", msg, args) }
func (l testLogger) Error(msg string, args ...any) { l.t.Logf("ERROR %s %v", msg, args) }

func startTestClient(t *testing.T, fc *fakeController) *Client {
	t.Helper()

	client := New(Config{
		URL:             fc.url(),
		ClientID:        "bridge-test",
		RefreshInterval: 50 * time.Millisecond,
		ReconnectDelay:  50 * time.Millisecond,
	}, testLogger{t})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := client.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return client
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestClient_NotReadyBeforeFirstSnapshot(t *testing.T) {
	client := New(Config{URL: "ws://localhost:1"}, testLogger{t})

	if _, ok := client.Snapshot(); ok {
		t.Error("Snapshot() reported ready before any snapshot arrived")
	}
	if got := client.State(); got != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", got)
	}
}

func TestClient_SendWhileDisconnected(t *testing.T) {
	client := New(Config{URL: "ws://localhost:1"}, testLogger{t})

	err := client.Send(NewStateRequest("bridge"))
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
}

func TestClient_SyncsSnapshotOnConnect(t *testing.T) {
	fc := newFakeController(t)
	client := startTestClient(t, fc)

	waitFor(t, "first snapshot", func() bool {
		_, ok := client.Snapshot()
		return ok
	})

	snap, _ := client.Snapshot()
	if len(snap.Rooms) != 2 {
		t.Errorf("rooms = %d, want 2", len(snap.Rooms))
	}
	if got := client.State(); got != StateOpen {
		t.Errorf("State() = %v, want open", got)
	}
	if stats := client.Stats(); !stats.Ready || stats.SnapshotsReceived == 0 {
		t.Errorf("Stats() = %+v, want ready with snapshots", stats)
	}
}

func TestClient_PeriodicRefresh(t *testing.T) {
	fc := newFakeController(t)
	startTestClient(t, fc)

	// One request on connect, then the 50ms ticker keeps them coming.
	waitFor(t, "repeated state requests", func() bool {
		return fc.stateRequests.Load() >= 3
	})
}

func TestClient_RefreshDoesNotCountAsCommand(t *testing.T) {
	fc := newFakeController(t)
	client := startTestClient(t, fc)

	waitFor(t, "repeated state requests", func() bool {
		return fc.stateRequests.Load() >= 3
	})
	if got := client.Stats().CommandsSent; got != 0 {
		t.Errorf("CommandsSent = %d after refreshes only, want 0", got)
	}
}

func TestClient_DiscardsMalformedFrames(t *testing.T) {
	fc := newFakeController(t)
	fc.garbage.Store(true)
	client := startTestClient(t, fc)

	// The garbage frame is dropped silently and the snapshot still lands.
	waitFor(t, "snapshot despite garbage frame", func() bool {
		_, ok := client.Snapshot()
		return ok
	})
	if got := client.Stats().FramesDiscarded; got == 0 {
		t.Error("FramesDiscarded = 0, want at least 1")
	}
}

func TestClient_ReconnectsAfterLinkDrop(t *testing.T) {
	fc := newFakeController(t)
	client := startTestClient(t, fc)

	waitFor(t, "first connection", func() bool {
		_, ok := client.Snapshot()
		return ok
	})
	before := fc.stateRequests.Load()

	fc.dropConnections()

	// A new connection appears without intervention, and the client
	// re-issues the state request on it.
	waitFor(t, "reconnection", func() bool {
		return fc.connections.Load() >= 2
	})
	waitFor(t, "state request after reconnect", func() bool {
		return fc.stateRequests.Load() > before
	})

	// The cache keeps serving: readiness never reverts once achieved.
	if _, ok := client.Snapshot(); !ok {
		t.Error("Snapshot() not ready after reconnect")
	}
	if got := client.Stats().Reconnects; got == 0 {
		t.Error("Reconnects = 0, want at least 1")
	}
}

func TestClient_SendDeliversControlMessage(t *testing.T) {
	fc := newFakeController(t)
	client := startTestClient(t, fc)

	waitFor(t, "link open", func() bool {
		return client.State() == StateOpen
	})

	nr := 0
	msg := NewControlMessage("bridge-test",
		AddressCode{Porta: "/dev/ttyS1", Nodo: "4", Azione: "DO", Nr: &nr},
		true,
	)
	if err := client.Send(msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	waitFor(t, "command received by controller", func() bool {
		_, ok := fc.lastCommand()
		return ok
	})

	cmd, _ := fc.lastCommand()
	if cmd.Data.Codice.Porta != "/dev/ttyS1" {
		t.Errorf("codice.porta = %q", cmd.Data.Codice.Porta)
	}
	if cmd.Data.Stato != true {
		t.Errorf("stato = %v, want true", cmd.Data.Stato)
	}
}

func TestClient_ControlUsesClientIdentity(t *testing.T) {
	fc := newFakeController(t)
	client := startTestClient(t, fc)

	waitFor(t, "link open", func() bool {
		return client.State() == StateOpen
	})

	err := client.Control(AddressCode{Porta: BlindPort, Nome: "Tapparella Sud"}, 60)
	if err != nil {
		t.Fatalf("Control() error = %v", err)
	}

	waitFor(t, "command received by controller", func() bool {
		_, ok := fc.lastCommand()
		return ok
	})

	cmd, _ := fc.lastCommand()
	if cmd.Method != MethodSetState || cmd.ClientID != "bridge-test" {
		t.Errorf("frame = %+v, want set_state from bridge-test", cmd)
	}
	if cmd.Data.Codice.Nome != "Tapparella Sud" {
		t.Errorf("codice.nome = %q", cmd.Data.Codice.Nome)
	}
	if got := client.Stats().CommandsSent; got != 1 {
		t.Errorf("CommandsSent = %d, want 1", got)
	}
}

func TestClient_CloseStopsLoop(t *testing.T) {
	fc := newFakeController(t)
	client := startTestClient(t, fc)

	waitFor(t, "link open", func() bool {
		return client.State() == StateOpen
	})

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := client.State(); got != StateClosing {
		t.Errorf("State() after Close = %v, want closing", got)
	}

	// Close is idempotent.
	if err := client.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestClient_CloseDuringDial(t *testing.T) {
	// A server that sits on the handshake long enough for Close to run
	// while the dial is still in flight. The connection that eventually
	// comes up must be torn down, not read from.
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	client := New(Config{
		URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReconnectDelay: 50 * time.Millisecond,
	}, testLogger{t})
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Let the dial get underway, then close mid-handshake.
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		client.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close() did not return while a dial was in flight")
	}
	if got := client.State(); got != StateClosing {
		t.Errorf("State() after Close = %v, want closing", got)
	}
}

func TestClient_StartTwice(t *testing.T) {
	fc := newFakeController(t)
	client := startTestClient(t, fc)

	if err := client.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}
