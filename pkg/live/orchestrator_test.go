package live

import (
	"context"
	"sync"
	"testing"
	"time"

	werrors "github.com/liverelay/webcast/internal/errors"
)

// fakeConn is a scriptable Conn for registry and sweep tests.
type fakeConn struct {
	target string

	mu          sync.Mutex
	connected   bool
	eligible    bool
	connects    int
	connectErr  error
	finalClosed bool

	connectDelay time.Duration
	events       chan Event
}

func newFakeConn(target string) *fakeConn {
	return &fakeConn{target: target, events: make(chan Event, 8)}
}

func (f *fakeConn) Connect(ctx context.Context) error {
	if f.connectDelay > 0 {
		time.Sleep(f.connectDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	f.eligible = false
	return nil
}

func (f *fakeConn) Disconnect(preventReconnect bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	if preventReconnect {
		f.eligible = false
		f.finalClosed = true
	}
}

func (f *fakeConn) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeConn) ReconnectEligible() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eligible && !f.connected
}

func (f *fakeConn) Events() <-chan Event  { return f.events }
func (f *fakeConn) Target() string        { return f.target }
func (f *fakeConn) State() map[string]any { return map[string]any{} }

// drop marks the fake as fallen over, the way a socket loss would.
func (f *fakeConn) drop(err error) {
	f.mu.Lock()
	f.connected = false
	f.eligible = true
	f.connectErr = err
	f.mu.Unlock()
}

func (f *fakeConn) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// fakeFactory records every conn it builds.
type fakeFactory struct {
	mu    sync.Mutex
	built []*fakeConn
	delay time.Duration
}

func (ff *fakeFactory) factory(target string, onTerminal func()) (Conn, error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	fc := newFakeConn(target)
	fc.connectDelay = ff.delay
	ff.built = append(ff.built, fc)
	return fc, nil
}

func (ff *fakeFactory) count() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.built)
}

func newTestOrchestrator(grace time.Duration) (*Orchestrator, *fakeFactory) {
	ff := &fakeFactory{}
	o := NewOrchestrator(OrchestratorConfig{RemovalGrace: grace})
	o.RegisterPlatform(PlatformTikTok, ff.factory)
	return o, ff
}

func TestJoinReusesConnection(t *testing.T) {
	o, ff := newTestOrchestrator(0)

	first, err := o.Join(context.Background(), PlatformTikTok, "somecreator")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	second, err := o.Join(context.Background(), PlatformTikTok, "@somecreator")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if first != second {
		t.Error("expected the same connection for both joins")
	}
	if ff.count() != 1 {
		t.Errorf("factory built %d conns, want 1", ff.count())
	}
}

func TestConcurrentJoinsShareOneConnection(t *testing.T) {
	o, ff := newTestOrchestrator(0)
	ff.delay = 20 * time.Millisecond

	const joiners = 10
	conns := make([]Conn, joiners)
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := o.Join(context.Background(), PlatformTikTok, "somecreator")
			if err != nil {
				t.Errorf("Join: %v", err)
				return
			}
			conns[i] = conn
		}(i)
	}
	wg.Wait()

	if ff.count() != 1 {
		t.Fatalf("factory built %d conns, want 1", ff.count())
	}
	for i := 1; i < joiners; i++ {
		if conns[i] != conns[0] {
			t.Fatalf("joiner %d got a different connection", i)
		}
	}
}

func TestJoinUnknownPlatform(t *testing.T) {
	o := NewOrchestrator(OrchestratorConfig{})

	_, err := o.Join(context.Background(), PlatformKick, "someone")
	if err == nil {
		t.Fatal("expected error")
	}
	if code := werrors.CodeOf(err); code != werrors.CodeBadPlatform {
		t.Errorf("code = %q, want %q", code, werrors.CodeBadPlatform)
	}
}

func TestJoinDropsConnectionThatNeverWentLive(t *testing.T) {
	o := NewOrchestrator(OrchestratorConfig{})
	o.RegisterPlatform(PlatformTikTok, func(target string, onTerminal func()) (Conn, error) {
		fc := newFakeConn(target)
		fc.connectErr = werrors.New(werrors.CodeHandshake)
		return fc, nil
	})

	if _, err := o.Join(context.Background(), PlatformTikTok, "somecreator"); err == nil {
		t.Fatal("expected connect error")
	}
	if _, ok := o.Get(PlatformTikTok, "somecreator"); ok {
		t.Error("failed connection should not stay registered")
	}
}

func TestSweepReconnects(t *testing.T) {
	o, ff := newTestOrchestrator(0)

	conn, err := o.Join(context.Background(), PlatformTikTok, "somecreator")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	fc := ff.built[0]
	fc.drop(nil)

	o.Sweep(context.Background())

	if !conn.Connected() {
		t.Error("sweep should have reconnected the dropped connection")
	}
	if fc.connectCount() != 2 {
		t.Errorf("connects = %d, want 2", fc.connectCount())
	}
}

func TestSweepSkipsIneligibleConnections(t *testing.T) {
	o, ff := newTestOrchestrator(0)

	if _, err := o.Join(context.Background(), PlatformTikTok, "somecreator"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	fc := ff.built[0]
	fc.Disconnect(true)

	o.Sweep(context.Background())

	if fc.connectCount() != 1 {
		t.Errorf("connects = %d, want 1 (no revive after final disconnect)", fc.connectCount())
	}
}

func TestSweepRemovalWaitsForGrace(t *testing.T) {
	const grace = 80 * time.Millisecond
	o, ff := newTestOrchestrator(grace)

	if _, err := o.Join(context.Background(), PlatformTikTok, "somecreator"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	fc := ff.built[0]
	fc.drop(werrors.New(werrors.CodeHandshake))

	start := time.Now()
	o.Sweep(context.Background())

	// Still registered before the grace window ends.
	time.Sleep(grace / 3)
	if _, ok := o.Get(PlatformTikTok, "somecreator"); !ok {
		t.Fatal("connection removed before the grace window")
	}

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := o.Get(PlatformTikTok, "somecreator"); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("connection never removed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if elapsed := time.Since(start); elapsed < grace {
		t.Errorf("removed after %v, want at least %v", elapsed, grace)
	}

	fc.mu.Lock()
	closed := fc.finalClosed
	fc.mu.Unlock()
	if !closed {
		t.Error("expired connection should be shut down for good")
	}
}

func TestSweepRemovalCancelledByRecovery(t *testing.T) {
	const grace = 60 * time.Millisecond
	o, ff := newTestOrchestrator(grace)

	if _, err := o.Join(context.Background(), PlatformTikTok, "somecreator"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	fc := ff.built[0]
	fc.drop(werrors.New(werrors.CodeHandshake))

	o.Sweep(context.Background())

	// The connection recovers before the timer fires; rejoin disarms it.
	fc.mu.Lock()
	fc.connectErr = nil
	fc.mu.Unlock()
	if _, err := o.Join(context.Background(), PlatformTikTok, "somecreator"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}

	time.Sleep(2 * grace)
	if _, ok := o.Get(PlatformTikTok, "somecreator"); !ok {
		t.Error("recovered connection should stay registered")
	}
}

func TestSweepBoundedAttempts(t *testing.T) {
	o := NewOrchestrator(OrchestratorConfig{
		MaxReconnectAttempts: 2,
		RemovalGrace:         time.Hour, // keep removal out of the picture
	})
	ff := &fakeFactory{}
	o.RegisterPlatform(PlatformTikTok, ff.factory)

	if _, err := o.Join(context.Background(), PlatformTikTok, "somecreator"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	fc := ff.built[0]
	fc.drop(werrors.New(werrors.CodeHandshake))

	for i := 0; i < 5; i++ {
		o.Sweep(context.Background())
	}

	// One connect from the join, two from the bounded sweeps.
	if got := fc.connectCount(); got != 3 {
		t.Errorf("connects = %d, want 3", got)
	}
}

func TestTerminalCallbackRemovesConnection(t *testing.T) {
	o := NewOrchestrator(OrchestratorConfig{})
	var terminal func()
	o.RegisterPlatform(PlatformTikTok, func(target string, onTerminal func()) (Conn, error) {
		terminal = onTerminal
		return newFakeConn(target), nil
	})

	if _, err := o.Join(context.Background(), PlatformTikTok, "somecreator"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	terminal()

	if _, ok := o.Get(PlatformTikTok, "somecreator"); ok {
		t.Error("terminal callback should remove the connection")
	}
}

func TestConnectionsSnapshot(t *testing.T) {
	o, _ := newTestOrchestrator(0)
	if _, err := o.Join(context.Background(), PlatformTikTok, "bbb"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := o.Join(context.Background(), PlatformTikTok, "aaa"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	infos := o.Connections()
	if len(infos) != 2 {
		t.Fatalf("got %d entries, want 2", len(infos))
	}
	if infos[0].Target != "@aaa" || infos[1].Target != "@bbb" {
		t.Errorf("snapshot order = %q, %q", infos[0].Target, infos[1].Target)
	}
	if !infos[0].Connected {
		t.Error("expected connected entry")
	}
}
