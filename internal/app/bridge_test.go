// ABOUTME: Tests for bridge orchestration
// ABOUTME: Drives OSC input end to end against an in-process device API
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hspbridge/hspbridge/internal/config"
	"github.com/hspbridge/hspbridge/internal/handy"
	"github.com/hspbridge/hspbridge/internal/version"
	goosc "github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves the endpoints used by a session and records added points
type fakeAPI struct {
	connected bool

	mu     sync.Mutex
	points []handy.Point
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method + " " + r.URL.Path {
	case "GET /connected":
		fmt.Fprintf(w, `{"result":{"connected":%v}}`, f.connected)
	case "PUT /mode", "PUT /slider/stroke":
		_, _ = io.WriteString(w, `{"result":{}}`)
	case "GET /slider/stroke":
		_, _ = io.WriteString(w, `{"result":{"min":0,"max":1}}`)
	case "PUT /hsp/setup", "PUT /hsp/play":
		_, _ = io.WriteString(w, `{"result":{"current_time":0}}`)
	case "PUT /hsp/add":
		var body struct {
			Points []handy.Point `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.points = append(f.points, body.Points...)
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"result":{"current_time":0}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"name":"NotFound","message":"no route"}}`)
	}
}

func (f *fakeAPI) Positions() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, p := range f.points {
		out = append(out, p.X)
	}
	return out
}

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func newBridge(t *testing.T, api *fakeAPI, observer func(int)) (*Bridge, int) {
	t.Helper()

	srv := httptest.NewUnstartedServer(api)
	srv.EnableHTTP2 = true
	srv.StartTLS()
	t.Cleanup(srv.Close)

	port := freeUDPPort(t)
	f, err := config.Parse([]byte(fmt.Sprintf(`
device: {connectionKey: key, applicationId: app, baseURL: %q}
osc: {port: %d}
stream: {pointsOffsetMs: 50, sendEveryMs: 20, minimalValueChange: 2}
sps: {type: penetrator}
`, srv.URL, port)))
	require.NoError(t, err)

	b, err := New(Config{
		File:      f,
		TLSConfig: srv.Client().Transport.(*http.Transport).TLSClientConfig.Clone(),
		Observer:  observer,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return b, port
}

func waitReady(t *testing.T, b *Bridge, errs <-chan error) {
	t.Helper()
	select {
	case <-b.Ready():
	case err := <-errs:
		t.Fatalf("bridge stopped early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("bridge not ready")
	}
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestBridgeStreamsOSCToDevice(t *testing.T) {
	api := &fakeAPI{connected: true}

	var mu sync.Mutex
	var observed []int
	b, port := newBridge(t, api, func(v int) {
		mu.Lock()
		defer mu.Unlock()
		observed = append(observed, v)
	})
	assert.NotEmpty(t, b.SessionID())

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- b.Run(ctx) }()
	waitReady(t, b, errs)

	client := goosc.NewClient("127.0.0.1", port)
	addr := "/avatar/parameters/OGB/Pen/Tip/PenOthers"
	require.NoError(t, client.Send(goosc.NewMessage(addr, float32(0.5))))
	require.Eventually(t, func() bool { return b.Pipeline().Stats().Accepted >= 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, client.Send(goosc.NewMessage(addr, float32(0.505))))
	require.NoError(t, client.Send(goosc.NewMessage(addr, float32(0.8))))

	require.Eventually(t, func() bool { return len(api.Positions()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []int{50, 20}, api.Positions())

	mu.Lock()
	assert.Equal(t, []int{50, 80}, observed)
	mu.Unlock()

	cancel()
	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop")
	}
}

func TestBridgeFailsWhenDeviceOffline(t *testing.T) {
	b, _ := newBridge(t, &fakeAPI{connected: false}, nil)

	err := b.Run(context.Background())
	assert.ErrorIs(t, err, handy.ErrNotConnected)
}

func TestReloadUpdatesPipeline(t *testing.T) {
	b, _ := newBridge(t, &fakeAPI{connected: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs := make(chan error, 1)
	go func() { errs <- b.Run(ctx) }()
	waitReady(t, b, errs)

	updated := *b.config.File
	interval := 40
	updated.Stream.SendEveryMs = &interval
	b.Reload(&updated)
	assert.Equal(t, 40*time.Millisecond, b.Pipeline().Config().SendInterval)

	broken := updated
	broken.SPS = config.SPS{Type: config.SPSOrifice, PenetratorLength: -1}
	b.Reload(&broken)
	assert.Equal(t, 40*time.Millisecond, b.Pipeline().Config().SendInterval)
	assert.Equal(t, &updated, b.config.File)
}

func TestRestartRequired(t *testing.T) {
	base := &config.File{
		Device:  config.Device{ConnectionKey: "key", ApplicationID: "app", RefreshEvery: 80},
		OSC:     config.OSC{Port: 9001, Parameter: "/avatar/parameters/x"},
		Monitor: config.Monitor{Enabled: true, Port: 9090},
	}

	refresh := *base
	refresh.Device.RefreshEvery = base.Device.RefreshEvery + 20
	assert.False(t, restartRequired(base, &refresh), "refresh threshold applies live")

	stream := *base
	interval := 75
	stream.Stream.SendEveryMs = &interval
	assert.False(t, restartRequired(base, &stream))

	key := *base
	key.Device.ConnectionKey = "other"
	assert.True(t, restartRequired(base, &key))

	port := *base
	port.OSC.Port = base.OSC.Port + 1
	assert.True(t, restartRequired(base, &port))

	mon := *base
	mon.Monitor.Enabled = !base.Monitor.Enabled
	assert.True(t, restartRequired(base, &mon))
}

func TestReloadAppliesRefreshThreshold(t *testing.T) {
	b, _ := newBridge(t, &fakeAPI{connected: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs := make(chan error, 1)
	go func() { errs <- b.Run(ctx) }()
	waitReady(t, b, errs)

	updated := *b.config.File
	updated.Device.RefreshEvery = 12
	b.Reload(&updated)
	assert.Equal(t, 12, b.Pipeline().Config().RefreshThreshold)
}

func TestAdvertiseText(t *testing.T) {
	file := &config.File{OSC: config.OSC{Parameter: "/avatar/parameters/x"}}

	text := advertiseText(file)
	assert.Contains(t, text, "parameter=/avatar/parameters/x")
	assert.Contains(t, text, "version="+version.Version)
	assert.Contains(t, text, "manufacturer="+version.Manufacturer)
}
