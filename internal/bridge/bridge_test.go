package bridge

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/cortexview/internal/engine/camera"
	"github.com/Faultbox/cortexview/internal/engine/input"
	"github.com/Faultbox/cortexview/internal/viewer"
	"github.com/Faultbox/cortexview/pkg/math"
)

type fakeViewer struct {
	mu      sync.Mutex
	posted  []input.Event
	camera  camera.State
	results chan viewer.EventResult
}

func newFakeViewer() *fakeViewer {
	return &fakeViewer{
		camera:  camera.State{Distance: 250, Azimuth: 0.5, Elevation: -0.25, Target: math.Vec3{X: 1, Y: 2, Z: 3}},
		results: make(chan viewer.EventResult, 8),
	}
}

func (f *fakeViewer) Post(e input.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, e)
}

func (f *fakeViewer) Posted() []input.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]input.Event(nil), f.posted...)
}

func (f *fakeViewer) CameraState() camera.State { return f.camera }

func (f *fakeViewer) Results() <-chan viewer.EventResult { return f.results }

func startServer(t *testing.T) (*Server, *fakeViewer, *httptest.Server) {
	t.Helper()
	fv := newFakeViewer()
	s := New(fv)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, fv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEventsArePosted(t *testing.T) {
	_, fv, ts := startServer(t)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"bogus"}`)))
	require.NoError(t, conn.WriteJSON(input.Event{Kind: input.EventClick, X: 3, Y: 4, Mods: input.ModShift}))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"key_down","key":"z","mods":2}`)))

	require.Eventually(t, func() bool { return len(fv.Posted()) == 2 }, time.Second, 5*time.Millisecond)
	posted := fv.Posted()
	assert.Equal(t, input.Event{Kind: input.EventClick, X: 3, Y: 4, Mods: input.ModShift}, posted[0])
	assert.Equal(t, input.EventKeyDown, posted[1].Kind)
	assert.Equal(t, "z", posted[1].Key)
}

func TestResultsAreBroadcast(t *testing.T) {
	s, fv, ts := startServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Broadcast(ctx)

	a, b := dial(t, ts), dial(t, ts)
	require.Eventually(t, func() bool { return s.Clients() == 2 }, time.Second, 5*time.Millisecond)

	vertex := uint32(42)
	fv.results <- viewer.EventResult{Kind: viewer.ResultPick, Pick: &viewer.PickInfo{Hit: true, Vertex: &vertex, Region: "insula"}}

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		var got viewer.EventResult
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, viewer.ResultPick, got.Kind)
		require.NotNil(t, got.Pick)
		require.NotNil(t, got.Pick.Vertex)
		assert.Equal(t, vertex, *got.Pick.Vertex)
		assert.Equal(t, "insula", got.Pick.Region)
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	s, _, ts := startServer(t)
	conn := dial(t, ts)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()
	require.Eventually(t, func() bool { return s.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCameraEndpoint(t *testing.T) {
	_, fv, ts := startServer(t)

	resp, err := http.Get(ts.URL + "/camera")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	q, err := url.ParseQuery(string(body))
	require.NoError(t, err)
	state, err := camera.DecodeState(q)
	require.NoError(t, err)
	assert.Equal(t, fv.camera, state)
}

func TestCameraEndpointRejectsPost(t *testing.T) {
	_, _, ts := startServer(t)
	resp, err := http.Post(ts.URL+"/camera", "text/plain", strings.NewReader("distance=1"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
