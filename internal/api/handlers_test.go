package api

import (
    "bufio"
    "bytes"
    "context"
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/gorilla/websocket"
    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "ctrltune/internal/config"
)

func quietLogger() *logrus.Logger {
    l := logrus.New()
    l.SetOutput(io.Discard)
    return l
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
    t.Helper()
    cfg := config.Default()
    for _, m := range mutate { m(&cfg) }
    s, err := NewServer(cfg, quietLogger())
    if err != nil { t.Fatalf("NewServer: %v", err) }
    t.Cleanup(func() { _ = s.Close() })
    return s
}

func post(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
    t.Helper()
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    h(rr, req)
    return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
    t.Helper()
    var out map[string]any
    require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
    return out
}

const speedFocusedLookup = `{"vehicle":"e4","priorities":{"speed":9,"range":3,"acceleration":7,"efficiency":2},"conditions":{"temperature":70,"grade":0,"load":0}}`

func TestHealthReady(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
    if rr.Code != 200 { t.Fatalf("health: got %d", rr.Code) }
    rr = httptest.NewRecorder()
    s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
    if rr.Code != 200 { t.Fatalf("ready: got %d", rr.Code) }
}

func TestOptimizeRecordsRun(t *testing.T) {
    s := newTestServer(t)
    rr := post(t, s.OptimizeHandler, "/v1/optimize", `{"vehicle":{"model":"e4","motorCondition":"sparking"},"battery":{"chemistry":"lithium","voltage":72},"priorities":{"speed":9}}`)
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    body := decode(t, rr)
    runID, _ := body["runId"].(string)
    require.NotEmpty(t, runID)
    opt := body["optimizedSettings"].(map[string]any)
    assert.EqualValues(t, 20, opt["14"], "lithium IR compensation")
    assert.NotEmpty(t, body["performanceChanges"])
    assert.Equal(t, 1.0, body["confidence"])

    rr = httptest.NewRecorder()
    s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+runID, nil))
    require.Equal(t, http.StatusOK, rr.Code)
    run := decode(t, rr)
    assert.Equal(t, "optimize", run["source"])
    assert.Equal(t, "e4", run["vehicle"])

    rr = httptest.NewRecorder()
    s.RunsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs?vehicle=e4&limit=5", nil))
    require.Equal(t, http.StatusOK, rr.Code)
    assert.Len(t, decode(t, rr)["items"], 1)
}

func TestOptimizeRejectsBadInput(t *testing.T) {
    s := newTestServer(t)
    for name, body := range map[string]string{
        "malformed":     `{"vehicle":`,
        "unknown field": `{"vehicel":{"model":"e4"}}`,
        "weight":        `{"priorities":{"speed":11}}`,
        "chemistry":     `{"battery":{"chemistry":"nicad"}}`,
        "voltage":       `{"battery":{"voltage":36}}`,
        "terrain":       `{"environment":{"terrainClass":"lunar"}}`,
        "motor":         `{"vehicle":{"motorCondition":"smoking"}}`,
        "tire":          `{"wheel":{"tireDiameter":-1}}`,
    } {
        rr := post(t, s.OptimizeHandler, "/v1/optimize", body)
        assert.Equal(t, http.StatusBadRequest, rr.Code, name)
        assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"), name)
    }
    rr := httptest.NewRecorder()
    s.OptimizeHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/optimize", nil))
    assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestOptimizeAcceptsUnknownVehicle(t *testing.T) {
    s := newTestServer(t)
    rr := post(t, s.OptimizeHandler, "/v1/optimize", `{"vehicle":{"model":"golfkart"}}`)
    require.Equal(t, http.StatusOK, rr.Code)
    assert.Equal(t, "e4", decode(t, rr)["analysisData"].(map[string]any)["vehicleModel"])
}

func TestCacheLookupExactHit(t *testing.T) {
    s := newTestServer(t)
    rr := post(t, s.CacheLookupHandler, "/v1/cache/lookup", speedFocusedLookup)
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    body := decode(t, rr)
    assert.Equal(t, "e4_speed_focused_ideal", body["cacheKey"])
    assert.Equal(t, "exact", body["cacheHit"])
    assert.Equal(t, true, body["cached"])
    assert.Less(t, body["optimizedSettings"].(map[string]any)["6"].(float64), 65.0)
}

func TestCacheLookupMissAndResolve(t *testing.T) {
    s := newTestServer(t)
    const miss = `{"vehicle":"eS","priorities":{"speed":9},"conditions":{"temperature":70}}`
    rr := post(t, s.CacheLookupHandler, "/v1/cache/lookup", miss)
    assert.Equal(t, http.StatusNotFound, rr.Code)

    rr = post(t, s.CacheLookupHandler, "/v1/cache/lookup", strings.Replace(miss, `"vehicle"`, `"resolve":true,"vehicle"`, 1))
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    body := decode(t, rr)
    assert.Equal(t, "eS_speed_focused_ideal", body["cacheKey"])
    assert.Nil(t, body["cached"])

    rr = post(t, s.CacheLookupHandler, "/v1/cache/lookup", miss)
    require.Equal(t, http.StatusOK, rr.Code)
    assert.Equal(t, "exact", decode(t, rr)["cacheHit"])

    rr = httptest.NewRecorder()
    s.CacheStatsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil))
    require.Equal(t, http.StatusOK, rr.Code)
    stats := decode(t, rr)
    assert.EqualValues(t, 1, stats["userGenerated"])
    assert.EqualValues(t, 2, stats["misses"], "the 404 and the lookup inside resolve")
}

func TestCacheLookupValidation(t *testing.T) {
    s := newTestServer(t)
    assert.Equal(t, http.StatusBadRequest, post(t, s.CacheLookupHandler, "/v1/cache/lookup", `{"conditions":{}}`).Code)
    assert.Equal(t, http.StatusBadRequest, post(t, s.CacheLookupHandler, "/v1/cache/lookup", `{"vehicle":"e4","conditions":{"load":-5}}`).Code)
}

func TestCachePruneAndEntries(t *testing.T) {
    s := newTestServer(t)
    rr := post(t, s.CachePruneHandler, "/v1/admin/cache/prune", "")
    require.Equal(t, http.StatusOK, rr.Code)
    assert.EqualValues(t, 0, decode(t, rr)["removed"])

    rr = httptest.NewRecorder()
    s.CacheEntriesHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/cache/entries?vehicle=e2", nil))
    require.Equal(t, http.StatusOK, rr.Code)
    assert.Len(t, decode(t, rr)["items"], 49+4)
}

func TestReferenceData(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.FunctionsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/functions", nil))
    require.Equal(t, http.StatusOK, rr.Code)
    fns := decode(t, rr)["functions"].([]any)
    assert.Len(t, fns, 19)
    first := fns[0].(map[string]any)
    assert.Equal(t, "F.1", first["function"])
    assert.EqualValues(t, 15, first["min"])

    rr = httptest.NewRecorder()
    s.PresetsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/presets", nil))
    require.Equal(t, http.StatusOK, rr.Code)
    assert.Contains(t, decode(t, rr)["presets"], "track_day")
}

func TestRunNotFound(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil))
    assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOpenAPIJSON(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.OpenAPIJSONHandler(rr, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
    require.Equal(t, http.StatusOK, rr.Code)
    doc := decode(t, rr)
    assert.Equal(t, "3.0.3", doc["openapi"])
    assert.Contains(t, doc["paths"], "/v1/cache/lookup")
}

func TestRoutingAndRateLimit(t *testing.T) {
    s := newTestServer(t, func(c *config.Config) { c.Server.RateRPS = 0.001; c.Server.RateBurst = 1 })
    h := s.Handler()

    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil))
    assert.Equal(t, http.StatusOK, rr.Code)

    rr = httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil))
    assert.Equal(t, http.StatusTooManyRequests, rr.Code)

    rr = httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
    assert.Equal(t, http.StatusOK, rr.Code, "metrics are exempt")
    assert.Contains(t, rr.Body.String(), "http_rate_limited_total")
}

func TestEventsStreamDeliversOptimization(t *testing.T) {
    s := newTestServer(t)
    ts := httptest.NewServer(s.Handler())
    defer ts.Close()

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/events/stream?types=optimization.", nil)
    resp, err := http.DefaultClient.Do(req)
    require.NoError(t, err)
    defer resp.Body.Close()
    require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

    lines := bufio.NewScanner(resp.Body)
    require.True(t, lines.Scan())
    assert.Equal(t, "event: heartbeat", lines.Text())

    // a prune with nothing to remove publishes nothing; the optimize does
    presp, err := http.Post(ts.URL+"/v1/admin/cache/prune", "application/json", nil)
    require.NoError(t, err)
    presp.Body.Close()
    presp, err = http.Post(ts.URL+"/v1/optimize", "application/json", bytes.NewReader([]byte(`{"vehicle":{"model":"e6"}}`)))
    require.NoError(t, err)
    presp.Body.Close()

    for lines.Scan() {
        if strings.HasPrefix(lines.Text(), "event: ") && lines.Text() != "event: heartbeat" {
            assert.Equal(t, "event: optimization.completed", lines.Text())
            require.True(t, lines.Scan())
            assert.Contains(t, lines.Text(), `"vehicle":"e6"`)
            return
        }
    }
    t.Fatalf("stream ended without an event: %v", lines.Err())
}

func TestEventsWebSocket(t *testing.T) {
    s := newTestServer(t)
    ts := httptest.NewServer(s.Handler())
    defer ts.Close()

    c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/events/ws", nil)
    require.NoError(t, err)
    defer c.Close()
    _ = c.SetReadDeadline(time.Now().Add(5 * time.Second))

    require.NoError(t, c.WriteJSON(wsMessage{Type: "connection_init"}))
    var msg wsMessage
    require.NoError(t, c.ReadJSON(&msg))
    assert.Equal(t, "connection_ack", msg.Type)

    require.NoError(t, c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: []byte(`{"types":["cache."]}`)}))
    require.NoError(t, c.WriteJSON(wsMessage{Type: "ping"}))
    require.NoError(t, c.ReadJSON(&msg))
    require.Equal(t, "pong", msg.Type)

    resp, err := http.Post(ts.URL+"/v1/cache/lookup", "application/json", strings.NewReader(speedFocusedLookup))
    require.NoError(t, err)
    resp.Body.Close()

    require.NoError(t, c.ReadJSON(&msg))
    assert.Equal(t, "next", msg.Type)
    assert.Equal(t, "1", msg.ID)
    var evt SSEEvent
    require.NoError(t, json.Unmarshal(msg.Payload, &evt))
    assert.Equal(t, EventCacheHit, evt.Type)
    assert.Equal(t, "e4_speed_focused_ideal", evt.Data["key"])

    require.NoError(t, c.WriteJSON(wsMessage{Type: "complete", ID: "1"}))
    require.NoError(t, c.ReadJSON(&msg))
    assert.Equal(t, "complete", msg.Type)
}
