package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"compquiz/internal/app"
	"compquiz/internal/domain"
	"compquiz/internal/infra/memory"
	redisinfra "compquiz/internal/infra/redis"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

func TestWebSocketPlaysFullRound(t *testing.T) {
	server, store := newTestServer(t)
	conn := dial(t, server, "/ws?set=general")

	idle := readState(t, conn, domain.PhaseIdle)
	if idle.SessionID == "" {
		t.Fatalf("expected session id in first state")
	}
	if store.Len() != 1 {
		t.Fatalf("expected one live session, got %d", store.Len())
	}

	sendIntent(t, conn, "start", nil)
	info := readState(t, conn, domain.PhaseInfo)
	if info.Total != 2 {
		t.Fatalf("expected 2 questions, got %d", info.Total)
	}

	sendIntent(t, conn, "continue", nil)
	q1 := readState(t, conn, domain.PhaseQuestion)
	if q1.Question == nil || q1.Question.Prompt != "What is 2 + 2?" || q1.Answer != "" {
		t.Fatalf("unexpected first question view: %+v", q1)
	}

	sendIntent(t, conn, "select", map[string]any{"option": "4"})
	answered := readState(t, conn, domain.PhaseAnswered)
	if !answered.Correct || answered.Score != 1 || answered.Answer != "4" {
		t.Fatalf("expected correct answer, got %+v", answered)
	}

	sendIntent(t, conn, "next", nil)
	readState(t, conn, domain.PhaseQuestion)
	sendIntent(t, conn, "select", map[string]any{"option": "Mars"})
	readState(t, conn, domain.PhaseAnswered)
	sendIntent(t, conn, "next", nil)
	result := readState(t, conn, domain.PhaseResult)
	if result.Score != 1 || result.Total != 2 {
		t.Fatalf("expected 1 of 2, got %+v", result)
	}

	resp, err := http.Get(server.URL + "/api/sessions/" + idle.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	defer resp.Body.Close()
	var snap domain.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Phase != domain.PhaseResult {
		t.Fatalf("expected result over http, got %s", snap.Phase)
	}
}

func TestWebSocketReportsUnknownSet(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server, "/ws?set=missing")

	readState(t, conn, domain.PhaseIdle)
	sendIntent(t, conn, "start", nil)
	failed := readState(t, conn, domain.PhaseError)
	if failed.Error == "" {
		t.Fatalf("expected error message in state")
	}
}

func TestWebSocketRejectsBadMessages(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server, "/ws")
	readState(t, conn, domain.PhaseIdle)

	sendIntent(t, conn, "dance", nil)
	if typ, _ := readNext(t, conn); typ != "error" {
		t.Fatalf("expected error for unsupported type, got %s", typ)
	}

	if err := conn.WriteJSON(map[string]any{"type": "select", "payload": "not-an-object"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	typ, payload := readNext(t, conn)
	if typ != "error" {
		t.Fatalf("expected error for bad payload, got %s", typ)
	}
	var msg errorPayload
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Message != errInvalidPayload.Error() {
		t.Fatalf("unexpected error payload %s", payload)
	}
}

func TestWebSocketIntentsKeepSessionLive(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := redisinfra.NewSessionStore(client, time.Minute)
	questions := memory.NewQuestionRepository(memory.NewStaticLoader(sampleSets()), time.Minute)
	service := app.NewQuizService(store, questions, app.NewClockScheduler(clockwork.NewFakeClock()), app.ServiceConfig{DefaultSet: "general"})
	server := httptest.NewServer(NewRouter(service, nil))
	defer server.Close()

	conn := dial(t, server, "/ws")
	idle := readState(t, conn, domain.PhaseIdle)
	key := "quiz:session:" + idle.SessionID

	mr.FastForward(50 * time.Second)
	sendIntent(t, conn, "start", nil)
	readState(t, conn, domain.PhaseInfo)
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("expected liveness refreshed to 1m, got %v", ttl)
	}

	// an idle minute drops the marker; the next intent restores it
	mr.FastForward(2 * time.Minute)
	sendIntent(t, conn, "continue", nil)
	readState(t, conn, domain.PhaseQuestion)
	if !mr.Exists(key) {
		t.Fatalf("expected marker restored for a live connection")
	}
}

func TestSessionEndpointNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/api/sessions/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.SessionStore) {
	t.Helper()
	store := memory.NewSessionStore()
	questions := memory.NewQuestionRepository(memory.NewStaticLoader(sampleSets()), time.Minute)
	// The fake clock never advances, so only explicit intents move the session.
	sched := app.NewClockScheduler(clockwork.NewFakeClock())
	service := app.NewQuizService(store, questions, sched, app.ServiceConfig{DefaultSet: "general"})

	server := httptest.NewServer(NewRouter(service, nil))
	t.Cleanup(server.Close)
	return server, store
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendIntent(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readState reads messages until a state in the wanted phase arrives.
func readState(t *testing.T, conn *websocket.Conn, want domain.Phase) domain.Snapshot {
	t.Helper()
	for i := 0; i < 10; i++ {
		typ, payload := readNext(t, conn)
		if typ != "state" {
			t.Fatalf("expected state message, got %s: %s", typ, payload)
		}
		var snap domain.Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if snap.Phase == want {
			return snap
		}
	}
	t.Fatalf("phase %s never arrived", want)
	return domain.Snapshot{}
}

func readNext(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

func sampleSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"general": {
			ID: "general",
			Questions: []domain.Question{
				{Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, Answer: "4"},
				{Prompt: "Largest planet?", Options: []string{"Mars", "Jupiter"}, Answer: "Jupiter"},
			},
		},
	}
}
