package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"releasecompass/internal/db"
	"releasecompass/internal/engine"
	"releasecompass/internal/migrate"
)

func signTestToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

var srvNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
var srvRelease = srvNow.AddDate(0, 0, 150)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, nil)
	e.Now = func() time.Time { return srvNow }
	handler, err := New(Config{Engine: e, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if _, ok := headers["X-Client-Id"]; !ok && headers == nil {
		req.Header.Set("X-Client-Id", "manager")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", string(data), err)
	}
	return v
}

func createProject(t *testing.T, srv *testServer) (string, map[string]string) {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/projects", map[string]any{
		"artist_name":  "Nova Reyes",
		"title":        "Midnight Static",
		"release_type": "single",
		"release_date": srvRelease.Format(time.RFC3339),
		"total_budget": 10000,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project: %d %s", res.StatusCode, string(data))
	}
	created := decode[struct {
		Project struct {
			ID string `json:"id"`
		} `json:"project"`
		Milestones []struct {
			ID  string `json:"id"`
			Key string `json:"key"`
		} `json:"milestones"`
	}](t, data)
	if len(created.Milestones) != 8 {
		t.Fatalf("expected catalog of 8 milestones, got %d", len(created.Milestones))
	}
	byKey := map[string]string{}
	for _, m := range created.Milestones {
		byKey[m.Key] = m.ID
	}
	return created.Project.ID, byKey
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	env := decode[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}](t, data)
	return env.Error.Code
}

func TestIdentityRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/projects", nil, map[string]string{})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d %s", res.StatusCode, string(data))
	}
	// Health stays open.
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, map[string]string{})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health should not require identity, got %d", res.StatusCode)
	}
}

func TestCompletionGateOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	projectID, milestones := createProject(t, srv)
	client := srv.Client()
	recID := milestones["recording_complete"]

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/milestones/"+recID+"/complete", nil, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("gate should refuse with 422, got %d %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "quota_unmet" {
		t.Fatalf("expected quota_unmet, got %s", code)
	}

	// Satisfy the recording quota: 2 voice memos, 1 team meeting.
	for _, ct := range []string{"voice_memo", "voice_memo", "team_meeting"} {
		res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+projectID+"/content", map[string]any{
			"milestone_id": recID,
			"content_type": ct,
		}, nil)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("add content: %d %s", res.StatusCode, string(data))
		}
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/milestones/"+recID+"/quota", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("quota: %d %s", res.StatusCode, string(data))
	}
	quota := decode[struct {
		QuotaMet bool `json:"quota_met"`
	}](t, data)
	if !quota.QuotaMet {
		t.Fatalf("quota should be met: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/milestones/"+recID+"/complete", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/milestones/"+recID+"/complete", nil, nil)
	if res.StatusCode != http.StatusUnprocessableEntity || errorCode(t, data) != "already_complete" {
		t.Fatalf("double completion: %d %s", res.StatusCode, string(data))
	}
}

func TestAcknowledgeFlowOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	projectID, _ := createProject(t, srv)
	client := srv.Client()
	engineerHdr := map[string]string{"X-Client-Id": "engineer"}
	managerHdr := map[string]string{"X-Client-Id": "manager"}

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+projectID+"/files",
		map[string]any{"file_type": "master"}, engineerHdr)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register master: %d %s", res.StatusCode, string(data))
	}
	master := decode[struct {
		ID string `json:"id"`
	}](t, data)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/files/"+master.ID+"/notes",
		map[string]any{"timestamp": 83.5, "text": "vocal low in bridge"}, managerHdr)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add note: %d %s", res.StatusCode, string(data))
	}

	// Only the uploader may acknowledge.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/files/"+master.ID+"/acknowledge", nil, managerHdr)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-uploader, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/files/"+master.ID+"/acknowledge", nil, engineerHdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("acknowledge: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/files/"+master.ID+"/acknowledge", nil, engineerHdr)
	if res.StatusCode != http.StatusUnprocessableEntity || errorCode(t, data) != "already_acknowledged" {
		t.Fatalf("redundant acknowledge: %d %s", res.StatusCode, string(data))
	}
}

func TestBudgetFlowOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	projectID, _ := createProject(t, srv)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+projectID+"/budget", map[string]any{
		"category": "marketing", "amount": 500, "receipt_file_id": "missing",
	}, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown receipt: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+projectID+"/files",
		map[string]any{"file_type": "receipts"}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register receipt: %d %s", res.StatusCode, string(data))
	}
	receipt := decode[struct {
		ID string `json:"id"`
	}](t, data)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+projectID+"/budget", map[string]any{
		"category": "marketing", "amount": 3600, "receipt_file_id": receipt.ID, "description": "ad buy",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add budget: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects/"+projectID+"/budget/summary", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("summary: %d %s", res.StatusCode, string(data))
	}
	sum := decode[struct {
		TotalSpent float64 `json:"total_spent"`
		Categories []struct {
			Category string `json:"category"`
			Status   string `json:"status"`
		} `json:"categories"`
	}](t, data)
	if sum.TotalSpent != 3600 {
		t.Fatalf("total spent: %+v", sum)
	}
	for _, c := range sum.Categories {
		// 3600 against a 3000 recommendation is 120%, inside the warning band.
		if c.Category == "marketing" && c.Status != "warning" {
			t.Fatalf("marketing status: %+v", c)
		}
	}
}

func TestReadinessAndActionsOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	projectID, _ := createProject(t, srv)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects/"+projectID+"/readiness", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("readiness: %d %s", res.StatusCode, string(data))
	}
	status := decode[struct {
		Cleared bool     `json:"cleared"`
		Reasons []string `json:"reasons"`
	}](t, data)
	if status.Cleared || len(status.Reasons) == 0 {
		t.Fatalf("fresh project should be blocked with reasons: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects/"+projectID+"/actions", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("actions: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects/"+projectID+"/deadlines", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("deadlines: %d %s", res.StatusCode, string(data))
	}
	analysis := decode[struct {
		OverallRisk string `json:"overall_risk"`
	}](t, data)
	// Catalog due dates equal the recommended dates, so the plan reads tight.
	if analysis.OverallRisk != "tight" {
		t.Fatalf("overall risk: %s", string(data))
	}
}

func TestTeaserFlowOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	projectID, _ := createProject(t, srv)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+projectID+"/teasers", map[string]any{
		"platform": "tiktok", "post_url": "https://tiktok.com/@nova/1", "snippet_duration": 15,
		"posted_at": srvRelease.AddDate(0, 0, -40).Format(time.RFC3339),
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add teaser: %d %s", res.StatusCode, string(data))
	}
	added := decode[struct {
		Timing   string `json:"timing"`
		Advisory string `json:"advisory"`
	}](t, data)
	if added.Timing != "early" || added.Advisory == "" {
		t.Fatalf("early advisory expected: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects/"+projectID+"/teasers/status", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: %d %s", res.StatusCode, string(data))
	}
	st := decode[struct {
		Posted  int  `json:"posted"`
		Met     bool `json:"met"`
		Missing int  `json:"missing"`
	}](t, data)
	if st.Posted != 1 || st.Met || st.Missing != 1 {
		t.Fatalf("teaser status: %s", string(data))
	}
}

func TestPathParamsBindOnBodyRoutes(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	projectID, milestones := createProject(t, srv)
	client := srv.Client()

	// Every route here takes a path parameter next to a JSON body; a 404
	// on any of them means the parameter did not bind.
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+projectID+"/files",
		map[string]any{"file_type": "receipts"}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("file register: %d %s", res.StatusCode, string(data))
	}
	receipt := decode[struct {
		ID string `json:"id"`
	}](t, data)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+projectID+"/content",
		map[string]any{"content_type": "photo"}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("content add: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+projectID+"/budget",
		map[string]any{"category": "production", "amount": 100, "receipt_file_id": receipt.ID}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("budget add: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+projectID+"/teasers",
		map[string]any{"platform": "youtube", "post_url": "https://youtu.be/x", "snippet_duration": 20}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("teaser add: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/milestones/"+milestones["press_kit"]+"/due-date",
		map[string]any{"due_date": srvRelease.AddDate(0, 0, -14).Format(time.RFC3339)}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("milestone reschedule: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+projectID+"/files",
		map[string]any{"file_type": "master"}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("master register: %d %s", res.StatusCode, string(data))
	}
	master := decode[struct {
		ID string `json:"id"`
	}](t, data)

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/files/"+master.ID+"/metadata",
		map[string]any{"isrc": "USABC2612345", "genre": "hip_hop", "explicit": false}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("file metadata: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/files/"+master.ID+"/notes",
		map[string]any{"timestamp": 12.0, "text": "check the fade"}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("file note: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects/"+projectID+"/events?limit=10", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events: %d %s", res.StatusCode, string(data))
	}
}

func TestJWTIdentity(t *testing.T) {
	srv, cleanup := newTestServerWithSecret(t, "test-secret")
	defer cleanup()
	token := signTestToken(t, "test-secret", "engineer")
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/projects", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("jwt identity: %d %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/projects", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token should 401, got %d", res.StatusCode)
	}
}

func newTestServerWithSecret(t *testing.T, secret string) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, nil)
	e.Now = func() time.Time { return srvNow }
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{JWTSecret: secret}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}
