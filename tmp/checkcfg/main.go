package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"releasecompass/internal/config"
	"releasecompass/internal/db"
	"releasecompass/internal/engine"
	"releasecompass/internal/migrate"
	"releasecompass/internal/server"
)

func main() {
	workspace := "/tmp/releasecompass-check1"
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		panic(err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		panic(err)
	}
	cfg := config.Default("")
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	e := engine.New(conn, cfg)
	p, milestones, err := e.CreateProject(context.Background(), engine.ProjectCreateOptions{
		ArtistName:  "Check Artist",
		Title:       "Check Release",
		ReleaseType: "single",
		ReleaseDate: time.Now().AddDate(0, 0, 120).UTC().Format(time.RFC3339),
		TotalBudget: 5000,
		ClientID:    "tester",
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("project=%s milestones=%d\n", p.ID, len(milestones))

	h, err := server.New(server.Config{Engine: e, BasePath: "/v0"})
	if err != nil {
		panic(err)
	}
	ts := httptest.NewServer(h)
	defer ts.Close()

	body := map[string]any{
		"content_type":    "voice_memo",
		"capture_context": "studio",
	}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v0/projects/"+p.ID+"/content", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Id", "tester")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer res.Body.Close()
	var resp any
	_ = json.NewDecoder(res.Body).Decode(&resp)
	fmt.Printf("status=%d resp=%v\n", res.StatusCode, resp)
}
