package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"releasecompass/internal/db"
	"releasecompass/internal/domain"
	"releasecompass/internal/engine"
	"releasecompass/internal/migrate"
)

type testEnv struct {
	Engine  engine.Engine
	Ctx     context.Context
	Project domain.Project
}

var testNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// releaseDate is 150 days out so every catalog due date lands in the future.
var releaseDate = testNow.AddDate(0, 0, 150)

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, nil)
	eng.Now = func() time.Time { return testNow }
	ctx := context.Background()
	p, _, err := eng.CreateProject(ctx, engine.ProjectCreateOptions{
		ArtistName:  "Nova Reyes",
		Title:       "Midnight Static",
		ReleaseType: "single",
		ReleaseDate: releaseDate.Format(time.RFC3339),
		TotalBudget: 10000,
		ClientID:    "manager",
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, Project: p}
}

func (env testEnv) milestone(t *testing.T, key string) domain.Milestone {
	t.Helper()
	m, err := env.Engine.Repo.GetMilestoneByKey(env.Ctx, env.Project.ID, key)
	if err != nil {
		t.Fatalf("milestone %s: %v", key, err)
	}
	return m
}

// meetQuota attaches exactly the required content to a milestone.
func (env testEnv) meetQuota(t *testing.T, m domain.Milestone) {
	t.Helper()
	reqs, err := env.Engine.Repo.ListContentRequirements(env.Ctx, m.ID)
	if err != nil {
		t.Fatalf("list requirements: %v", err)
	}
	for _, req := range reqs {
		for i := 0; i < req.MinCount; i++ {
			if _, err := env.Engine.AddContentItem(env.Ctx, engine.ContentItemOptions{
				ProjectID:   env.Project.ID,
				MilestoneID: m.ID,
				ContentType: req.ContentType,
				ClientID:    "manager",
			}); err != nil {
				t.Fatalf("add content: %v", err)
			}
		}
	}
}

func preconditionCode(t *testing.T, err error) string {
	t.Helper()
	var pe engine.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	return pe.Code
}

func TestCreateProjectInstantiatesCatalog(t *testing.T) {
	env := newTestEnv(t)
	milestones, err := env.Engine.Repo.ListMilestones(env.Ctx, env.Project.ID)
	if err != nil {
		t.Fatalf("list milestones: %v", err)
	}
	if len(milestones) != 8 {
		t.Fatalf("expected 8 catalog milestones, got %d", len(milestones))
	}
	rec := env.milestone(t, "recording_complete")
	if rec.Status != domain.MilestonePending || !rec.BlocksRelease || !rec.ProofRequired {
		t.Fatalf("recording milestone misconfigured: %+v", rec)
	}
	wantDue := releaseDate.AddDate(0, 0, -70).UTC().Format(time.RFC3339)
	if rec.DueDate != wantDue {
		t.Fatalf("due date %s, want %s", rec.DueDate, wantDue)
	}
	reqs, err := env.Engine.Repo.ListContentRequirements(env.Ctx, rec.ID)
	if err != nil || len(reqs) != 2 {
		t.Fatalf("recording requirements: %v %v", reqs, err)
	}
	press := env.milestone(t, "press_kit")
	if press.BlocksRelease {
		t.Fatalf("press kit must not block release")
	}
}

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []engine.ProjectCreateOptions{
		{ArtistName: "a", Title: "t", ReleaseType: "mixtape", ReleaseDate: releaseDate.Format(time.RFC3339), TotalBudget: 1},
		{ArtistName: "a", Title: "t", ReleaseType: "single", ReleaseDate: "2020-01-01T00:00:00Z", TotalBudget: 1},
		{ArtistName: "a", Title: "t", ReleaseType: "single", ReleaseDate: releaseDate.Format(time.RFC3339), TotalBudget: 0},
		{ArtistName: "", Title: "t", ReleaseType: "single", ReleaseDate: releaseDate.Format(time.RFC3339), TotalBudget: 1},
	}
	for i, opts := range cases {
		opts.ClientID = "manager"
		_, _, err := env.Engine.CreateProject(env.Ctx, opts)
		var ve engine.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestStartMilestoneTransitions(t *testing.T) {
	env := newTestEnv(t)
	m := env.milestone(t, "recording_complete")
	started, err := env.Engine.StartMilestone(env.Ctx, m.ID, "manager")
	if err != nil || started.Status != domain.MilestoneInProgress {
		t.Fatalf("start: %v %+v", err, started)
	}
	_, err = env.Engine.StartMilestone(env.Ctx, m.ID, "manager")
	if code := preconditionCode(t, err); code != "invalid_transition" {
		t.Fatalf("restart code %s", code)
	}
}

func TestCompleteMilestoneQuotaGate(t *testing.T) {
	env := newTestEnv(t)
	m := env.milestone(t, "recording_complete")
	_, err := env.Engine.CompleteMilestone(env.Ctx, m.ID, "manager")
	if code := preconditionCode(t, err); code != "quota_unmet" {
		t.Fatalf("expected quota_unmet, got %s", code)
	}
	env.meetQuota(t, m)
	done, err := env.Engine.CompleteMilestone(env.Ctx, m.ID, "manager")
	if err != nil {
		t.Fatalf("complete after quota: %v", err)
	}
	if done.Status != domain.MilestoneComplete || done.CompletedAt == nil {
		t.Fatalf("completion not recorded: %+v", done)
	}
	_, err = env.Engine.CompleteMilestone(env.Ctx, m.ID, "manager")
	if code := preconditionCode(t, err); code != "already_complete" {
		t.Fatalf("expected already_complete, got %s", code)
	}
}

func TestCompleteMasteringRequiresResolvedNotes(t *testing.T) {
	env := newTestEnv(t)
	m := env.milestone(t, "mastering_complete")
	env.meetQuota(t, m)

	_, err := env.Engine.CompleteMilestone(env.Ctx, m.ID, "manager")
	if code := preconditionCode(t, err); code != "master_missing" {
		t.Fatalf("expected master_missing, got %s", code)
	}

	master, err := env.Engine.RegisterFile(env.Ctx, engine.FileRegisterOptions{
		ProjectID: env.Project.ID, FileType: "master", ClientID: "engineer",
	})
	if err != nil {
		t.Fatalf("register master: %v", err)
	}
	if _, err := env.Engine.AddFileNote(env.Ctx, master.ID, 83.5, "vocal too low in bridge", "manager"); err != nil {
		t.Fatalf("add note: %v", err)
	}

	_, err = env.Engine.CompleteMilestone(env.Ctx, m.ID, "manager")
	if code := preconditionCode(t, err); code != "notes_unacknowledged" {
		t.Fatalf("expected notes_unacknowledged, got %s", code)
	}

	if _, err := env.Engine.AcknowledgeFileNotes(env.Ctx, master.ID, "engineer"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if _, err := env.Engine.CompleteMilestone(env.Ctx, m.ID, "manager"); err != nil {
		t.Fatalf("complete after acknowledgment: %v", err)
	}
}

func TestMasterNotesBlockEveryMilestone(t *testing.T) {
	env := newTestEnv(t)
	m := env.milestone(t, "artwork_final")
	env.meetQuota(t, m)

	master, err := env.Engine.RegisterFile(env.Ctx, engine.FileRegisterOptions{
		ProjectID: env.Project.ID, FileType: "master", ClientID: "engineer",
	})
	if err != nil {
		t.Fatalf("register master: %v", err)
	}
	if _, err := env.Engine.AddFileNote(env.Ctx, master.ID, 45, "limiter pumping on the chorus", "manager"); err != nil {
		t.Fatalf("add note: %v", err)
	}

	// Open mastering feedback blocks completions beyond mastering itself.
	_, err = env.Engine.CompleteMilestone(env.Ctx, m.ID, "manager")
	if code := preconditionCode(t, err); code != "notes_unacknowledged" {
		t.Fatalf("expected notes_unacknowledged on artwork, got %s", code)
	}

	if _, err := env.Engine.AcknowledgeFileNotes(env.Ctx, master.ID, "engineer"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if _, err := env.Engine.CompleteMilestone(env.Ctx, m.ID, "manager"); err != nil {
		t.Fatalf("complete after acknowledgment: %v", err)
	}
}

func TestAcknowledgeRules(t *testing.T) {
	env := newTestEnv(t)
	master, err := env.Engine.RegisterFile(env.Ctx, engine.FileRegisterOptions{
		ProjectID: env.Project.ID, FileType: "master", ClientID: "engineer",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = env.Engine.AcknowledgeFileNotes(env.Ctx, master.ID, "engineer")
	if code := preconditionCode(t, err); code != "no_notes" {
		t.Fatalf("expected no_notes, got %s", code)
	}

	if _, err := env.Engine.AddFileNote(env.Ctx, master.ID, 10, "tighten low end", "manager"); err != nil {
		t.Fatalf("add note: %v", err)
	}

	_, err = env.Engine.AcknowledgeFileNotes(env.Ctx, master.ID, "manager")
	var fe engine.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("non-uploader should be forbidden, got %v", err)
	}

	acked, err := env.Engine.AcknowledgeFileNotes(env.Ctx, master.ID, "engineer")
	if err != nil || !acked.NotesAcknowledged {
		t.Fatalf("uploader acknowledge: %v %+v", err, acked)
	}

	_, err = env.Engine.AcknowledgeFileNotes(env.Ctx, master.ID, "engineer")
	if code := preconditionCode(t, err); code != "already_acknowledged" {
		t.Fatalf("expected already_acknowledged, got %s", code)
	}

	// A fresh note reopens the loop.
	if _, err := env.Engine.AddFileNote(env.Ctx, master.ID, 95, "fade out earlier", "manager"); err != nil {
		t.Fatalf("second note: %v", err)
	}
	got, err := env.Engine.Repo.GetFile(env.Ctx, master.ID)
	if err != nil || got.NotesAcknowledged {
		t.Fatalf("new note should clear acknowledgment: %v %+v", err, got)
	}
	if _, err := env.Engine.AcknowledgeFileNotes(env.Ctx, master.ID, "engineer"); err != nil {
		t.Fatalf("re-acknowledge: %v", err)
	}
}

func TestAddBudgetItemRequiresReceipt(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.AddBudgetItem(env.Ctx, engine.BudgetItemOptions{
		ProjectID: env.Project.ID, Category: "production", Amount: 500, ClientID: "manager",
	})
	if code := preconditionCode(t, err); code != "receipt_required" {
		t.Fatalf("expected receipt_required, got %s", code)
	}

	// A non-receipt file does not count as evidence.
	artwork, err := env.Engine.RegisterFile(env.Ctx, engine.FileRegisterOptions{
		ProjectID: env.Project.ID, FileType: "artwork", ClientID: "manager",
	})
	if err != nil {
		t.Fatalf("register artwork: %v", err)
	}
	_, err = env.Engine.AddBudgetItem(env.Ctx, engine.BudgetItemOptions{
		ProjectID: env.Project.ID, Category: "production", Amount: 500,
		ReceiptFileID: artwork.ID, ClientID: "manager",
	})
	if code := preconditionCode(t, err); code != "receipt_required" {
		t.Fatalf("expected receipt_required for wrong file type, got %s", code)
	}

	receipt, err := env.Engine.RegisterFile(env.Ctx, engine.FileRegisterOptions{
		ProjectID: env.Project.ID, FileType: "receipts", ClientID: "manager",
	})
	if err != nil {
		t.Fatalf("register receipt: %v", err)
	}
	item, err := env.Engine.AddBudgetItem(env.Ctx, engine.BudgetItemOptions{
		ProjectID: env.Project.ID, Category: "production", Description: "studio day",
		Amount: 500, ReceiptFileID: receipt.ID, ClientID: "manager",
	})
	if err != nil || item.ApprovalStatus != "pending" {
		t.Fatalf("add with receipt: %v %+v", err, item)
	}

	sum, err := env.Engine.BudgetSummary(env.Ctx, env.Project.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalSpent != 500 || sum.Remaining != 9500 {
		t.Fatalf("summary totals: %+v", sum)
	}
}

func TestTeaserGateAndTiming(t *testing.T) {
	env := newTestEnv(t)
	m := env.milestone(t, "teaser_campaign")
	env.meetQuota(t, m)

	_, err := env.Engine.CompleteMilestone(env.Ctx, m.ID, "manager")
	if code := preconditionCode(t, err); code != "teaser_minimum_unmet" {
		t.Fatalf("expected teaser_minimum_unmet, got %s", code)
	}

	// Optimal window is [release-28d, release-21d].
	optimal := releaseDate.AddDate(0, 0, -25).Format(time.RFC3339)
	res, err := env.Engine.AddTeaserPost(env.Ctx, engine.TeaserPostOptions{
		ProjectID: env.Project.ID, Platform: "tiktok", PostURL: "https://tiktok.com/@nova/1",
		SnippetDuration: 15, PostedAt: optimal, ClientID: "manager",
	})
	if err != nil || res.Timing != "optimal" {
		t.Fatalf("optimal post: %v %+v", err, res)
	}

	early := releaseDate.AddDate(0, 0, -40).Format(time.RFC3339)
	res, err = env.Engine.AddTeaserPost(env.Ctx, engine.TeaserPostOptions{
		ProjectID: env.Project.ID, Platform: "instagram", PostURL: "https://instagram.com/p/2",
		SnippetDuration: 20, PostedAt: early, ClientID: "manager",
	})
	if err != nil {
		t.Fatalf("early post must be stored: %v", err)
	}
	if res.Timing != "early" || res.Advisory == "" {
		t.Fatalf("early post gets an advisory: %+v", res)
	}

	if _, err := env.Engine.CompleteMilestone(env.Ctx, m.ID, "manager"); err != nil {
		t.Fatalf("complete with 2 posts: %v", err)
	}

	st, err := env.Engine.TeaserStatus(env.Ctx, env.Project.ID)
	if err != nil || !st.Met || st.Posted != 2 {
		t.Fatalf("teaser status: %v %+v", err, st)
	}
}

func TestUpdateTeaserMetrics(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Engine.AddTeaserPost(env.Ctx, engine.TeaserPostOptions{
		ProjectID: env.Project.ID, Platform: "youtube", PostURL: "https://youtu.be/x",
		SnippetDuration: 30, ClientID: "manager",
	})
	if err != nil {
		t.Fatalf("add post: %v", err)
	}
	updated, err := env.Engine.UpdateTeaserMetrics(env.Ctx, res.Post.ID,
		engine.TeaserMetrics{Views: 12000, Likes: 900, Shares: 40, Comments: 75}, "manager")
	if err != nil || updated.Views != 12000 || updated.Comments != 75 {
		t.Fatalf("update metrics: %v %+v", err, updated)
	}
}

func TestSetFileMetadataValidation(t *testing.T) {
	env := newTestEnv(t)
	master, err := env.Engine.RegisterFile(env.Ctx, engine.FileRegisterOptions{
		ProjectID: env.Project.ID, FileType: "master", ClientID: "engineer",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	explicit := false

	_, err = env.Engine.SetFileMetadata(env.Ctx, master.ID,
		domain.MasterMetadata{ISRC: "US-ABC-26-12345", Genre: "hip_hop", Explicit: &explicit}, "engineer")
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("hyphenated isrc should be rejected, got %v", err)
	}

	_, err = env.Engine.SetFileMetadata(env.Ctx, master.ID,
		domain.MasterMetadata{ISRC: "USABC2612345", Genre: "polka", Explicit: &explicit}, "engineer")
	if !errors.As(err, &ve) {
		t.Fatalf("unknown genre should be rejected, got %v", err)
	}

	_, err = env.Engine.SetFileMetadata(env.Ctx, master.ID,
		domain.MasterMetadata{ISRC: "USABC2612345", Genre: "hip_hop"}, "engineer")
	if !errors.As(err, &ve) {
		t.Fatalf("missing explicit flag should be rejected, got %v", err)
	}

	f, err := env.Engine.SetFileMetadata(env.Ctx, master.ID,
		domain.MasterMetadata{ISRC: "USABC2612345", Genre: "hip_hop", Explicit: &explicit}, "engineer")
	if err != nil || !f.MetadataComplete {
		t.Fatalf("valid metadata: %v %+v", err, f)
	}

	// Metadata applies to masters only.
	artwork, err := env.Engine.RegisterFile(env.Ctx, engine.FileRegisterOptions{
		ProjectID: env.Project.ID, FileType: "artwork", ClientID: "manager",
	})
	if err != nil {
		t.Fatalf("register artwork: %v", err)
	}
	_, err = env.Engine.SetFileMetadata(env.Ctx, artwork.ID,
		domain.MasterMetadata{ISRC: "USABC2612345", Genre: "hip_hop", Explicit: &explicit}, "manager")
	if !errors.As(err, &ve) {
		t.Fatalf("artwork metadata should be rejected, got %v", err)
	}
}

func TestProjectReadinessAggregates(t *testing.T) {
	env := newTestEnv(t)
	status, err := env.Engine.ProjectReadiness(env.Ctx, env.Project.ID)
	if err != nil {
		t.Fatalf("readiness: %v", err)
	}
	if status.Cleared {
		t.Fatalf("fresh project must not be cleared")
	}
	// The full catalog plus master, artwork, contracts all missing.
	if len(status.Reasons) < 10 {
		t.Fatalf("expected exhaustive reasons, got %v", status.Reasons)
	}
	if len(status.Missing.Milestones) != 8 {
		t.Fatalf("all 8 catalog milestones expected, got %v", status.Missing.Milestones)
	}
}

func TestLatestMasterGoverns(t *testing.T) {
	env := newTestEnv(t)
	m := env.milestone(t, "mastering_complete")
	env.meetQuota(t, m)

	first, err := env.Engine.RegisterFile(env.Ctx, engine.FileRegisterOptions{
		ProjectID: env.Project.ID, FileType: "master", ClientID: "engineer",
	})
	if err != nil {
		t.Fatalf("register first: %v", err)
	}
	if _, err := env.Engine.AddFileNote(env.Ctx, first.ID, 12, "rework intro", "manager"); err != nil {
		t.Fatalf("note: %v", err)
	}

	// Uploading a new master supersedes the noted one.
	env.Engine.Now = func() time.Time { return testNow.Add(time.Hour) }
	if _, err := env.Engine.RegisterFile(env.Ctx, engine.FileRegisterOptions{
		ProjectID: env.Project.ID, FileType: "master", ClientID: "engineer",
	}); err != nil {
		t.Fatalf("register second: %v", err)
	}
	if _, err := env.Engine.CompleteMilestone(env.Ctx, m.ID, "manager"); err != nil {
		t.Fatalf("latest master has no notes, completion should pass: %v", err)
	}
}

func TestActionItemsFeed(t *testing.T) {
	env := newTestEnv(t)
	m := env.milestone(t, "recording_complete")
	// Push the due date into the past to trigger an overdue action.
	past := testNow.AddDate(0, 0, -1).Format(time.RFC3339)
	if _, err := env.Engine.UpdateMilestoneDueDate(env.Ctx, m.ID, past, "manager"); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	items, err := env.Engine.ActionItems(env.Ctx, env.Project.ID)
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	if len(items) == 0 {
		t.Fatalf("expected actions for a fresh project with an overdue milestone")
	}
	if items[0].Type != "overdue_milestone" || items[0].Severity != "high" {
		t.Fatalf("overdue blocking milestone should lead the feed: %+v", items[0])
	}
	for _, it := range items {
		if it.Type == "overdue_milestone" && it.Dismissible {
			t.Fatalf("overdue actions are not dismissible")
		}
	}
}

func TestDeadlineAnalysisFlagsLateSchedule(t *testing.T) {
	env := newTestEnv(t)
	m := env.milestone(t, "artwork_final")
	late := releaseDate.AddDate(0, 0, -25).Format(time.RFC3339) // 10 days past recommended
	if _, err := env.Engine.UpdateMilestoneDueDate(env.Ctx, m.ID, late, "manager"); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	analysis, err := env.Engine.DeadlineAnalysis(env.Ctx, env.Project.ID)
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	if analysis.OverallRisk != "critical" || !analysis.HasConflicts {
		t.Fatalf("late artwork should be critical: %+v", analysis)
	}
	var found bool
	for _, rec := range analysis.Milestones {
		if rec.MilestoneKey == "artwork_final" {
			found = true
			if rec.DaysDifference != 10 || rec.RiskLevel != "critical" {
				t.Fatalf("artwork recommendation: %+v", rec)
			}
		}
	}
	if !found {
		t.Fatalf("artwork milestone missing from analysis")
	}
}

func TestReassignContentItem(t *testing.T) {
	env := newTestEnv(t)
	rec := env.milestone(t, "recording_complete")
	mix := env.milestone(t, "mixing_complete")
	item, err := env.Engine.AddContentItem(env.Ctx, engine.ContentItemOptions{
		ProjectID: env.Project.ID, MilestoneID: rec.ID, ContentType: "short_video", ClientID: "manager",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	moved, err := env.Engine.ReassignContentItem(env.Ctx, item.ID, mix.ID, "manager")
	if err != nil || moved.MilestoneID == nil || *moved.MilestoneID != mix.ID {
		t.Fatalf("reassign: %v %+v", err, moved)
	}
	counts, err := env.Engine.Repo.CountContentByType(env.Ctx, mix.ID)
	if err != nil || counts["short_video"] != 1 {
		t.Fatalf("counts follow the item: %v %v", err, counts)
	}
	detached, err := env.Engine.ReassignContentItem(env.Ctx, item.ID, "", "manager")
	if err != nil || detached.MilestoneID != nil {
		t.Fatalf("detach: %v %+v", err, detached)
	}
}
