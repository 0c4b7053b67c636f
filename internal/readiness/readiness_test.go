package readiness

import (
	"strings"
	"testing"
	"time"

	"releasecompass/internal/domain"
)

func TestEvaluateQuotaNoRequirements(t *testing.T) {
	got := EvaluateQuota(nil, map[string]int{"photo": 3})
	if !got.QuotaMet {
		t.Fatalf("expected quota met with no requirements")
	}
}

func TestEvaluateQuotaPartial(t *testing.T) {
	reqs := []domain.ContentRequirement{
		{ContentType: "photo", MinCount: 10},
		{ContentType: "short_video", MinCount: 3},
	}
	got := EvaluateQuota(reqs, map[string]int{"photo": 10, "short_video": 1})
	if got.QuotaMet {
		t.Fatalf("expected quota unmet")
	}
	if got.Requirements[0].Met != true || got.Requirements[0].Missing != 0 {
		t.Fatalf("photo requirement misreported: %+v", got.Requirements[0])
	}
	if got.Requirements[1].Missing != 2 {
		t.Fatalf("expected 2 short_video missing, got %d", got.Requirements[1].Missing)
	}
	if !strings.Contains(got.Message, "short_video") {
		t.Fatalf("message should name the unmet type, got %q", got.Message)
	}
}

func TestEvaluateQuotaSurplus(t *testing.T) {
	reqs := []domain.ContentRequirement{{ContentType: "photo", MinCount: 2}}
	got := EvaluateQuota(reqs, map[string]int{"photo": 9})
	if !got.QuotaMet || got.Requirements[0].Actual != 9 {
		t.Fatalf("surplus should still meet quota: %+v", got)
	}
}

func TestEvaluateNotes(t *testing.T) {
	if st := EvaluateNotes(nil, 0); st.HasUnacknowledged {
		t.Fatalf("no file should never block")
	}
	f := &domain.File{ID: "f1", NotesAcknowledged: false}
	if st := EvaluateNotes(f, 2); !st.HasUnacknowledged {
		t.Fatalf("unacknowledged notes should block")
	}
	// Zero notes block nothing even with the flag unset.
	if st := EvaluateNotes(f, 0); st.HasUnacknowledged {
		t.Fatalf("zero notes should not block")
	}
	f.NotesAcknowledged = true
	if st := EvaluateNotes(f, 5); st.HasUnacknowledged {
		t.Fatalf("acknowledged notes should not block")
	}
}

func TestEvaluateTeasers(t *testing.T) {
	release := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	st := EvaluateTeasers(1, 2, release, 28, 21)
	if st.Met || st.Missing != 1 {
		t.Fatalf("one of two posts should be unmet: %+v", st)
	}
	st = EvaluateTeasers(2, 2, release, 28, 21)
	if !st.Met {
		t.Fatalf("two posts should satisfy the minimum")
	}
}

func TestClassifyPostTiming(t *testing.T) {
	release := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		daysBefore int
		want       string
	}{
		{35, "early"},
		{28, "optimal"},
		{25, "optimal"},
		{21, "optimal"},
		{10, "late"},
	}
	for _, c := range cases {
		posted := release.AddDate(0, 0, -c.daysBefore)
		got, _ := ClassifyPostTiming(posted, release, 28, 21)
		if got != c.want {
			t.Fatalf("%d days before: got %s want %s", c.daysBefore, got, c.want)
		}
	}
}

func testFractions() map[string]float64 {
	return map[string]float64{
		"production":       0.35,
		"marketing":        0.30,
		"content_creation": 0.10,
		"distribution":     0.10,
		"admin":            0.10,
		"contingency":      0.05,
	}
}

func TestAnalyzeBudgetTiers(t *testing.T) {
	spend := map[string]float64{
		"production": 3000, // recommended 3500 -> on-track
		"marketing":  3600, // recommended 3000 -> 120% warning
		"admin":      1400, // recommended 1000 -> 140% critical
	}
	sum := AnalyzeBudget(10000, spend, testFractions(), 1.0, 1.3)
	byCat := map[string]CategoryBreakdown{}
	for _, c := range sum.Categories {
		byCat[c.Category] = c
	}
	if byCat["production"].Status != "on-track" {
		t.Fatalf("production: %+v", byCat["production"])
	}
	if byCat["marketing"].Status != "warning" {
		t.Fatalf("marketing: %+v", byCat["marketing"])
	}
	if byCat["admin"].Status != "critical" {
		t.Fatalf("admin: %+v", byCat["admin"])
	}
	if byCat["contingency"].Status != "under" {
		t.Fatalf("no spend should read under: %+v", byCat["contingency"])
	}
	if sum.TotalSpent != 8000 || sum.Remaining != 2000 {
		t.Fatalf("totals wrong: spent=%.2f remaining=%.2f", sum.TotalSpent, sum.Remaining)
	}
	var critical int
	for _, a := range sum.Alerts {
		if a.Severity == "critical" {
			critical++
			if a.Category != "admin" {
				t.Fatalf("critical alert on wrong category: %+v", a)
			}
		}
	}
	if critical != 1 {
		t.Fatalf("expected exactly one critical alert, got %d", critical)
	}
}

func TestAnalyzeBudgetZeroRecommended(t *testing.T) {
	fractions := testFractions()
	fractions["contingency"] = 0
	spend := map[string]float64{"contingency": 50}
	sum := AnalyzeBudget(10000, spend, fractions, 1.0, 1.3)
	for _, c := range sum.Categories {
		if c.Category != "contingency" {
			continue
		}
		if c.PercentOfRecommended != 0 {
			t.Fatalf("zero recommended must not divide: %+v", c)
		}
	}
}

func TestClassifyRiskBoundaries(t *testing.T) {
	cases := []struct {
		diff int
		want string
	}{
		{-14, "safe"},
		{-7, "safe"},
		{-6, "tight"},
		{0, "tight"},
		{1, "risky"},
		{7, "risky"},
		{8, "critical"},
	}
	for _, c := range cases {
		if got := classifyRisk(c.diff, 7); got != c.want {
			t.Fatalf("diff %d: got %s want %s", c.diff, got, c.want)
		}
	}
}

func TestAnalyzeDeadlinesWorstTierWins(t *testing.T) {
	release := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	offsets := map[string]int{"mixing_complete": 56, "artwork_final": 35}
	recFor := func(key string) (time.Time, int, bool) {
		off, ok := offsets[key]
		if !ok {
			return time.Time{}, 0, false
		}
		return release.AddDate(0, 0, -off), 7, true
	}
	ms := []domain.Milestone{
		{ID: "m1", Key: "mixing_complete", Name: "Mixing Complete",
			DueDate: release.AddDate(0, 0, -66).Format(time.RFC3339)}, // 10 early -> safe
		{ID: "m2", Key: "artwork_final", Name: "Artwork Final",
			DueDate: release.AddDate(0, 0, -25).Format(time.RFC3339)}, // 10 late -> critical
	}
	got := AnalyzeDeadlines(ms, release, recFor, 7)
	if got.OverallRisk != "critical" {
		t.Fatalf("overall risk should be the worst tier, got %s", got.OverallRisk)
	}
	if !got.HasConflicts || got.ConflictCount != 1 {
		t.Fatalf("one conflict expected: %+v", got)
	}
	if got.Milestones[0].RiskLevel != "safe" || got.Milestones[0].DaysDifference != -10 {
		t.Fatalf("mixing misclassified: %+v", got.Milestones[0])
	}
}

func explicit(v bool) *bool { return &v }

func anyGenre(string) bool { return true }

func clearedFacts() ReleaseFacts {
	return ReleaseFacts{
		Milestones: []domain.Milestone{
			{Key: "mastering_complete", Name: "Mastering Complete", BlocksRelease: true, Status: domain.MilestoneComplete},
			{Key: "press_kit", Name: "Press Kit", BlocksRelease: false, Status: domain.MilestoneComplete},
		},
		Master:         &domain.File{ID: "f1", FileType: "master", NotesAcknowledged: true},
		MasterMetadata: &domain.MasterMetadata{ISRC: "USABC2612345", Genre: "hip_hop", Explicit: explicit(false)},
		HasArtwork:     true,
		HasContracts:   true,
		TotalBudget:    10000,
		TotalSpent:     8000,
	}
}

func TestEvaluateReleaseCleared(t *testing.T) {
	got := EvaluateRelease(clearedFacts(), anyGenre)
	if !got.Cleared {
		t.Fatalf("expected cleared, reasons: %v", got.Reasons)
	}
	if len(got.Reasons) != 1 {
		t.Fatalf("cleared verdict carries a single affirmative reason, got %v", got.Reasons)
	}
}

func TestEvaluateReleaseExhaustive(t *testing.T) {
	f := clearedFacts()
	f.Milestones[0].Status = domain.MilestoneInProgress
	f.Master.NotesAcknowledged = false
	f.MasterNoteCount = 1
	f.MasterMetadata = &domain.MasterMetadata{ISRC: "bad", Genre: ""}
	f.HasContracts = false
	f.TotalSpent = 12000
	got := EvaluateRelease(f, anyGenre)
	if got.Cleared {
		t.Fatalf("expected blocked")
	}
	// Exhaustive: every problem appears, not just the first.
	if len(got.Reasons) < 5 {
		t.Fatalf("expected all problems reported, got %v", got.Reasons)
	}
	if len(got.Missing.Milestones) != 1 || got.Missing.Milestones[0] != "mastering_complete" {
		t.Fatalf("missing milestones: %v", got.Missing.Milestones)
	}
	if len(got.Missing.Legal) != 1 {
		t.Fatalf("contracts should land in the legal bucket: %+v", got.Missing)
	}
	if len(got.Missing.Budget) != 1 {
		t.Fatalf("overspend should land in the budget bucket: %+v", got.Missing)
	}
}

func TestEvaluateReleaseChecksEveryMilestone(t *testing.T) {
	f := clearedFacts()
	// Even a milestone that does not gate its own completion against the
	// release must itself be complete before the project clears.
	f.Milestones[1].Status = domain.MilestonePending
	got := EvaluateRelease(f, anyGenre)
	if got.Cleared {
		t.Fatalf("pending press kit must block clearance")
	}
	if len(got.Missing.Milestones) != 1 || got.Missing.Milestones[0] != "press_kit" {
		t.Fatalf("missing milestones: %v", got.Missing.Milestones)
	}
}

func TestMetadataProblems(t *testing.T) {
	if got := MetadataProblems(nil, anyGenre); len(got) != 1 {
		t.Fatalf("nil metadata: %v", got)
	}
	md := &domain.MasterMetadata{ISRC: "US-ABC-26-12345", Genre: "hip_hop", Explicit: explicit(true)}
	got := MetadataProblems(md, anyGenre)
	if len(got) != 1 || got[0] != "isrc malformed" {
		t.Fatalf("hyphenated isrc should be rejected: %v", got)
	}
	md.ISRC = "USABC2612345"
	md.Explicit = nil
	got = MetadataProblems(md, anyGenre)
	if len(got) != 1 || got[0] != "explicit flag not set" {
		t.Fatalf("absent explicit flag should be reported: %v", got)
	}
}

func TestValidISRC(t *testing.T) {
	good := []string{"USABC2612345", "GB12A0000001", "FRZ039800212"}
	for _, c := range good {
		if !ValidISRC(c) {
			t.Fatalf("%s should be valid", c)
		}
	}
	bad := []string{"", "usabc2612345", "USABC26123456", "USABC261234", "12ABC2612345", "USABC26X2345"}
	for _, c := range bad {
		if ValidISRC(c) {
			t.Fatalf("%s should be invalid", c)
		}
	}
}

func TestBuildActionsOrdering(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	f := ActionFacts{
		ProjectID: "p1",
		Now:       now,
		Milestones: []domain.Milestone{
			{ID: "m1", Name: "Recording Complete", Status: domain.MilestoneInProgress, BlocksRelease: true,
				DueDate: now.AddDate(0, 0, -2).Format(time.RFC3339)},
			{ID: "m2", Name: "Artwork Final", Status: domain.MilestonePending, BlocksRelease: true, ProofRequired: true,
				DueDate: now.AddDate(0, 0, 20).Format(time.RFC3339)},
			{ID: "m3", Name: "Press Kit", Status: domain.MilestonePending,
				DueDate: now.AddDate(0, 0, 30).Format(time.RFC3339)},
		},
		Quotas: map[string]QuotaStatus{
			"m3": {QuotaMet: false, Message: "missing 2 photo"},
		},
		ProofCounts:  map[string]int{"m2": 0},
		UnackedFiles: []domain.File{{ID: "f1", FileType: "master"}},
		Alerts:       []BudgetAlert{{Category: "marketing", Severity: "critical", Message: "over"}},
	}
	items := BuildActions(f)
	if len(items) != 5 {
		t.Fatalf("expected 5 actions, got %d: %+v", len(items), items)
	}
	wantTypes := []string{"overdue_milestone", "missing_proof", "unacknowledged_notes", "budget_overrun", "quota_incomplete"}
	for i, w := range wantTypes {
		if items[i].Type != w {
			t.Fatalf("position %d: got %s want %s", i, items[i].Type, w)
		}
	}
	if items[0].Dismissible || items[2].Dismissible {
		t.Fatalf("overdue and note actions are not dismissible")
	}
	if !items[4].Dismissible || items[4].Severity != "low" {
		t.Fatalf("far-out quota action should be dismissible low: %+v", items[4])
	}
}

func TestBuildActionsCompleteMilestoneSilent(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	f := ActionFacts{
		ProjectID: "p1",
		Now:       now,
		Milestones: []domain.Milestone{
			{ID: "m1", Name: "Recording Complete", Status: domain.MilestoneComplete, BlocksRelease: true, ProofRequired: true,
				DueDate: now.AddDate(0, 0, -10).Format(time.RFC3339)},
		},
	}
	if items := BuildActions(f); len(items) != 0 {
		t.Fatalf("complete milestones produce no actions: %+v", items)
	}
}
