package config

import (
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default("p1")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.Milestones.Templates) != 8 {
		t.Fatalf("expected 8 milestone templates, got %d", len(cfg.Milestones.Templates))
	}
	sum := 0.0
	for _, f := range cfg.Budget.RecommendedFractions {
		sum += f
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("fractions sum to %v", sum)
	}
}

func TestTemplateLookup(t *testing.T) {
	cfg := Default("p1")
	tpl := cfg.Template("mastering_complete")
	if tpl == nil {
		t.Fatal("mastering_complete template missing")
	}
	if tpl.DaysBeforeRelease != 42 {
		t.Fatalf("DaysBeforeRelease = %d", tpl.DaysBeforeRelease)
	}
	if !tpl.ProofRequired {
		t.Fatal("mastering requires proof")
	}
	if cfg.Template("nonexistent") != nil {
		t.Fatal("unknown key should return nil")
	}
}

func TestBufferDaysFor(t *testing.T) {
	cfg := Default("p1")
	if got := cfg.BufferDaysFor("artwork_final"); got != 35 {
		t.Fatalf("artwork buffer = %d", got)
	}
	if got := cfg.BufferDaysFor("nonexistent"); got != 0 {
		t.Fatalf("unknown key buffer = %d", got)
	}
	cfg.Milestones.Templates[0].BufferDays = 0
	if got := cfg.BufferDaysFor(cfg.Milestones.Templates[0].Key); got != cfg.Milestones.Templates[0].DaysBeforeRelease {
		t.Fatalf("zero buffer should fall back to creation offset, got %d", got)
	}
}

func TestValidGenre(t *testing.T) {
	cfg := Default("p1")
	if !cfg.ValidGenre("hip_hop") {
		t.Fatal("hip_hop should be valid")
	}
	if cfg.ValidGenre("vaporwave") {
		t.Fatal("vaporwave is not in the catalog")
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no project id", func(c *Config) { c.Project.ID = "" }, "project.id"},
		{"no templates", func(c *Config) { c.Milestones.Templates = nil }, "templates"},
		{"duplicate key", func(c *Config) {
			c.Milestones.Templates = append(c.Milestones.Templates, c.Milestones.Templates[0])
		}, "duplicate"},
		{"unknown content type", func(c *Config) {
			c.Milestones.Templates[0].Requirements[0].ContentType = "hologram"
		}, "unknown content type"},
		{"fractions do not sum", func(c *Config) {
			c.Budget.RecommendedFractions["production"] = 0.5
		}, "sum to 1.0"},
		{"inverted thresholds", func(c *Config) {
			c.Budget.CriticalThreshold = c.Budget.WarningThreshold
		}, "thresholds"},
		{"inverted teaser window", func(c *Config) {
			c.Teasers.WindowOpenDays = c.Teasers.WindowCloseDays
		}, "window"},
		{"no genres", func(c *Config) { c.Metadata.Genres = nil }, "genres"},
	}
	for _, tc := range cases {
		cfg := Default("p1")
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestFromYAML(t *testing.T) {
	if _, err := FromYAML([]byte("milestones: [")); err == nil {
		t.Fatal("malformed yaml should fail")
	}
	if _, err := FromYAML([]byte("project:\n  id: p1\n")); err == nil {
		t.Fatal("incomplete config should fail validation")
	}
}
