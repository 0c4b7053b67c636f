package config

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"releasecompass/internal/domain"
)

// Config models the release plan catalog: milestone templates, budget
// allocation guidance, teaser rules, and deadline buffers. It is stored per
// project in the database and seeded from the embedded default template.
type Config struct {
	Project struct {
		ID string `yaml:"id"`
	} `yaml:"project"`
	Milestones struct {
		Templates []MilestoneTemplate `yaml:"templates"`
	} `yaml:"milestones"`
	Budget struct {
		RecommendedFractions map[string]float64 `yaml:"recommended_fractions"`
		WarningThreshold     float64            `yaml:"warning_threshold"`
		CriticalThreshold    float64            `yaml:"critical_threshold"`
	} `yaml:"budget"`
	Teasers struct {
		MinimumPosts    int `yaml:"minimum_posts"`
		WindowOpenDays  int `yaml:"window_open_days"`
		WindowCloseDays int `yaml:"window_close_days"`
	} `yaml:"teasers"`
	Deadlines struct {
		TightBufferDays int `yaml:"tight_buffer_days"`
	} `yaml:"deadlines"`
	Metadata struct {
		Genres []string `yaml:"genres"`
	} `yaml:"metadata"`
}

type MilestoneTemplate struct {
	Key               string                `yaml:"key"`
	Name              string                `yaml:"name"`
	Description       string                `yaml:"description"`
	DaysBeforeRelease int                   `yaml:"days_before_release"`
	BufferDays        int                   `yaml:"buffer_days"`
	BlocksRelease     bool                  `yaml:"blocks_release"`
	ProofRequired     bool                  `yaml:"proof_required"`
	TeaserGate        bool                  `yaml:"teaser_gate"`
	Requirements      []RequirementTemplate `yaml:"requirements"`
}

type RequirementTemplate struct {
	ContentType string `yaml:"content_type"`
	MinCount    int    `yaml:"min_count"`
}

// Template returns the milestone template for a key, or nil.
func (c *Config) Template(key string) *MilestoneTemplate {
	for i := range c.Milestones.Templates {
		if c.Milestones.Templates[i].Key == key {
			return &c.Milestones.Templates[i]
		}
	}
	return nil
}

// BufferDaysFor returns the recommended lead time for a milestone key,
// falling back to the creation offset when no explicit buffer is set.
func (c *Config) BufferDaysFor(key string) int {
	t := c.Template(key)
	if t == nil {
		return 0
	}
	if t.BufferDays > 0 {
		return t.BufferDays
	}
	return t.DaysBeforeRelease
}

// ValidGenre reports whether the genre appears in the configured list.
func (c *Config) ValidGenre(genre string) bool {
	for _, g := range c.Metadata.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Project.ID == "" {
		return fmt.Errorf("config.project.id is required")
	}
	if len(c.Milestones.Templates) == 0 {
		return fmt.Errorf("config.milestones.templates is required")
	}
	seen := map[string]bool{}
	for _, t := range c.Milestones.Templates {
		if t.Key == "" {
			return fmt.Errorf("milestone template with empty key")
		}
		if seen[t.Key] {
			return fmt.Errorf("duplicate milestone template %s", t.Key)
		}
		seen[t.Key] = true
		if t.Name == "" {
			return fmt.Errorf("milestone template %s has no name", t.Key)
		}
		if t.DaysBeforeRelease <= 0 {
			return fmt.Errorf("milestone template %s needs days_before_release > 0", t.Key)
		}
		for _, req := range t.Requirements {
			if !domain.ValidContentType(req.ContentType) {
				return fmt.Errorf("milestone template %s requires unknown content type %s", t.Key, req.ContentType)
			}
			if req.MinCount <= 0 {
				return fmt.Errorf("milestone template %s has non-positive min_count for %s", t.Key, req.ContentType)
			}
		}
	}
	if len(c.Budget.RecommendedFractions) == 0 {
		return fmt.Errorf("config.budget.recommended_fractions is required")
	}
	sum := 0.0
	for cat, frac := range c.Budget.RecommendedFractions {
		if !domain.ValidBudgetCategory(cat) {
			return fmt.Errorf("recommended fraction for unknown category %s", cat)
		}
		if frac < 0 {
			return fmt.Errorf("negative recommended fraction for %s", cat)
		}
		sum += frac
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("recommended fractions must sum to 1.0, got %.4f", sum)
	}
	if c.Budget.WarningThreshold <= 0 || c.Budget.CriticalThreshold <= c.Budget.WarningThreshold {
		return fmt.Errorf("budget thresholds must satisfy 0 < warning < critical")
	}
	if c.Teasers.MinimumPosts < 1 {
		return fmt.Errorf("config.teasers.minimum_posts must be >= 1")
	}
	if c.Teasers.WindowOpenDays <= c.Teasers.WindowCloseDays {
		return fmt.Errorf("teaser window open must be further from release than close")
	}
	if c.Deadlines.TightBufferDays <= 0 {
		return fmt.Errorf("config.deadlines.tight_buffer_days must be > 0")
	}
	if len(c.Metadata.Genres) == 0 {
		return fmt.Errorf("config.metadata.genres is required")
	}
	return nil
}

// Default returns the default Config struct for a project.
func Default(projectID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, projectID))).Decode(&cfg)
	cfg.Project.ID = projectID
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `project:
  id: %s

milestones:
  templates:
    - key: recording_complete
      name: "Recording Complete"
      description: "All vocal and instrumental tracking finished"
      days_before_release: 70
      buffer_days: 70
      blocks_release: true
      proof_required: true
      requirements:
        - content_type: voice_memo
          min_count: 2
        - content_type: team_meeting
          min_count: 1
    - key: mixing_complete
      name: "Mixing Complete"
      description: "Final mix approved by the artist"
      days_before_release: 56
      buffer_days: 56
      blocks_release: true
      proof_required: true
      requirements:
        - content_type: short_video
          min_count: 1
    - key: mastering_complete
      name: "Mastering Complete"
      description: "Master delivered and feedback resolved"
      days_before_release: 42
      buffer_days: 42
      blocks_release: true
      proof_required: true
      requirements:
        - content_type: voice_memo
          min_count: 1
    - key: artwork_final
      name: "Artwork Finalized"
      description: "Cover art and alternates locked"
      days_before_release: 35
      buffer_days: 35
      blocks_release: true
      proof_required: true
      requirements:
        - content_type: photo
          min_count: 3
    - key: distribution_submitted
      name: "Distribution Submitted"
      description: "Release delivered to the distributor"
      days_before_release: 28
      buffer_days: 28
      blocks_release: true
      proof_required: false
    - key: teaser_campaign
      name: "Teaser Campaign Live"
      description: "Teaser posts published across platforms"
      days_before_release: 21
      buffer_days: 21
      blocks_release: true
      proof_required: false
      teaser_gate: true
      requirements:
        - content_type: short_video
          min_count: 3
        - content_type: photo
          min_count: 5
    - key: press_kit
      name: "Press Kit Ready"
      description: "Bio, photos, and one-sheet assembled"
      days_before_release: 14
      buffer_days: 14
      blocks_release: false
      proof_required: false
      requirements:
        - content_type: photo
          min_count: 2
    - key: release_day_prep
      name: "Release Day Prep"
      description: "Link roundup and day-of checklist confirmed"
      days_before_release: 3
      buffer_days: 3
      blocks_release: true
      proof_required: false
      requirements:
        - content_type: team_meeting
          min_count: 1

budget:
  recommended_fractions:
    production: 0.35
    marketing: 0.30
    content_creation: 0.10
    distribution: 0.10
    admin: 0.10
    contingency: 0.05
  warning_threshold: 1.0
  critical_threshold: 1.3

teasers:
  minimum_posts: 2
  window_open_days: 28
  window_close_days: 21

deadlines:
  tight_buffer_days: 7

metadata:
  genres:
    - hip_hop
    - r_and_b
    - pop
    - rock
    - electronic
    - country
    - latin
    - afrobeats
    - jazz
    - classical
    - other
`
