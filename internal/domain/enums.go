package domain

// Fixed enumerations shared by validation and the readiness evaluators.

const (
	MilestonePending    = "pending"
	MilestoneInProgress = "in_progress"
	MilestoneComplete   = "complete"
)

var MilestoneStatuses = []string{MilestonePending, MilestoneInProgress, MilestoneComplete}

var ReleaseTypes = []string{"single", "ep", "album"}

var ContentTypes = []string{
	"photo",
	"short_video",
	"long_video",
	"voice_memo",
	"live_performance",
	"team_meeting",
}

var FileTypes = []string{"master", "stems", "artwork", "contracts", "receipts"}

var BudgetCategories = []string{
	"production",
	"marketing",
	"content_creation",
	"distribution",
	"admin",
	"contingency",
}

var TeaserPlatforms = []string{"tiktok", "instagram", "youtube", "twitter", "facebook"}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func ValidReleaseType(v string) bool    { return contains(ReleaseTypes, v) }
func ValidContentType(v string) bool    { return contains(ContentTypes, v) }
func ValidFileType(v string) bool       { return contains(FileTypes, v) }
func ValidBudgetCategory(v string) bool { return contains(BudgetCategories, v) }
func ValidTeaserPlatform(v string) bool { return contains(TeaserPlatforms, v) }
