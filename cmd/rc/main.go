package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"releasecompass/internal/app"
	"releasecompass/internal/config"
	"releasecompass/internal/db"
	"releasecompass/internal/domain"
	"releasecompass/internal/engine"
	"releasecompass/internal/migrate"
	"releasecompass/internal/repo"
	"releasecompass/internal/server"
	"releasecompass/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "rc",
	Short: "ReleaseCompass CLI",
	Long: `ReleaseCompass tracks a music release from first recording to release day.
Core concepts:
- Workspace: your .releasecompass directory holding only the database; the
  milestone catalog is stored per project in the DB.
- Project: one release (single, EP, album) with its date and total budget.
- Milestones: the catalog of steps (recording, mixing, mastering, artwork,
  distribution, teasers, press kit, release prep), each with a due date
  derived from the release date.
- Content quotas: milestones demand captured content (photos, videos, voice
  memos, meetings) before they can be completed.
- Files: masters, stems, artwork, contracts, receipts. Mastering feedback is
  left as timestamped notes that the uploader must acknowledge.
- Budget: every spend entry needs a receipt file; summaries compare spend to
  the recommended allocation per category.
- Teasers: promotional posts counted against the campaign minimum, with an
  advisory posting window before release.
- Readiness: 'rc readiness' lists everything still blocking the release,
  'rc actions' turns it into a prioritized to-do feed.
- Event log: diary of changes, view with 'rc log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("RELEASECOMPASS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("client-id", "local-user", "client identifier")
	rootCmd.PersistentFlags().String("project", "", "project id (overrides the single-project default)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("client-id", rootCmd.PersistentFlags().Lookup("client-id"))
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
}

func registerCommands() {
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(milestoneCmd())
	rootCmd.AddCommand(contentCmd())
	rootCmd.AddCommand(fileCmd())
	rootCmd.AddCommand(budgetCmd())
	rootCmd.AddCommand(teaserCmd())
	rootCmd.AddCommand(readinessCmd())
	rootCmd.AddCommand(deadlinesCmd())
	rootCmd.AddCommand(actionsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage release projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectConfigCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var artist, title, releaseType, releaseDate, configPath string
	var budget float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a release project with its milestone catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.Config
			if configPath != "" {
				loaded, err := config.FromFile(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				e := engine.New(r.DB, cfg)
				p, milestones, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
					ArtistName:  artist,
					Title:       title,
					ReleaseType: releaseType,
					ReleaseDate: releaseDate,
					TotalBudget: budget,
					Config:      cfg,
					ClientID:    viper.GetString("client-id"),
				})
				if err != nil {
					return err
				}
				fmt.Printf("Created project %s (%s by %s), %d milestones\n", p.ID, p.Title, p.ArtistName, len(milestones))
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&artist, "artist", "", "artist name")
	cmd.Flags().StringVar(&title, "title", "", "release title")
	cmd.Flags().StringVar(&releaseType, "type", "single", "release type (single|ep|album)")
	cmd.Flags().StringVar(&releaseDate, "release-date", "", "release date (RFC3339)")
	cmd.Flags().Float64Var(&budget, "budget", 0, "total budget")
	cmd.Flags().StringVar(&configPath, "config", "", "milestone catalog YAML (defaults to the built-in catalog)")
	return cmd
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListProjects(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Artist", "Title", "Type", "Release", "Budget"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.ArtistName, p.Title, p.ReleaseType, p.ReleaseDate, p.TotalBudget})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				p, err := e.Repo.GetProject(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the active project's milestone catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				cfg, err := e.Repo.GetProjectConfig(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	}
}

func milestoneCmd() *cobra.Command {
	ms := &cobra.Command{Use: "milestone", Short: "Manage milestones"}
	ms.AddCommand(milestoneListCmd())
	ms.AddCommand(milestoneShowCmd())
	ms.AddCommand(milestoneQuotaCmd())
	ms.AddCommand(milestoneStartCmd())
	ms.AddCommand(milestoneCompleteCmd())
	ms.AddCommand(milestoneRescheduleCmd())
	return ms
}

func milestoneListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List milestones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				items, err := e.Repo.ListMilestones(ctx, projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Key", "Name", "Status", "Due", "Blocks", "Proof"})
				for _, m := range items {
					tw.AppendRow(table.Row{m.Key, m.Name, m.Status, m.DueDate, m.BlocksRelease, m.ProofRequired})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func milestoneShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id|key>",
		Short: "Show a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				m, err := resolveMilestone(ctx, e, projectID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	return cmd
}

func milestoneQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota <id|key>",
		Short: "Show a milestone's content quota",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				m, err := resolveMilestone(ctx, e, projectID, args[0])
				if err != nil {
					return err
				}
				quota, err := e.MilestoneQuota(ctx, m.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(quota)
			})
		},
	}
}

func milestoneStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <id|key>",
		Short: "Start a pending milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				m, err := resolveMilestone(ctx, e, projectID, args[0])
				if err != nil {
					return err
				}
				m, err = e.StartMilestone(ctx, m.ID, viper.GetString("client-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
}

func milestoneCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id|key>",
		Short: "Complete a milestone (runs the completion gate)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				m, err := resolveMilestone(ctx, e, projectID, args[0])
				if err != nil {
					return err
				}
				m, err = e.CompleteMilestone(ctx, m.ID, viper.GetString("client-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
}

func milestoneRescheduleCmd() *cobra.Command {
	var due string
	cmd := &cobra.Command{
		Use:   "reschedule <id|key>",
		Short: "Move a milestone's due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if due == "" {
				return fmt.Errorf("--due required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				m, err := resolveMilestone(ctx, e, projectID, args[0])
				if err != nil {
					return err
				}
				m, err = e.UpdateMilestoneDueDate(ctx, m.ID, due, viper.GetString("client-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "new due date (RFC3339)")
	return cmd
}

func contentCmd() *cobra.Command {
	ct := &cobra.Command{Use: "content", Short: "Manage content items"}
	ct.AddCommand(contentAddCmd())
	ct.AddCommand(contentListCmd())
	ct.AddCommand(contentReassignCmd())
	return ct
}

func contentAddCmd() *cobra.Command {
	var contentType, milestone, captureContext, storageKey, caption string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a captured content item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				milestoneID := ""
				if milestone != "" {
					m, err := resolveMilestone(ctx, e, projectID, milestone)
					if err != nil {
						return err
					}
					milestoneID = m.ID
				}
				ci, err := e.AddContentItem(ctx, engine.ContentItemOptions{
					ProjectID:      projectID,
					MilestoneID:    milestoneID,
					ContentType:    contentType,
					CaptureContext: captureContext,
					StorageKey:     storageKey,
					Caption:        caption,
					ClientID:       viper.GetString("client-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(ci)
			})
		},
	}
	cmd.Flags().StringVar(&contentType, "type", "", "content type (photo|short_video|long_video|voice_memo|live_performance|team_meeting)")
	cmd.Flags().StringVar(&milestone, "milestone", "", "milestone id or key to attach to")
	cmd.Flags().StringVar(&captureContext, "context", "", "capture context")
	cmd.Flags().StringVar(&storageKey, "key", "", "object storage key (defaults to the generated key)")
	cmd.Flags().StringVar(&caption, "caption", "", "caption")
	return cmd
}

func contentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List content items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				items, err := e.Repo.ListContentItems(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func contentReassignCmd() *cobra.Command {
	var milestone string
	cmd := &cobra.Command{
		Use:   "reassign <item-id>",
		Short: "Move a content item to another milestone (empty --milestone detaches)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				milestoneID := ""
				if milestone != "" {
					m, err := resolveMilestone(ctx, e, projectID, milestone)
					if err != nil {
						return err
					}
					milestoneID = m.ID
				}
				ci, err := e.ReassignContentItem(ctx, args[0], milestoneID, viper.GetString("client-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(ci)
			})
		},
	}
	cmd.Flags().StringVar(&milestone, "milestone", "", "target milestone id or key")
	return cmd
}

func fileCmd() *cobra.Command {
	f := &cobra.Command{Use: "file", Short: "Manage files and mastering notes"}
	f.AddCommand(fileRegisterCmd())
	f.AddCommand(fileListCmd())
	f.AddCommand(fileShowCmd())
	f.AddCommand(fileMetadataCmd())
	f.AddCommand(fileNoteCmd())
	f.AddCommand(fileNotesCmd())
	f.AddCommand(fileAckCmd())
	f.AddCommand(fileURLCmd())
	return f
}

func fileRegisterCmd() *cobra.Command {
	var fileType, storageKey string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an uploaded file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				f, err := e.RegisterFile(ctx, engine.FileRegisterOptions{
					ProjectID:  projectID,
					FileType:   fileType,
					StorageKey: storageKey,
					ClientID:   viper.GetString("client-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(f)
			})
		},
	}
	cmd.Flags().StringVar(&fileType, "type", "", "file type (master|stems|artwork|contracts|receipts)")
	cmd.Flags().StringVar(&storageKey, "key", "", "object storage key (defaults to the generated key)")
	return cmd
}

func fileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				items, err := e.Repo.ListFiles(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func fileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file-id>",
		Short: "Show a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				f, err := e.Repo.GetFile(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(f)
			})
		},
	}
}

func fileMetadataCmd() *cobra.Command {
	var isrc, genre string
	var explicit bool
	cmd := &cobra.Command{
		Use:   "metadata <file-id>",
		Short: "Set distribution metadata on a master file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md := domain.MasterMetadata{ISRC: isrc, Genre: genre}
			if cmd.Flags().Changed("explicit") {
				md.Explicit = &explicit
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				f, err := e.SetFileMetadata(ctx, args[0], md, viper.GetString("client-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(f)
			})
		},
	}
	cmd.Flags().StringVar(&isrc, "isrc", "", "ISRC code")
	cmd.Flags().StringVar(&genre, "genre", "", "genre")
	cmd.Flags().BoolVar(&explicit, "explicit", false, "explicit lyrics flag")
	return cmd
}

func fileNoteCmd() *cobra.Command {
	var at float64
	var text string
	cmd := &cobra.Command{
		Use:   "note <file-id>",
		Short: "Add a timestamped note to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				n, err := e.AddFileNote(ctx, args[0], at, text, viper.GetString("client-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(n)
			})
		},
	}
	cmd.Flags().Float64Var(&at, "at", 0, "timestamp in seconds")
	cmd.Flags().StringVar(&text, "text", "", "note text")
	return cmd
}

func fileNotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes <file-id>",
		Short: "List a file's notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				items, err := e.Repo.ListFileNotes(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func fileAckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <file-id>",
		Short: "Acknowledge a file's notes (uploader only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				f, err := e.AcknowledgeFileNotes(ctx, args[0], viper.GetString("client-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(f)
			})
		},
	}
}

func fileURLCmd() *cobra.Command {
	var upload bool
	cmd := &cobra.Command{
		Use:   "url <file-id>",
		Short: "Pre-signed download URL for a file (--upload for an upload URL)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				url, expiry, err := e.FileDownloadURL(ctx, args[0])
				if upload {
					url, expiry, err = e.FileUploadURL(ctx, args[0])
				}
				if err != nil {
					return err
				}
				fmt.Printf("%s\n(expires %s)\n", url, expiry.UTC().Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&upload, "upload", false, "sign an upload URL instead")
	return cmd
}

func budgetCmd() *cobra.Command {
	b := &cobra.Command{Use: "budget", Short: "Track spend"}
	b.AddCommand(budgetAddCmd())
	b.AddCommand(budgetListCmd())
	b.AddCommand(budgetSummaryCmd())
	return b
}

func budgetAddCmd() *cobra.Command {
	var category, description, receipt string
	var amount float64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record spend (requires a receipt file)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				item, err := e.AddBudgetItem(ctx, engine.BudgetItemOptions{
					ProjectID:     projectID,
					Category:      category,
					Description:   description,
					Amount:        amount,
					ReceiptFileID: receipt,
					ClientID:      viper.GetString("client-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "budget category")
	cmd.Flags().StringVar(&description, "description", "", "what the money bought")
	cmd.Flags().Float64Var(&amount, "amount", 0, "amount spent")
	cmd.Flags().StringVar(&receipt, "receipt", "", "receipt file id")
	return cmd
}

func budgetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List budget items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				items, err := e.Repo.ListBudgetItems(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func budgetSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Spend per category against the recommended allocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				sum, err := e.BudgetSummary(ctx, projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sum)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Category", "Spent", "Recommended", "% of rec.", "Status"})
				for _, c := range sum.Categories {
					tw.AppendRow(table.Row{c.Category, c.Spent, c.RecommendedAmount, fmt.Sprintf("%.0f%%", c.PercentOfRecommended), c.Status})
				}
				tw.AppendFooter(table.Row{"total", sum.TotalSpent, sum.TotalBudget, "", ""})
				tw.Render()
				for _, a := range sum.Alerts {
					fmt.Printf("[%s] %s: %s\n", a.Severity, a.Category, a.Message)
				}
				return nil
			})
		},
	}
}

func teaserCmd() *cobra.Command {
	t := &cobra.Command{Use: "teaser", Short: "Track the teaser campaign"}
	t.AddCommand(teaserAddCmd())
	t.AddCommand(teaserListCmd())
	t.AddCommand(teaserStatusCmd())
	t.AddCommand(teaserMetricsCmd())
	return t
}

func teaserAddCmd() *cobra.Command {
	var platform, postURL, section, postedAt string
	var duration int
	var presave bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a teaser post",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				res, err := e.AddTeaserPost(ctx, engine.TeaserPostOptions{
					ProjectID:       projectID,
					Platform:        platform,
					PostURL:         postURL,
					SnippetDuration: duration,
					SongSection:     section,
					PostedAt:        postedAt,
					HasPresaveLink:  presave,
					ClientID:        viper.GetString("client-id"),
				})
				if err != nil {
					return err
				}
				if res.Advisory != "" {
					fmt.Println("advisory:", res.Advisory)
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "platform (tiktok|instagram|youtube|twitter|facebook)")
	cmd.Flags().StringVar(&postURL, "url", "", "post URL")
	cmd.Flags().IntVar(&duration, "duration", 0, "snippet duration in seconds")
	cmd.Flags().StringVar(&section, "section", "", "song section teased")
	cmd.Flags().StringVar(&postedAt, "posted-at", "", "post time (RFC3339, defaults to now)")
	cmd.Flags().BoolVar(&presave, "presave", false, "post links to the presave page")
	return cmd
}

func teaserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List teaser posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				items, err := e.Repo.ListTeaserPosts(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func teaserStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Campaign progress and the recommended posting window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				st, err := e.TeaserStatus(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(st)
			})
		},
	}
}

func teaserMetricsCmd() *cobra.Command {
	var views, likes, shares, comments int64
	cmd := &cobra.Command{
		Use:   "metrics <post-id>",
		Short: "Update engagement metrics on a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				post, err := e.UpdateTeaserMetrics(ctx, args[0], engine.TeaserMetrics{
					Views:    views,
					Likes:    likes,
					Shares:   shares,
					Comments: comments,
				}, viper.GetString("client-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(post)
			})
		},
	}
	cmd.Flags().Int64Var(&views, "views", 0, "view count")
	cmd.Flags().Int64Var(&likes, "likes", 0, "like count")
	cmd.Flags().Int64Var(&shares, "shares", 0, "share count")
	cmd.Flags().Int64Var(&comments, "comments", 0, "comment count")
	return cmd
}

func readinessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "readiness",
		Short: "Cleared-for-release verdict with every blocking reason",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				st, err := e.ProjectReadiness(ctx, projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				if st.Cleared {
					fmt.Println("CLEARED for release")
				} else {
					fmt.Println("NOT cleared for release")
				}
				for _, r := range st.Reasons {
					fmt.Println(" -", r)
				}
				return nil
			})
		},
	}
}

func deadlinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deadlines",
		Short: "Schedule risk per milestone against the recommended dates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				an, err := e.DeadlineAnalysis(ctx, projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(an)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Milestone", "Recommended", "Actual", "Diff (days)", "Risk"})
				for _, m := range an.Milestones {
					tw.AppendRow(table.Row{m.MilestoneKey, m.RecommendedDate, m.ActualDate, m.DaysDifference, m.RiskLevel})
				}
				tw.Render()
				fmt.Printf("overall risk: %s (%d conflicts)\n", an.OverallRisk, an.ConflictCount)
				return nil
			})
		},
	}
}

func actionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "Prioritized to-do feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				items, err := e.ActionItems(ctx, projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Severity", "Type", "Title", "Dismissible"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.Severity, a.Type, a.Title, a.Dismissible})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Event log"}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, projectID string) error {
				events, err := e.Repo.LatestEvents(ctx, projectID, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			_, cfg, err := app.ResolveProjectAndConfig(cmd.Context(), viper.GetString("project"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			store, err := storage.New(storageConfigFromEnv())
			if err != nil {
				return err
			}
			e.Storage = store
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth:     server.AuthConfig{JWTSecret: os.Getenv("RELEASECOMPASS_JWT_SECRET")},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving ReleaseCompass API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine, string) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	projectID, cfg, err := app.ResolveProjectAndConfig(ctx, viper.GetString("project"), r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e, projectID)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

// resolveMilestone accepts either a milestone id or a catalog key.
func resolveMilestone(ctx context.Context, e engine.Engine, projectID, idOrKey string) (domain.Milestone, error) {
	m, err := e.Repo.GetMilestone(ctx, idOrKey)
	if err == nil {
		return m, nil
	}
	if err != repo.ErrNotFound {
		return domain.Milestone{}, err
	}
	return e.Repo.GetMilestoneByKey(ctx, projectID, idOrKey)
}

// storageConfigFromEnv binds the RELEASECOMPASS_S3_* settings. An empty
// bucket leaves the server in metadata-only mode.
func storageConfigFromEnv() storage.Config {
	cfg := storage.Config{
		Endpoint:  viper.GetString("s3-endpoint"),
		Region:    viper.GetString("s3-region"),
		Bucket:    viper.GetString("s3-bucket"),
		AccessKey: viper.GetString("s3-access-key"),
		SecretKey: viper.GetString("s3-secret-key"),
		URLExpiry: viper.GetDuration("s3-url-expiry"),
	}
	if viper.IsSet("s3-use-ssl") {
		useSSL := viper.GetBool("s3-use-ssl")
		cfg.UseSSL = &useSSL
	}
	return cfg
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
