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
	"go.uber.org/zap"

	"leadline/internal/campaign"
	"leadline/internal/db"
	"leadline/internal/dispatch"
	"leadline/internal/domain"
	"leadline/internal/engine"
	"leadline/internal/migrate"
	"leadline/internal/notify"
	"leadline/internal/repo"
	"leadline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "ll",
	Short: "Leadline CLI",
	Long: `Leadline runs an insurance lead pipeline from a single workspace.
- Workspace: the .leadline directory holding the database.
- Leads: prospects moving NEW -> CONTACTED -> ... -> PLACED, scored 0-100.
- Activities: logged interactions that advance status and drive the score.
- Policies: written business; issuing one places the lead and books the commission.
- Commissions: first-year and renewal payouts per product rate table.
- Campaigns: trigger-driven action lists (email, SMS, status updates, webhooks).
- Event log: diary of changes, view with 'll log tail'.`,
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
	viper.SetEnvPrefix("LEADLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("agent-id", "agent-1", "agent identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("agent-id", rootCmd.PersistentFlags().Lookup("agent-id"))
}

func registerCommands() {
	rootCmd.AddCommand(intakeCmd())
	rootCmd.AddCommand(leadCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(policyCmd())
	rootCmd.AddCommand(commissionCmd())
	rootCmd.AddCommand(campaignCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func intakeCmd() *cobra.Command {
	var firstName, lastName, phone, email, dob, healthStatus, source, product string
	var coverage float64
	var conditions []string
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Submit an intake form",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				lead, merged, err := e.IntakeLead(ctx, engine.IntakeOptions{
					AgentID:          viper.GetString("agent-id"),
					FirstName:        firstName,
					LastName:         lastName,
					Phone:            phone,
					Email:            email,
					DateOfBirth:      dob,
					CoverageAmount:   coverage,
					HealthStatus:     healthStatus,
					HealthConditions: conditions,
					Source:           source,
					ProductType:      product,
				})
				if err != nil {
					return err
				}
				if merged {
					fmt.Println("merged into existing lead", lead.ID)
				}
				return printJSONOrTable(lead)
			})
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&dob, "dob", "", "date of birth")
	cmd.Flags().Float64Var(&coverage, "coverage", 0, "desired coverage amount")
	cmd.Flags().StringVar(&healthStatus, "health", "", "health status")
	cmd.Flags().StringSliceVar(&conditions, "condition", nil, "health condition (repeatable)")
	cmd.Flags().StringVar(&source, "source", "", "lead source")
	cmd.Flags().StringVar(&product, "product", "", "product of interest")
	return cmd
}

func leadCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "lead", Short: "Manage leads"}
	cmd.AddCommand(leadCreateCmd())
	cmd.AddCommand(leadListCmd())
	cmd.AddCommand(leadGetCmd())
	cmd.AddCommand(leadUpdateCmd())
	cmd.AddCommand(leadStatusCmd())
	cmd.AddCommand(leadScoreCmd())
	cmd.AddCommand(leadRescoreCmd())
	return cmd
}

func leadCreateCmd() *cobra.Command {
	var firstName, lastName, phone, email, intent, source, notes string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				lead, err := e.CreateLead(ctx, engine.LeadCreateOptions{
					AgentID:     viper.GetString("agent-id"),
					FirstName:   firstName,
					LastName:    lastName,
					Phone:       phone,
					Email:       email,
					IntentLevel: domain.IntentLevel(intent),
					Source:      source,
					Notes:       notes,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(lead)
			})
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&intent, "intent", "", "intent level (HOT|WARM|COLD|UNKNOWN|NONE)")
	cmd.Flags().StringVar(&source, "source", "", "lead source")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func leadListCmd() *cobra.Command {
	var status, intent string
	var minScore, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads by score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				leads, err := r.ListLeads(ctx, repo.LeadFilters{
					AgentID:  viper.GetString("agent-id"),
					Status:   status,
					Intent:   intent,
					MinScore: minScore,
					Limit:    limit,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(leads)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Intent", "Score", "Phone"})
				for _, l := range leads {
					tw.AppendRow(table.Row{l.ID, l.FirstName + " " + l.LastName, l.Status, l.IntentLevel, l.Score, l.Phone})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&intent, "intent", "", "intent filter")
	cmd.Flags().IntVar(&minScore, "min-score", 0, "minimum score")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func leadGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <lead-id>",
		Short: "Show a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				lead, err := r.GetLead(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(lead)
			})
		},
	}
}

func leadUpdateCmd() *cobra.Command {
	var firstName, lastName, phone, email, intent, source, notes string
	cmd := &cobra.Command{
		Use:   "update <lead-id>",
		Short: "Update lead details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				opts := engine.LeadUpdateOptions{ID: args[0]}
				if cmd.Flags().Changed("first-name") {
					opts.FirstName = &firstName
				}
				if cmd.Flags().Changed("last-name") {
					opts.LastName = &lastName
				}
				if cmd.Flags().Changed("phone") {
					opts.Phone = &phone
				}
				if cmd.Flags().Changed("email") {
					opts.Email = &email
				}
				if cmd.Flags().Changed("intent") {
					opts.IntentLevel = &intent
				}
				if cmd.Flags().Changed("source") {
					opts.Source = &source
				}
				if cmd.Flags().Changed("notes") {
					opts.Notes = &notes
				}
				lead, err := e.UpdateLead(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(lead)
			})
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&intent, "intent", "", "intent level")
	cmd.Flags().StringVar(&source, "source", "", "lead source")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func leadStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <lead-id> <status>",
		Short: "Set lead status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				lead, err := e.SetLeadStatus(ctx, args[0], args[1], 0)
				if err != nil {
					return err
				}
				return printJSONOrTable(lead)
			})
		},
	}
}

func leadScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <lead-id>",
		Short: "Explain a lead's score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				res, err := e.ExplainScore(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
}

func leadRescoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rescore <lead-id>",
		Short: "Recompute and persist a lead's score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				lead, err := e.RescoreLead(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(lead)
			})
		},
	}
}

func activityCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "activity", Short: "Manage activities"}
	cmd.AddCommand(activityLogCmd())
	cmd.AddCommand(activityListCmd())
	cmd.AddCommand(activityUpdateCmd())
	cmd.AddCommand(activityDeleteCmd())
	return cmd
}

func activityLogCmd() *cobra.Command {
	var outcome, title, description string
	var duration int
	cmd := &cobra.Command{
		Use:   "log <lead-id> <type>",
		Short: "Log an interaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				opts := engine.ActivityLogOptions{
					LeadID:      args[0],
					Type:        args[1],
					Outcome:     outcome,
					Title:       title,
					Description: description,
				}
				if cmd.Flags().Changed("duration") {
					opts.DurationMin = &duration
				}
				activity, lead, err := e.LogActivity(ctx, opts)
				if err != nil {
					return err
				}
				fmt.Printf("lead %s is now %s (score %d)\n", lead.ID, lead.Status, lead.Score)
				return printJSONOrTable(activity)
			})
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "interaction outcome")
	cmd.Flags().StringVar(&title, "title", "", "activity title")
	cmd.Flags().StringVar(&description, "description", "", "activity description")
	cmd.Flags().IntVar(&duration, "duration", 0, "duration in minutes")
	return cmd
}

func activityListCmd() *cobra.Command {
	var leadID, typ string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				acts, err := r.ListActivities(ctx, repo.ActivityFilters{
					AgentID: viper.GetString("agent-id"),
					LeadID:  leadID,
					Type:    typ,
					Limit:   limit,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(acts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Lead", "Type", "Outcome", "Title", "At"})
				for _, a := range acts {
					tw.AppendRow(table.Row{a.ID, a.LeadID, a.Type, a.Outcome, a.Title, a.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&leadID, "lead", "", "lead id filter")
	cmd.Flags().StringVar(&typ, "type", "", "activity type filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func activityUpdateCmd() *cobra.Command {
	var typ, outcome, title, description string
	var duration int
	cmd := &cobra.Command{
		Use:   "update <activity-id>",
		Short: "Update an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				opts := engine.ActivityUpdateOptions{ID: args[0]}
				if cmd.Flags().Changed("type") {
					opts.Type = &typ
				}
				if cmd.Flags().Changed("outcome") {
					opts.Outcome = &outcome
				}
				if cmd.Flags().Changed("title") {
					opts.Title = &title
				}
				if cmd.Flags().Changed("description") {
					opts.Description = &description
				}
				if cmd.Flags().Changed("duration") {
					opts.DurationMin = &duration
				}
				a, err := e.UpdateActivity(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "activity type")
	cmd.Flags().StringVar(&outcome, "outcome", "", "interaction outcome")
	cmd.Flags().StringVar(&title, "title", "", "activity title")
	cmd.Flags().StringVar(&description, "description", "", "activity description")
	cmd.Flags().IntVar(&duration, "duration", 0, "duration in minutes")
	return cmd
}

func activityDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <activity-id>",
		Short: "Delete an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.DeleteActivity(ctx, args[0])
			})
		},
	}
}

func policyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "policy", Short: "Manage policies"}
	cmd.AddCommand(policyCreateCmd())
	cmd.AddCommand(policyListCmd())
	cmd.AddCommand(policyGetCmd())
	cmd.AddCommand(policyStatusCmd())
	return cmd
}

func policyCreateCmd() *cobra.Command {
	var carrier, product, status, policyNumber, mode string
	var premium, faceAmount, rate float64
	var termYears int
	cmd := &cobra.Command{
		Use:   "create <lead-id>",
		Short: "Create a policy for a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				opts := engine.PolicyCreateOptions{
					LeadID:       args[0],
					Carrier:      carrier,
					ProductType:  product,
					FaceAmount:   faceAmount,
					Premium:      premium,
					Status:       status,
					PolicyNumber: policyNumber,
					Mode:         mode,
				}
				if cmd.Flags().Changed("rate") {
					opts.Rate = &rate
				}
				if cmd.Flags().Changed("term-years") {
					opts.TermYears = &termYears
				}
				policy, err := e.CreatePolicy(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(policy)
			})
		},
	}
	cmd.Flags().StringVar(&carrier, "carrier", "", "carrier name")
	cmd.Flags().StringVar(&product, "product", "", "product type")
	cmd.Flags().Float64Var(&premium, "premium", 0, "annual premium")
	cmd.Flags().Float64Var(&faceAmount, "face", 0, "face amount")
	cmd.Flags().Float64Var(&rate, "rate", 0, "explicit commission rate")
	cmd.Flags().StringVar(&status, "status", "", "initial status")
	cmd.Flags().StringVar(&policyNumber, "number", "", "policy number")
	cmd.Flags().IntVar(&termYears, "term-years", 0, "term length in years")
	cmd.Flags().StringVar(&mode, "mode", "", "payment mode")
	return cmd
}

func policyListCmd() *cobra.Command {
	var leadID, status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				policies, err := r.ListPolicies(ctx, repo.PolicyFilters{
					AgentID: viper.GetString("agent-id"),
					LeadID:  leadID,
					Status:  status,
					Limit:   limit,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(policies)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Lead", "Carrier", "Product", "Premium", "Status"})
				for _, p := range policies {
					tw.AppendRow(table.Row{p.ID, p.LeadID, p.Carrier, p.ProductType, p.Premium, p.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&leadID, "lead", "", "lead id filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func policyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <policy-id>",
		Short: "Show a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetPolicy(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func policyStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <policy-id> <status>",
		Short: "Set policy status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				p, err := e.SetPolicyStatus(ctx, args[0], args[1], 0)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func commissionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "commission", Short: "Manage commissions"}
	cmd.AddCommand(commissionListCmd())
	cmd.AddCommand(commissionPayCmd())
	cmd.AddCommand(commissionClawbackCmd())
	cmd.AddCommand(commissionRenewalsCmd())
	return cmd
}

func commissionListCmd() *cobra.Command {
	var policyID, status, typ string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List commissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				commissions, err := r.ListCommissions(ctx, repo.CommissionFilters{
					AgentID:  viper.GetString("agent-id"),
					PolicyID: policyID,
					Status:   status,
					Type:     typ,
					Limit:    limit,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(commissions)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Policy", "Type", "Amount", "Status", "Scheduled"})
				for _, c := range commissions {
					tw.AppendRow(table.Row{c.ID, c.PolicyID, c.Type, fmt.Sprintf("%.2f", c.Amount), c.Status, c.ScheduledDate})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&policyID, "policy", "", "policy id filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&typ, "type", "", "commission type filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func commissionPayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pay <commission-id>",
		Short: "Mark a commission paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				c, err := e.MarkCommissionPaid(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func commissionClawbackCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "clawback <commission-id>",
		Short: "Claw back a commission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				c, err := e.ClawbackCommission(ctx, args[0], reason)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "clawback reason (required)")
	return cmd
}

func commissionRenewalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renewals",
		Short: "Write pending renewal commissions for issued policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				created, err := e.RunRenewals(ctx, viper.GetString("agent-id"))
				if err != nil {
					return err
				}
				fmt.Printf("%d renewal commissions created\n", len(created))
				return printJSONOrTable(created)
			})
		},
	}
}

func campaignCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "campaign", Short: "Manage campaigns"}
	cmd.AddCommand(campaignImportCmd())
	cmd.AddCommand(campaignListCmd())
	cmd.AddCommand(campaignGetCmd())
	cmd.AddCommand(campaignSetActiveCmd("enable", true))
	cmd.AddCommand(campaignSetActiveCmd("disable", false))
	cmd.AddCommand(campaignDeleteCmd())
	cmd.AddCommand(campaignRunCmd())
	return cmd
}

func campaignImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import campaign definitions from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				res, err := campaign.Import(ctx, e, viper.GetString("agent-id"), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%d created, %d updated\n", res.Created, res.Updated)
				return nil
			})
		},
	}
}

func campaignListCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				campaigns, err := r.ListCampaigns(ctx, viper.GetString("agent-id"), activeOnly)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(campaigns)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Active", "Trigger", "Actions", "Runs"})
				for _, c := range campaigns {
					tw.AppendRow(table.Row{c.ID, c.Name, c.Active, c.Trigger.Kind, len(c.Actions), c.RunCount})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active campaigns")
	return cmd
}

func campaignGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <campaign-id>",
		Short: "Show a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				c, err := r.GetCampaign(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func campaignSetActiveCmd(use string, active bool) *cobra.Command {
	short := "Enable a campaign"
	if !active {
		short = "Disable a campaign"
	}
	return &cobra.Command{
		Use:   use + " <campaign-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				v := active
				c, err := e.UpdateCampaign(ctx, engine.CampaignUpdateOptions{ID: args[0], Active: &v})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func campaignDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <campaign-id>",
		Short: "Delete a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.DeleteCampaign(ctx, args[0])
			})
		},
	}
}

func campaignRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <campaign-id>",
		Short: "Run a campaign against every lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDispatcher(cmd.Context(), func(ctx context.Context, d *dispatch.Dispatcher) error {
				n, err := d.RunCampaignForAllLeads(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("campaign ran for %d leads\n", n)
				return nil
			})
		},
	}
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the pipeline dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				d, err := e.Dashboard(ctx, viper.GetString("agent-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Status", "Leads"})
				for status, n := range d.LeadsByStatus {
					tw.AppendRow(table.Row{status, n})
				}
				tw.Render()
				fmt.Printf("pipeline premium: %.2f\npending commissions: %.2f\n", d.PipelinePremium, d.PendingCommissions)
				for _, l := range d.HotLeads {
					fmt.Printf("hot: %s %s (%d)\n", l.FirstName, l.LastName, l.Score)
				}
				return nil
			})
		},
	}
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	cmd.AddCommand(logTailCmd())
	return cmd
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestAuditEvents(ctx, n, viper.GetString("agent-id"), evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			e := engine.New(conn)
			d := dispatch.New(e, notify.NewLogNotifier(log), log)
			e.Sink = d
			handler, err := server.New(server.Config{
				Engine:     e,
				Dispatcher: d,
				AgentID:    viper.GetString("agent-id"),
				BasePath:   basePath,
				Log:        log,
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
			fmt.Printf("Serving Leadline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

// --- helpers ---

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	e := engine.New(conn)
	e.Sink = dispatch.New(e, notify.NewLogNotifier(log), log)
	return fn(ctx, e)
}

func withDispatcher(ctx context.Context, fn func(context.Context, *dispatch.Dispatcher) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	e := engine.New(conn)
	d := dispatch.New(e, notify.NewLogNotifier(log), log)
	e.Sink = d
	return fn(ctx, d)
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
