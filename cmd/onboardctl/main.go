package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-onboarding/config"
	"github.com/jwalitptl/clinic-onboarding/internal/app"
	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/internal/repository/postgres"
)

var configPath string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "onboardctl",
		Short:         "Operator tooling for clinic onboarding",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(applicationsCmd())
	rootCmd.AddCommand(accountsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withServices loads config and runs fn against the configured store.
func withServices(ctx context.Context, fn func(*app.Services) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Driver == config.DriverMemory {
		return fmt.Errorf("the memory store does not outlive this command; configure postgres")
	}
	log := app.NewLogger(cfg.Log)
	svcs, err := app.NewServices(ctx, cfg, log, nil, false)
	if err != nil {
		return err
	}
	defer svcs.Close()
	return fn(svcs)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func uuidFlag(cmd *cobra.Command, name string) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--%s must be a UUID: %w", name, err)
	}
	return id, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("nothing to migrate for driver %q", cfg.Database.Driver)
			}
			db, err := postgres.NewDB(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Println("schema is up to date")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a platform administrator and print its one-time secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			return withServices(cmd.Context(), func(svcs *app.Services) error {
				account, secret, err := svcs.Auth.CreatePlatformAdmin(cmd.Context(), email)
				if err != nil {
					return err
				}
				fmt.Printf("account id: %s\nusername:   %s\npassword:   %s\n", account.ID, account.Username, secret)
				fmt.Println("the password is not stored and will not be shown again")
				return nil
			})
		},
	}
	cmd.Flags().String("email", "", "administrator email")
	return cmd
}

func applicationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "applications",
		Short: "Review clinic registration applications",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List applications, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			return withServices(cmd.Context(), func(svcs *app.Services) error {
				apps, err := svcs.Registration.List(cmd.Context(), &model.ApplicationFilters{
					Status: model.ApplicationStatus(status),
					Limit:  limit,
				})
				if err != nil {
					return err
				}
				return printJSON(apps)
			})
		},
	}
	listCmd.Flags().String("status", string(model.ApplicationStatusPending), "pending, approved or rejected")
	listCmd.Flags().Int("limit", 0, "maximum number of applications")
	cmd.AddCommand(listCmd)

	approveCmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve an application and provision its accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuidFlag(cmd, "id")
			if err != nil {
				return err
			}
			actor, err := uuidFlag(cmd, "actor")
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(svcs *app.Services) error {
				result, err := svcs.Approval.Approve(cmd.Context(), id, actor)
				if err != nil {
					return err
				}
				if result.NotificationsFailed() {
					fmt.Fprintln(os.Stderr, "warning:", result.NotificationErr)
				}
				return printJSON(result)
			})
		},
	}
	approveCmd.Flags().String("id", "", "application id")
	approveCmd.Flags().String("actor", "", "platform administrator account id")
	cmd.AddCommand(approveCmd)

	rejectCmd := &cobra.Command{
		Use:   "reject",
		Short: "Reject an application with a reason",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuidFlag(cmd, "id")
			if err != nil {
				return err
			}
			actor, err := uuidFlag(cmd, "actor")
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")
			return withServices(cmd.Context(), func(svcs *app.Services) error {
				application, err := svcs.Approval.Reject(cmd.Context(), id, actor, reason)
				if err != nil {
					return err
				}
				return printJSON(application)
			})
		},
	}
	rejectCmd.Flags().String("id", "", "application id")
	rejectCmd.Flags().String("actor", "", "platform administrator account id")
	rejectCmd.Flags().String("reason", "", "rejection reason shown to the applicant")
	cmd.AddCommand(rejectCmd)

	return cmd
}

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage provisioned accounts",
	}

	resetCmd := &cobra.Command{
		Use:   "reset-credentials",
		Short: "Issue a temporary secret and resend the credentials email",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuidFlag(cmd, "id")
			if err != nil {
				return err
			}
			actor, err := uuidFlag(cmd, "actor")
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(svcs *app.Services) error {
				result, err := svcs.Approval.ResetCredentials(cmd.Context(), id, actor)
				if err != nil {
					return err
				}
				if result.NotificationErr != nil {
					fmt.Fprintln(os.Stderr, "warning:", result.NotificationErr)
				}
				return printJSON(result)
			})
		},
	}
	resetCmd.Flags().String("id", "", "account id")
	resetCmd.Flags().String("actor", "", "platform administrator account id")
	cmd.AddCommand(resetCmd)

	return cmd
}
