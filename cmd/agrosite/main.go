package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agrosite/agrosite"
	"github.com/agrosite/agrosite/auth"
	"github.com/agrosite/agrosite/logging"
	"github.com/agrosite/agrosite/service"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// Global flags
	addr   string
	dbDSN  string
	driver string
)

var rootCmd = &cobra.Command{
	Use:   "agrosite",
	Short: "Agrosite - REST backend for the agribusiness marketing site",
	Long: `Agrosite serves the product catalog, blog, contact and job-application
forms, notifications and the admin back-office over a JSON API.

Configuration is read from environment variables (SESSION_SECRET, JWT_SECRET,
DATABASE_DRIVER, DATABASE_DSN, SMTP_HOST, MAIL_TO, ...). Flags override them.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the email delivery worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app := agrosite.New(cfg)
		defer app.Close()
		return app.Start(ctx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		st, err := agrosite.OpenStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer st.Close()
		log.Info().Str("driver", cfg.DatabaseDriver).Msg("database migrated")
		return nil
	},
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage back-office accounts",
}

var (
	adminUsername string
	adminName     string
	adminRole     string
	adminPassword string
)

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Long: `Create an admin account that can sign in to the back-office.

Examples:
  agrosite admin create --username alice --password 's3cret-pass'
  ADMIN_PASSWORD=... agrosite admin create --username bob --role editor`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := adminPassword
		if password == "" {
			password = os.Getenv("ADMIN_PASSWORD")
		}
		if adminUsername == "" {
			return fmt.Errorf("--username is required")
		}
		if err := auth.ValidatePassword(password); err != nil {
			return err
		}
		return withServices(cmd.Context(), func(svc *service.Services) error {
			admin, err := svc.Admins.Create(cmd.Context(), service.AdminInput{
				Username: adminUsername,
				Name:     adminName,
				Role:     adminRole,
				Password: password,
				IsActive: true,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created admin %q (id %d, role %s)\n", admin.Username, admin.ID, admin.Role)
			return nil
		})
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage site users",
}

var (
	userUsername string
	userPassword string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a site user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if userUsername == "" {
			return fmt.Errorf("--username is required")
		}
		if err := auth.ValidatePassword(userPassword); err != nil {
			return err
		}
		return withServices(cmd.Context(), func(svc *service.Services) error {
			u, err := svc.Users.Register(cmd.Context(), userUsername, userPassword)
			if err != nil {
				return err
			}
			fmt.Printf("created user %q (id %d)\n", u.Username, u.ID)
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the agrosite version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agrosite %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "Listen address (overrides ADDR)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Database driver: sqlite or postgres (overrides DATABASE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db", "", "Database DSN or SQLite path (overrides DATABASE_DSN)")

	adminCreateCmd.Flags().StringVar(&adminUsername, "username", "", "Login name")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "Display name")
	adminCreateCmd.Flags().StringVar(&adminRole, "role", "admin", "Role: admin or editor")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "Password (or ADMIN_PASSWORD)")
	adminCmd.AddCommand(adminCreateCmd)

	userCreateCmd.Flags().StringVar(&userUsername, "username", "", "Login name")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Password")
	userCmd.AddCommand(userCreateCmd)

	rootCmd.AddCommand(serveCmd, migrateCmd, adminCmd, userCmd, versionCmd)
}

func loadConfig() (agrosite.SiteConfig, error) {
	cfg, err := agrosite.ConfigFromEnv(os.Getenv)
	if err != nil {
		return cfg, err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if driver != "" {
		cfg.DatabaseDriver = driver
	}
	if dbDSN != "" {
		cfg.DatabaseDSN = dbDSN
	}
	return cfg, nil
}

func withServices(ctx context.Context, fn func(*service.Services) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := agrosite.OpenStore(ctx, cfg, logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat))
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(service.New(st))
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
