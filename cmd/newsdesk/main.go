package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"newsdesk/internal/client"
	"newsdesk/internal/config"
	"newsdesk/internal/model"
	"newsdesk/internal/output"
	"newsdesk/internal/preview"
	"newsdesk/internal/server"
	"newsdesk/internal/session"
)

var (
	logger  *zap.Logger
	cfg     *config.Config
	cfgFile string
	baseURL string
	verbose bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:           "newsdesk",
	Short:         "newsdesk - admin client for the article publishing API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if baseURL != "" {
			cfg.API.BaseURL = baseURL
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = buildLogger(level)
		return err
	},
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// newSessionStore opens the configured token backend. Callers must Close it.
func newSessionStore() (session.Store, error) {
	switch cfg.Session.Backend {
	case "redis":
		return session.NewRedisStore(cfg.Session.RedisAddr)
	default:
		return session.NewBadgerStore(os.ExpandEnv(cfg.Session.Path))
	}
}

func newClient(store session.Store) (*client.Client, error) {
	return client.New(client.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Retries: cfg.API.Retries,
		Logger:  logger,
	}, store)
}

// withClient handles the store open/close dance shared by every command
// that talks to the API.
func withClient(fn func(ctx context.Context, c *client.Client) error) error {
	store, err := newSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := newClient(store)
	if err != nil {
		return err
	}
	return fn(context.Background(), c)
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Authenticate and store the session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			fmt.Print("Password: ")
			scanner := bufio.NewScanner(os.Stdin)
			if !scanner.Scan() {
				return fmt.Errorf("no password supplied")
			}
			password = strings.TrimSpace(scanner.Text())
		}

		return withClient(func(ctx context.Context, c *client.Client) error {
			if err := c.Login(ctx, args[0], password); err != nil {
				return err
			}
			fmt.Println("Logged in.")
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			if err := c.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List published articles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			articles, err := c.Articles(ctx)
			if err != nil {
				return err
			}
			if len(articles) == 0 {
				fmt.Println("No published articles.")
				return nil
			}
			output.ArticleTable(os.Stdout, articles, cfg.Output.Colors)
			return nil
		})
	},
}

// draftFromFlags reads the shared create/update flags into a draft.
func draftFromFlags(cmd *cobra.Command) (model.ArticleDraft, error) {
	var draft model.ArticleDraft

	draft.Title, _ = cmd.Flags().GetString("title")
	draft.URL, _ = cmd.Flags().GetString("url")

	rawStatus, _ := cmd.Flags().GetString("status")
	status, err := model.ParseStatus(rawStatus)
	if err != nil {
		return draft, err
	}
	draft.Status = status

	for flag, dst := range map[string]**time.Time{
		"publish-at":   &draft.PublishAt,
		"unpublish-at": &draft.UnpublishAt,
	} {
		raw, _ := cmd.Flags().GetString(flag)
		if raw == "" {
			continue
		}
		when, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return draft, fmt.Errorf("invalid --%s %q: expected RFC 3339, e.g. 2026-09-01T09:00:00Z", flag, raw)
		}
		*dst = &when
	}

	return draft, nil
}

func addDraftFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "article title")
	cmd.Flags().String("url", "", "article URL")
	cmd.Flags().String("status", "unpublished", "published or unpublished")
	cmd.Flags().String("publish-at", "", "scheduled publish time (RFC 3339)")
	cmd.Flags().String("unpublish-at", "", "scheduled unpublish time (RFC 3339)")
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new article",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		draft, err := draftFromFlags(cmd)
		if err != nil {
			return err
		}

		if autofill, _ := cmd.Flags().GetBool("autofill"); autofill && draft.Title == "" {
			p, err := preview.NewFetcher(logger).Fetch(draft.URL)
			if err != nil {
				return err
			}
			draft.Title = p.Title
			fmt.Printf("Using title from page: %s\n", p.Title)
		}

		if err := draft.Validate(); err != nil {
			return err
		}

		return withClient(func(ctx context.Context, c *client.Client) error {
			if err := c.Create(ctx, draft); err != nil {
				return err
			}
			fmt.Println("Article created.")
			return nil
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Replace an existing article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		draft, err := draftFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := draft.Validate(); err != nil {
			return err
		}

		return withClient(func(ctx context.Context, c *client.Client) error {
			if err := c.Update(ctx, args[0], draft); err != nil {
				return err
			}
			fmt.Println("Article updated.")
			return nil
		})
	},
}

func statusCmd(use, short string, status model.ArticleStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				if err := c.SetStatus(ctx, args[0], status); err != nil {
					return err
				}
				fmt.Printf("Article is now %s.\n", status)
				return nil
			})
		},
	}
}

var previewCmd = &cobra.Command{
	Use:   "preview [url]",
	Short: "Show the title and excerpt a page offers for a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := preview.NewFetcher(logger).Fetch(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Title:   %s\n", p.Title)
		if p.Excerpt != "" {
			fmt.Printf("Excerpt: %s\n", p.Excerpt)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the built-in development server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Serve.AdminPassword == "" {
			return fmt.Errorf("set serve.admin_password or NEWSDESK_SERVE_ADMIN_PASSWORD")
		}

		srv, err := server.New(server.Config{
			AdminUser:     cfg.Serve.AdminUser,
			AdminPassword: cfg.Serve.AdminPassword,
			SnapshotPath:  cfg.Serve.SnapshotPath,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.Start(cfg.Serve.Addr)
		}()

		select {
		case err := <-errChan:
			return err
		case <-sigChan:
			logger.Info("Shutting down...")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the newsdesk version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsdesk", version)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .newsdesk.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "API origin, overrides api.base_url")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	loginCmd.Flags().String("password", "", "password (prompted when omitted)")
	addDraftFlags(createCmd)
	createCmd.Flags().Bool("autofill", false, "fill the title from the page when --title is empty")
	addDraftFlags(updateCmd)

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(statusCmd("publish", "Publish an article", model.StatusPublished))
	rootCmd.AddCommand(statusCmd("unpublish", "Unpublish an article", model.StatusUnpublished))
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	err := rootCmd.Execute()
	if logger != nil {
		logger.Sync()
	}
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
