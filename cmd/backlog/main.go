package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ldi/backlog/internal/config"
	"github.com/ldi/backlog/internal/mcp"
	"github.com/ldi/backlog/internal/rest"
	"github.com/ldi/backlog/internal/search"
	"github.com/ldi/backlog/internal/service"
	"github.com/ldi/backlog/internal/store"
	"github.com/ldi/backlog/pkg/models"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

var (
	configPath string
	dbPath     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "backlog",
		Short: "Project and task tracking backend",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the database file (overrides config)")

	rootCmd.AddCommand(serveCmd(), mcpCmd(), initCmd(), listProjectsCmd(), listTasksCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    *store.Store
	projects *service.ProjectService
	tasks    *service.TaskService
	search   *search.Engine
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	log := setupLogger(cfg.Env)

	s, err := store.Open(cfg.DBPath, logrus.NewEntry(log))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := s.Init(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	projects := service.NewProjectService(s, s)
	tasks := service.NewTaskService(s, projects)

	return &app{
		cfg:      cfg,
		log:      log,
		store:    s,
		projects: projects,
		tasks:    tasks,
		search:   search.NewEngine(tasks),
	}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()

			if a.cfg.Env == envProd {
				gin.SetMode(gin.ReleaseMode)
			}

			router := gin.New()
			router.Use(gin.Recovery())
			rest.NewHandler(a.log, a.projects, a.tasks, a.search).EnrichRoutes(router)

			a.log.WithField("addr", a.cfg.HTTPAddr).Info("http server starting")
			return router.Run(a.cfg.HTTPAddr)
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()

			// Stdout carries the protocol, so logs go to stderr only.
			a.log.SetOutput(os.Stderr)

			return mcp.Serve(mcp.NewServer(mcp.Services{
				Projects: a.projects,
				Tasks:    a.tasks,
				Search:   a.search,
			}))
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()

			a.log.WithField("path", a.cfg.DBPath).Info("database ready")
			return nil
		},
	}
}

func listProjectsCmd() *cobra.Command {
	var includeArchived bool

	cmd := &cobra.Command{
		Use:   "list-projects",
		Short: "Print projects as a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()

			projects, err := a.projects.List(cmd.Context(), includeArchived)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tARCHIVED\tCREATED")
			for _, p := range projects {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", p.ID, p.Name, p.Archived, p.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&includeArchived, "include-archived", false, "include archived projects")
	return cmd
}

func listTasksCmd() *cobra.Command {
	var (
		projectID       string
		includeArchived bool
		sortBy          string
		order           string
	)

	cmd := &cobra.Command{
		Use:   "list-tasks",
		Short: "Print tasks as a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()

			tasks, err := a.tasks.List(cmd.Context(), service.TaskFilter{
				ProjectID:       projectID,
				IncludeArchived: includeArchived,
				SortBy:          models.SortKey(sortBy),
				Order:           models.SortOrder(order),
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE")
			for _, t := range tasks {
				due := ""
				if t.DueDate != nil {
					due = t.DueDate.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Priority, due)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "limit to one project id")
	cmd.Flags().BoolVar(&includeArchived, "include-archived", false, "include archived tasks")
	cmd.Flags().StringVar(&sortBy, "sort-by", "", "sort key (createdAt|dueDate|priority|title)")
	cmd.Flags().StringVar(&order, "order", "", "sort order (asc|desc)")
	return cmd
}

func setupLogger(env string) *logrus.Logger {
	log := logrus.New()

	switch env {
	case envLocal:
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case envDev:
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.JSONFormatter{})
	case envProd:
		log.SetLevel(logrus.InfoLevel)
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetLevel(logrus.InfoLevel)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log
}
