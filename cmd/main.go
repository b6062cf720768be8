// Main entry point for the NASA explorer service and CLI
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nasa-explorer/internal/clients"
	"nasa-explorer/internal/config"
	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/filter"
	"nasa-explorer/internal/handlers"
	"nasa-explorer/internal/logging"
	"nasa-explorer/internal/query"
	"nasa-explorer/internal/repo"
	"nasa-explorer/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.AppConfig
	logger *zap.Logger

	// Load flags
	controls  query.Controls
	filters   filter.Filters
	sortFlag  string
	histLimit int
)

var rootCmd = &cobra.Command{
	Use:   "explorer",
	Short: "Browse NASA APOD, Mars rover photos, near-Earth objects and the image library",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var apodCmd = &cobra.Command{
	Use:   "apod",
	Short: "Load the astronomy picture of the day",
	RunE:  runLoad(domain.ResourceApod),
}

var marsCmd = &cobra.Command{
	Use:   "mars",
	Short: "Load Mars rover photos",
	RunE:  runLoad(domain.ResourceMarsPhotos),
}

var neoCmd = &cobra.Command{
	Use:   "neo",
	Short: "Load the near-Earth object feed (at most 7 days)",
	RunE:  runLoad(domain.ResourceNeoFeed),
}

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search the NASA image library",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			controls.Query = args[0]
		}
		return runLoad(domain.ResourceImageSearch)(cmd, args)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent load actions",
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "explorer.yaml", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	apodCmd.Flags().StringVar(&controls.Date, "date", "", "Picture date (YYYY-MM-DD)")

	marsCmd.Flags().StringVar(&controls.Rover, "rover", query.DefaultRover, "Rover: curiosity, opportunity or spirit")
	marsCmd.Flags().StringVar(&controls.Camera, "camera", "", "Camera code valid for the rover")
	marsCmd.Flags().StringVar(&controls.EarthDate, "earth-date", query.DefaultEarthDate, "Earth date (YYYY-MM-DD)")

	neoCmd.Flags().StringVar(&controls.StartDate, "start", "", "Start date (YYYY-MM-DD, default today-3)")
	neoCmd.Flags().StringVar(&controls.EndDate, "end", "", "End date (YYYY-MM-DD, default today)")
	neoCmd.Flags().BoolVar(&filters.HazardousOnly, "hazardous", false, "Only potentially hazardous objects")

	searchCmd.Flags().IntVar(&controls.Page, "page", 1, "Result page")
	searchCmd.Flags().StringVar(&controls.YearStart, "year-start", "", "Earliest year")
	searchCmd.Flags().StringVar(&controls.YearEnd, "year-end", "", "Latest year")

	for _, c := range []*cobra.Command{apodCmd, marsCmd, neoCmd, searchCmd} {
		c.Flags().StringVar(&sortFlag, "sort", "", "Order: closest, date or none")
		c.Flags().StringVar(&filters.Keyword, "keyword", "", "Only records whose title contains text")
		c.Flags().StringVar((*string)(&filters.MediaKind), "media", "", "Only image or video records")
	}

	historyCmd.Flags().IntVar(&histLimit, "limit", 0, "Number of entries (default from config)")

	rootCmd.AddCommand(serveCmd, apodCmd, marsCmd, neoCmd, searchCmd, historyCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// newExplorer wires the pipeline. The returned cleanup closes the database pool.
func newExplorer(ctx context.Context, withHistory bool) (*services.ExplorerService, func(), error) {
	client := clients.NewNasaClient(cfg.NasaAPIKey, cfg.NasaAPIURL, cfg.NasaImagesURL)
	opts := []services.Option{}
	cleanup := func() {}

	if withHistory && cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		if err := repo.InitDB(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		logger.Info("load history enabled")
		opts = append(opts, services.WithHistory(repo.NewHistoryRepo(pool)))
		cleanup = pool.Close
	}

	return services.NewExplorerService(query.NewBuilder(), client, logger, opts...), cleanup, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	explorer, cleanup, err := newExplorer(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinLogger(logger))
	handlers.SetupRoutes(r, handlers.NewHandler(explorer, cfg.HistoryLimit))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("explorer listening", zap.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func runLoad(resource domain.Resource) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		explorer, cleanup, err := newExplorer(ctx, true)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := filters.Validate(); err != nil {
			return err
		}
		sort := filter.SortKey("")
		if sortFlag != "" {
			var ok bool
			if sort, ok = filter.ParseSortKey(sortFlag); !ok {
				return fmt.Errorf("unknown sort %q", sortFlag)
			}
		}
		if resource == domain.ResourceNeoFeed && controls.StartDate == "" && controls.EndDate == "" {
			controls.StartDate, controls.EndDate = query.DefaultNeoRange(time.Now())
		}

		view, loadErr := explorer.Load(ctx, resource, services.LoadRequest{
			Controls: controls,
			Filters:  filters,
			Sort:     sort,
		})
		if err := printJSON(handlers.LoadResponse{Resource: resource, Count: len(view.LastRecords), ViewState: view}); err != nil {
			return err
		}
		if loadErr != nil {
			if f, ok := domain.AsFailure(loadErr); ok {
				return errors.New(f.Message())
			}
			return loadErr
		}
		if view.NoResults {
			fmt.Fprintln(cmd.ErrOrStderr(), "no results")
		}
		return nil
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.DatabaseURL == "" {
		return errors.New("load history requires DATABASE_URL")
	}
	explorer, cleanup, err := newExplorer(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer cleanup()

	limit := histLimit
	if limit <= 0 {
		limit = cfg.HistoryLimit
	}
	entries, err := explorer.History(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return printJSON(entries)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
