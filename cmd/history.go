// File: cmd/history.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stickerverse/figmaconvert/internal/config"
	"github.com/stickerverse/figmaconvert/internal/geometry"
	"github.com/stickerverse/figmaconvert/internal/observability"
	"github.com/stickerverse/figmaconvert/internal/store"
)

// historyStore is the slice of the store the history and verify commands
// consume.
type historyStore interface {
	ListSessions(ctx context.Context, limit int) ([]store.Session, error)
	SaveVerification(ctx context.Context, runID string, report *geometry.DeviationReport) error
}

// storeProvider abstracts store construction. This allows tests to inject a
// mock store instead of a live database connection.
type storeProvider interface {
	// Create initializes and returns a store, a cleanup function to release
	// resources, and an error if the creation fails.
	Create(ctx context.Context, cfg *config.Config) (historyStore, func(), error)
}

// defaultStoreProvider is the concrete implementation of storeProvider used
// in production. It establishes a real connection to PostgreSQL.
type defaultStoreProvider struct{}

// NewStoreProvider creates the production store provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

// Create connects to the database, bootstraps the history schema and
// returns the store along with a cleanup function that closes the pool.
func (p *defaultStoreProvider) Create(ctx context.Context, cfg *config.Config) (historyStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (FIGMACONVERT_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storeService, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}
	if err := storeService.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to prepare history schema: %w", err)
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return storeService, cleanup, nil
}

// newHistoryCmd creates and configures the `history` command.
func newHistoryCmd(provider storeProvider) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversion sessions from the history store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			return runHistory(ctx, logger, cfg, provider, limit, cmd.OutOrStdout())
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to list")
	return historyCmd
}

// runHistory contains the core, testable logic for listing sessions.
func runHistory(ctx context.Context, logger *zap.Logger, cfg *config.Config, provider storeProvider, limit int, out io.Writer) error {
	storeService, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	sessions, err := storeService.ListSessions(ctx, limit)
	if err != nil {
		logger.Error("Failed to list sessions", zap.Error(err))
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No recorded sessions.")
		return nil
	}

	for _, sess := range sessions {
		fmt.Fprintf(out, "%s  %s  %-48s  %5d elements  %7.2f MB\n",
			sess.CreatedAt.Format("2006-01-02 15:04"),
			shortID(sess.ID),
			sess.URL,
			sess.ElementCount,
			sess.DocumentMB,
		)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
