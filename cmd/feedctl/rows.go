package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reelhouse/reelhouse-server/internal/catalogapi"
	"github.com/reelhouse/reelhouse-server/internal/category"
	"github.com/reelhouse/reelhouse-server/internal/feed"
	"github.com/reelhouse/reelhouse-server/internal/store/sqlite"
)

var rowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Build the first feed rows and print them",
	Long: "rows runs the first assignment pass against the catalog, then reveals --more " +
		"additional categories the way vertical scrolling would.",
	Args: cobra.NoArgs,
	RunE: runRows,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the category catalog in priority order",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the catalog page cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print page cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove cached pages older than --older-than",
	Args:  cobra.NoArgs,
	RunE:  runCachePurge,
}

func init() {
	rowsCmd.Flags().Int("more", 0, "additional categories to reveal after the first pass")
	rowsCmd.Flags().Bool("force", false, "use the last-resort pass for the additional categories")
	rowsCmd.Flags().Int("extend", 0, "extend every row this many times")
	rowsCmd.Flags().Int("page-size", feed.DefaultOptions().InitialPageSize, "catalog page size")
	rowsCmd.Flags().Int("width", 0, "maximum items printed per row (0 prints all)")

	categoriesCmd.Flags().Int("tail", category.DefaultTailCount, "generated tail categories")

	cachePurgeCmd.Flags().Duration("older-than", 0, "purge pages fetched before now minus this duration (0 purges all)")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(rowsCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(cacheCmd)
}

// catalogSource opens the catalog client and, when --cache-path is set, the
// page cache in front of it. The returned func releases both.
func catalogSource(cmd *cobra.Command, log *slog.Logger) (feed.CatalogProvider, func(), error) {
	baseURL, _ := cmd.Flags().GetString("catalog-url")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	cachePath, _ := cmd.Flags().GetString("cache-path")

	client, err := catalogapi.New(catalogapi.Options{BaseURL: baseURL, Timeout: timeout}, log)
	if err != nil {
		return nil, nil, err
	}
	if cachePath == "" {
		return client, client.Close, nil
	}

	store, err := sqlite.Open(cachePath, log)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	release := func() {
		_ = store.Close()
		client.Close()
	}
	return sqlite.NewCachedProvider(client, store, sqlite.DefaultTTL, log), release, nil
}

func runRows(cmd *cobra.Command, _ []string) error {
	log := newLogger(cmd)
	more, _ := cmd.Flags().GetInt("more")
	force, _ := cmd.Flags().GetBool("force")
	extend, _ := cmd.Flags().GetInt("extend")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	width, _ := cmd.Flags().GetInt("width")

	provider, release, err := catalogSource(cmd, log)
	if err != nil {
		return err
	}
	defer release()

	opts := feed.DefaultOptions()
	opts.InitialPageSize = pageSize
	engine := feed.NewEngine(category.Default(), feed.NewSource(provider, log), feed.NewTracker(), opts, log)
	defer engine.Close()
	carousel := feed.NewCarousel(engine, feed.DefaultGeometry())

	ctx := cmd.Context()
	if err := engine.Initialize(ctx); err != nil {
		return err
	}

	for range more {
		load := engine.LoadMoreCategories
		if force {
			load = engine.ForceAddCategory
		}
		res, err := load(ctx)
		if err != nil {
			return err
		}
		if !res.Added() {
			fmt.Fprintln(os.Stderr, mutedStyle.Render("no category could take more items"))
			break
		}
	}

	for range extend {
		for _, rowID := range engine.VisibleCategoryIDs() {
			if _, err := carousel.LoadMoreForRow(ctx, rowID); err != nil {
				return err
			}
		}
	}

	fmt.Fprint(cmd.OutOrStdout(), renderFeed(engine.Rows(), engine.Stats(), width))
	return nil
}

func runCategories(cmd *cobra.Command, _ []string) error {
	tail, _ := cmd.Flags().GetInt("tail")
	catalog := category.New(tail)

	var b strings.Builder
	for i, def := range catalog.Definitions() {
		fmt.Fprintf(&b, "%s %s %s\n",
			mutedStyle.Render(fmt.Sprintf("%4d", i)),
			titleStyle.Render(def.Title),
			mutedStyle.Render(def.ID))
	}
	fmt.Fprint(cmd.OutOrStdout(), b.String())
	return nil
}

func openCache(cmd *cobra.Command) (*sqlite.Store, error) {
	path, _ := cmd.Flags().GetString("cache-path")
	if path == "" {
		return nil, fmt.Errorf("--cache-path is required")
	}
	return sqlite.Open(path, newLogger(cmd))
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	store, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderCacheStats(stats))
	return nil
}

func runCachePurge(cmd *cobra.Command, _ []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")
	store, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Purge(cmd.Context(), time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d pages\n", n)
	return nil
}
