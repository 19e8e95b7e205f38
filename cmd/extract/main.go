package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mikequentel/sutraparser/internal/config"
	"github.com/mikequentel/sutraparser/internal/corpus"
	"github.com/mikequentel/sutraparser/internal/store"
)

// MLSFile is the link index written to the output directory.
const MLSFile = "mls.json"

type summary struct {
	Indexes    int
	Books      int
	Written    int
	Skipped    int
	Collisions int
	RunID      string
}

func main() {
	log.SetFlags(0)

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the sutra HTML corpus into JSON",
		Long: `Scan the ml*.htm index pages of a corpus directory, parse every linked
document into a book -> juan -> chapter -> paragraph tree and write:

  <out>/mls.json          links per index page
  <out>/books/<id>.json   one file per document

Example:
  extract --in qldzj/s --out output
  extract --config sutra.yaml --test --limit 5 --db output/sutra.sqlite`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("in") {
				cfg.InputDir, _ = flags.GetString("in")
			}
			if flags.Changed("out") {
				cfg.OutputDir, _ = flags.GetString("out")
			}
			if flags.Changed("test") {
				cfg.TestMode, _ = flags.GetBool("test")
			}
			if flags.Changed("limit") {
				cfg.TestLimit, _ = flags.GetInt("limit")
			}
			if flags.Changed("db") {
				cfg.DBPath, _ = flags.GetString("db")
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			sum, err := run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			log.Printf("Extracted %d documents from %d index pages; wrote %d files to %s (%d skipped, %d id collisions)",
				sum.Books, sum.Indexes, sum.Written, cfg.OutputDir, sum.Skipped, sum.Collisions)
			if sum.RunID != "" {
				log.Printf("Loaded books into %s (run %s)", cfg.DBPath, sum.RunID)
			}
			return nil
		},
	}

	cmd.Flags().String("config", "", "YAML config file")
	cmd.Flags().String("in", "", "directory holding the ml*.htm index pages")
	cmd.Flags().String("out", "", "output directory (default \"output\")")
	cmd.Flags().Bool("test", false, "only process the first --limit index pages and links per page")
	cmd.Flags().Int("limit", 0, "test mode limit (default 10)")
	cmd.Flags().String("db", "", "also load the parsed books into this SQLite database")

	return cmd
}

// run performs one full pass: walk the corpus, write mls.json and the books
// directory, and optionally load the books into SQLite.
func run(ctx context.Context, cfg config.Config) (summary, error) {
	var sum summary

	if err := corpus.EnsureDir(cfg.OutputDir); err != nil {
		return sum, err
	}

	res, err := corpus.Walk(corpus.Options{
		BaseDir:   cfg.InputDir,
		TestMode:  cfg.TestMode,
		TestLimit: cfg.TestLimit,
	})
	if err != nil {
		return sum, fmt.Errorf("walk corpus: %w", err)
	}
	sum.Indexes = len(res.Indexes)
	sum.Books = len(res.Books)
	sum.Skipped = res.Skipped
	sum.Collisions = len(res.Collisions)

	mlsPath := filepath.Join(cfg.OutputDir, MLSFile)
	if err := corpus.SaveJSON(mlsPath, res.Indexes); err != nil {
		log.Printf("[corpus] failed to save %s: %v", mlsPath, err)
	} else {
		log.Printf("[corpus] saved %s", mlsPath)
	}

	written, err := corpus.SaveBooks(cfg.OutputDir, res.Books)
	if err != nil {
		return sum, fmt.Errorf("save books: %w", err)
	}
	sum.Written = written

	if cfg.DBPath == "" {
		return sum, nil
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return sum, err
	}
	defer db.Close()

	runID, err := store.Import(ctx, db, res.Books)
	if err != nil {
		return sum, fmt.Errorf("load books: %w", err)
	}
	sum.RunID = runID
	return sum, nil
}
