package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/NicolasGut/motorsport-digest/internal/app"
	"github.com/NicolasGut/motorsport-digest/internal/gemini"
	"github.com/NicolasGut/motorsport-digest/internal/logger"
	"github.com/NicolasGut/motorsport-digest/internal/news"
)

const summaryCacheDays = 30

func runCmd(debug *bool) *cobra.Command {
	var (
		days, maxExtract, maxSummaries, minScore int
		threshold                                float64
		output                                   string
		preview                                  int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, score, deduplicate, summarize and publish today's digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(*debug)
			if err != nil {
				return err
			}
			defer e.Close()

			flags := cmd.Flags()
			if flags.Changed("days") {
				e.cfg.DaysBack = days
			}
			if flags.Changed("max-extract") {
				e.cfg.MaxExtract = maxExtract
			}
			if flags.Changed("max-summaries") {
				e.cfg.MaxSummaries = maxSummaries
			}
			if flags.Changed("min-score") {
				e.cfg.MinScore = minScore
			}
			if flags.Changed("threshold") {
				e.cfg.DedupThreshold = threshold
			}
			if flags.Changed("output") {
				e.cfg.OutputDir = output
			}
			if err := e.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			p, err := e.pipeline(ctx)
			if err != nil {
				return err
			}
			res, err := p.Run(ctx)
			if err != nil {
				return fmt.Errorf("run pipeline: %w", err)
			}

			if n, err := e.store.PruneSummaries(ctx, time.Now().AddDate(0, 0, -summaryCacheDays)); err != nil {
				logger.Warn("pruning summary cache failed", "error", err)
			} else if n > 0 {
				logger.Info("summary cache pruned", "removed", n)
			}
			e.limiter.LogStats()

			printRunSummary(cmd, res, preview)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&days, "days", 7, "Only keep articles published in the last N days")
	f.IntVar(&maxExtract, "max-extract", 100, "Maximum number of pages to extract full text from")
	f.IntVar(&maxSummaries, "max-summaries", 20, "Number of articles to summarize")
	f.IntVar(&minScore, "min-score", 20, "Minimum relevance score")
	f.Float64Var(&threshold, "threshold", 0, "Title similarity threshold for duplicates (0 uses the rules file)")
	f.StringVar(&output, "output", "docs", "Output directory for the HTML pages")
	f.IntVar(&preview, "preview", 3, "Number of summaries to print after the run")
	return cmd
}

func printRunSummary(cmd *cobra.Command, res *app.Result, preview int) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s finished in %s\n", res.RunID, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  fetched:     %d (recent %d, unique %d, extracted %d)\n", res.Fetched, res.Recent, res.Unique, res.Extracted)
	fmt.Fprintf(out, "  scores:      mean %.1f, median %.1f, max %d, >50: %d, >30: %d\n",
		res.Stats.Mean, res.Stats.Median, res.Stats.Max, res.Stats.Above50, res.Stats.Above30)
	fmt.Fprintf(out, "  relevant:    %d (%d duplicates removed)\n", res.Relevant, res.Duplicates)
	fmt.Fprintf(out, "  summarized:  %d, additional: %d\n", res.Summarized, res.Additional)
	fmt.Fprintf(out, "  published:   %s\n", res.Published.Latest)

	for i, a := range news.Top(res.Top, preview) {
		fmt.Fprintf(out, "\n%d. (%d) %s", i+1, a.Score, news.FormatMessage(a))
	}
}

func regenerateCmd(debug *bool) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Rebuild the digest page from stored articles with manual adjustments applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(*debug)
			if err != nil {
				return err
			}
			defer e.Close()
			if output != "" {
				e.cfg.OutputDir = output
			}

			ctx := cmd.Context()
			p, err := e.pipeline(ctx)
			if err != nil {
				return err
			}
			res, err := p.Regenerate(ctx)
			if err != nil {
				return fmt.Errorf("regenerate digest: %w", err)
			}
			forced, blocked := e.adjust.Len()
			fmt.Fprintf(cmd.OutOrStdout(), "Regenerated %s: %d articles (%d forced, %d blocked links)\n",
				res.Published.Latest, res.Summarized, forced, blocked)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "Output directory for the HTML pages")
	return cmd
}

func estimateCmd(debug *bool) *cobra.Command {
	var articles, avgLen int

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the Gemini cost of one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(*debug)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("articles") {
				articles = e.cfg.MaxSummaries
			}
			c := gemini.EstimateCost(articles, avgLen)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d articles: %d input tokens ($%.4f), %d output tokens ($%.4f)\n",
				c.Articles, c.InputTokens, c.InputCost, c.OutputTokens, c.OutputCost)
			fmt.Fprintf(out, "total: $%.4f per run, $%.2f per 30 days\n", c.TotalCost, c.TotalCost*30)
			return nil
		},
	}
	cmd.Flags().IntVar(&articles, "articles", 20, "Number of articles summarized")
	cmd.Flags().IntVar(&avgLen, "avg-len", 2000, "Average article length in characters")
	return cmd
}
