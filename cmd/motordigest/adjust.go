package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func topCmd(debug *bool) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "top [n]",
		Short: "List the best stored articles with their manual adjustments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 20
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v <= 0 {
					return fmt.Errorf("invalid count %q", args[0])
				}
				n = v
			}

			e, err := loadEnv(*debug)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.openStore(); err != nil {
				return err
			}

			ctx := cmd.Context()
			articles, err := e.store.LoadArticles(ctx, time.Now().AddDate(0, 0, -days))
			if err != nil {
				return err
			}
			stats, err := e.store.Stats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d stored articles, %d cached summaries\n\n", stats["articles"], stats["summary_cache"])

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tSCORE\tSOURCE\tTITLE\tLINK\tNOTE")
			for i, a := range articles {
				if i >= n {
					break
				}
				adjusted, blocked, note := e.adjust.Status(a.Link, a.Score)
				score := strconv.Itoa(adjusted)
				if adjusted != a.Score {
					score = fmt.Sprintf("%d (was %d)", adjusted, a.Score)
				}
				if blocked {
					score = "blocked"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, score, a.Source, clip(a.Title, 70), a.Link, note)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Only list articles published in the last N days")
	return cmd
}

func adjustCmd(debug *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Force scores or block links before regenerating the digest",
	}

	var note string
	force := &cobra.Command{
		Use:   "force <link> <score>",
		Short: "Force the score of an article (0-100)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid score %q", args[1])
			}
			return withAdjustments(*debug, func(e *env) error {
				if err := e.adjust.Force(args[0], score, note); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "score of %s forced to %d\n", args[0], score)
				return nil
			})
		},
	}
	force.Flags().StringVar(&note, "note", "", "Reason shown in listings")

	block := &cobra.Command{
		Use:   "block <link> [reason...]",
		Short: "Exclude an article from the digest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason := strings.Join(args[1:], " ")
			return withAdjustments(*debug, func(e *env) error {
				if err := e.adjust.Block(args[0], reason); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "blocked %s\n", args[0])
				return nil
			})
		},
	}

	unblock := &cobra.Command{
		Use:   "unblock <link>",
		Short: "Allow a blocked article again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdjustments(*debug, func(e *env) error {
				ok, err := e.adjust.Unblock(args[0])
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s was not blocked\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "unblocked %s\n", args[0])
				return nil
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset <link>",
		Short: "Drop every adjustment for a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdjustments(*debug, func(e *env) error {
				if err := e.adjust.Reset(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "adjustments reset for %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(force, block, unblock, reset)
	return cmd
}

func withAdjustments(debug bool, fn func(e *env) error) error {
	e, err := loadEnv(debug)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.openStore(); err != nil {
		return err
	}
	return fn(e)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
