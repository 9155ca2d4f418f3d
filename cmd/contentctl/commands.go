package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studyhive/contentcache/doccache"
	"github.com/studyhive/contentcache/doccache/sqlite"
	"github.com/studyhive/contentcache/identity"
	"github.com/studyhive/contentcache/pending"
	"github.com/studyhive/contentcache/remote/oras"
)

func newRootCmd(cfg *config) *cobra.Command {
	root := &cobra.Command{
		Use:           "contentctl",
		Short:         "Operate on local content caches",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfg.CachePath, "cache", cfg.CachePath, "path to the document cache database")
	root.PersistentFlags().StringVar(&cfg.QueuePath, "queue", cfg.QueuePath, "path to the pending deletion queue database")

	root.AddCommand(newStatsCmd(cfg))
	root.AddCommand(newPruneCmd(cfg))
	root.AddCommand(newFlushDeletesCmd(cfg))
	return root
}

func newStatsCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts and queued deletions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := sqlite.Open(cfg.CachePath)
			if err != nil {
				return err
			}
			defer cache.Close()

			stats, err := cache.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "subjects:   %d\n", stats[doccache.KindSubject])
			fmt.Fprintf(cmd.OutOrStdout(), "content:    %d\n", stats[doccache.KindContent])

			queue, err := pending.Open(cfg.QueuePath)
			if err != nil {
				return err
			}
			defer queue.Close()

			queued, err := queue.Len(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued deletions: %d\n", queued)
			return nil
		},
	}
}

func newPruneCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired entries from the document cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := sqlite.Open(cfg.CachePath)
			if err != nil {
				return err
			}
			defer cache.Close()

			n, err := cache.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d entries\n", n)
			return nil
		},
	}
}

func newFlushDeletesCmd(cfg *config) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "flush-deletes",
		Short: "Issue queued remote media deletions",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := pending.Open(cfg.QueuePath)
			if err != nil {
				return err
			}
			defer queue.Close()

			if dryRun {
				deletions, err := queue.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, d := range deletions {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tattempts=%d\n", d.Key, d.Reason, d.Attempts)
				}
				return nil
			}

			if cfg.MediaRepo == "" {
				return errors.New("CONTENTCTL_MEDIA_REPO is required")
			}
			opts := []oras.Option{oras.WithPlainHTTP(cfg.MediaPlainHTTP)}
			if cfg.MediaUsername != "" {
				opts = append(opts, oras.WithStaticCredentials(cfg.MediaUsername, cfg.MediaPassword))
			} else {
				opts = append(opts, oras.WithAnonymous())
			}
			store, err := oras.New(cfg.MediaRepo, opts...)
			if err != nil {
				return err
			}

			// The CLI runs out of band with operator credentials, so the
			// flush acts under an administrative identity.
			operator := &identity.User{UID: "contentctl", Access: identity.AccessAdmin}
			flushed, err := queue.Flush(cmd.Context(), store, operator)
			fmt.Fprintf(cmd.OutOrStdout(), "flushed %d deletions\n", flushed)
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list queued deletions without issuing them")
	return cmd
}
