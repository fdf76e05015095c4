package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain cached results",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [url...]",
	Short: "Remove the cached results of exactly these urls, or all of them",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, err := openCache(cfg, log)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, c.Close()) }()

		if err := c.Clear(cmd.Context(), args...); err != nil {
			return err
		}
		if len(args) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d url(s)\n", len(args))
		}
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every expired entry",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, err := openCache(cfg, log)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, c.Close()) }()

		n, err := c.PurgeExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired entries\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cachePurgeCmd)
}
