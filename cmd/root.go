package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AlfredBerg/job-scout/internal/config"
)

var cfgFile string

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.job-scout.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error.")
	rootCmd.PersistentFlags().Bool("log-dev", false, "Human readable logs instead of JSON.")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Neither read nor write cached results.")

	cobra.CheckErr(viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(viper.BindPFlag("log.dev", rootCmd.PersistentFlags().Lookup("log-dev")))

	rootCmd.AddCommand(runCmd, serveCmd, cacheCmd)
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	// A missing .env is fine, a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		cobra.CheckErr(fmt.Errorf("load .env: %w", err))
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".job-scout" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".job-scout")
	}

	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

var rootCmd = &cobra.Command{
	Use:   "job-scout",
	Short: "Checks business websites for signs that they are hiring",
	Long: `job-scout visits the website of each business in a batch with a headless
browser, scores the page for hiring signals, follows up to three career links
and reports every business that looks like it is hiring.`,
	SilenceUsage: true,
}
