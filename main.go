package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jadenpxrk/dumpfs/internal/config"
	"github.com/jadenpxrk/dumpfs/internal/tokenizer"
)

var (
	cfgFile         string
	interactiveMode bool
	cleanCacheDays  int
)

// version is the application version, set via ldflags.
var version string = "dev"

var rootCmd = &cobra.Command{
	Use:   "dumpfs [DIRECTORY|GIT_URL] [OUTPUT]",
	Short: "Generate an LLM-ready representation of a directory and its contents.",
	Long: `dumpfs walks a directory (or a cloned Git repository), filters it through
ignore, include and .gitignore rules, counts lines and tokens for every file
in parallel and writes the tree with file contents as XML, text, YAML or PDF.`,
	Version:       version,
	Args:          cobra.MaximumNArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("clean-cache") {
			return runCleanCache(cmd.OutOrStdout(), cleanCacheDays)
		}

		if len(args) > 0 {
			viper.Set(config.KeyDirectory, args[0])
		}
		if len(args) > 1 {
			viper.Set(config.KeyOutput, args[1])
		}

		cfg := config.FromViper(viper.GetViper())
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return run(cmd.Context(), cfg, runOptions{interactive: interactiveMode})
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/dumpfs/config.toml)")

	flags := rootCmd.Flags()

	// Filtering
	flags.StringSlice("ignore-patterns", nil, "Additional patterns to ignore (comma-separated)")
	flags.StringSlice("include-patterns", nil, "Only include files matching these patterns (comma-separated)")
	flags.Bool("respect-gitignore", true, "Apply .gitignore rules")
	flags.String("gitignore-path", "", "Use this .gitignore file instead of the project's own")
	flags.BoolP("hidden", "H", false, "Include hidden files and directories")
	flags.BoolP("follow-symlinks", "L", false, "Follow symbolic links")
	flags.Int64("max-file-size", config.DefaultMaxFileSize, "Files larger than this many bytes are listed without content (0 for no limit)")

	// Output
	flags.StringP("output", "o", "", "Output file (default .content.<format>)")
	flags.StringP("format", "f", "xml", "Output format: xml, text, yaml or pdf")
	flags.Bool("include-metadata", false, "Include size, modification time and permissions")
	flags.BoolP("clip", "c", false, "Copy the output to the clipboard instead of writing a file")
	flags.BoolP("stdout", "p", false, "Print the output to stdout instead of writing a file")

	// Processing
	flags.IntP("threads", "t", 0, "Number of worker threads (0 for one per CPU)")
	flags.StringP("model", "m", "", "Model for exact token counts: "+strings.Join(tokenizer.ModelNames(), ", "))
	flags.String("tokenizer-file", "", "Local tokenizer.json for HuggingFace models")
	flags.String("cache-dir", "", "Token and repository cache directory (default is the user cache dir)")
	flags.Bool("no-cache", false, "Do not read or write the token cache")
	flags.String("git-cache-policy", "always_pull", "Reuse of cached clones: always_pull, prefer_cache or force_clone")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")

	// Modes
	flags.BoolVar(&interactiveMode, "interactive", false, "Pick files and directories to include with a fuzzy finder")
	flags.IntVar(&cleanCacheDays, "clean-cache", 0, "Remove cached repositories not used for DAYS days and exit")

	for _, name := range []string{
		"ignore-patterns", "include-patterns", "respect-gitignore", "gitignore-path",
		"hidden", "follow-symlinks", "max-file-size", "output", "format",
		"include-metadata", "clip", "stdout", "threads", "model", "tokenizer-file",
		"cache-dir", "no-cache", "git-cache-policy", "log-level",
	} {
		viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "dumpfs"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.AutomaticEnv() // read in environment variables that match DUMPFS_*
	viper.SetEnvPrefix("DUMPFS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
