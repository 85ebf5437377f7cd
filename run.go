package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/viper"

	"github.com/jadenpxrk/dumpfs/internal/cache"
	"github.com/jadenpxrk/dumpfs/internal/config"
	"github.com/jadenpxrk/dumpfs/internal/gitrepo"
	"github.com/jadenpxrk/dumpfs/internal/language"
	"github.com/jadenpxrk/dumpfs/internal/logger"
	"github.com/jadenpxrk/dumpfs/internal/output"
	"github.com/jadenpxrk/dumpfs/internal/rules"
	"github.com/jadenpxrk/dumpfs/internal/scanner"
	"github.com/jadenpxrk/dumpfs/internal/tokenizer"
)

type runOptions struct {
	interactive bool
}

// run acquires the target, scans it, writes the document and prints the report.
func run(ctx context.Context, cfg config.Config, ro runOptions) error {
	log := logger.New(os.Stderr, cfg.LogLevel)

	target, repo, err := acquire(ctx, cfg, log)
	if err != nil {
		return err
	}

	include := cfg.IncludePatterns
	if ro.interactive {
		picked, err := runInteractiveFinder(target, cfg.Hidden)
		if err != nil {
			return fmt.Errorf("interactive mode: %w", err)
		}
		if picked == nil {
			return nil
		}
		include = append(include, picked...)
	}

	engine, err := rules.New(target, rules.Options{
		Ignore:           cfg.Ignore(),
		Include:          include,
		RespectGitignore: cfg.RespectGitignore,
		GitignorePath:    cfg.GitignorePath,
		SkipHidden:       !cfg.Hidden,
	})
	if err != nil {
		return err
	}

	modelID, counter, err := tokenCounter(cfg)
	if err != nil {
		return err
	}

	if _, _, err := scanner.ResolveRoot(target); err != nil {
		return err
	}
	tokens, err := cache.Open(target, cache.Options{
		Dir:      cfg.CacheDir,
		Counter:  counter,
		Disabled: cfg.NoCache || modelID == "",
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("failed to open token cache: %w", err)
	}

	langs, err := language.Load(language.SearchPaths()...)
	if err != nil {
		log.Warnf("could not load language definitions: %v", err)
	}

	outPath, err := filepath.Abs(cfg.OutputPath())
	if err != nil {
		return fmt.Errorf("error resolving output path: %w", err)
	}

	bar := newProgress(os.Stderr)
	st, err := scanner.Scan(ctx, scanner.Options{
		Root:           target,
		Rules:          engine,
		Tokens:         tokens,
		Model:          modelID,
		Workers:        cfg.WorkerCount(),
		FollowSymlinks: cfg.FollowSymlinks,
		MaxFileSize:    cfg.MaxFileSize,
		Languages:      langs,
		Exclude:        []string{outPath},
		Logger:         log,
		Progress:       bar,
	})
	bar.Finish()
	if err != nil {
		return err
	}
	if err := tokens.Save(); err != nil {
		log.Warnf("failed to save token cache: %v", err)
	}

	w, err := output.New(cfg.Format, output.Options{IncludeMetadata: cfg.IncludeMetadata, Repo: repo})
	if err != nil {
		return err
	}
	data, err := output.Render(w, st)
	if err != nil {
		return err
	}

	report := io.Writer(os.Stdout)
	switch {
	case cfg.Stdout:
		report = os.Stderr
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("error writing to stdout: %w", err)
		}
	case cfg.Clip:
		if err := clipboard.WriteAll(string(data)); err != nil {
			return fmt.Errorf("error writing to clipboard: %w", err)
		}
		log.Infof("Output copied to clipboard.")
	default:
		if err := output.WriteFile(outPath, data); err != nil {
			return err
		}
	}

	printReport(report, st, reportInfo{
		Output: destination(cfg, outPath),
		Model:  cfg.Model,
		Cache:  tokens.Stats(),
	})
	return nil
}

// acquire resolves the scan root, cloning or updating a remote repository
// when the directory argument is a Git URL.
func acquire(ctx context.Context, cfg config.Config, log *logger.Logger) (string, *gitrepo.Repo, error) {
	if !gitrepo.IsURL(cfg.Directory) {
		return cfg.Directory, nil, nil
	}
	repo, err := gitrepo.Parse(cfg.Directory)
	if err != nil {
		return "", nil, err
	}
	policy, err := gitrepo.ParsePolicy(cfg.GitCachePolicy)
	if err != nil {
		return "", nil, err
	}
	dir, err := gitrepo.Fetch(ctx, repo, gitrepo.FetchOptions{
		CacheDir: cfg.CacheDir,
		Policy:   policy,
		Progress: gitProgress(os.Stderr),
		Logger:   log,
	})
	if err != nil {
		return "", nil, err
	}
	return dir, &repo, nil
}

// tokenCounter returns the provider ID and counter for the configured model.
// Without a model every count is an estimate.
func tokenCounter(cfg config.Config) (string, tokenizer.Counter, error) {
	if cfg.Model == "" {
		return "", nil, nil
	}
	m, err := tokenizer.Lookup(cfg.Model)
	if err != nil {
		return "", nil, err
	}
	counter, err := tokenizer.NewCounter(m, tokenizer.Options{TokenizerFile: cfg.TokenizerFile})
	if err != nil {
		return "", nil, err
	}
	return m.ID, counter, nil
}

func destination(cfg config.Config, outPath string) string {
	switch {
	case cfg.Stdout:
		return "stdout"
	case cfg.Clip:
		return "clipboard"
	}
	return outPath
}

func runCleanCache(w io.Writer, days int) error {
	if days < 0 {
		return errors.New("clean-cache expects a non-negative number of days")
	}
	base := viper.GetString(config.KeyCacheDir)
	if base == "" {
		var err error
		if base, err = gitrepo.DefaultCacheDir(); err != nil {
			return err
		}
	}
	removed, err := gitrepo.CleanCache(base, time.Duration(days)*24*time.Hour, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Removed %d cached repositories older than %d days from %s\n", removed, days, base)
	return nil
}
