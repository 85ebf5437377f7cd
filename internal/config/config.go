// Package config turns viper settings (defaults < config file < DUMPFS_*
// environment < flags) into a validated Config.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/jadenpxrk/dumpfs/internal/gitrepo"
	"github.com/jadenpxrk/dumpfs/internal/output"
)

// Viper keys.
const (
	KeyDirectory        = "directory"
	KeyOutput           = "output"
	KeyFormat           = "format"
	KeyIgnorePatterns   = "ignore_patterns"
	KeyIncludePatterns  = "include_patterns"
	KeyRespectGitignore = "respect_gitignore"
	KeyGitignorePath    = "gitignore_path"
	KeyHidden           = "hidden"
	KeyFollowSymlinks   = "follow_symlinks"
	KeyThreads          = "threads"
	KeyModel            = "model"
	KeyTokenizerFile    = "tokenizer_file"
	KeyMaxFileSize      = "max_file_size"
	KeyCacheDir         = "cache_dir"
	KeyNoCache          = "no_cache"
	KeyIncludeMetadata  = "include_metadata"
	KeyClip             = "clip"
	KeyStdout           = "stdout"
	KeyLogLevel         = "log_level"
	KeyGitCachePolicy   = "git_cache_policy"
)

// DefaultMaxFileSize is the size above which files are reported but not read.
const DefaultMaxFileSize = 10 << 20

// DefaultIgnorePatterns are always applied in addition to user patterns.
var DefaultIgnorePatterns = []string{
	// version control
	".git", ".svn", ".hg", ".bzr", ".gitignore", ".gitattributes",
	// os files
	".DS_Store", "Thumbs.db", "desktop.ini", "ehthumbs.db", "*.lnk", "*.url", ".directory",
	// dependencies
	"node_modules", "bower_components", ".npm", "package-lock.json", "yarn.lock", ".yarn",
	"vendor", "composer.lock", ".pnpm-store",
	// build output
	"dist", "build", "out", "bin", "release", "*.min.js", "*.min.css", "bundle.*",
	// python
	"__pycache__", ".pytest_cache", ".coverage", "venv", "env", ".env", ".venv",
	"*.pyc", "*.pyo", "*.pyd", ".python-version", "*.egg-info", "*.egg", "develop-eggs",
	// rust
	"target", "Cargo.lock", ".cargo",
	// editors
	".idea", ".vscode", ".vs", ".sublime-*", "*.swp", "*.swo", "*~", ".project",
	".settings", ".classpath", ".factorypath", "*.iml", "*.iws", "*.ipr",
	// caches and temp
	".cache", "tmp", "temp", "logs", ".sass-cache", ".eslintcache", "*.log",
	"npm-debug.log*", "yarn-debug.log*", "yarn-error.log*",
	// jvm
	".gradle", "gradle", ".maven", ".m2", "*.class", "*.jar", "*.war", "*.ear",
	// javascript
	"coverage", ".nyc_output", ".next", "*.tsbuildinfo", ".nuxt", ".output",
	// .NET
	"obj", "Debug", "Release", "packages", "*.suo", "*.user", "*.pubxml", "*.pubxml.user",
	// docs
	"_site", ".jekyll-cache", ".docusaurus",
	// mobile
	"xcuserdata", "*.xcworkspace", "Pods/", ".expo",
	// databases and archives
	"*.sqlite", "*.sqlite3", "*.db", "*.zip", "*.tar.gz", "*.tgz", "*.rar",
	// infrastructure
	".kube", "*.kubeconfig", ".terraform", "*.tfstate", "*.tfvars", "*.retry",
}

// Config is the resolved configuration of one run.
type Config struct {
	Directory        string
	Output           string
	Format           string
	IgnorePatterns   []string
	IncludePatterns  []string
	RespectGitignore bool
	GitignorePath    string
	Hidden           bool
	FollowSymlinks   bool
	Threads          int
	Model            string
	TokenizerFile    string
	MaxFileSize      int64
	CacheDir         string
	NoCache          bool
	IncludeMetadata  bool
	Clip             bool
	Stdout           bool
	LogLevel         string
	GitCachePolicy   string
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDirectory, ".")
	v.SetDefault(KeyOutput, "")
	v.SetDefault(KeyFormat, "xml")
	v.SetDefault(KeyIgnorePatterns, []string{})
	v.SetDefault(KeyIncludePatterns, []string{})
	v.SetDefault(KeyRespectGitignore, true)
	v.SetDefault(KeyGitignorePath, "")
	v.SetDefault(KeyHidden, false)
	v.SetDefault(KeyFollowSymlinks, false)
	v.SetDefault(KeyThreads, 0)
	v.SetDefault(KeyModel, "")
	v.SetDefault(KeyTokenizerFile, "")
	v.SetDefault(KeyMaxFileSize, DefaultMaxFileSize)
	v.SetDefault(KeyCacheDir, "")
	v.SetDefault(KeyNoCache, false)
	v.SetDefault(KeyIncludeMetadata, false)
	v.SetDefault(KeyClip, false)
	v.SetDefault(KeyStdout, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyGitCachePolicy, string(gitrepo.PolicyAlwaysPull))
}

// FromViper reads every key from v. Pattern lists accept both TOML arrays and
// comma-separated strings, as given on the command line or in the environment.
func FromViper(v *viper.Viper) Config {
	return Config{
		Directory:        v.GetString(KeyDirectory),
		Output:           v.GetString(KeyOutput),
		Format:           strings.ToLower(strings.TrimSpace(v.GetString(KeyFormat))),
		IgnorePatterns:   splitList(v.GetStringSlice(KeyIgnorePatterns)),
		IncludePatterns:  splitList(v.GetStringSlice(KeyIncludePatterns)),
		RespectGitignore: v.GetBool(KeyRespectGitignore),
		GitignorePath:    v.GetString(KeyGitignorePath),
		Hidden:           v.GetBool(KeyHidden),
		FollowSymlinks:   v.GetBool(KeyFollowSymlinks),
		Threads:          v.GetInt(KeyThreads),
		Model:            strings.TrimSpace(v.GetString(KeyModel)),
		TokenizerFile:    v.GetString(KeyTokenizerFile),
		MaxFileSize:      v.GetInt64(KeyMaxFileSize),
		CacheDir:         v.GetString(KeyCacheDir),
		NoCache:          v.GetBool(KeyNoCache),
		IncludeMetadata:  v.GetBool(KeyIncludeMetadata),
		Clip:             v.GetBool(KeyClip),
		Stdout:           v.GetBool(KeyStdout),
		LogLevel:         v.GetString(KeyLogLevel),
		GitCachePolicy:   v.GetString(KeyGitCachePolicy),
	}
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Directory) == "" {
		errs = append(errs, errors.New("directory must not be empty"))
	}
	if _, err := output.New(c.Format, output.Options{}); err != nil {
		errs = append(errs, fmt.Errorf("format %q: %w (valid: %s)", c.Format, err, strings.Join(output.Formats(), ", ")))
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("threads must be >= 0, got %d", c.Threads))
	}
	if c.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("max_file_size must be >= 0, got %d", c.MaxFileSize))
	}
	if _, err := gitrepo.ParsePolicy(c.GitCachePolicy); err != nil {
		errs = append(errs, err)
	}
	if c.Clip && c.Stdout {
		errs = append(errs, errors.New("clip and stdout are mutually exclusive"))
	}
	if c.Clip && output.Binary(c.Format) {
		errs = append(errs, fmt.Errorf("cannot copy %s output to the clipboard", c.Format))
	}
	if c.Stdout && output.Binary(c.Format) {
		errs = append(errs, fmt.Errorf("cannot write %s output to stdout", c.Format))
	}
	return errors.Join(errs...)
}

// WorkerCount is the size of the measurement pool.
func (c Config) WorkerCount() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.NumCPU()
}

var extensions = map[string]string{
	"xml":  "xml",
	"text": "txt",
	"yaml": "yaml",
	"pdf":  "pdf",
}

// OutputPath is the file the document is written to: Output when set,
// otherwise .content.<ext> for the configured format.
func (c Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	ext, ok := extensions[c.Format]
	if !ok {
		ext = c.Format
	}
	return ".content." + ext
}

// Ignore is the full ignore list: the defaults followed by the user's patterns.
func (c Config) Ignore() []string {
	out := make([]string, 0, len(DefaultIgnorePatterns)+len(c.IgnorePatterns))
	out = append(out, DefaultIgnorePatterns...)
	return append(out, c.IgnorePatterns...)
}
