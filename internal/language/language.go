// Package language maps file names to language names using a linguist style
// languages.yml, falling back to chroma's lexer registry.
package language

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"gopkg.in/yaml.v3"
)

// Info holds the fields of a languages.yml entry used for detection.
type Info struct {
	Type         string   `yaml:"type"` // e.g., programming, data, markup
	Extensions   []string `yaml:"extensions"`
	Filenames    []string `yaml:"filenames"`
	Interpreters []string `yaml:"interpreters"`
}

// Map maps language names (e.g., "Go") to their details.
type Map map[string]Info

// Detector resolves languages. The zero value and a nil *Detector use the
// chroma fallback only.
type Detector struct {
	langs        Map
	extensionMap map[string]string // ".go" -> "Go"
	filenameMap  map[string]string // "Makefile" -> "Makefile"
}

// SearchPaths are the directories checked by Load, in order.
func SearchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "dumpfs"))
	}
	return append(paths, ".")
}

// Load reads the first languages.yml found in dirs. It returns (nil, nil)
// when none exists.
func Load(dirs ...string) (*Detector, error) {
	for _, dir := range dirs {
		p := filepath.Join(dir, "languages.yml")
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error reading language file %s: %w", p, err)
		}
		d, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("error parsing language file %s: %w", p, err)
		}
		return d, nil
	}
	return nil, nil
}

// Parse builds a Detector from languages.yml content. When several languages
// claim the same extension the alphabetically first one wins.
func Parse(data []byte) (*Detector, error) {
	var langs Map
	if err := yaml.Unmarshal(data, &langs); err != nil {
		return nil, err
	}

	d := &Detector{
		langs:        langs,
		extensionMap: make(map[string]string),
		filenameMap:  make(map[string]string),
	}

	names := make([]string, 0, len(langs))
	for name := range langs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := langs[name]
		for _, ext := range info.Extensions {
			ext = strings.ToLower(ext)
			if _, ok := d.extensionMap[ext]; !ok {
				d.extensionMap[ext] = name
			}
		}
		for _, fname := range info.Filenames {
			if _, ok := d.filenameMap[fname]; !ok {
				d.filenameMap[fname] = name
			}
		}
	}
	return d, nil
}

// Len is the number of languages loaded from languages.yml.
func (d *Detector) Len() int {
	if d == nil {
		return 0
	}
	return len(d.langs)
}

// Detect returns the language name for a file path, or "" when unknown.
// Exact file names take precedence over extensions.
func (d *Detector) Detect(path string) string {
	base := filepath.Base(path)
	if d != nil {
		if lang, ok := d.filenameMap[base]; ok {
			return lang
		}
		if ext := strings.ToLower(filepath.Ext(base)); ext != "" {
			if lang, ok := d.extensionMap[ext]; ok {
				return lang
			}
		}
	}
	if lexer := lexers.Match(base); lexer != nil {
		return lexer.Config().Name
	}
	return ""
}
