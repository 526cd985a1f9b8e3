// Package settings loads runtime configuration from environment
// variables and the optional jurico.yaml project file.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is the default project configuration file name.
const ProjectFileName = "jurico.yaml"

// Defaults mirrored by the zero project file.
const (
	DefaultSourceLang    = "fr"
	DefaultTargetLang    = "it"
	DefaultMaxChunkChars = 15000
	DefaultOverlapChars  = 100
	DefaultFuzzyScore    = 70
	DefaultMemoryMinLen  = 4
	DefaultDupWindow     = 60 * time.Second
)

// Settings holds process-level configuration resolved from the environment.
type Settings struct {
	// AnthropicAPIKey authenticates the translation engine call.
	AnthropicAPIKey string
	// Model is the engine model identifier.
	Model string
	// DefaultSourceLang / DefaultTargetLang are used when a request
	// does not specify a language pair.
	DefaultSourceLang string
	DefaultTargetLang string
	// DataRoot is the directory holding memory.json, glossaries, and
	// per-job working directories.
	DataRoot string
}

// Project is the jurico.yaml structure. All fields are optional; zero
// values fall back to the package defaults.
type Project struct {
	// SourceLang / TargetLang override the environment defaults.
	SourceLang string `yaml:"source_lang,omitempty"`
	TargetLang string `yaml:"target_lang,omitempty"`

	// MaxChunkChars is the maximum segment size in characters.
	MaxChunkChars int `yaml:"max_chunk_chars,omitempty"`
	// OverlapChars is the overlap carried between adjacent sub-segments.
	OverlapChars int `yaml:"overlap_chars,omitempty"`

	// FuzzyScore is the glossary similarity threshold in percent (0-100).
	FuzzyScore int `yaml:"fuzzy_score,omitempty"`

	// MemoryMinLen is the minimum source length recorded into memory.
	MemoryMinLen int `yaml:"memory_min_len,omitempty"`
	// MemoryPlaceholderPattern excludes boilerplate from the memory store.
	MemoryPlaceholderPattern string `yaml:"memory_placeholder_pattern,omitempty"`

	// DuplicateWindowSeconds bounds duplicate-submission detection.
	DuplicateWindowSeconds int `yaml:"duplicate_window_seconds,omitempty"`

	// GlossaryDir is the directory scanned for *.csv glossaries.
	GlossaryDir string `yaml:"glossary_dir,omitempty"`
}

// Load reads settings from the environment. DATA_ROOT defaults to ./data
// and is created if missing.
func Load() (Settings, error) {
	dataRoot := os.Getenv("DATA_ROOT")
	if dataRoot == "" {
		dataRoot = "./data"
	}
	abs, err := filepath.Abs(dataRoot)
	if err != nil {
		return Settings{}, fmt.Errorf("resolving DATA_ROOT: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return Settings{}, fmt.Errorf("creating data root: %w", err)
	}

	s := Settings{
		AnthropicAPIKey:   envOrDefault("ANTHROPIC_API_KEY", ""),
		Model:             envOrDefault("ANTHROPIC_MODEL", "claude-3-sonnet-20240229"),
		DefaultSourceLang: envOrDefault("DEFAULT_SOURCE_LANG", DefaultSourceLang),
		DefaultTargetLang: envOrDefault("DEFAULT_TARGET_LANG", DefaultTargetLang),
		DataRoot:          abs,
	}
	return s, nil
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// LoadProject reads jurico.yaml from dir. A missing file yields the
// defaults; a malformed file is an error.
func LoadProject(dir string) (*Project, error) {
	p := &Project{}
	data, err := os.ReadFile(filepath.Join(dir, ProjectFileName))
	if err != nil {
		if os.IsNotExist(err) {
			p.applyDefaults()
			return p, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ProjectFileName, err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ProjectFileName, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ProjectFileName, err)
	}
	p.applyDefaults()
	return p, nil
}

func (p *Project) applyDefaults() {
	if p.SourceLang == "" {
		p.SourceLang = DefaultSourceLang
	}
	if p.TargetLang == "" {
		p.TargetLang = DefaultTargetLang
	}
	if p.MaxChunkChars == 0 {
		p.MaxChunkChars = DefaultMaxChunkChars
	}
	if p.OverlapChars == 0 {
		p.OverlapChars = DefaultOverlapChars
	}
	if p.FuzzyScore == 0 {
		p.FuzzyScore = DefaultFuzzyScore
	}
	if p.MemoryMinLen == 0 {
		p.MemoryMinLen = DefaultMemoryMinLen
	}
	if p.DuplicateWindowSeconds == 0 {
		p.DuplicateWindowSeconds = int(DefaultDupWindow / time.Second)
	}
	if p.GlossaryDir == "" {
		p.GlossaryDir = "glossary"
	}
}

func (p *Project) validate() error {
	if p.MaxChunkChars < 0 || p.OverlapChars < 0 {
		return fmt.Errorf("chunk sizes must be non-negative")
	}
	if p.MaxChunkChars > 0 && p.OverlapChars >= p.MaxChunkChars {
		return fmt.Errorf("overlap_chars (%d) must be smaller than max_chunk_chars (%d)",
			p.OverlapChars, p.MaxChunkChars)
	}
	if p.FuzzyScore < 0 || p.FuzzyScore > 100 {
		return fmt.Errorf("fuzzy_score must be between 0 and 100, got %d", p.FuzzyScore)
	}
	if p.MemoryPlaceholderPattern != "" {
		if _, err := regexp.Compile(p.MemoryPlaceholderPattern); err != nil {
			return fmt.Errorf("memory_placeholder_pattern: %w", err)
		}
	}
	return nil
}

// DuplicateWindow returns the duplicate-detection window as a duration.
func (p *Project) DuplicateWindow() time.Duration {
	return time.Duration(p.DuplicateWindowSeconds) * time.Second
}
