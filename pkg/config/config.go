/*
Package config manages the TOML config of GrammarServe.

Every section maps onto one stage of the analysis engine; a file that fails
to decode as a whole is recovered section by section, and anything missing
keeps its built-in default.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/grammarserve/internal/utils"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Dict      DictConfig      `toml:"dict"`
	Tokenizer TokenizerConfig `toml:"tokenizer"`
	Tagger    TaggerConfig    `toml:"tagger"`
	Disambig  DisambigConfig  `toml:"disambig"`
	Synth     SynthConfig     `toml:"synth"`
	Scoring   ScoringConfig   `toml:"scoring"`
	Redis     RedisConfig     `toml:"redis"`
	Server    ServerConfig    `toml:"server"`
}

// DictConfig locates the morphological dictionary.
type DictConfig struct {
	Path string `toml:"path"`
	// Format is "text", "snapshot" or "auto".
	Format   string `toml:"format"`
	TagsFile string `toml:"tags_file"`
	// SynthPath is an optional separate dictionary for synthesis. When set,
	// synth.diacritics applies to it alone; otherwise to the main dictionary.
	SynthPath string `toml:"synth_path"`
	// CustomDict merges the redis custom dictionary at load time.
	CustomDict bool `toml:"custom_dict"`
}

// TokenizerConfig holds sentence and word splitting options.
type TokenizerConfig struct {
	// Language "ja" switches both tokenizers and the tagger to kagome.
	Language                   string   `toml:"language"`
	SingleLineBreakIsParagraph bool     `toml:"single_line_break_paragraph"`
	Abbreviations              []string `toml:"abbreviations"`
	// Clitics is "english", "romance" or "none".
	Clitics           string `toml:"clitics"`
	CompoundSplitting bool   `toml:"compound_splitting"`
}

// TaggerConfig holds dictionary lookup options.
type TaggerConfig struct {
	MaxTokenLength                int      `toml:"max_token_length"`
	DontTagLowercaseWithUppercase bool     `toml:"dont_tag_lowercase_with_uppercase"`
	Hooks                         []string `toml:"hooks"`
}

// DisambigConfig points at the chunker phrase list and the rule file.
// Empty paths disable the stage.
type DisambigConfig struct {
	MultiwordFile         string `toml:"multiword_file"`
	RulesFile             string `toml:"rules_file"`
	AllowFirstCapitalized bool   `toml:"allow_first_capitalized"`
	AllowAllUppercase     bool   `toml:"allow_all_uppercase"`
	RemovePreviousTags    bool   `toml:"remove_previous_tags"`
}

// SynthConfig selects the language extras of the synthesizer.
type SynthConfig struct {
	Determiner string `toml:"determiner"`
	Negation   string `toml:"negation"`
	Diacritics string `toml:"diacritics"`
}

// ScoringConfig configures the remote scoring client. An empty endpoint disables it.
type ScoringConfig struct {
	Endpoint  string `toml:"endpoint"`
	CacheSize int    `toml:"cache_size"`
	TimeoutMs int    `toml:"timeout_ms"`
}

// Timeout returns TimeoutMs as a duration.
func (s ScoringConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// RedisConfig holds the custom dictionary connection.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Key      string `toml:"key"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	HTTPAddr      string   `toml:"http_addr"`
	CORSOrigins   []string `toml:"cors_origins"`
	MaxTextLength int      `toml:"max_text_length"`
}

// Names accepted by the language option fields.
var (
	clitics     = []string{"english", "romance", "none", ""}
	hooks       = []string{"ment_adverb", "ly_adverb", "auto_prefix", "romance_clitics", "iste_variant"}
	determiners = []string{"english", "catalan", ""}
	polishOnly  = []string{"polish", ""}
	languages   = []string{"ja", ""}
	formats     = []string{"text", "snapshot", "auto", ""}
)

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "grammarserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "grammarserve")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/grammarserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Dict: DictConfig{
			Path:   filepath.Join("data", "dict.txt"),
			Format: "auto",
		},
		Tokenizer: TokenizerConfig{
			Abbreviations: []string{"Mr", "Mrs", "Ms", "Dr", "Prof", "St", "e.g", "i.e", "etc", "vs"},
			Clitics:       "english",
		},
		Tagger: TaggerConfig{
			MaxTokenLength: 50,
			Hooks:          []string{},
		},
		Disambig: DisambigConfig{
			AllowFirstCapitalized: true,
			RemovePreviousTags:    true,
		},
		Scoring: ScoringConfig{
			CacheSize: 1000,
			TimeoutMs: 2000,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			Key:  "grammarserve:custom_dict",
		},
		Server: ServerConfig{
			CORSOrigins:   []string{"*"},
			MaxTextLength: 20000,
		},
	}
}

// Validate reports option values no component understands.
func (c *Config) Validate() error {
	checks := []struct {
		field, value string
		allowed      []string
	}{
		{"dict.format", c.Dict.Format, formats},
		{"tokenizer.language", c.Tokenizer.Language, languages},
		{"tokenizer.clitics", c.Tokenizer.Clitics, clitics},
		{"synth.determiner", c.Synth.Determiner, determiners},
		{"synth.negation", c.Synth.Negation, polishOnly},
		{"synth.diacritics", c.Synth.Diacritics, polishOnly},
	}
	for _, h := range c.Tagger.Hooks {
		checks = append(checks, struct {
			field, value string
			allowed      []string
		}{"tagger.hooks", h, hooks})
	}
	for _, ch := range checks {
		if !contains(ch.allowed, ch.value) {
			return fmt.Errorf("invalid %s %q, expected one of %q", ch.field, ch.value, ch.allowed)
		}
	}
	if c.Tagger.MaxTokenLength < 0 || c.Scoring.CacheSize < 0 || c.Scoring.TimeoutMs < 0 {
		return fmt.Errorf("negative limits in config")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse recovers the sections that still decode as TOML tables.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(section, &config.Dict)
	}
	if section, ok := utils.ExtractSection(tempConfig, "tokenizer"); ok {
		extractTokenizerConfig(section, &config.Tokenizer)
	}
	if section, ok := utils.ExtractSection(tempConfig, "tagger"); ok {
		extractTaggerConfig(section, &config.Tagger)
	}
	if section, ok := utils.ExtractSection(tempConfig, "disambig"); ok {
		extractDisambigConfig(section, &config.Disambig)
	}
	if section, ok := utils.ExtractSection(tempConfig, "synth"); ok {
		extractSynthConfig(section, &config.Synth)
	}
	if section, ok := utils.ExtractSection(tempConfig, "scoring"); ok {
		extractScoringConfig(section, &config.Scoring)
	}
	if section, ok := utils.ExtractSection(tempConfig, "redis"); ok {
		extractRedisConfig(section, &config.Redis)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	return config, nil
}

func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractString(data, "path"); ok {
		dict.Path = val
	}
	if val, ok := utils.ExtractString(data, "format"); ok {
		dict.Format = val
	}
	if val, ok := utils.ExtractString(data, "tags_file"); ok {
		dict.TagsFile = val
	}
	if val, ok := utils.ExtractString(data, "synth_path"); ok {
		dict.SynthPath = val
	}
	if val, ok := utils.ExtractBool(data, "custom_dict"); ok {
		dict.CustomDict = val
	}
}

func extractTokenizerConfig(data map[string]any, tok *TokenizerConfig) {
	if val, ok := utils.ExtractString(data, "language"); ok {
		tok.Language = val
	}
	if val, ok := utils.ExtractBool(data, "single_line_break_paragraph"); ok {
		tok.SingleLineBreakIsParagraph = val
	}
	if val, ok := utils.ExtractStrings(data, "abbreviations"); ok {
		tok.Abbreviations = val
	}
	if val, ok := utils.ExtractString(data, "clitics"); ok {
		tok.Clitics = val
	}
	if val, ok := utils.ExtractBool(data, "compound_splitting"); ok {
		tok.CompoundSplitting = val
	}
}

func extractTaggerConfig(data map[string]any, tagger *TaggerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_token_length"); ok {
		tagger.MaxTokenLength = val
	}
	if val, ok := utils.ExtractBool(data, "dont_tag_lowercase_with_uppercase"); ok {
		tagger.DontTagLowercaseWithUppercase = val
	}
	if val, ok := utils.ExtractStrings(data, "hooks"); ok {
		tagger.Hooks = val
	}
}

func extractDisambigConfig(data map[string]any, d *DisambigConfig) {
	if val, ok := utils.ExtractString(data, "multiword_file"); ok {
		d.MultiwordFile = val
	}
	if val, ok := utils.ExtractString(data, "rules_file"); ok {
		d.RulesFile = val
	}
	if val, ok := utils.ExtractBool(data, "allow_first_capitalized"); ok {
		d.AllowFirstCapitalized = val
	}
	if val, ok := utils.ExtractBool(data, "allow_all_uppercase"); ok {
		d.AllowAllUppercase = val
	}
	if val, ok := utils.ExtractBool(data, "remove_previous_tags"); ok {
		d.RemovePreviousTags = val
	}
}

func extractSynthConfig(data map[string]any, s *SynthConfig) {
	if val, ok := utils.ExtractString(data, "determiner"); ok {
		s.Determiner = val
	}
	if val, ok := utils.ExtractString(data, "negation"); ok {
		s.Negation = val
	}
	if val, ok := utils.ExtractString(data, "diacritics"); ok {
		s.Diacritics = val
	}
}

func extractScoringConfig(data map[string]any, s *ScoringConfig) {
	if val, ok := utils.ExtractString(data, "endpoint"); ok {
		s.Endpoint = val
	}
	if val, ok := utils.ExtractInt64(data, "cache_size"); ok {
		s.CacheSize = val
	}
	if val, ok := utils.ExtractInt64(data, "timeout_ms"); ok {
		s.TimeoutMs = val
	}
}

func extractRedisConfig(data map[string]any, r *RedisConfig) {
	if val, ok := utils.ExtractString(data, "addr"); ok {
		r.Addr = val
	}
	if val, ok := utils.ExtractString(data, "password"); ok {
		r.Password = val
	}
	if val, ok := utils.ExtractInt64(data, "db"); ok {
		r.DB = val
	}
	if val, ok := utils.ExtractString(data, "key"); ok {
		r.Key = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractString(data, "http_addr"); ok {
		server.HTTPAddr = val
	}
	if val, ok := utils.ExtractStrings(data, "cors_origins"); ok {
		server.CORSOrigins = val
	}
	if val, ok := utils.ExtractInt64(data, "max_text_length"); ok {
		server.MaxTextLength = val
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return err
	}
	return utils.SaveTOMLFile(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// ResolvePath makes a relative data path absolute against the directory of the config file.
// Paths that already exist relative to the working directory are kept.
func ResolvePath(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) || utils.FileExists(p) || configPath == "" {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}
