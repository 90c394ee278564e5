package engine

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/bastiangx/grammarserve/pkg/config"
	"github.com/bastiangx/grammarserve/pkg/customdict"
	"github.com/bastiangx/grammarserve/pkg/dictionary"
	"github.com/bastiangx/grammarserve/pkg/disambig"
	"github.com/bastiangx/grammarserve/pkg/lang/ja"
	"github.com/bastiangx/grammarserve/pkg/scoring"
	"github.com/bastiangx/grammarserve/pkg/synth"
	"github.com/bastiangx/grammarserve/pkg/tagger"
	"github.com/bastiangx/grammarserve/pkg/tokenize"
	"github.com/charmbracelet/log"
)

// Tagger hooks selectable by name in the config file.
var namedHooks = map[string]func() tagger.Hook{
	"ment_adverb": func() tagger.Hook {
		return tagger.SuffixHook("ment", tagger.StripSuffix("ment"), regexp.MustCompile(`^AQ.[FC][SN]`), "RG")
	},
	"ly_adverb": func() tagger.Hook {
		return tagger.SuffixHook("ly", tagger.SnowballBase("english"), regexp.MustCompile(`^JJ`), "RB")
	},
	"auto_prefix": func() tagger.Hook {
		return tagger.PrefixHook([]string{"auto", "anti", "contra", "micro", "multi", "pre", "re", "semi", "sobre"},
			3, regexp.MustCompile(`^(?:V|N|AQ)`))
	},
	"romance_clitics": func() tagger.Hook {
		return tagger.CliticRetryHook(
			regexp.MustCompile(`^(.+?)-?(?:me|te|se|nos|vos|lo|la|los|las|le|les|hi|ho|en|ne)$`),
			regexp.MustCompile(`^V`))
	},
	"iste_variant": func() tagger.Hook {
		return tagger.MapSuffixHook("iste", "ista")
	},
}

// FromConfig builds an engine from cfg. Relative paths are resolved against
// the directory of configPath. The dictionary itself is loaded on first use.
func FromConfig(ctx context.Context, cfg *config.Config, configPath string) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	resolve := func(p string) string { return config.ResolvePath(configPath, p) }

	var closers []io.Closer
	var sources []dictionary.Source
	if cfg.Dict.CustomDict {
		cd, err := customdict.Dial(ctx, customdict.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		})
		if err != nil {
			log.Warnf("Custom dictionary unavailable, continuing without it: %v", err)
		} else {
			sources = append(sources, cd)
			closers = append(closers, cd)
		}
	}

	dict := dictionary.Open(resolve(cfg.Dict.Path), dictionary.ParseFormat(cfg.Dict.Format), sources...)
	if cfg.Dict.TagsFile != "" {
		dict = dict.WithTagFile(resolve(cfg.Dict.TagsFile))
	}

	var codec *synth.DiacriticCodec
	if cfg.Synth.Diacritics == "polish" {
		codec = synth.PolishDiacritics()
	}

	opts := Options{Closers: closers}
	if cfg.Tokenizer.Language == "ja" {
		analyzer, err := ja.New()
		if err != nil {
			return nil, err
		}
		opts.Sentences = ja.SentenceTokenizer{}
		opts.Words = analyzer
		opts.Tagger = analyzer
	} else {
		tagOpts := tagger.Options{
			MaxTokenLength:                cfg.Tagger.MaxTokenLength,
			DontTagLowercaseWithUppercase: cfg.Tagger.DontTagLowercaseWithUppercase,
			Hooks:                         hooksByName(cfg.Tagger.Hooks),
		}
		if codec != nil && cfg.Dict.SynthPath == "" {
			tagOpts.Codec = codec
		}
		tg := tagger.New(dict, tagOpts)
		opts.Tagger = tg
		opts.Sentences = tokenize.NewSentenceTokenizer(tokenize.SentenceOptions{
			SingleLineBreakIsParagraph: cfg.Tokenizer.SingleLineBreakIsParagraph,
			Abbreviations:              cfg.Tokenizer.Abbreviations,
		})
		wordOpts := tokenize.WordOptions{Clitics: cliticsByName(cfg.Tokenizer.Clitics)}
		if cfg.Tokenizer.CompoundSplitting {
			wordOpts.Lexicon = tg
		}
		opts.Words = tokenize.NewWordTokenizer(wordOpts)
	}

	pipeline, err := pipelineFromConfig(cfg.Disambig, resolve)
	if err != nil {
		return nil, err
	}
	opts.Pipeline = pipeline

	synthOpts := synth.Options{}
	switch cfg.Synth.Determiner {
	case "english":
		synthOpts.Determiner = synth.NewEnglishDeterminer()
	case "catalan":
		synthOpts.Determiner = synth.NewCatalanDeterminer()
	}
	if cfg.Synth.Negation == "polish" {
		synthOpts.Negation = synth.PolishNegation()
	}
	if codec != nil {
		synthOpts.Codec = codec
	}
	synthDict := dict
	if cfg.Dict.SynthPath != "" {
		synthDict = dictionary.Open(resolve(cfg.Dict.SynthPath), dictionary.ParseFormat(cfg.Dict.Format))
		if cfg.Dict.TagsFile != "" {
			synthDict = synthDict.WithTagFile(resolve(cfg.Dict.TagsFile))
		}
	}
	opts.Synthesizer = synth.New(synthDict, synthOpts)

	if cfg.Scoring.Endpoint != "" {
		client, err := scoring.NewClient(scoring.NewHTTPRemote(cfg.Scoring.Endpoint, cfg.Scoring.Timeout()), cfg.Scoring.CacheSize)
		if err != nil {
			return nil, err
		}
		opts.Scorer = client
	}
	return New(opts)
}

func pipelineFromConfig(cfg config.DisambigConfig, resolve func(string) string) (*disambig.Pipeline, error) {
	var stages []disambig.Stage
	if cfg.MultiwordFile != "" {
		chunker, err := disambig.LoadMultiWordChunker(resolve(cfg.MultiwordFile), disambig.ChunkerOptions{
			AllowFirstCapitalized: cfg.AllowFirstCapitalized,
			AllowAllUppercase:     cfg.AllowAllUppercase,
			RemovePreviousTags:    cfg.RemovePreviousTags,
		})
		if err != nil {
			return nil, fmt.Errorf("multiword chunker: %w", err)
		}
		stages = append(stages, chunker)
	}
	if cfg.RulesFile != "" {
		rules, err := disambig.LoadRuleDisambiguator(resolve(cfg.RulesFile))
		if err != nil {
			return nil, err
		}
		stages = append(stages, rules)
	}
	return disambig.NewPipeline(stages...), nil
}

func hooksByName(names []string) []tagger.Hook {
	hooks := make([]tagger.Hook, 0, len(names))
	for _, n := range names {
		if build, ok := namedHooks[n]; ok {
			hooks = append(hooks, build())
		}
	}
	return hooks
}

func cliticsByName(name string) []tokenize.CliticRule {
	switch name {
	case "english":
		return tokenize.EnglishClitics()
	case "romance":
		return tokenize.RomanceClitics()
	default:
		return nil
	}
}
