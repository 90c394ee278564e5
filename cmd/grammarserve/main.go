// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the grammar analysis server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

GrammarServe splits text into sentences and tokens, tags every token with its
candidate lemma and part-of-speech readings from a morphological dictionary,
narrows those readings with multiword and rule-based disambiguation, and
synthesizes inflected forms from a lemma and a tag. It can operate as a
MessagePack IPC server for integration with editors and checkers, as an HTTP
service, or as a CLI application for testing and debugging.

# Usage

Start the IPC server with default settings:

	grammarserve

Use a custom dictionary and enable debug mode:

	grammarserve -dict /path/to/dict.txt -d

Serve over HTTP instead of stdin/stdout:

	grammarserve -http :8080

Run in CLI mode for interactive testing:

	grammarserve -c

The dictionary is a tab separated text file with one "form lemma tag" entry
per line, or its binary msgpack form. It is loaded on the first request that
needs it, not at startup. A text dictionary is converted once with:

	grammarserve -dict dict.txt -build-snapshot dict.bin

# Configuration

Runtime configuration is managed through a TOML file in the user config
directory. It selects the dictionary, the tokenizer language, the tagger
hooks, the disambiguation resources and the optional scoring service:

	[dict]
	path = "data/dict.txt"
	format = "auto"

	[tokenizer]
	language = ""        # "ja" switches to the kagome analyzer
	clitics = "english"

	[disambig]
	multiword_file = "data/multiwords.txt"
	rules_file = "data/rules.yaml"

	[scoring]
	endpoint = ""

The config file is created with defaults if it doesn't exist. A damaged
file is parsed section by section; sections that cannot be read keep their
defaults. Relative paths are resolved against the config file's directory.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. Requests are
processed synchronously with microsecond timing information included in
responses.

Send an analysis request:

	{"id": "a1", "op": "analyze", "text": "The dog barks."}

Receive sentences with every token and its readings:

	{"id": "a1", "s": [{"o": 0, "x": "The dog barks.", "k": [...]}], "c": 1, "t": 145}

Synthesis requests name a lemma and a tag or a tag pattern:

	{"id": "s1", "op": "synthesize", "lemma": "run", "tag": "VBD"}

# CLI Mode

CLI mode reads sentences from stdin and prints every token with its
readings. Lines starting with ":syn" or ":pat" run the synthesizer.

	inputHandler := cli.NewInputHandler(eng, os.Stdin, os.Stdout)
	err := inputHandler.Start(ctx)

Any new tagger hook or disambiguation rule should be tried in CLI mode first.

# Command Line Flags

The following flags control application behavior:

	-config string
	    Path to a custom config file
	-dict string
	    Dictionary file, overrides the config file
	-d  Enable debug mode with detailed logging
	-json
	    Log as JSON
	-c  Run in CLI mode instead of server mode
	-http string
	    Serve HTTP on this address instead of IPC
	-init-config
	    Rewrite the default config file and exit
	-build-snapshot string
	    Write the configured dictionary as a binary snapshot to this file and exit
	-version
	    Show current version

Data paths are resolved relative to the executable, the working directory and
the user config directory, supporting both development and production deployments.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/grammarserve/internal/cli"
	"github.com/bastiangx/grammarserve/internal/logger"
	"github.com/bastiangx/grammarserve/internal/utils"
	"github.com/bastiangx/grammarserve/pkg/config"
	"github.com/bastiangx/grammarserve/pkg/dictionary"
	"github.com/bastiangx/grammarserve/pkg/engine"
	"github.com/bastiangx/grammarserve/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.1.0-beta"
	AppName = "grammarserve"
	gh      = "https://github.com/bastiangx/grammarserve"
)

// sigHandler cancels the returned context on the first interrupt and exits on the second.
func sigHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}

// main calls other packages to initialize the server or CLI inputs.
// main() does not implement logic for them and only manages the flow.
func main() {
	ctx := sigHandler()

	// custom Flags
	showVersion := flag.Bool("version", false, "Show current version")
	configFile := flag.String("config", "", "Path to a custom config file")
	dictFile := flag.String("dict", "", "Dictionary file (overrides the config file)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	jsonLogs := flag.Bool("json", false, "Log as JSON")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	httpAddr := flag.String("http", "", "Serve HTTP on this address instead of IPC (e.g. :8080)")
	initConfig := flag.Bool("init-config", false, "Rewrite the default config file and exit")
	snapshotOut := flag.String("build-snapshot", "", "Write the dictionary as a binary snapshot to this file and exit")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.Setup(*debugMode, *jsonLogs)

	if *initConfig {
		if err := config.RebuildConfigFile(); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		path, _ := config.GetDefaultConfigPath()
		log.Printf("Wrote default config to %s", path)
		return
	}

	// Initialize path resolver for robust path handling
	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Print("Either env is not set or system is not supported")
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	if *debugMode {
		info := pathResolver.GetRuntimeInfo()
		for k, v := range info {
			log.Debug("runtime", k, v)
		}
	}

	cfg, configPath, err := config.LoadConfigWithPriority(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(configPath))

	if *dictFile != "" {
		cfg.Dict.Path = pathResolver.ResolveDataFile(*dictFile)
	} else if configPath == "" {
		cfg.Dict.Path = pathResolver.ResolveDataFile(cfg.Dict.Path)
	}
	log.Debugf("Using dictionary at: %s", cfg.Dict.Path)

	if *snapshotOut != "" {
		src := config.ResolvePath(configPath, cfg.Dict.Path)
		loader := dictionary.NewLoader(src, dictionary.ParseFormat(cfg.Dict.Format))
		stats, err := dictionary.BuildSnapshot(ctx, loader, *snapshotOut)
		if err != nil {
			log.Fatalf("Failed to build snapshot: %v", err)
		}
		log.Printf("Wrote %s: %d entries from %s (%s) in %v", *snapshotOut, stats.FileEntries, stats.Path, stats.Format, stats.Elapsed)
		return
	}

	eng, err := engine.FromConfig(ctx, cfg, configPath)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Warnf("Closing engine: %v", err)
		}
	}()

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(eng, os.Stdin, os.Stdout)
		if err := inputHandler.Start(ctx); err != nil {
			log.Errorf("CLI error: %v", err)
		}
		return
	}

	showStartupInfo(cfg)

	addr := *httpAddr
	if addr == "" {
		addr = cfg.Server.HTTPAddr
	}
	if addr != "" {
		handler := server.NewHTTPHandler(eng, cfg.Server)
		if err := server.ListenAndServe(ctx, addr, handler); err != nil {
			log.Errorf("HTTP server stopped: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(eng, cfg.Server, os.Stdin, os.Stdout)
	if err := srv.Start(ctx); err != nil {
		log.Errorf("IPC server stopped: %v", err)
	}
}

func printVersion() {
	l := logger.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ GrammarServe ] Tags, disambiguates and inflects text")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(cfg *config.Config) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	fmt.Fprintln(os.Stderr, "==============")
	fmt.Fprintln(os.Stderr, " GrammarServe ")
	fmt.Fprintln(os.Stderr, "==============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("language: ( %s )", cfg.Tokenizer.Language)
	log.Infof("dictionary: ( %s )", cfg.Dict.Path)
	if cfg.Scoring.Endpoint != "" {
		log.Infof("scoring: ( %s )", cfg.Scoring.Endpoint)
	}
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "==============")
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
