package main

import (
	"flag"
	"fmt"
	"os"

	taskcache "github.com/taskcache/taskcache"
	"github.com/taskcache/taskcache/cache"
	packer "github.com/taskcache/taskcache/pkg/entry-packer"
	outputset "github.com/taskcache/taskcache/pkg/output-set"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	configFilenameFlag string
	directoryFlag      string
	providerFlag       string
	verbosityTraceFlag bool
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.StringVar(&directoryFlag, "dir", "", "Cache directory (overrides config)")
	flag.StringVar(&providerFlag, "provider", "", "Store backend to use (overrides config)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  taskcache [flags] pack <root> <key>     pack a directory tree and store it")
	fmt.Fprintln(os.Stderr, "  taskcache [flags] unpack <key> <root>   restore a stored entry into a directory")
	fmt.Fprintln(os.Stderr, "  taskcache [flags] keys                  list stored keys")
	flag.PrintDefaults()
	os.Exit(1)
}

func main() {
	flag.Parse()

	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}
	log.Logger = log.Level(logLevel).Output(zerolog.ConsoleWriter{Out: os.Stdout})

	config, err := taskcache.LoadConfig(configFilenameFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load config")
	}
	if directoryFlag != "" {
		config.Directory = directoryFlag
	}
	if providerFlag != "" {
		config.Provider = providerFlag
	}

	store, err := config.NewStore(&log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not open cache store")
	}

	switch flag.Arg(0) {
	case "pack":
		if flag.NArg() != 3 {
			usage()
		}
		root, key := flag.Arg(1), cache.Key(flag.Arg(2))
		blob, err := packer.Pack(outputset.FilteredTree(root, nil, nil))
		if err != nil {
			log.Fatal().Err(err).Msg("Could not pack directory")
		}
		if err := store.Put(key, blob); err != nil {
			log.Fatal().Err(err).Msg("Could not store entry")
		}
		log.Info().Str("key", string(key)).Int("bytes", len(blob)).Msg("Stored entry")
	case "unpack":
		if flag.NArg() != 3 {
			usage()
		}
		key, root := cache.Key(flag.Arg(1)), flag.Arg(2)
		blob, ok, err := store.Get(key)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not read entry")
		}
		if !ok {
			log.Fatal().Str("key", string(key)).Msg("No entry for key")
		}
		if err := packer.Unpack(outputset.FilteredTree(root, nil, nil), blob); err != nil {
			log.Fatal().Err(err).Msg("Could not unpack entry")
		}
		log.Info().Str("key", string(key)).Str("root", root).Msg("Restored entry")
	case "keys":
		store.Keys(func(key cache.Key) {
			fmt.Println(key)
		})
	default:
		usage()
	}
}
