package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/nkcr/fbgraph/aggregator"
	"github.com/nkcr/fbgraph/graph"
	"github.com/nkcr/fbgraph/httpapi"
	"github.com/rs/zerolog"
	"github.com/tidwall/buntdb"
)

// Version contains the current or build version. This variable can be changed
// at build time with:
//
//   go build -ldflags="-X 'main.Version=v1.0.0'"
//
// Version should be fetched from git: `git describe --tags`
var Version = "unknown"

// BuildTime indicates the time at which the binary has been built. Must be set
// as with Version.
var BuildTime = "unknown"

const tokenKey = "FACEBOOK_TOKEN"

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// args defines the CLI arguments. You can always use -h to see the help.
type args struct {
	Pages      []string      `short:"p" long:"page" required:"true" description:"ID of a page to follow. Can be repeated."`
	Interval   time.Duration `short:"i" long:"interval" default:"1h" description:"Refresh interval used by the Aggregator."`
	DBFilePath string        `short:"d" long:"dbfilepath" default:"fbgraph.db" description:"File path of the database."`
	HTTPListen string        `short:"l" long:"listen" default:"0.0.0.0:3333" description:"The listen address of the HTTP server that serves the snapshots."`
	GraphBase  string        `short:"b" long:"base" default:"https://graph.facebook.com/v19.0/" description:"Base URL of the Graph API."`
	EnvFile    string        `short:"e" long:"envfile" default:".env" description:"Optional file from which environment variables are loaded."`
	Debug      bool          `long:"debug" description:"Enables debug logs."`
	Version    bool          `short:"v" long:"version" description:"Displays the version."`
}

func main() {
	var args args
	parser := flags.NewParser(&args, flags.Default)

	remaining, err := parser.Parse()
	if err != nil {
		flagsErr, ok := err.(*flags.Error)
		if ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}

		fmt.Println("failed to parse arguments:", err.Error())
		os.Exit(1)
	}

	if len(remaining) != 0 {
		fmt.Printf("unknown flags: %v\n", remaining)
		os.Exit(1)
	}

	if args.Version {
		fmt.Println("fbgraph", Version, "-", BuildTime)
		os.Exit(0)
	}

	level := zerolog.InfoLevel
	if args.Debug {
		level = zerolog.DebugLevel
	}

	var logger = zerolog.New(logout).Level(level).
		With().Timestamp().Logger().
		With().Caller().Logger()

	// a missing env file is fine, the variables can come from the environment
	err = godotenv.Load(args.EnvFile)
	if err != nil && !os.IsNotExist(err) {
		panic(fmt.Sprintf("failed to load env file '%s': %v", args.EnvFile, err))
	}

	logger.Info().Msgf("hi,\n"+
		"┌───────────────────────────────────────────────┐\n"+
		"│       ** Facebook Graph page snapshots **\t│\n"+
		"├───────────────────────────────────────────────┤\n"+
		"│ Version %s │ Build time %s\t│\n"+
		"├───────────────────────────────────────────────┤\n"+
		"│ Pages %v\t│\n"+
		"├───────────────────────────────────────────────┤\n"+
		"│ Interval %s\t│\n"+
		"├───────────────────────────────────────────────┤\n"+
		"│ DBFilePath %s\t│\n"+
		"├───────────────────────────────────────────────┤\n"+
		"│ HTTPListen %s\t│\n"+
		"└───────────────────────────────────────────────┘\n",
		Version, BuildTime, args.Pages, args.Interval.String(), args.DBFilePath,
		args.HTTPListen)

	err = os.MkdirAll(filepath.Dir(args.DBFilePath), 0744)
	if err != nil {
		panic(fmt.Sprintf("failed to create db dir: %v", err))
	}

	db, err := buntdb.Open(args.DBFilePath)
	if err != nil {
		panic(err)
	}

	defer db.Close()

	err = aggregator.CreateIndex(db)
	if err != nil {
		panic(err)
	}

	token := os.Getenv(tokenKey)
	if token == "" {
		panic(fmt.Sprintf("please set the %s variable", tokenKey))
	}

	client := http.DefaultClient

	factory := aggregator.NewHTTPFactory(token, client, graph.WithBase(args.GraphBase),
		graph.WithLogger(logger))

	agg := aggregator.NewBasicAggregator(db, factory, args.Pages, logger)
	httpserver := httpapi.NewNativeHTTP(args.HTTPListen, db, logger)

	wait := sync.WaitGroup{}

	wait.Add(1)
	go func() {
		defer wait.Done()
		err = agg.Start(args.Interval)
		if err != nil {
			logger.Err(err).Msg("failed to start the aggregator... exiting")
			os.Exit(1)
		}
		logger.Info().Msg("aggregator done")
	}()

	wait.Add(1)
	go func() {
		defer wait.Done()
		err := httpserver.Start()
		if err != nil {
			logger.Err(err).Msg("failed to start the http server")
		}
		logger.Info().Msg("http server done")
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	<-quit

	agg.Stop()
	httpserver.Stop()

	wait.Wait()

	logger.Info().Msg("done")
}
