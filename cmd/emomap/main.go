package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emomap/engine/internal/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	ExtensionName string = "emomap"
)

func main() {
	flags := pflag.NewFlagSet(ExtensionName, pflag.ExitOnError)
	configDir := flags.StringP("config", "c", ".", "directory containing "+config.FileName)
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("audio", true, "play tracks through the system speaker")
	flags.String("storage", "memory", "place store: memory, sqlite or postgres")
	showVersion := flags.BoolP("version", "v", false, "print the version and exit")
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("%s %s (%s)\n", ExtensionName, CurrentVersion, BuildDate)
		return
	}

	// flags win over the config file only when given explicitly
	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))
	_ = viper.BindPFlag("audio.enabled", flags.Lookup("audio"))
	_ = viper.BindPFlag("storage.type", flags.Lookup("storage"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, *configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start %s: %v\n", ExtensionName, err)
		os.Exit(1)
	}

	a.Logger.Info("Ready for commands", "version", CurrentVersion, "commands", a.dispatcher.Commands())
	err = serve(ctx, os.Stdin, os.Stdout, a.dispatcher, a.Logger)
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", ExtensionName, err)
		os.Exit(1)
	}
}
