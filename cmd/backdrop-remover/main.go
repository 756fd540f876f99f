package main

import (
	"fmt"
	"os"

	"backdrop-remover/internal/app"
	"backdrop-remover/internal/apperrors"
	"backdrop-remover/internal/config"
	"backdrop-remover/internal/pipeline"

	"github.com/spf13/pflag"
)

// cliFlags holds the command line. Long flags take two dashes
// (--in photo.jpg); the one-letter shorthands take one (-i photo.jpg).
type cliFlags struct {
	set        *pflag.FlagSet
	configPath *string
	input      *string
	output     *string
}

func newFlags(handling pflag.ErrorHandling) *cliFlags {
	set := pflag.NewFlagSet("backdrop-remover", handling)
	f := &cliFlags{
		set:        set,
		configPath: set.StringP("config", "c", "", "path to a YAML/TOML/JSON config file"),
		input:      set.StringP("in", "i", "", "input image; without it the desktop window opens"),
		output:     set.StringP("out", "o", "", "output file (defaults to <input>_sf.png)"),
	}
	set.StringP("format", "f", "transparent-png", "output format: transparent-png, png-white, png-black, jpeg")
	set.IntP("quality", "q", 95, "JPEG quality 1-100")
	set.Bool("backup", true, "copy an existing output file to <name>_backup before overwriting")
	set.String("log-level", "info", "debug, info, warn or error")
	set.StringSlice("policy", pipeline.DefaultPolicy, "backend order")
	set.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: backdrop-remover [--in photo.jpg [--out photo_sf.png] [--format jpeg] [--quality 90] [--backup=false]]\n")
		set.PrintDefaults()
	}
	return f
}

func main() {
	cli := newFlags(pflag.ExitOnError)
	cli.set.Parse(os.Args[1:])

	cfg, err := config.LoadWithFlags(*cli.configPath, cli.set)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	log := app.NewLogger(cfg.Log)

	services, err := app.NewServices(cfg, log)
	if err != nil {
		log.Error("Main", err, nil)
		os.Exit(2)
	}

	if *cli.input == "" {
		runGUI(services)
		return
	}

	os.Exit(runHeadless(services, *cli.input, *cli.output))
}

func runGUI(services *app.Services) {
	application, err := app.NewApplication(services)
	if err != nil {
		services.Logger.Error("Main", err, map[string]interface{}{"mode": "gui"})
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		services.Logger.Error("Main", err, map[string]interface{}{"mode": "gui"})
		os.Exit(1)
	}
}

func runHeadless(services *app.Services, input, output string) int {
	defer services.Shutdown()

	opts, err := services.DefaultOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if output == "" {
		output = app.DefaultOutputPath(input, opts.Format)
	}

	if err := app.RunHeadless(services, input, output, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if apperrors.IsKind(err, apperrors.InvalidOptions) {
			return 2
		}
		return 1
	}
	return 0
}
