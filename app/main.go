package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	log "github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/daterange/app/api"
	"github.com/umputun/daterange/app/config"
	"github.com/umputun/daterange/app/daterange"
	"github.com/umputun/daterange/app/printer"
)

type options struct {
	End       string `short:"e" long:"end" description:"end date (YYYY-MM-DD)"`
	Days      int    `short:"d" long:"days" description:"max number of days to cover"`
	Step      int    `short:"s" long:"step" default:"1" description:"step in days, negative to go backward"`
	Inclusive bool   `short:"i" long:"inclusive" description:"include the end date"`
	Exclusive bool   `short:"x" long:"exclusive" description:"exclude the end date, overrides preset"`
	Format    string `short:"f" long:"format" default:"%Y-%m-%d" description:"output date format, strftime style"`
	Template  string `short:"t" long:"template" description:"line template with {date}, {iso}, {weekday} and {n}"`

	Conf   string `long:"conf" env:"DR_CONF" description:"presets config file (yml)"`
	Preset string `short:"p" long:"preset" description:"preset name from config"`

	Server bool `long:"server" env:"DR_SERVER" description:"run http server"`
	Port   int  `long:"port" env:"DR_PORT" description:"http server port, overrides config"`
	Limit  int  `long:"limit" env:"DR_LIMIT" description:"max dates in a server response, overrides config"`

	Dbg bool `long:"dbg" env:"DEBUG" description:"debug mode"`

	Args struct {
		Start string `positional-arg-name:"START" description:"start date (YYYY-MM-DD)"`
	} `positional-args:"yes"`

	set func(long string) bool // reports whether the option was passed explicitly
}

var revision = "local"

// exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	var opts options
	p := flags.NewParser(&opts, flags.Default)
	p.Usage = "[OPTIONS] START"
	if _, err := p.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(exitOK)
		}
		os.Exit(exitUsage)
	}
	opts.set = func(long string) bool {
		opt := p.FindOptionByLongName(long)
		return opt != nil && opt.IsSet()
	}
	setupLog(opts.Dbg)
	log.Printf("[DEBUG] daterange %s", revision)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Printf("[ERROR] %v", err)
		cancel()
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	conf := &config.Conf{}
	if opts.Conf != "" {
		var err error
		if conf, err = config.Load(opts.Conf); err != nil {
			return fmt.Errorf("can't load config %s: %w", opts.Conf, err)
		}
	}

	if opts.Server {
		return runServer(ctx, opts, conf)
	}

	spec, prn, err := makeSpec(opts, conf)
	if err != nil {
		return err
	}
	prn.Out = out
	log.Printf("[DEBUG] range %+v", spec)

	count, err := prn.Print(daterange.Generate(spec))
	if err != nil {
		return fmt.Errorf("can't print dates: %w", err)
	}
	log.Printf("[DEBUG] printed %s dates", humanize.Comma(int64(count)))
	return nil
}

func runServer(ctx context.Context, opts options, conf *config.Conf) error {
	port, limit := conf.Server.Port, conf.Server.Limit
	if opts.Port != 0 {
		port = opts.Port
	}
	if port == 0 {
		port = 8080
	}
	if opts.Limit != 0 {
		limit = opts.Limit
	}

	srv := api.Server{Version: revision, Conf: *conf, Limit: limit, CacheTTL: conf.Server.CacheTTL}
	log.Printf("[INFO] %s presets, response limit %s", humanize.Comma(int64(len(conf.Presets))), humanize.Comma(int64(limit)))
	return srv.Run(ctx, port)
}

// makeSpec builds range spec and printer from the preset (if any) and command line options.
// Options passed explicitly override the preset.
func makeSpec(opts options, conf *config.Conf) (daterange.Spec, printer.Printer, error) {
	isSet := opts.set
	if isSet == nil {
		isSet = func(string) bool { return false }
	}

	preset := config.Preset{Step: opts.Step, Format: opts.Format}
	if opts.Preset != "" {
		p, ok := conf.Presets[opts.Preset]
		if !ok {
			return daterange.Spec{}, printer.Printer{}, usageError{fmt.Errorf("preset %q not found", opts.Preset)}
		}
		preset = p
	}

	if opts.Args.Start != "" {
		preset.Start = opts.Args.Start
	}
	if opts.End != "" {
		preset.End = opts.End
	}
	if opts.Preset == "" || isSet("days") {
		preset.Days = opts.Days
	}
	if opts.Preset == "" || isSet("step") {
		preset.Step = opts.Step
	}
	if opts.Inclusive && opts.Exclusive {
		return daterange.Spec{}, printer.Printer{}, usageError{errors.New("inclusive and exclusive can't be used together")}
	}
	if opts.Preset == "" || isSet("inclusive") {
		preset.Inclusive = opts.Inclusive
	}
	if opts.Exclusive {
		preset.Inclusive = false
	}
	if opts.Preset == "" || isSet("format") {
		preset.Format = opts.Format
	}
	if opts.Template != "" {
		preset.Template = opts.Template
	}

	if preset.Start == "" {
		return daterange.Spec{}, printer.Printer{}, usageError{errors.New("start date is required")}
	}

	spec, err := preset.Spec()
	if err != nil {
		return daterange.Spec{}, printer.Printer{}, usageError{err}
	}
	prn := printer.Printer{Format: preset.Format, Template: preset.Template}
	if err := prn.Check(); err != nil {
		return daterange.Spec{}, printer.Printer{}, usageError{err}
	}
	return spec, prn, nil
}

// usageError is a problem with user's input
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var uerr usageError
	var perr *daterange.ParseError
	if errors.As(err, &uerr) || errors.As(err, &perr) {
		return exitUsage
	}
	return exitError
}

func setupLog(dbg bool) {
	if dbg {
		log.Setup(log.Debug, log.CallerFile, log.Msec, log.LevelBraces, log.Out(os.Stderr), log.Err(os.Stderr))
		return
	}
	log.Setup(log.Msec, log.LevelBraces, log.Out(os.Stderr), log.Err(os.Stderr))
}
