package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"liteconvert/internal/batch"
	"liteconvert/internal/config"
	"liteconvert/internal/convert"
	fileutil "liteconvert/internal/file"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	_ = godotenv.Load()

	os.Exit(run())
}

func run() int {
	configPath := os.Getenv("LITECONVERT_CONFIG")
	if configPath == "" {
		configPath = "liteconvert.yml"
	}

	var (
		modeFlag    = flag.String("mode", "", "conversion mode: "+modeList())
		outDir      = flag.String("out", "", "output directory (default: next to each input)")
		cfgPath     = flag.String("config", configPath, "settings file")
		pattern     = flag.String("pattern", "", "naming pattern, tokens {name} {ext} {index} {page} {mode}")
		policy      = flag.String("policy", "", "overwrite policy: skip, auto-rename, overwrite")
		quality     = flag.Int("quality", 0, "jpeg quality 1-100")
		dpi         = flag.Int("dpi", 0, "render resolution for pdf pages")
		pageSize    = flag.String("page-size", "", "pdf page size: a4, letter, fit")
		fit         = flag.String("fit", "", "image layout on fixed pages: contain, cover, stretch")
		margins     = flag.Float64("margins", -1, "page margins in millimetres")
		pageRange   = flag.String("pages", "", `page selection for pdf input, e.g. "1-3,5"`)
		jobs        = flag.Int("jobs", 0, "max concurrent conversions")
		noExif      = flag.Bool("no-exif", false, "ignore exif orientation on decode")
		verboseFlag = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	if *verboseFlag {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	mode, ok := convert.ParseMode(*modeFlag)
	if !ok {
		log.Error().Str("mode", *modeFlag).Msg("unknown or missing -mode, expected one of: " + modeList())
		return 2
	}
	if flag.NArg() == 0 {
		log.Error().Msg("no input files or folders given")
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Error().Err(err).Str("path", *cfgPath).Msg("failed to load settings")
		return 2
	}
	opts := applyOverrides(cfg.Options(), overrides{
		outDir: *outDir, pattern: *pattern, policy: *policy,
		quality: *quality, dpi: *dpi, pageSize: *pageSize, fit: *fit,
		margins: *margins, pageRange: *pageRange, jobs: *jobs, noExif: *noExif,
	})

	inputs, err := fileutil.ExpandInputs(flag.Args(), convert.SupportedExt)
	if err != nil {
		log.Error().Err(err).Msg("cannot expand inputs")
		return 2
	}
	if len(inputs) == 0 {
		log.Warn().Msg("no supported files found, nothing to do")
		return 0
	}

	if opts.OutputDir != "" {
		if err := fileutil.EnsureWritableDir(opts.OutputDir); err != nil {
			log.Error().Err(err).Str("dir", opts.OutputDir).Msg("output directory not usable")
			return 2
		}
	}

	plan, err := batch.NewPlanner().Plan(inputs, mode, opts)
	if err != nil {
		log.Error().Err(err).Msg("planning failed")
		return 2
	}
	log.Info().Int("inputs", len(inputs)).Int("items", len(plan.Items)).Str("mode", string(mode)).Msg("batch planned")

	ctx, cancel := signalContext()
	defer cancel()

	reporter := &batch.LogReporter{Total: len(plan.Items)}
	result, err := batch.NewScheduler(convert.NewRegistry()).Run(ctx, plan, opts, reporter)
	if err != nil {
		log.Error().Err(err).Msg("batch run failed")
		return 1
	}

	if result.Failed > 0 {
		return 1
	}
	if result.Cancelled > 0 {
		return 130
	}
	return 0
}

type overrides struct {
	outDir, pattern, policy, pageSize, fit, pageRange string
	quality, dpi, jobs                                int
	margins                                           float64
	noExif                                            bool
}

// applyOverrides layers non-empty flag values over the settings-derived
// options.
func applyOverrides(opts convert.Options, o overrides) convert.Options {
	if o.outDir != "" {
		opts.OutputDir = o.outDir
	}
	if o.pattern != "" {
		opts.NamingPattern = o.pattern
	}
	if o.policy != "" {
		opts.OverwritePolicy = convert.OverwritePolicy(strings.ToLower(o.policy))
	}
	if o.quality > 0 {
		opts.JpgQuality = o.quality
	}
	if o.dpi > 0 {
		opts.DPI = o.dpi
	}
	if o.pageSize != "" {
		opts.PageSize = convert.PageSize(strings.ToLower(o.pageSize))
	}
	if o.fit != "" {
		opts.Fit = convert.FitMode(strings.ToLower(o.fit))
	}
	if o.margins >= 0 {
		opts.Margins = convert.Margins{Top: o.margins, Right: o.margins, Bottom: o.margins, Left: o.margins}
	}
	if o.pageRange != "" {
		opts.PageRange = o.pageRange
	}
	if o.jobs > 0 {
		opts.MaxConcurrency = o.jobs
	}
	if o.noExif {
		opts.ExifOrientation = false
	}
	return opts.Normalize()
}

// signalContext cancels on the first SIGINT/SIGTERM; a second signal kills
// the process the hard way.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 2)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Warn().Msg("cancellation requested, letting running items finish")
		cancel()
		<-quit
		os.Exit(130)
	}()
	return ctx, cancel
}

func modeList() string {
	codes := make([]string, 0, len(convert.Modes()))
	for _, m := range convert.Modes() {
		codes = append(codes, string(m))
	}
	return strings.Join(codes, ", ")
}
