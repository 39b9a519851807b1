package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"CryptoBoard/internal/collector"
	"CryptoBoard/internal/config"
	"CryptoBoard/internal/export"
	"CryptoBoard/internal/httpx"
	"CryptoBoard/internal/logger"
	"CryptoBoard/internal/model"
	"CryptoBoard/internal/notifier"
	"CryptoBoard/internal/projector"
	"CryptoBoard/internal/recorder"
	"CryptoBoard/internal/scheduler"
	"CryptoBoard/internal/view"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logger.GetLogger()

	if err := config.LoadEnv(); err != nil {
		log.WithError(err).Warn("Error loading .env file")
	}

	var (
		configPath  = flag.String("config", "", "path to config.yaml (default $CONFIG_PATH or configs/config.yaml)")
		unit        = flag.String("unit", "", "currency unit: USD, BTC or ETH")
		top         = flag.Int("top", 0, "show the first N rows")
		symbols     = flag.String("symbols", "", "comma-separated symbols to keep")
		sortBy      = flag.String("sort", "", "sort ascending by horizon: 1h, 24h, 7d, 30d, 90d or none")
		chart       = flag.String("chart", "", "chart horizon: 1h, 24h, 7d, 30d or 90d")
		fieldMap    = flag.String("field-map", "", "field map mode: static or header")
		exportAs    = flag.String("export", "", "also write the board as csv or parquet")
		out         = flag.String("out", "", "export path (default crypto_<unit>.<format>)")
		listSymbols = flag.Bool("list-symbols", false, "print the listed symbols and exit")
		watch       = flag.Bool("watch", false, "keep running and refresh on the configured schedule")
	)
	flag.Parse()

	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		return 1
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "unit":
			cfg.Board.Unit = strings.ToUpper(*unit)
		case "top":
			cfg.Board.TopN = *top
		case "symbols":
			cfg.Board.Symbols = config.SplitSymbols(*symbols)
		case "sort":
			cfg.Board.Sort = *sortBy
		case "chart":
			cfg.Board.Chart = *chart
		case "field-map":
			cfg.Source.FieldMap = *fieldMap
		}
	})
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("Invalid configuration")
		return 1
	}
	if err := log.Configure(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		return 1
	}

	boardUnit, _ := model.ParseUnit(cfg.Board.Unit)
	sortHorizon, _ := cfg.SortHorizon()
	chartHorizon, _ := model.ParseHorizon(cfg.Board.Chart)
	mode, _ := projector.ParseMode(cfg.Source.FieldMap)

	var format export.Format
	if *exportAs != "" {
		if format, err = export.ParseFormat(*exportAs); err != nil {
			log.WithError(err).Error("Invalid export format")
			return 1
		}
	}

	timeout := time.Duration(cfg.Source.TimeoutSec) * time.Second
	fetcher := collector.NewListingFetcher(
		collector.WithURL(cfg.Source.URL),
		collector.WithTimeout(timeout),
		collector.WithHTTPClient(httpx.NewWithProxy(timeout, cfg.Proxy)),
	)
	cache := collector.NewCachedFetcher(fetcher, time.Duration(*cfg.Cache.TTLSec)*time.Second)
	col := collector.NewCollector(cache, projector.ResolverFor(mode))

	log.WithFields(logger.Fields{
		"source":    fetcher.URL(),
		"unit":      string(boardUnit),
		"field_map": string(mode),
		"watch":     *watch,
	}).Info("starting crypto board")

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.WithError(err).Warn("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := view.Options{
		Symbols: cfg.Board.Symbols,
		TopN:    cfg.Board.TopN,
		SortBy:  sortHorizon,
		Chart:   chartHorizon,
	}
	sched := scheduler.NewScheduler(ctx, col, cache, rec, boardUnit, opts)
	sched.Retry.Attempts = cfg.Schedule.Retries
	if !*listSymbols {
		sched.Out = os.Stdout
	}

	if !*watch {
		res := sched.RunNow(ctx)
		if res.Err != nil {
			return 1
		}
		if *listSymbols {
			// Symbols offered for selection come from the unfiltered listing.
			table, err := col.Collect(ctx, boardUnit)
			if err != nil {
				fmt.Fprint(os.Stderr, notifier.FormatError(err))
				return 1
			}
			fmt.Println(strings.Join(view.Symbols(table), "\n"))
			return 0
		}
		if format != "" {
			if err := writeExport(res.Board.Table, format, *out); err != nil {
				log.WithError(err).Error("export failed")
				return 1
			}
		}
		return 0
	}

	if cfg.TelegramEnabled() {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sched.Notifier = tn
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		log.WithError(err).Error("register cron tasks")
		return 1
	}
	sched.Start()
	defer sched.Stop()

	go sched.RunNow(ctx)
	log.Info("crypto board is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
	return 0
}

func writeExport(t model.InstrumentTable, format export.Format, path string) error {
	if path == "" {
		path = export.Filename(t.Unit, format)
	}
	switch format {
	case export.FormatParquet:
		if err := export.WriteParquet(path, t); err != nil {
			return err
		}
	default:
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := export.WriteCSV(f, t); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	logger.GetLogger().WithFields(logger.Fields{"path": path, "rows": t.Len()}).Info("board exported")
	return nil
}
