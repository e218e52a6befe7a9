package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"go-currency-converter-e2e/browser"
	"go-currency-converter-e2e/config"
	"go-currency-converter-e2e/http"
	"go-currency-converter-e2e/oracle"
	"go-currency-converter-e2e/rates"
	"go-currency-converter-e2e/scenario"
	"go-currency-converter-e2e/verify"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	nhttp "net/http"
)

func main() {
	serve := flag.Bool("serve", false, "serve the HTTP API instead of running the suite once")
	names := flag.String("scenario", "", "comma separated scenarios to run, all when empty")
	list := flag.Bool("list", false, "list the scenarios and exit")
	flag.Parse()

	if *list {
		listScenarios(os.Stdout)
		return
	}

	cfg := config.MustLoad()

	w := log.NewSyncWriter(os.Stderr)
	logger := log.NewLogfmtLogger(w)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	logger = level.NewFilter(logger, level.Allow(level.ParseDefault(cfg.LogLevel, level.InfoValue())))

	registry := prometheus.NewRegistry()
	verifyMetrics := verify.NewMetrics(registry)

	ratesService := rates.NewService(cfg.Rates.URL, rates.Credentials{
		Token:    cfg.Rates.Token,
		Username: cfg.Rates.Username,
		Password: cfg.Rates.Password,
	}, cfg.Rates.Timeout)
	ratesService = rates.NewLoggingService(log.With(logger, "component", "rates_rest"), ratesService)
	ratesService = rates.NewInstrumentingService(rates.NewMetrics(registry), ratesService)

	options := browser.Options{
		Headless:        cfg.Browser.Headless,
		ChromeBinary:    cfg.Browser.ChromeBinary,
		ActionTimeout:   cfg.Browser.ActionTimeout,
		NavigateTimeout: cfg.Browser.NavigateTimeout,
	}

	var b *browser.Browser
	session := func(ctx context.Context, opts scenario.SessionOptions) (scenario.Env, func(), error) {
		driver, release, err := b.NewSession()
		if err != nil {
			return scenario.Env{}, nil, err
		}
		page := verify.NewPage(driver, verify.DefaultSelectors())

		sessionRates := ratesService
		if opts.PinRates {
			sessionRates = rates.NewSnapshotService(sessionRates)
		}
		oracleService := oracle.NewService(sessionRates)
		oracleService = oracle.NewLoggingService(log.With(opts.Logger, "component", "oracle"), oracleService)

		verifyService := verify.NewService(page, oracleService)
		verifyService = verify.NewLoggingService(log.With(opts.Logger, "component", "verify"), verifyService)
		verifyService = verify.NewInstrumentingService(verifyMetrics, verifyService)

		return scenario.Env{PageURL: cfg.PageURL, Page: page, Verifier: verifyService}, release, nil
	}

	suite := scenario.NewSuite(session, cfg.Suite.Parallel, log.With(logger, "component", "suite"), scenario.All()...)

	var err error
	b, err = browser.Start(options, log.With(logger, "component", "browser"))
	if err != nil {
		level.Error(logger).Log("msg", "failed to start browser", "err", err)
		os.Exit(1)
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		handler := http.NewServer(session, suite, registry, log.With(logger, "component", "http"))
		server := &nhttp.Server{Addr: cfg.Server.ListenAddr, Handler: handler}
		go func() {
			<-ctx.Done()
			server.Close()
		}()
		level.Info(logger).Log("msg", "listening", "addr", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != nhttp.ErrServerClosed {
			level.Error(logger).Log("msg", "server failed", "err", err)
		}
		return
	}

	var selected []string
	if *names != "" {
		selected = strings.Split(*names, ",")
	}
	report, err := suite.Run(ctx, selected...)
	if err != nil {
		level.Error(logger).Log("msg", "failed to run suite", "err", err)
		b.Close()
		os.Exit(2)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(report)

	if report.Failed > 0 {
		b.Close()
		os.Exit(1)
	}
}

// listScenarios writes the scenario names, one per line. It needs no configuration.
func listScenarios(w io.Writer) {
	for _, sc := range scenario.All() {
		fmt.Fprintln(w, sc.Name)
	}
}
