package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calagent/internal/command"
	"calagent/internal/config"
	"calagent/internal/ics"
	appLog "calagent/internal/log"
	"calagent/internal/notify"
	"calagent/internal/store"
	"calagent/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	cmdText    string
	importURL  string
	sendNow    bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	st, err := store.Open(conf.CalendarFile)
	if err != nil {
		appLog.Error("failed to open calendar", err, "path", conf.CalendarFile)
		os.Exit(1)
	}

	// One-shot modes run against the store and exit without starting the
	// background services.
	switch {
	case flags.cmdText != "":
		if err := runCommand(st, flags.cmdText); err != nil {
			appLog.Error("command failed", err, "text", flags.cmdText)
			os.Exit(1)
		}
		return
	case flags.importURL != "":
		if err := runImport(st, flags.importURL); err != nil {
			appLog.Error("import failed", err)
			os.Exit(1)
		}
		return
	case flags.sendNow:
		svc := notify.NewService(st, notify.NewSMTPMailer(conf.SMTP), conf.NotifyCron)
		svc.RunOnce()
		return
	}

	appLog.Info("calagent starting",
		"calendar_file", conf.CalendarFile,
		"notify", conf.NotifyCron,
		"listen", conf.Listen,
		"event_count", st.Len(),
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// Background reminder loop.
	svc := notify.NewService(st, notify.NewSMTPMailer(conf.SMTP), conf.NotifyCron)
	if err := svc.Start(); err != nil {
		appLog.Error("failed to start reminder service", err, "schedule", conf.NotifyCron)
		os.Exit(1)
	}

	// JSON API.
	srv := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, st).Handler(),
	}
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	svc.Stop()

	appLog.Info("calagent exiting")
}

// runCommand parses and applies one free-text command, printing the
// outcome to stdout. Unrecognized input is ignored, like the interactive
// path.
func runCommand(st *store.Store, text string) error {
	cmd, err := command.Parse(text)
	if err != nil {
		return err
	}
	outcome, err := command.Apply(cmd, st)
	if err != nil {
		return err
	}
	fmt.Println(outcome)
	return nil
}

// runImport fetches an ICS feed and adds its events to the store. Events
// that fail validation are logged and skipped so one bad entry does not
// abort the import.
func runImport(st *store.Store, url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := ics.NewImporter().Fetch(ctx, url)
	if err != nil {
		return err
	}

	events, err := ics.ParseEvents(body)
	if err != nil {
		return err
	}

	added := 0
	for _, ev := range events {
		if err := st.Add(ev); err != nil {
			appLog.Warn("import: skipping event", "title", ev.Title, "reason", err.Error())
			continue
		}
		added++
	}

	fmt.Printf("imported %d of %d event(s)\n", added, len(events))
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "calagent.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.cmdText, "c", "", `Run one free-text command (e.g. "add event lunch on 2024-04-20 12:30") and exit`)
	flag.StringVar(&cfg.importURL, "import", "", "Fetch an ICS feed into the calendar and exit")
	flag.BoolVar(&cfg.sendNow, "send-now", false, "Run one reminder pass immediately and exit")

	flag.Parse()

	return cfg
}
