package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rigscout/api"
)

/*
	rigscout sits in front of the MiningRigRentals API and answers one question:
	what is the cheapest rig I can rent right now for a given algorithm?

	Every inbound request turns into exactly one signed call to MRR. Nothing is
	cached and nothing is stored.
*/

var Log = logrus.New()

// ConfigureLogging will set debug logging up with the -d flag when this program is run.
func ConfigureLogging(debug bool, w io.Writer) {
	Log.SetOutput(w)
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		Log.SetLevel(logrus.DebugLevel)
		Log.SetReportCaller(true)
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}
}

func main() {
	var (
		configFile = flag.String("c", "", "config file (.json or .yaml)")
		debug      = flag.Bool("d", false, "debug logging")
		addr       = flag.String("addr", "", "listen address, overrides the config")
	)
	flag.Parse()

	ConfigureLogging(*debug, os.Stdout)

	cfg, err := loadConfig(*configFile)
	if err != nil {
		Log.WithError(err).Fatal("error loading configuration")
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	timeout, _ := cfg.RequestTimeout()

	client := api.New(
		api.Credentials{Key: cfg.APIKey, Secret: cfg.APISecret},
		api.WithBaseURL(cfg.BaseURL),
		api.WithTimeout(timeout),
		api.WithLogger(Log.WithField("component", "mrr")),
	)

	if !*debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := NewServer(client, cfg.Algos, Log)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Handler(cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: timeout + 5*time.Second,
	}

	go func() {
		Log.Infof("Listening on %s, algorithms %v", cfg.ListenAddr, cfg.Algos)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	Log.Info("Shutting down")
	if err := httpServer.Shutdown(ctx); err != nil {
		Log.WithError(err).Error("Graceful shutdown failed")
	}
}
