package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"ciphergroup/internal/app"
	"ciphergroup/internal/domain"
	"ciphergroup/internal/logging"
	"ciphergroup/internal/mailbox"
	"ciphergroup/internal/relay"
)

func main() {
	cfg, err := app.LoadRelayConfig()
	if err != nil {
		logrus.Fatalf("relay config: %v", err)
	}
	log := logging.New(cfg.LogLevel, os.Stderr)

	mb, closeMailbox, err := openMailbox(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open mailbox backend")
	}
	defer closeMailbox()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      relay.NewServer(mb, log).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.Addr, "tls": cfg.TLS()}).Info("relay listening")
		var err error
		if cfg.TLS() {
			err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("serve")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown")
	}
}

// openMailbox picks PostgreSQL when a database URL is configured and the
// in-memory backend otherwise.
func openMailbox(cfg app.RelayConfig, log logrus.FieldLogger) (domain.Mailbox, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory mailboxes")
		return mailbox.NewMemory(cfg.Retention), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := mailbox.NewPostgres(ctx, cfg.DatabaseURL, cfg.Retention)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.RunMigrations(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	log.Info("using postgres mailboxes")
	return pg, pg.Close, nil
}
