package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/wansing/buzz/auth"
	"github.com/wansing/buzz/backend"
	"github.com/wansing/buzz/config"
	"github.com/wansing/buzz/core"
	"github.com/wansing/buzz/logging"
	"github.com/wansing/buzz/memdb"
	"github.com/wansing/buzz/mongodb"
	"github.com/wansing/buzz/record"
	"github.com/wansing/buzz/sqldb"
	"github.com/xo/dburl"
	"go.uber.org/zap"
)

func main() {

	var configPath string

	var rootCmd = &cobra.Command{
		Use:           "buzz",
		Short:         "moderated catalog of jokes, trivia, quotes and bios",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "ini config `file`, BUZZ_* environment variables take precedence")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "serve the HTTP API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(configPath, true)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "check the config and create the collections",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(configPath, false)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(configPath string, serve bool) error {

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	var policies = auth.DefaultPolicies()
	if cfg.PolicyFile != "" {
		policies, err = auth.LoadPolicies(cfg.PolicyFile)
		if err != nil {
			return err
		}
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}

	defer func() {
		log.Info("closing database")
		var ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Close(ctx); err != nil {
			log.Error("closing database", zap.Error(err))
		}
	}()

	if !serve {
		log.Info("config and database are fine")
		return nil
	}

	var b = &backend.Backend{
		Catalog: core.NewCatalog(db, policies, log),
		Auth:    auth.NewClient(cfg.AuthURI, cfg.AuthPingURI, cfg.AuthTimeout, log),
		Log:     log.Named("http"),
	}

	return listen(backend.NewRouter(b), cfg.Listen, log)
}

func collections() []string {
	var names []string
	for _, t := range record.Types {
		names = append(names, auth.Collection(t, true), auth.Collection(t, false))
	}
	return names
}

// openStore accepts "memory:", a MongoDB connection string or a url understood by github.com/xo/dburl.
func openStore(cfg *config.Config) (core.DocumentDB, error) {

	switch {
	case cfg.Database == "memory:":
		return memdb.New(), nil
	case strings.HasPrefix(cfg.Database, "mongodb://"), strings.HasPrefix(cfg.Database, "mongodb+srv://"):
		var ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return mongodb.Open(ctx, cfg.Database, cfg.MongoDatabase)
	}

	dbURL, err := dburl.Parse(cfg.Database)
	if err != nil {
		return nil, errors.Wrap(err, "parsing database url")
	}

	sqlDB, err := sqlx.Open(dbURL.Driver, dbURL.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "opening sql database")
	}

	if err = sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "pinging sql database")
	}

	documentDB, err := sqldb.NewDocumentDB(sqlDB, collections())
	if err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "creating tables")
	}
	return documentDB, nil
}

func listen(handler http.Handler, addr string, log *zap.Logger) error {

	sigintChannel := make(chan os.Signal, 1)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	log.Info("listening", zap.String("addr", addr))

	httpSrv := &http.Server{
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil {

			// don't panic, we want a graceful shutdown
			if err != http.ErrServerClosed {
				log.Error("serving", zap.Error(err))
			}

			// ensure graceful shutdown
			sigintChannel <- os.Interrupt
		}
	}()

	signal.Notify(sigintChannel, os.Interrupt, syscall.SIGTERM)
	<-sigintChannel

	log.Info("shutting down")

	var ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}
