package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"eventers-ticket-ledger/clock"
	"eventers-ticket-ledger/config"
	c "eventers-ticket-ledger/context"
	"eventers-ticket-ledger/factory"
	"eventers-ticket-ledger/ledger"
	"eventers-ticket-ledger/logger"
	"eventers-ticket-ledger/router"

	"github.com/codegangsta/negroni"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	version string
)

const defaultCorrelationID = "00000000.00000000"

var ctx context.Context

func init() {
	ctx = c.SetContextWithValue(context.Background(), c.ContextKeyCorrelationID, defaultCorrelationID)
}

func main() {
	flagSet := pflag.NewFlagSet("ledger", pflag.ExitOnError)
	cfgPath := flagSet.String("config", "", "Path to config file")
	flagSet.String("port", viper.GetString(config.Port), "Address to listen on")
	flagSet.String("store-driver", viper.GetString(config.StoreDriver), "Ledger store: memory, redis, mysql, postgres or sqlite3")
	flagSet.String("store-dsn", "", "Data source name for SQL stores")
	flagSet.String("log-level", viper.GetString(config.LogLevel), "Log level")
	_ = flagSet.Parse(os.Args[1:])

	for key, name := range map[string]string{
		config.Port:        "port",
		config.StoreDriver: "store-driver",
		config.StoreDSN:    "store-dsn",
		config.LogLevel:    "log-level",
	} {
		if err := viper.BindPFlag(key, flagSet.Lookup(name)); err != nil {
			logger.Fatalf(ctx, "error binding flag %s: %+v", name, err)
		}
	}

	if *cfgPath != "" {
		viper.SetConfigFile(*cfgPath)
		if err := viper.ReadInConfig(); err != nil {
			logger.Fatalf(ctx, "error reading config %s: %+v", *cfgPath, err)
		}
	}

	logger.Configure(viper.GetString(config.LogLevel), viper.GetString(config.LogFormat))
	logger.Infof(ctx, "starting ledger %s with %s store", version, viper.GetString(config.StoreDriver))

	f := factory.NewFactory()
	st := f.Store(ctx)
	l := ledger.New(st, f.Payer(ctx), clock.NewSystem())

	n := negroni.New(negroni.NewRecovery())
	n.UseHandler(router.Router(ctx, l, f.Verifier(ctx)))

	srv := &http.Server{
		Addr:    viper.GetString(config.Port),
		Handler: n,
	}

	go func() {
		logger.Infof(ctx, "listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf(ctx, "server stopped: %+v", err)
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	shutdownCtx, cancel := c.NewContextWithTimeOut(ctx, viper.GetDuration(config.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "graceful shutdown failed: %+v", err)
	}
	if err := st.Close(); err != nil {
		logger.Errorf(ctx, "error closing store: %+v", err)
	}
	logger.Info(ctx, "ledger stopped")
}
