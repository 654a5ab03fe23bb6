package main

import (
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/exp/slog"

	"github.com/jonanatree/medipay/gateway"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout))

	app := gateway.NewApp(logger, gateway.ConfigFromEnv())
	if err := app.Start(); err != nil {
		logger.Error("starting app", "err", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	app.Shutdown()
}
