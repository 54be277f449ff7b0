// Command healthstub serves Quarkus-style health endpoints for exercising
// healthfire locally. The readiness dependency can be made to fail at a
// configurable rate.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	fs := pflag.NewFlagSet("healthstub", pflag.ExitOnError)
	port := fs.Int("port", 8080, "Listening port")
	dependency := fs.String("dependency", "Keycloak health check", "Name of the readiness dependency check")
	failRate := fs.Float64("fail-rate", 0, "Fraction of readiness checks reporting DOWN (0.0-1.0)")
	latency := fs.Duration("latency", 0, "Delay added to every health response")
	_ = fs.Parse(os.Args[1:])

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthstub: logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *port <= 0 {
		logger.Fatal("port must be > 0", zap.Int("port", *port))
	}
	if *failRate < 0 || *failRate > 1 {
		logger.Fatal("fail-rate must be between 0 and 1", zap.Float64("fail_rate", *failRate))
	}

	svc := newService(*dependency, *failRate, *latency)
	addr := fmt.Sprintf(":%d", *port)
	srv := &http.Server{Addr: addr, Handler: svc.routes(), ReadHeaderTimeout: 5 * time.Second}

	logger.Info("health stub listening",
		zap.String("addr", addr),
		zap.String("dependency", *dependency),
		zap.Float64("fail_rate", *failRate),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
