// Command registrytool runs operator commands against the registry stores
// configured in the environment.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ptkach/nomulus/internal/app"
	"github.com/ptkach/nomulus/internal/platform/config"
	"github.com/ptkach/nomulus/internal/platform/logger"
)

func main() {
	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openFromEnv(ctx context.Context) (*app.App, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Log.Level, "text")
	return app.New(ctx, cfg, log)
}
