// Package main starts the flag checker simulator process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	flagcheckercmd "github.com/louisbranch/flagchecker/internal/cmd/flagchecker"
	"github.com/louisbranch/flagchecker/internal/platform/config"
)

func main() {
	cfg, err := flagcheckercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[FLAGCHECKER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := flagcheckercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
