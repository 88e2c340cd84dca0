package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vostcard-gateway/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx, os.Args[1:])
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	default:
		fmt.Fprintf(os.Stderr, "vostcard-gateway: %v\n", err)
		os.Exit(1)
	}
}
