package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli, err := NewCLI()
	if err != nil {
		log.Fatal("Error:", err)
	}
	if err := cli.Run(ctx, os.Args[1:]); err != nil {
		log.Fatal("Error:", err)
	}
}
