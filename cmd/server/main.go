package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/janpfeifer/MemoryPairs/internal/config"
	"github.com/janpfeifer/MemoryPairs/internal/server"
	"github.com/janpfeifer/MemoryPairs/internal/store"
	"k8s.io/klog/v2"
)

var (
	flagAddr = flag.String("addr", "", "Address to listen on (default: $MEMORY_ADDR)")
	flagDB   = flag.String("db", "", "Path to the scores database (default: $MEMORY_DB_PATH)")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	cfg, err := config.Load()
	if err != nil {
		klog.Fatalf("%v", err)
	}
	if *flagAddr != "" {
		cfg.Addr = *flagAddr
	}
	if *flagDB != "" {
		cfg.DBPath = *flagDB
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		klog.Fatalf("%v", err)
	}
	defer results.Close()

	started := make(chan *server.ServerState, 1)
	go func() {
		state := <-started
		fmt.Printf("Memory Pairs server listening on http://%s\n", state.Address)
	}()

	if err := server.Run(ctx, cfg, results, started); err != nil {
		klog.Errorf("%v", err)
		results.Close()
		klog.Flush()
		os.Exit(1)
	}
}
