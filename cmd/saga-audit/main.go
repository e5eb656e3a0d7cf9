// Command saga-audit prints sagas that started but never finished: workflows that may
// have left an alert without its board post, or the reverse, and need a manual look.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"shuttle-ledger/internal/config"
	"shuttle-ledger/internal/journal"
)

func main() {
	stream := flag.String("stream", "", "Journal stream (default: SAGA_JOURNAL_STREAM)")
	all := flag.Bool("all", false, "Print finished sagas too")
	timeout := flag.Duration("timeout", 10*time.Second, "Redis read timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *stream == "" {
		*stream = cfg.Journal.Stream
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var states []journal.SagaState
	if *all {
		msgs, err := client.XRange(ctx, *stream, "-", "+").Result()
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *stream, err)
		}
		states = journal.Fold(msgs)
	} else {
		states, err = journal.NewRedisJournal(client, *stream, zap.NewNop()).Unfinished(ctx)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *stream, err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(states); err != nil {
		log.Fatalf("Failed to encode: %v", err)
	}
	fmt.Fprintf(os.Stderr, "%d saga(s) in %s\n", len(states), *stream)
}
