package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"connect-sync/archive"
	"connect-sync/auth"
	"connect-sync/domain"
	"connect-sync/internal"
	"connect-sync/rest"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Viewer error: %v\n", err)
	}
	os.Exit(code)
}

// run archives and browses the chat transcript offline: --sync pulls the
// full history page by page into the local store, --find searches it, and
// the default mode lists what is archived.
func run() (int, error) {
	doSync := flag.Bool("sync", false, "fetch the full transcript from the backend and archive it")
	find := flag.String("find", "", "full-text search over the archived transcript")
	lang := flag.String("lang", "", "narrow --find to one iso639-3 language code")
	limit := flag.Int("limit", 50, "maximum rows to display")
	flag.Parse()

	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("archive opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing archive...")
		_ = db.Close()
	}()

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing index...")
		_ = writer.Close()
	}()

	var repo archive.IRepository = archive.NewRepository(db, writer, log)
	ctx := context.Background()

	identity, err := auth.IdentityFromToken(config.AuthToken)
	if err != nil {
		return exitConfig, fmt.Errorf("token error: %w", err)
	}
	client := rest.NewClient(
		config.ServerURL, config.AuthToken, identity,
		config.RequestTimeout, config.HistoryPageSize, log,
	)

	thread, err := client.ResolveThread(ctx)
	if err != nil {
		return exitRuntime, fmt.Errorf("thread resolution failed: %w", err)
	}

	if *doSync {
		count, err := archiveTranscript(ctx, client, repo, thread.ID, config.HistoryPageSize)
		if err != nil {
			return exitRuntime, fmt.Errorf("transcript sync failed: %w", err)
		}
		log.Info("Transcript archived", "messages", count)
	}

	var entries []archive.Entry
	if *find != "" {
		entries, err = repo.Search(ctx, *find, *lang, *limit)
	} else {
		entries, err = repo.List(thread.ID, *limit)
	}
	if err != nil {
		return exitRuntime, err
	}

	render(entries)
	return exitOK, nil
}

// archiveTranscript walks the history backwards page by page using the
// before cursor until the first page of the thread is reached.
func archiveTranscript(
	ctx context.Context,
	client *rest.Client,
	repo archive.IRepository,
	thread domain.ThreadID,
	pageSize int,
) (int, error) {
	var cursor *time.Time
	total := 0
	for {
		page, err := client.FetchHistory(ctx, cursor)
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			return total, nil
		}

		for _, msg := range page {
			err := repo.Store(archive.Entry{
				ID:         msg.ID,
				Thread:     thread,
				SenderID:   msg.SenderID,
				SenderName: msg.SenderName,
				Content:    msg.Text,
				At:         msg.SentAt,
			})
			if err != nil {
				return total, err
			}
		}
		total += len(page)

		if len(page) < pageSize {
			return total, nil
		}
		earliest := page[0].SentAt
		cursor = &earliest
	}
}

func render(entries []archive.Entry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Sender", "Lang", "Message"})
	for _, entry := range entries {
		name := entry.SenderName
		if name == "" {
			name = entry.SenderID
		}
		table.Append([]string{
			entry.At.Local().Format(time.DateTime),
			name,
			entry.Lang,
			entry.Content,
		})
	}
	table.Render()
}
