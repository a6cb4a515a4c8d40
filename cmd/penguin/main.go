// Command penguin sends or receives a single file over a serial link
// using a stop-and-wait ARQ protocol (pkg/link) and a thin application
// framing layer (pkg/transfer).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/manelneto/penguin/pkg/history"
	"github.com/manelneto/penguin/pkg/link"
	"github.com/manelneto/penguin/pkg/monitor"
	"github.com/manelneto/penguin/pkg/transfer"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	role := flag.String("role", "", `transfer role: "tx" or "rx"`)
	filePath := flag.String("file", "", "file to send (tx only)")
	outDir := flag.String("out", ".", "directory to write the received file into (rx only)")
	port := flag.String("port", "/dev/ttyUSB0", "serial port path")
	baud := flag.Int("baud", 115200, "serial baud rate")
	retries := flag.Int("retries", 3, "number of retransmissions before giving up")
	timeout := flag.Int("timeout", 3, "per-attempt timeout in seconds")
	monitorAddr := flag.String("monitor-addr", "", "address for the read-only HTTP status API (empty disables it)")
	historyDB := flag.String("history-db", "", "path to the transfer-history SQLite database (empty uses the default location)")
	showStats := flag.Bool("stats", true, "log connection statistics on close")
	flag.Parse()

	store, err := history.Open(*historyDB)
	if err != nil {
		log.Fatal().Err(err).Msg("penguin: open history store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("penguin: close history store")
		}
	}()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("penguin: migrate history store")
	}

	state := monitor.NewConnectionState()
	if *monitorAddr != "" {
		router := monitor.NewRouter(store, state)
		go func() {
			log.Info().Str("address", *monitorAddr).Msg("penguin: monitor API listening")
			if err := router.Run(*monitorAddr); err != nil {
				log.Error().Err(err).Msg("penguin: monitor API stopped")
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			log.Warn().Msg("penguin: signal received, exiting")
			os.Exit(1)
		case <-done:
		}
	}()
	defer close(done)

	params := link.Params{
		Device:           *port,
		BaudRate:         *baud,
		NRetransmissions: *retries,
		TimeoutSeconds:   *timeout,
	}

	switch *role {
	case "tx":
		params.Role = link.Tx
		if err := runTx(ctx, params, *filePath, state, store, *showStats); err != nil {
			log.Fatal().Err(err).Msg("penguin: send failed")
		}
	case "rx":
		params.Role = link.Rx
		if err := runRx(ctx, params, *outDir, state, store, *showStats); err != nil {
			log.Fatal().Err(err).Msg("penguin: receive failed")
		}
	default:
		fmt.Fprintln(os.Stderr, `penguin: -role must be "tx" or "rx"`)
		flag.Usage()
		os.Exit(2)
	}
}

func runTx(ctx context.Context, params link.Params, filePath string, state *monitor.ConnectionState, store *history.Store, showStats bool) error {
	if filePath == "" {
		return fmt.Errorf("penguin: -file is required for -role=tx")
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("penguin: read %s: %w", filePath, err)
	}

	conn, err := link.OpenSerial(params)
	if err != nil {
		return fmt.Errorf("penguin: open connection: %w", err)
	}
	state.SetOpen("tx", params.Device)
	defer state.SetClosed()

	name := filepath.Base(filePath)
	sender := transfer.NewSender(conn)
	sendErr := sender.Send(name, data)

	closeErr := conn.Close(showStats)
	recordTransfer(ctx, store, conn.Stats(), name, firstErr(sendErr, closeErr))

	if sendErr != nil {
		return fmt.Errorf("penguin: send: %w", sendErr)
	}
	return closeErr
}

func runRx(ctx context.Context, params link.Params, outDir string, state *monitor.ConnectionState, store *history.Store, showStats bool) error {
	conn, err := link.OpenSerial(params)
	if err != nil {
		return fmt.Errorf("penguin: open connection: %w", err)
	}
	state.SetOpen("rx", params.Device)
	defer state.SetClosed()

	receiver := transfer.NewReceiver(conn)
	fileName, data, recvErr := receiver.Receive()

	var writeErr error
	if recvErr == nil {
		writeErr = os.WriteFile(filepath.Join(outDir, fileName), data, 0644)
	}

	closeErr := conn.Close(showStats)
	recordTransfer(ctx, store, conn.Stats(), fileName, firstErr(recvErr, writeErr, closeErr))

	if recvErr != nil {
		return fmt.Errorf("penguin: receive: %w", recvErr)
	}
	if writeErr != nil {
		return fmt.Errorf("penguin: write output file: %w", writeErr)
	}
	return closeErr
}

func recordTransfer(ctx context.Context, store *history.Store, stats link.Stats, fileName string, transferErr error) {
	entry := history.EntryFromStats(stats, fileName, transferErr)
	if err := store.Record(ctx, entry); err != nil {
		log.Error().Err(err).Msg("penguin: record transfer history")
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
