// Command cep-ingest loads a gzipped CEP dump into the postal_codes table,
// which backs the local address directory. Dump files contain one record per
// line in the form "cep;street;city;state".
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/quitanda/backend/internal/domain/address"
	"github.com/quitanda/backend/internal/repository"
)

const (
	bloomCapacity = 2_000_000
	bloomFPR      = 0.0001
	batchSize     = 1_000
	progressEvery = 100_000
	cepLen        = 8
)

type record struct {
	cep string
	loc address.Location
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.gz CEP dump files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("cep ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("cep ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list dump files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.gz files found in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Dump files overlap between monthly snapshots, so a shared bloom filter
	// drops CEPs already sent to the database. False positives only skip a
	// re-upsert of an identical row.
	var (
		mu   sync.Mutex
		seen = bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	)

	records := make(chan record, batchSize)

	g, ctx := errgroup.WithContext(ctx)

	scanners, scanCtx := errgroup.WithContext(ctx)
	for _, f := range files {
		scanners.Go(scanDumpFile(scanCtx, f, records, &mu, seen))
	}

	g.Go(func() error {
		defer close(records)
		return scanners.Wait()
	})
	g.Go(func() error {
		return writeBatches(ctx, pool, records)
	})

	return g.Wait()
}

func scanDumpFile(
	ctx context.Context,
	path string,
	records chan<- record,
	mu *sync.Mutex,
	seen *bloom.BloomFilter,
) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var total, kept uint64

		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}

			total++
			if total%progressEvery == 0 {
				slog.Info("scan progress",
					slog.String("file", filepath.Base(path)),
					slog.Uint64("lines", total),
				)
			}

			rec, ok := parseLine(scanner.Text())
			if !ok {
				continue
			}

			mu.Lock()
			dup := seen.TestOrAddString(rec.cep)
			mu.Unlock()
			if dup {
				continue
			}

			kept++
			select {
			case records <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("scan complete",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("lines", total),
			slog.Uint64("kept", kept),
		)

		return nil
	}
}

// parseLine splits a "cep;street;city;state" line. Lines with a malformed
// CEP or wrong field count are skipped.
func parseLine(line string) (record, bool) {
	parts := strings.Split(line, ";")
	if len(parts) != 4 {
		return record{}, false
	}

	cep := strings.ReplaceAll(strings.TrimSpace(parts[0]), "-", "")
	if len(cep) != cepLen {
		return record{}, false
	}
	for _, r := range cep {
		if r < '0' || r > '9' {
			return record{}, false
		}
	}

	return record{
		cep: cep,
		loc: address.Location{
			Street: strings.TrimSpace(parts[1]),
			City:   strings.TrimSpace(parts[2]),
			State:  strings.TrimSpace(parts[3]),
		},
	}, true
}

// writeBatches drains the records channel and upserts rows in batches.
func writeBatches(ctx context.Context, pool *pgxpool.Pool, records <-chan record) error {
	const upsertSQL = `INSERT INTO postal_codes (cep, street, city, state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cep) DO UPDATE SET
		street = EXCLUDED.street, city = EXCLUDED.city, state = EXCLUDED.state`

	var (
		batch   pgx.Batch
		written uint64
	)

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := pool.SendBatch(ctx, &batch).Close(); err != nil {
			return errors.Wrap(err, "send batch")
		}
		written += uint64(batch.Len())
		batch = pgx.Batch{}

		slog.Info("write progress", slog.Uint64("written", written))
		return nil
	}

	for rec := range records {
		batch.Queue(upsertSQL, rec.cep, rec.loc.Street, rec.loc.City, rec.loc.State)
		if batch.Len() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}
