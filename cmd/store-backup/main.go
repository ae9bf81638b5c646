// Command store-backup archives the JSON store's data directory into a
// timestamped tar.gz snapshot. Collection files are read concurrently and the
// archive is compressed with parallel gzip.
package main

import (
	"archive/tar"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

// fileEntry is one collection file loaded into memory, ready for archiving.
type fileEntry struct {
	name    string
	mode    int64
	modTime time.Time
	data    []byte
}

func main() {
	var (
		dataDir string
		outDir  string
	)

	flag.StringVar(&dataDir, "data-dir", "./data", "data directory of the JSON store")
	flag.StringVar(&outDir, "out", ".", "directory to write the backup archive to")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, outDir); err != nil {
		slog.Error("backup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, dataDir, outDir string) error {
	names, err := collectionFiles(dataDir)
	if err != nil {
		return errors.Wrap(err, "list data dir")
	}
	if len(names) == 0 {
		return errors.Errorf("no collection files in %s", dataDir)
	}

	slog.Info("loading collections", slog.Int("files", len(names)))

	entries, err := loadFiles(ctx, dataDir, names)
	if err != nil {
		return errors.Wrap(err, "load collections")
	}

	archive := filepath.Join(outDir, fmt.Sprintf("minimart-backup-%s.tar.gz", time.Now().Format("20060102-150405")))
	if err := writeArchive(archive, entries); err != nil {
		return errors.Wrapf(err, "write %s", archive)
	}

	slog.Info("backup completed", slog.String("archive", archive), slog.Int("files", len(entries)))
	return nil
}

// collectionFiles lists the JSON collection files in the data dir, sorted so
// archives are reproducible.
func collectionFiles(dataDir string) ([]string, error) {
	dirents, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", dataDir)
	}

	var names []string
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			continue
		}
		names = append(names, d.Name())
	}
	slices.Sort(names)
	return names, nil
}

// loadFiles reads every collection file into memory, one goroutine per file.
func loadFiles(ctx context.Context, dataDir string, names []string) ([]fileEntry, error) {
	entries := make([]fileEntry, len(names))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(loadFile(ctx, dataDir, name, &entries[i]))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return entries, nil
}

func loadFile(ctx context.Context, dataDir, name string, out *fileEntry) func() error {
	return func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(dataDir, name)
		info, err := os.Stat(path)
		if err != nil {
			return errors.Wrapf(err, "stat %s", name)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "read %s", name)
		}

		slog.Info("loaded collection", slog.String("file", name), slog.Int("bytes", len(data)))

		*out = fileEntry{
			name:    name,
			mode:    int64(info.Mode().Perm()),
			modTime: info.ModTime(),
			data:    data,
		}
		return nil
	}
}

// writeArchive streams the entries through a tar writer wrapped in parallel
// gzip. The partial archive is removed on failure.
func writeArchive(path string, entries []fileEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create archive")
	}

	gz := pgzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	write := func() error {
		for _, e := range entries {
			hdr := &tar.Header{
				Name:    e.name,
				Mode:    e.mode,
				ModTime: e.modTime,
				Size:    int64(len(e.data)),
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return errors.Wrapf(err, "write header %s", e.name)
			}
			if _, err := tw.Write(e.data); err != nil {
				return errors.Wrapf(err, "write %s", e.name)
			}
		}
		if err := tw.Close(); err != nil {
			return errors.Wrap(err, "close tar")
		}
		if err := gz.Close(); err != nil {
			return errors.Wrap(err, "close gzip")
		}
		return f.Close()
	}

	if err := write(); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return nil
}
