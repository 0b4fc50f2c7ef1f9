// Package backup takes periodic snapshots of the SQLite session checkpoint
// database so in-flight consultations survive a corrupted or lost data file.
// Snapshots use VACUUM INTO, which is consistent under WAL mode, and each one
// is integrity-checked before it counts as a backup.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Config controls the snapshot service.
type Config struct {
	// DBPath is the session checkpoint database to snapshot.
	DBPath string

	// Dir is where snapshot files are written.
	Dir string

	// Interval between automatic snapshots (default: 1 hour).
	Interval time.Duration

	// Keep is how many snapshots to retain; older ones are pruned after
	// each successful snapshot (default: 24).
	Keep int
}

// Snapshot describes one backup file on disk.
type Snapshot struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// Service snapshots the session database on a fixed interval.
type Service struct {
	dbPath   string
	dir      string
	interval time.Duration
	keep     int
}

const snapshotPrefix = "sessions-"

// NewService validates the configuration and prepares the snapshot directory.
func NewService(config Config) (*Service, error) {
	if config.DBPath == "" {
		return nil, fmt.Errorf("backup: database path is required")
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("backup: snapshot directory is required")
	}
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Keep <= 0 {
		config.Keep = 24
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot directory: %w", err)
	}
	return &Service{
		dbPath:   config.DBPath,
		dir:      config.Dir,
		interval: config.Interval,
		keep:     config.Keep,
	}, nil
}

// Run snapshots on the configured interval until ctx is cancelled. Individual
// snapshot failures are logged and the loop continues.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[backup] snapshotting %s every %v (keeping %d)", s.dbPath, s.interval, s.keep)
	for {
		select {
		case <-ctx.Done():
			log.Println("[backup] stopping")
			return
		case <-ticker.C:
			snap, err := s.SnapshotNow(ctx)
			if err != nil {
				log.Printf("[backup] snapshot failed: %v", err)
				continue
			}
			log.Printf("[backup] wrote %s (%d bytes)", snap.Path, snap.Size)
		}
	}
}

// SnapshotNow takes one snapshot, verifies it, and prunes old snapshots.
func (s *Service) SnapshotNow(ctx context.Context) (*Snapshot, error) {
	if _, err := os.Stat(s.dbPath); err != nil {
		return nil, fmt.Errorf("backup: session database not found: %w", err)
	}

	name := snapshotPrefix + time.Now().UTC().Format("20060102-150405.000000") + ".db"
	dest := filepath.Join(s.dir, name)

	if err := vacuumInto(ctx, s.dbPath, dest); err != nil {
		os.Remove(dest)
		return nil, err
	}
	if err := verify(ctx, dest); err != nil {
		os.Remove(dest)
		return nil, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("backup: stat snapshot: %w", err)
	}

	if err := s.prune(); err != nil {
		// Pruning failure does not invalidate the snapshot just taken.
		log.Printf("[backup] prune failed: %v", err)
	}

	return &Snapshot{Path: dest, CreatedAt: info.ModTime(), Size: info.Size()}, nil
}

// List returns the snapshots on disk, newest first.
func (s *Service) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("backup: read snapshot directory: %w", err)
	}

	var snaps []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), snapshotPrefix) || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snaps = append(snaps, Snapshot{
			Path:      filepath.Join(s.dir, entry.Name()),
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
		})
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// Restore replaces the session database with a verified snapshot. The session
// store must be closed before calling this.
func (s *Service) Restore(ctx context.Context, snapshotPath string) error {
	if err := verify(ctx, snapshotPath); err != nil {
		return err
	}

	src, err := os.Open(snapshotPath)
	if err != nil {
		return fmt.Errorf("backup: open snapshot: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(s.dbPath)
	if err != nil {
		return fmt.Errorf("backup: create session database: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("backup: copy snapshot: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("backup: sync session database: %w", err)
	}
	return verify(ctx, s.dbPath)
}

// prune deletes all but the newest keep snapshots.
func (s *Service) prune() error {
	snaps, err := s.List()
	if err != nil {
		return err
	}
	if len(snaps) <= s.keep {
		return nil
	}

	var lastErr error
	for _, snap := range snaps[s.keep:] {
		if err := os.Remove(snap.Path); err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("backup: delete old snapshots: %w", lastErr)
	}
	return nil
}

func vacuumInto(ctx context.Context, sourcePath, destPath string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", sourcePath))
	if err != nil {
		return fmt.Errorf("backup: open session database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return fmt.Errorf("backup: vacuum into %s: %w", destPath, err)
	}
	return nil
}

func verify(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("backup: open %s: %w", path, err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup: integrity check %s: %w", path, err)
	}
	if result != "ok" {
		return fmt.Errorf("backup: %s failed integrity check: %s", path, result)
	}
	return nil
}
