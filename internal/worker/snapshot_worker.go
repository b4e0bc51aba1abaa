package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jaffle/internal/amqp"
	"jaffle/internal/core"
)

// Renderer produces the dashboard for a filter.
type Renderer interface {
	Render(ctx context.Context, f core.Filter) (core.Dashboard, error)
}

// Exporter encodes a dashboard in the requested format.
type Exporter interface {
	Write(w io.Writer, d core.Dashboard, format string) error
}

// SnapshotWorker turns snapshot requests into files under dir.
type SnapshotWorker struct {
	renderer Renderer
	exporter Exporter
	dir      string
	now      func() time.Time
}

func NewSnapshotWorker(renderer Renderer, exporter Exporter, dir string) *SnapshotWorker {
	return &SnapshotWorker{
		renderer: renderer,
		exporter: exporter,
		dir:      dir,
		now:      time.Now,
	}
}

// EnsureDir creates the snapshot directory.
func (w *SnapshotWorker) EnsureDir() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	return nil
}

// Handle renders and writes one snapshot. Connectivity failures are returned
// so the message is requeued; malformed source data is logged and dropped
// since retrying cannot fix it.
func (w *SnapshotWorker) Handle(ctx context.Context, msg *amqp.SnapshotRequest) error {
	slog.InfoContext(ctx, "Processing snapshot request",
		"snapshot_id", msg.ID,
		"store", msg.Store,
		"format", msg.Format)

	d, err := w.renderer.Render(ctx, msg.Filter())
	if err != nil {
		var df *core.DataFormatError
		if errors.As(err, &df) {
			slog.ErrorContext(ctx, "Dropping snapshot request, source data is malformed",
				"snapshot_id", msg.ID,
				"error", err)
			return nil
		}
		return fmt.Errorf("render dashboard: %w", err)
	}

	path, err := w.write(d, msg)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Snapshot written",
		"snapshot_id", msg.ID,
		"output_path", path,
		"products", len(d.Products),
		"months", len(d.Monthly))
	return nil
}

func (w *SnapshotWorker) write(d core.Dashboard, msg *amqp.SnapshotRequest) (string, error) {
	if err := w.EnsureDir(); err != nil {
		return "", err
	}

	ts := msg.RequestedAt
	if ts.IsZero() {
		ts = w.now()
	}
	path := filepath.Join(w.dir, SnapshotFileName(msg.Store, msg.ID.String(), ts, msg.Format))

	tmp, err := os.CreateTemp(w.dir, ".snapshot-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := w.exporter.Write(tmp, d, msg.Format); err != nil {
		tmp.Close()
		return "", fmt.Errorf("export snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move snapshot into place: %w", err)
	}
	return path, nil
}

// SnapshotFileName builds snapshot_<store>_<timestamp>_<id>.<ext> where id is
// the first eight characters of the request ID. Characters outside
// [A-Za-z0-9-] in the store name become underscores, so the ID keeps stores
// that sanitize alike apart.
func SnapshotFileName(store, id string, ts time.Time, format string) string {
	if store == "" {
		store = core.AllStoresLabel
	}
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, store)
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("snapshot_%s_%s", safe, ts.UTC().Format("20060102T150405Z"))
	if id != "" {
		name += "_" + id
	}
	return name + "." + strings.ToLower(format)
}
