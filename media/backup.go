package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Backup copies the local uploads directory into a timestamped folder once a
// day and prunes copies older than the retention window.
type Backup struct {
	src       string
	dst       string
	retention time.Duration
	hour      int
	log       *zap.Logger
	now       func() time.Time
}

func NewBackup(src, dst string, retentionDays, hour int, log *zap.Logger) *Backup {
	return &Backup{
		src:       src,
		dst:       dst,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		hour:      hour,
		log:       log.Named("backup"),
		now:       time.Now,
	}
}

// NextRun is the next occurrence of the configured hour strictly after now.
func (b *Backup) NextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), b.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is done, backing up once per day.
func (b *Backup) Run(ctx context.Context) {
	for {
		next := b.NextRun(b.now())
		b.log.Info("next uploads backup scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if dest, err := b.RunOnce(); err != nil {
			b.log.Error("failed to back up uploads", zap.Error(err))
		} else {
			b.log.Info("uploads backed up", zap.String("dest", dest))
		}
	}
}

// RunOnce takes a backup now and prunes expired ones.
func (b *Backup) RunOnce() (string, error) {
	dest := filepath.Join(b.dst, b.now().Format("2006-01-02_15-04-05"))
	if err := copyDir(b.src, dest); err != nil {
		return "", err
	}
	b.prune()
	return dest, nil
}

func (b *Backup) prune() {
	entries, err := os.ReadDir(b.dst)
	if err != nil {
		b.log.Error("failed to read backup directory", zap.Error(err))
		return
	}

	cutoff := b.now().Add(-b.retention)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(b.dst, entry.Name())
		info, err := os.Stat(dir)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			b.log.Error("failed to remove old backup", zap.String("dir", dir), zap.Error(err))
			continue
		}
		b.log.Info("removed old backup", zap.String("dir", dir))
	}
}

func copyDir(src, dest string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dest, entry.Name())
		if entry.IsDir() {
			err = copyDir(from, to)
		} else {
			err = copyFile(from, to)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
