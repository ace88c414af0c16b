package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyFile appends to <dir>/<prefix>-YYYY-MM-DD.log, switching files when
// the UTC date changes.
type DailyFile struct {
	mu     sync.Mutex
	dir    string
	prefix string
	day    string
	f      *os.File
	now    func() time.Time
}

func NewDailyFile(dir, prefix string) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DailyFile{dir: dir, prefix: prefix, now: time.Now}, nil
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	day := d.now().UTC().Format("2006-01-02")
	if d.f == nil || day != d.day {
		if d.f != nil {
			_ = d.f.Close()
		}
		f, err := os.OpenFile(d.path(day), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			d.f = nil
			return 0, err
		}
		d.f, d.day = f, day
	}
	return d.f.Write(p)
}

func (d *DailyFile) path(day string) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s-%s.log", d.prefix, day))
}

func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
