// Package importer loads the Indian postal office table into the locations
// collection.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"farmsetu/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Sink stores one batch and returns how many rows it accepted.
type Sink interface {
	InsertMany(ctx context.Context, rows []models.Location) (int, error)
}

type Stats struct {
	Read     int
	Inserted int
	Skipped  int
}

var required = []string{"officename", "pincode", "taluk", "districtname", "statename"}

// Locations reads CSV rows from r and writes them to sink in batches. Header
// names are matched case-insensitively, ignoring spaces. Rows without an
// office name or a numeric pincode are skipped.
func Locations(ctx context.Context, r io.Reader, sink Sink, batchSize int, log *slog.Logger) (Stats, error) {
	var stats Stats
	if batchSize <= 0 {
		batchSize = 1000
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return stats, fmt.Errorf("missing column %q", name)
		}
	}

	title := cases.Title(language.Und)
	batch := make([]models.Location, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := sink.InsertMany(ctx, batch)
		stats.Inserted += n
		batch = batch[:0]
		if err != nil {
			return err
		}
		log.Debug("location batch stored", "inserted", stats.Inserted)
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read line %d: %w", stats.Read+2, err)
		}
		stats.Read++

		loc, ok := parseRow(record, cols, title)
		if !ok {
			stats.Skipped++
			continue
		}
		batch = append(batch, loc)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
		key = strings.TrimPrefix(key, "\ufeff")
		cols[key] = i
	}
	return cols
}

func parseRow(record []string, cols map[string]int, title cases.Caser) (models.Location, bool) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		v := strings.TrimSpace(record[i])
		if strings.EqualFold(v, "NA") {
			return ""
		}
		return v
	}

	office := get("officename")
	pincode, err := strconv.Atoi(get("pincode"))
	if office == "" || err != nil {
		return models.Location{}, false
	}
	return models.Location{
		OfficeName:        title.String(office),
		Pincode:           pincode,
		Taluk:             title.String(get("taluk")),
		DistrictName:      title.String(get("districtname")),
		StateName:         title.String(get("statename")),
		RelatedSuboffice:  title.String(get("relatedsuboffice")),
		RelatedHeadoffice: title.String(get("relatedheadoffice")),
	}, true
}
