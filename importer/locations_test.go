package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"farmsetu/logger"
	"farmsetu/models"
)

type recordingSink struct {
	batches [][]models.Location
	fail    error
}

func (s *recordingSink) InsertMany(_ context.Context, rows []models.Location) (int, error) {
	cp := append([]models.Location(nil), rows...)
	s.batches = append(s.batches, cp)
	if s.fail != nil {
		return 0, s.fail
	}
	return len(rows), nil
}

const sample = `officename,pincode,officeType,Taluk,Districtname,statename,Related Suboffice,Related Headoffice
BANER S.O,411045,S.O,HAVELI,PUNE,MAHARASHTRA,NA,PUNE CITY H.O
AUNDH B.O,411007,B.O,HAVELI,PUNE,MAHARASHTRA,BANER S.O,PUNE CITY H.O
,411001,B.O,HAVELI,PUNE,MAHARASHTRA,NA,NA
WAKAD B.O,NA,B.O,MULSHI,PUNE,MAHARASHTRA,NA,NA
HINJEWADI B.O,411057,B.O,MULSHI,PUNE,MAHARASHTRA,NA,NA
`

func TestLocations(t *testing.T) {
	sink := &recordingSink{}
	stats, err := Locations(context.Background(), strings.NewReader(sample), sink, 2, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if stats != (Stats{Read: 5, Inserted: 3, Skipped: 2}) {
		t.Errorf("stats = %+v", stats)
	}
	if len(sink.batches) != 2 || len(sink.batches[0]) != 2 || len(sink.batches[1]) != 1 {
		t.Fatalf("batches = %v", sink.batches)
	}

	got := sink.batches[0][1]
	if got.Pincode != 411007 || got.Taluk != "Haveli" || got.DistrictName != "Pune" || got.StateName != "Maharashtra" {
		t.Errorf("row = %+v", got)
	}
	if !strings.EqualFold(got.OfficeName, "AUNDH B.O") || !strings.EqualFold(got.RelatedHeadoffice, "pune city h.o") {
		t.Errorf("row = %+v", got)
	}
	if models.VillageName(got.OfficeName) != "Aundh" {
		t.Errorf("village name = %q", models.VillageName(got.OfficeName))
	}
	if sink.batches[0][0].RelatedSuboffice != "" {
		t.Errorf("NA not cleared: %q", sink.batches[0][0].RelatedSuboffice)
	}
}

func TestLocationsMissingColumn(t *testing.T) {
	_, err := Locations(context.Background(), strings.NewReader("officename,pincode\nA,1\n"), &recordingSink{}, 10, logger.Discard())
	if err == nil || !strings.Contains(err.Error(), "taluk") {
		t.Errorf("err = %v", err)
	}
}

func TestLocationsSinkError(t *testing.T) {
	boom := errors.New("write failed")
	_, err := Locations(context.Background(), strings.NewReader(sample), &recordingSink{fail: boom}, 10, logger.Discard())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}
