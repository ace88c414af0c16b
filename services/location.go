package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"farmsetu/apperr"
	"farmsetu/models"
	"farmsetu/repository"
)

type LocationStore interface {
	States(ctx context.Context) ([]string, error)
	Districts(ctx context.Context, state string) ([]string, error)
	Talukos(ctx context.Context, state, district string) ([]string, error)
	OfficesInTaluko(ctx context.Context, state, district, taluko string) ([]models.Location, error)
	OfficesInDistrict(ctx context.Context, state, district string) ([]models.Location, error)
	FindByPincode(ctx context.Context, pincode int) (*models.Location, error)
}

type LocationService struct {
	store    LocationStore
	geocoder *Geocoder
}

func NewLocationService(store LocationStore, geocoder *Geocoder) *LocationService {
	return &LocationService{store: store, geocoder: geocoder}
}

var spaces = regexp.MustCompile(`\s+`)

// normalize collapses runs of whitespace in path parameters.
func normalize(v string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(v, " "))
}

func (s *LocationService) States(ctx context.Context) ([]string, error) {
	return s.store.States(ctx)
}

func (s *LocationService) Districts(ctx context.Context, state string) ([]string, error) {
	return s.store.Districts(ctx, normalize(state))
}

func (s *LocationService) Talukos(ctx context.Context, state, district string) ([]string, error) {
	return s.store.Talukos(ctx, normalize(state), normalize(district))
}

// Villages lists post offices of a taluko as villages, one entry per name.
func (s *LocationService) Villages(ctx context.Context, state, district, taluko string) ([]models.Village, error) {
	rows, err := s.store.OfficesInTaluko(ctx, normalize(state), normalize(district), normalize(taluko))
	if err != nil {
		return nil, fmt.Errorf("LocationService.Villages: %w", err)
	}
	return villages(rows), nil
}

func (s *LocationService) VillagesOfDistrict(ctx context.Context, state, district string) ([]models.Village, error) {
	rows, err := s.store.OfficesInDistrict(ctx, normalize(state), normalize(district))
	if err != nil {
		return nil, fmt.Errorf("LocationService.VillagesOfDistrict: %w", err)
	}
	return villages(rows), nil
}

// villages keeps the first pincode seen for each village name.
func villages(rows []models.Location) []models.Village {
	seen := make(map[string]bool, len(rows))
	out := []models.Village{}
	for _, row := range rows {
		if row.OfficeName == "" {
			continue
		}
		name := models.VillageName(row.OfficeName)
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, models.Village{Village: name, Pincode: row.Pincode})
	}
	return out
}

func (s *LocationService) ByPincode(ctx context.Context, pincode string) (*models.PincodeInfo, error) {
	code, err := strconv.Atoi(strings.TrimSpace(pincode))
	if err != nil {
		return nil, apperr.NotFound("Pincode not found")
	}
	loc, err := s.store.FindByPincode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("Pincode not found")
	}
	if err != nil {
		return nil, fmt.Errorf("LocationService.ByPincode: %w", err)
	}
	return &models.PincodeInfo{
		State:    loc.StateName,
		District: loc.DistrictName,
		Taluko:   loc.Taluk,
		Village:  models.VillageName(loc.OfficeName),
		Pincode:  loc.Pincode,
	}, nil
}

func (s *LocationService) Reverse(ctx context.Context, lat, lng string) (*ReverseResult, error) {
	latitude, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	longitude, err2 := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err1 != nil || err2 != nil || latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return nil, apperr.Validation("lat and lng must be valid coordinates")
	}
	return s.geocoder.Reverse(ctx, latitude, longitude)
}
