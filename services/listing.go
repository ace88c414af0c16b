package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"farmsetu/apperr"
	"farmsetu/media"
	"farmsetu/models"
	"farmsetu/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListingStore is the persistence the admission controller needs.
type ListingStore interface {
	FindByOwnerTitle(ctx context.Context, owner primitive.ObjectID, title string) (*models.Listing, error)
	Insert(ctx context.Context, l *models.Listing) error
	FindVisible(ctx context.Context, district string) ([]models.Listing, error)
	FindByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Listing, error)
	UpdateStatus(ctx context.Context, id, owner primitive.ObjectID, status models.ListingStatus) (*models.Listing, error)
}

type ListingService struct {
	store    ListingStore
	resolver *media.Resolver
	log      *slog.Logger
}

func NewListingService(store ListingStore, resolver *media.Resolver, log *slog.Logger) *ListingService {
	return &ListingService{store: store, resolver: resolver, log: log}
}

type CreateListingInput struct {
	Owner  *models.User
	Fields map[string]any
	Files  []media.UploadedFile
}

// Create admits a new listing. Checks run in a fixed order and the first
// failure is returned. The result has media references reduced to bare
// filenames.
func (s *ListingService) Create(ctx context.Context, in CreateListingInput) (*models.Listing, error) {
	resolved, err := s.resolver.Resolve(media.Input{
		Files:       in.Files,
		Fields:      in.Fields,
		UserAddress: in.Owner.Address,
	})
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(media.StringValue(in.Fields["title"]))
	description := strings.TrimSpace(media.StringValue(in.Fields["description"]))
	rawPrice := strings.TrimSpace(media.StringValue(in.Fields["expectedPrice"]))
	rawCategory := strings.TrimSpace(media.StringValue(in.Fields["category"]))
	if title == "" || description == "" || rawPrice == "" || rawCategory == "" {
		return nil, apperr.Validation("Please provide all required fields (title, description, expectedPrice, category)")
	}

	category := models.NormalizeCategory(rawCategory)
	if !models.IsCategory(category) {
		return nil, apperr.FieldValidation(fmt.Sprintf("Invalid category %q", rawCategory), "category", "")
	}

	if !resolved.Address.Complete() {
		return nil, apperr.Validation("Please provide all address fields (village, taluko, district, state)")
	}

	price, err := parsePrice(rawPrice)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindByOwnerTitle(ctx, in.Owner.ID, title)
	if err != nil {
		return nil, fmt.Errorf("ListingService.Create: duplicate check: %w", err)
	}
	if existing != nil {
		return nil, duplicateError(existing.ID)
	}

	listing := &models.Listing{
		CreatedBy:            in.Owner.ID,
		Category:             category,
		Title:                title,
		Description:          description,
		ExpectedPrice:        price,
		Images:               resolved.Images,
		Video:                resolved.Video,
		Address:              resolved.Address,
		ShowOnlyInMyDistrict: parseBool(in.Fields["showOnlyInMyDistrict"]),
		Status:               models.ListingActive,
	}
	if err := s.store.Insert(ctx, listing); err != nil {
		if errors.Is(err, repository.ErrDuplicateTitle) {
			return nil, s.raceDuplicate(ctx, in.Owner.ID, title)
		}
		return nil, fmt.Errorf("ListingService.Create: %w", err)
	}

	s.log.Info("listing created", "listingId", listing.ID.Hex(), "owner", in.Owner.ID.Hex(),
		"category", category, "images", len(listing.Images), "video", listing.Video != "")
	out := listing.Presented()
	return &out, nil
}

// raceDuplicate reports a unique index violation the same way as a
// duplicate found by the lookup.
func (s *ListingService) raceDuplicate(ctx context.Context, owner primitive.ObjectID, title string) error {
	existing, err := s.store.FindByOwnerTitle(ctx, owner, title)
	if err != nil || existing == nil {
		return &apperr.DuplicateError{Message: duplicateMessage}
	}
	return duplicateError(existing.ID)
}

const duplicateMessage = "You already have a listing with this title"

func duplicateError(id primitive.ObjectID) error {
	return &apperr.DuplicateError{Message: duplicateMessage, ExistingID: id.Hex()}
}

// ListVisible returns the active listings requester may see.
func (s *ListingService) ListVisible(ctx context.Context, requester *models.User) ([]models.Listing, error) {
	district := strings.TrimSpace(requester.Address.District)
	if district == "" {
		return nil, &apperr.ConfigError{Message: "User district not found. Please update your profile address."}
	}
	listings, err := s.store.FindVisible(ctx, district)
	if err != nil {
		return nil, fmt.Errorf("ListingService.ListVisible: %w", err)
	}
	return present(listings), nil
}

// ListMine returns every listing owned by owner regardless of status.
func (s *ListingService) ListMine(ctx context.Context, owner *models.User) ([]models.Listing, error) {
	listings, err := s.store.FindByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("ListingService.ListMine: %w", err)
	}
	return present(listings), nil
}

func (s *ListingService) SetStatus(ctx context.Context, owner *models.User, id, status string) (*models.Listing, error) {
	listingID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("Listing not found")
	}
	st := models.ListingStatus(strings.ToLower(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, apperr.FieldValidation("Status must be active or inactive", "status", "")
	}

	updated, err := s.store.UpdateStatus(ctx, listingID, owner.ID, st)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("Listing not found")
	}
	if err != nil {
		return nil, fmt.Errorf("ListingService.SetStatus: %w", err)
	}
	s.log.Info("listing status changed", "listingId", id, "status", st)
	out := updated.Presented()
	return &out, nil
}

func present(listings []models.Listing) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.Presented())
	}
	return out
}

func parsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, apperr.FieldValidation("Expected price must be a valid non-negative number", "expectedPrice", "")
	}
	return price, nil
}

// parseBool accepts JSON booleans and "true"/"false" in any case. Anything
// else is false.
func parseBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(strings.TrimSpace(val), "true")
	}
	return false
}
