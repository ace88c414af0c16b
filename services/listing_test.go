package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"farmsetu/apperr"
	"farmsetu/logger"
	"farmsetu/media"
	"farmsetu/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newListingService(store *memListings) *ListingService {
	return NewListingService(store, media.NewResolver("/uploads"), logger.Discard())
}

func farmer(district string) *models.User {
	return &models.User{
		ID: primitive.NewObjectID(),
		Address: models.UserAddress{
			State: "Maharashtra", District: district, Taluko: "Haveli", VillageName: "Baner",
		},
	}
}

func listingFields(title string) map[string]any {
	return map[string]any{
		"title":         title,
		"description":   "Healthy, 4 years old",
		"expectedPrice": "45000",
		"category":      "cow",
		"images":        `["a.jpg","b.jpg"]`,
	}
}

func TestCreateListing(t *testing.T) {
	store := &memListings{}
	svc := newListingService(store)
	owner := farmer("Pune")

	got, err := svc.Create(context.Background(), CreateListingInput{
		Owner:  owner,
		Fields: listingFields("  Gir Cow  "),
		Files:  []media.UploadedFile{{FieldName: "video", MimeType: "video/mp4", Filename: "walk-1-2.mp4"}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Title != "Gir Cow" || got.Category != "COW" || got.ExpectedPrice != 45000 {
		t.Errorf("listing = %+v", got)
	}
	if !reflect.DeepEqual(got.Images, []string{"a.jpg", "b.jpg"}) || got.Video != "walk-1-2.mp4" {
		t.Errorf("response media = %v %q, want bare filenames", got.Images, got.Video)
	}
	if got.Address.District != "Pune" || got.Address.Village != "Baner" {
		t.Errorf("address = %+v", got.Address)
	}
	if got.Status != models.ListingActive || got.ShowOnlyInMyDistrict {
		t.Errorf("status = %q restricted = %v", got.Status, got.ShowOnlyInMyDistrict)
	}

	stored := store.items[0]
	if !reflect.DeepEqual(stored.Images, []string{"/uploads/images/a.jpg", "/uploads/images/b.jpg"}) {
		t.Errorf("stored images = %v", stored.Images)
	}
	if stored.Video != "/uploads/videos/walk-1-2.mp4" {
		t.Errorf("stored video = %q", stored.Video)
	}
}

func TestCreateListingWithoutMedia(t *testing.T) {
	store := &memListings{}
	svc := newListingService(store)

	fields := listingFields("Murrah Buffalo")
	delete(fields, "images")
	fields["video"] = "   "
	got, err := svc.Create(context.Background(), CreateListingInput{Owner: farmer("Pune"), Fields: fields})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Images == nil || len(got.Images) != 0 || got.Video != "" {
		t.Errorf("response media = %#v %q, want empty list and no video", got.Images, got.Video)
	}
	if stored := store.items[0]; stored.Images == nil || len(stored.Images) != 0 || stored.Video != "" {
		t.Errorf("stored media = %#v %q", stored.Images, stored.Video)
	}
}

func TestCreateListingValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		owner  *models.User
		want   string
	}{
		{"too many images before missing fields", func(f map[string]any) {
			f["images"] = "a,b,c,d"
			delete(f, "title")
		}, nil, "Too many images. Maximum 3 images allowed, but 4 were provided."},
		{"missing title", func(f map[string]any) { f["title"] = "   " }, nil, "Please provide all required fields"},
		{"missing price", func(f map[string]any) { delete(f, "expectedPrice") }, nil, "Please provide all required fields"},
		{"blank category is absent", func(f map[string]any) { f["category"] = "  " }, nil, "Please provide all required fields"},
		{"unknown category", func(f map[string]any) { f["category"] = "UNICORN" }, nil, `Invalid category "UNICORN"`},
		{"incomplete address", func(f map[string]any) {}, &models.User{ID: primitive.NewObjectID()}, "Please provide all address fields"},
		{"negative price", func(f map[string]any) { f["expectedPrice"] = "-1" }, nil, "Expected price must be"},
		{"non numeric price", func(f map[string]any) { f["expectedPrice"] = "cheap" }, nil, "Expected price must be"},
		{"NaN price", func(f map[string]any) { f["expectedPrice"] = "NaN" }, nil, "Expected price must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newListingService(&memListings{})
			fields := listingFields("Gir Cow")
			tt.mutate(fields)
			owner := tt.owner
			if owner == nil {
				owner = farmer("Pune")
			}

			_, err := svc.Create(context.Background(), CreateListingInput{Owner: owner, Fields: fields})
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want validation error", err)
			}
			if !strings.HasPrefix(ve.Message, tt.want) {
				t.Errorf("message = %q, want prefix %q", ve.Message, tt.want)
			}
		})
	}
}

func TestCreateListingAcceptsNumericJSONValues(t *testing.T) {
	svc := newListingService(&memListings{})
	fields := listingFields("Tractor")
	fields["expectedPrice"] = float64(0)
	fields["showOnlyInMyDistrict"] = true
	fields["category"] = "tractor"
	fields["images"] = []any{"t.jpg"}

	got, err := svc.Create(context.Background(), CreateListingInput{Owner: farmer("Pune"), Fields: fields})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ExpectedPrice != 0 || !got.ShowOnlyInMyDistrict || got.Category != "TRACTOR" {
		t.Errorf("listing = %+v", got)
	}
}

func TestCreateListingRejectsDuplicateTitlePerOwner(t *testing.T) {
	store := &memListings{}
	svc := newListingService(store)
	owner := farmer("Pune")
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateListingInput{Owner: owner, Fields: listingFields("Cow For Sale")})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.Create(ctx, CreateListingInput{Owner: owner, Fields: listingFields("cow for sale")})
	var de *apperr.DuplicateError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want duplicate error", err)
	}
	if de.ExistingID != first.ID.Hex() {
		t.Errorf("existing id = %q, want %q", de.ExistingID, first.ID.Hex())
	}

	if _, err := svc.Create(ctx, CreateListingInput{Owner: farmer("Pune"), Fields: listingFields("Cow For Sale")}); err != nil {
		t.Errorf("same title for another owner: %v", err)
	}
	if _, err := svc.Create(ctx, CreateListingInput{Owner: owner, Fields: listingFields("Cow For Sale 2")}); err != nil {
		t.Errorf("longer title for same owner: %v", err)
	}
}

func TestCreateListingReportsRaceAsDuplicate(t *testing.T) {
	store := &memListings{}
	svc := newListingService(store)
	owner := farmer("Pune")
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateListingInput{Owner: owner, Fields: listingFields("Tractor (2020)")})
	if err != nil {
		t.Fatal(err)
	}
	store.hideOnce = true

	_, err = svc.Create(ctx, CreateListingInput{Owner: owner, Fields: listingFields("TRACTOR (2020)")})
	var de *apperr.DuplicateError
	if !errors.As(err, &de) || de.ExistingID != first.ID.Hex() {
		t.Fatalf("err = %v, want duplicate of %s", err, first.ID.Hex())
	}
	if len(store.items) != 1 {
		t.Errorf("stored %d listings, want 1", len(store.items))
	}
}

func TestListVisible(t *testing.T) {
	store := &memListings{}
	svc := newListingService(store)
	ctx := context.Background()
	seller := farmer("Pune")

	open := listingFields("Open")
	restricted := listingFields("Restricted")
	restricted["showOnlyInMyDistrict"] = "TRUE"
	for _, f := range []map[string]any{open, restricted} {
		if _, err := svc.Create(ctx, CreateListingInput{Owner: seller, Fields: f}); err != nil {
			t.Fatal(err)
		}
	}
	hidden, err := svc.Create(ctx, CreateListingInput{Owner: seller, Fields: listingFields("Hidden")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetStatus(ctx, seller, hidden.ID.Hex(), "inactive"); err != nil {
		t.Fatal(err)
	}

	titles := func(ls []models.Listing) []string {
		var out []string
		for _, l := range ls {
			out = append(out, l.Title)
		}
		return out
	}

	local, err := svc.ListVisible(ctx, farmer("Pune"))
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(local); !reflect.DeepEqual(got, []string{"Restricted", "Open"}) {
		t.Errorf("Pune sees %v", got)
	}
	if local[0].Images[0] != "a.jpg" {
		t.Errorf("images not presented as filenames: %v", local[0].Images)
	}

	remote, err := svc.ListVisible(ctx, farmer("Nashik"))
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(remote); !reflect.DeepEqual(got, []string{"Open"}) {
		t.Errorf("Nashik sees %v", got)
	}

	_, err = svc.ListVisible(ctx, farmer(""))
	var ce *apperr.ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("requester without district: err = %v, want config error", err)
	}

	mine, err := svc.ListMine(ctx, seller)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 3 || mine[0].Title != "Hidden" {
		t.Errorf("ListMine = %v", titles(mine))
	}
}

func TestSetStatus(t *testing.T) {
	store := &memListings{}
	svc := newListingService(store)
	ctx := context.Background()
	owner := farmer("Pune")
	l, err := svc.Create(ctx, CreateListingInput{Owner: owner, Fields: listingFields("Goat")})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SetStatus(ctx, owner, l.ID.Hex(), "sold"); apperr.Status(err) != 400 {
		t.Errorf("invalid status: err = %v", err)
	}
	if _, err := svc.SetStatus(ctx, farmer("Pune"), l.ID.Hex(), "inactive"); apperr.Status(err) != 404 {
		t.Errorf("foreign owner: err = %v", err)
	}
	if _, err := svc.SetStatus(ctx, owner, "not-an-id", "inactive"); apperr.Status(err) != 404 {
		t.Errorf("bad id: err = %v", err)
	}
	got, err := svc.SetStatus(ctx, owner, l.ID.Hex(), " Inactive ")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.ListingInactive {
		t.Errorf("status = %q", got.Status)
	}
}
