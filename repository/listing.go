package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"farmsetu/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrDuplicateTitle = errors.New("owner already has a listing with this title")
)

type ListingRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewListingRepository(coll *mongo.Collection) *ListingRepository {
	return &ListingRepository{coll: coll, now: time.Now}
}

// FindByOwnerTitle returns the owner's listing whose title equals title
// ignoring case, or nil when there is none.
func (r *ListingRepository) FindByOwnerTitle(ctx context.Context, owner primitive.ObjectID, title string) (*models.Listing, error) {
	var l models.Listing
	err := r.coll.FindOne(ctx, titleFilter(owner, title)).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.FindByOwnerTitle: %w", err)
	}
	return &l, nil
}

// titleFilter matches the whole title case-insensitively. The title is
// escaped so metacharacters match literally.
func titleFilter(owner primitive.ObjectID, title string) bson.M {
	return bson.M{
		"createdBy": owner,
		"title": primitive.Regex{
			Pattern: "^" + regexp.QuoteMeta(strings.TrimSpace(title)) + "$",
			Options: "i",
		},
	}
}

// Insert stores l, filling id, title key and timestamps. A unique index
// violation on (createdBy, titleKey) yields ErrDuplicateTitle.
func (r *ListingRepository) Insert(ctx context.Context, l *models.Listing) error {
	now := r.now().UTC()
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	if l.Status == "" {
		l.Status = models.ListingActive
	}
	if l.Images == nil {
		l.Images = []string{}
	}
	l.TitleKey = models.TitleKey(l.Title)
	l.CreatedAt = now
	l.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, l); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateTitle
		}
		return fmt.Errorf("ListingRepository.Insert: %w", err)
	}
	return nil
}

// FindVisible returns active listings a requester in district may see,
// newest first.
func (r *ListingRepository) FindVisible(ctx context.Context, district string) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, visibilityFilter(district), opts)
}

func visibilityFilter(district string) bson.M {
	return bson.M{
		"status": bson.M{"$in": bson.A{models.ListingActive, nil}},
		"$or": bson.A{
			bson.M{"showOnlyInMyDistrict": bson.M{"$ne": true}},
			bson.M{"showOnlyInMyDistrict": true, "address.district": district},
		},
	}
}

func (r *ListingRepository) FindByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"createdBy": owner}, opts)
}

// UpdateStatus changes the status of a listing owned by owner and returns
// the updated document.
func (r *ListingRepository) UpdateStatus(ctx context.Context, id, owner primitive.ObjectID, status models.ListingStatus) (*models.Listing, error) {
	filter := bson.M{"_id": id, "createdBy": owner}
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": r.now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var l models.Listing
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.UpdateStatus: %w", err)
	}
	return &l, nil
}

func (r *ListingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Listing, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.find: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("ListingRepository.find: decode: %w", err)
	}
	return listings, nil
}
