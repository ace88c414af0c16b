package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"farmsetu/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LocationRepository struct {
	coll *mongo.Collection
}

func NewLocationRepository(coll *mongo.Collection) *LocationRepository {
	return &LocationRepository{coll: coll}
}

// contains matches value anywhere in the field, ignoring case.
func contains(value string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
}

// exact matches the whole field, ignoring case.
func exact(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}

func (r *LocationRepository) States(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "statename", bson.M{})
}

func (r *LocationRepository) Districts(ctx context.Context, state string) ([]string, error) {
	return r.distinct(ctx, "Districtname", bson.M{"statename": contains(state)})
}

func (r *LocationRepository) Talukos(ctx context.Context, state, district string) ([]string, error) {
	return r.distinct(ctx, "Taluk", bson.M{
		"statename":    contains(state),
		"Districtname": contains(district),
	})
}

// OfficesInTaluko returns post offices whose taluk or related sub/head office
// matches taluko.
func (r *LocationRepository) OfficesInTaluko(ctx context.Context, state, district, taluko string) ([]models.Location, error) {
	return r.find(ctx, bson.M{
		"statename":    contains(state),
		"Districtname": contains(district),
		"$or": bson.A{
			bson.M{"Taluk": contains(taluko)},
			bson.M{"RelatedSuboffice": contains(taluko)},
			bson.M{"RelatedHeadoffice": contains(taluko)},
		},
	})
}

func (r *LocationRepository) OfficesInDistrict(ctx context.Context, state, district string) ([]models.Location, error) {
	return r.find(ctx, bson.M{
		"statename":    exact(state),
		"Districtname": exact(district),
	})
}

func (r *LocationRepository) FindByPincode(ctx context.Context, pincode int) (*models.Location, error) {
	var loc models.Location
	err := r.coll.FindOne(ctx, bson.M{"pincode": pincode}).Decode(&loc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("LocationRepository.FindByPincode: %w", err)
	}
	return &loc, nil
}

// InsertMany loads rows of the postal table. Ordering is disabled so one bad
// row does not stop the batch.
func (r *LocationRepository) InsertMany(ctx context.Context, rows []models.Location) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(rows))
	for i := range rows {
		docs[i] = rows[i]
	}
	res, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if res != nil && err != nil {
		return len(res.InsertedIDs), fmt.Errorf("LocationRepository.InsertMany: %w", err)
	}
	if err != nil {
		return 0, fmt.Errorf("LocationRepository.InsertMany: %w", err)
	}
	return len(res.InsertedIDs), nil
}

// distinct returns the non-empty string values of field, sorted.
func (r *LocationRepository) distinct(ctx context.Context, field string, filter bson.M) ([]string, error) {
	values, err := r.coll.Distinct(ctx, field, filter)
	if err != nil {
		return nil, fmt.Errorf("LocationRepository.distinct %s: %w", field, err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *LocationRepository) find(ctx context.Context, filter bson.M) ([]models.Location, error) {
	opts := options.Find().SetProjection(bson.M{"officename": 1, "pincode": 1, "_id": 0})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("LocationRepository.find: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []models.Location
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("LocationRepository.find: decode: %w", err)
	}
	return rows, nil
}
