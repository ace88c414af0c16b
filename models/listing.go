package models

import (
	"path"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxListingImages = 3
	MaxListingVideos = 1
)

type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingInactive ListingStatus = "inactive"
)

func (s ListingStatus) Valid() bool {
	return s == ListingActive || s == ListingInactive
}

// Active treats documents written before status existed as active.
func (s ListingStatus) Active() bool {
	return s == ListingActive || s == ""
}

// ListingAddress is the embedded location of a listing.
type ListingAddress struct {
	Village  string `bson:"village" json:"village"`
	Taluko   string `bson:"taluko" json:"taluko"`
	District string `bson:"district" json:"district"`
	State    string `bson:"state" json:"state"`
}

func (a ListingAddress) Complete() bool {
	return a.Village != "" && a.Taluko != "" && a.District != "" && a.State != ""
}

type Listing struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedBy            primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Category             string             `bson:"category" json:"category"`
	Title                string             `bson:"title" json:"title"`
	TitleKey             string             `bson:"titleKey" json:"-"` // lower-cased title, unique per owner
	Description          string             `bson:"description" json:"description"`
	ExpectedPrice        float64            `bson:"expectedPrice" json:"expectedPrice"`
	Images               []string           `bson:"images" json:"images"`
	Video                string             `bson:"video,omitempty" json:"video,omitempty"`
	Address              ListingAddress     `bson:"address" json:"address"`
	ShowOnlyInMyDistrict bool               `bson:"showOnlyInMyDistrict" json:"showOnlyInMyDistrict"`
	Status               ListingStatus      `bson:"status" json:"status"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TitleKey is the normalized form used for per-owner title uniqueness.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// VisibleTo reports whether a requester living in district may see l.
func (l Listing) VisibleTo(district string) bool {
	if !l.Status.Active() {
		return false
	}
	return !l.ShowOnlyInMyDistrict || l.Address.District == district
}

// Presented returns a copy of l whose media references are bare filenames.
// Stored listings keep root-relative paths.
func (l Listing) Presented() Listing {
	out := l
	out.Images = make([]string, 0, len(l.Images))
	for _, img := range l.Images {
		out.Images = append(out.Images, bareName(img))
	}
	if l.Video != "" {
		out.Video = bareName(l.Video)
	}
	return out
}

func bareName(ref string) string {
	if ref == "" {
		return ""
	}
	return path.Base(ref)
}
