package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserAddress struct {
	State       string `bson:"state" json:"state"`
	District    string `bson:"district" json:"district"`
	Taluko      string `bson:"taluko" json:"taluko"`
	VillageName string `bson:"villageName" json:"villageName"`
}

type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName   string             `bson:"firstName" json:"firstName"`
	LastName    string             `bson:"lastName" json:"lastName"`
	Email       string             `bson:"email" json:"email"`
	PhoneNumber string             `bson:"phoneNumber" json:"phoneNumber"`
	CountryCode string             `bson:"countryCode" json:"countryCode"`
	Address     UserAddress        `bson:"address" json:"address"`
	Pincode     string             `bson:"pincode" json:"pincode"`

	PasswordHash string `bson:"password" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
