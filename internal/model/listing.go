package model

import "time"

type Listing struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	ImageURL    string    `json:"image_url" bson:"image_url"`
	Price       int       `json:"price" bson:"price"`
	Location    string    `json:"location" bson:"location"`
	Country     string    `json:"country" bson:"country"`
	OwnerID     string    `json:"owner_id" bson:"owner_id"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// ListingInput carries the user-editable fields of a listing.
type ListingInput struct {
	Title       string `validate:"required,max=120"`
	Description string `validate:"max=4000"`
	ImageURL    string `validate:"omitempty,url"`
	Price       int    `validate:"gte=0,lte=1000000"`
	Location    string `validate:"required,max=120"`
	Country     string `validate:"required,max=80"`
}

// ListingFilter narrows a listing query. Query matches title, location or
// country case-insensitively.
type ListingFilter struct {
	Query    string
	Location string
	Country  string
	Limit    int
}
