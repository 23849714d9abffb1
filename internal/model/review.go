package model

import "time"

type Review struct {
	ID        string    `json:"id" bson:"_id"`
	ListingID string    `json:"listing_id" bson:"listing_id"`
	AuthorID  string    `json:"author_id" bson:"author_id"`
	Rating    int       `json:"rating" bson:"rating"`
	Comment   string    `json:"comment" bson:"comment"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// AuthorName is filled by the store on listing reads.
	AuthorName string `json:"author_name,omitempty" bson:"-"`
}

type ReviewInput struct {
	Rating  int    `validate:"required,min=1,max=5"`
	Comment string `validate:"required,max=1000"`
}
