package model

import "time"

type Journey struct {
	ID          string        `json:"id" bson:"_id"`
	Title       string        `json:"title" bson:"title"`
	Destination string        `json:"destination" bson:"destination"`
	Summary     string        `json:"summary" bson:"summary"`
	Days        int           `json:"days" bson:"days"`
	Stops       []JourneyStop `json:"stops" bson:"stops"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
}

type JourneyStop struct {
	Day   int    `json:"day" bson:"day"`
	Place string `json:"place" bson:"place"`
	Note  string `json:"note" bson:"note"`
}
