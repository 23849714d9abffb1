package model

// RatingSummary aggregates review ratings. Histogram[i] counts ratings of i+1.
type RatingSummary struct {
	Count     int     `json:"count"`
	Average   float64 `json:"average"`
	Histogram [5]int  `json:"histogram"`
}
