package models

import "time"

type TopRatedItem struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	AvgRating   float64           `json:"avgRating"`
	ReviewCount int               `json:"reviewCount"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	Restaurant  RestaurantSummary `json:"restaurant"`
}

type RecentReview struct {
	ID        int64           `json:"id"`
	Rating    int             `json:"rating"`
	Comment   string          `json:"comment,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	User      UserSummary     `json:"user"`
	MenuItem  MenuItemSummary `json:"menuItem"`
}

type PhotoItem struct {
	ID       int64           `json:"id"`
	ImageURL string          `json:"imageUrl"`
	MenuItem MenuItemSummary `json:"menuItem"`
}
