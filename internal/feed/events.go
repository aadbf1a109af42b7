package feed

import "time"

const (
	ReviewCreated = "review.created"
	ReviewDeleted = "review.deleted"
)

type ReviewEvent struct {
	Type        string    `json:"type"` // ReviewCreated or ReviewDeleted
	ReviewID    int64     `json:"reviewId"`
	MenuItemID  int64     `json:"menuItemId"`
	UserID      int64     `json:"userId"`
	Rating      int       `json:"rating"`
	AvgRating   float64   `json:"avgRating"`
	ReviewCount int       `json:"reviewCount"`
	At          time.Time `json:"at"`
}
