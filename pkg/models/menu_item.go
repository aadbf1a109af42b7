package models

import "time"

type MenuItem struct {
	ID           int64     `json:"id"`
	RestaurantID int64     `json:"restaurantId"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Price        float64   `json:"price"`
	Category     string    `json:"category"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	AvgRating    float64   `json:"avgRating"`
	ReviewCount  int       `json:"reviewCount"`
	CreatedByID  int64     `json:"createdById"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Restaurant *RestaurantSummary `json:"restaurant,omitempty"`
}

// Aggregate is the rating projection cached on a menu item. It is always
// derived from the item's review rows, never written by clients.
type Aggregate struct {
	MenuItemID  int64   `json:"menuItemId"`
	AvgRating   float64 `json:"avgRating"`
	ReviewCount int     `json:"reviewCount"`
}

type MenuItemSummary struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	Restaurant *RestaurantSummary `json:"restaurant,omitempty"`
}
