// Package access decides whether an actor may perform an action on a
// resource. It performs no I/O.
package access

import "bitelogs/internal/apperr"

type Actor struct {
	UserID  int64
	IsAdmin bool
}

type Action int

const (
	ReadCatalog Action = iota
	CreateRestaurant
	CreateMenuItem
	CreateReview
	DeleteReview
	AttachReviewImage
	AttachRestaurantImage
	AttachMenuItemImage
	UpdateProfile
)

func (a Action) String() string {
	switch a {
	case ReadCatalog:
		return "read_catalog"
	case CreateRestaurant:
		return "create_restaurant"
	case CreateMenuItem:
		return "create_menu_item"
	case CreateReview:
		return "create_review"
	case DeleteReview:
		return "delete_review"
	case AttachReviewImage:
		return "attach_review_image"
	case AttachRestaurantImage:
		return "attach_restaurant_image"
	case AttachMenuItemImage:
		return "attach_menu_item_image"
	case UpdateProfile:
		return "update_profile"
	default:
		return "unknown"
	}
}

// Resource identifies the target of an action. OwnerID is the author of a
// review or the subject of a profile; zero when the action has no owner.
type Resource struct {
	OwnerID int64
}

// Owned is a Resource owned by userID.
func Owned(userID int64) Resource {
	return Resource{OwnerID: userID}
}

// Policy carries the switches that alter the default rules.
type Policy struct {
	// AdminMayAttachReviewImages lets administrators attach images to
	// reviews they did not write.
	AdminMayAttachReviewImages bool
}

// Authorize applies the default policy.
func Authorize(actor *Actor, action Action, res Resource) error {
	return Policy{}.Authorize(actor, action, res)
}

// Authorize returns nil when allowed, an Unauthenticated error when an
// actor is required and missing, and a Forbidden error otherwise.
func (p Policy) Authorize(actor *Actor, action Action, res Resource) error {
	if action == ReadCatalog {
		return nil
	}
	if actor == nil || actor.UserID <= 0 {
		return apperr.Unauthenticated("Authentication required")
	}

	switch action {
	case CreateRestaurant, CreateMenuItem, CreateReview,
		AttachRestaurantImage, AttachMenuItemImage:
		return nil
	case DeleteReview:
		if actor.UserID == res.OwnerID || actor.IsAdmin {
			return nil
		}
		return apperr.Forbidden("Cannot delete this review")
	case AttachReviewImage:
		if actor.UserID == res.OwnerID || (actor.IsAdmin && p.AdminMayAttachReviewImages) {
			return nil
		}
		return apperr.Forbidden("Cannot modify this review")
	case UpdateProfile:
		if actor.UserID == res.OwnerID {
			return nil
		}
		return apperr.Forbidden("")
	default:
		return apperr.Forbidden("")
	}
}
