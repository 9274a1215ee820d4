package types

import (
	"net/url"

	"github.com/guregu/null/v6"
)

// Location defines the address of a place
type Location struct {
	Street    null.String
	City      null.String
	State     null.String
	Country   null.String
	Zip       null.String
	Latitude  null.Float
	Longitude null.Float
}

// Picture defines a profile picture
type Picture struct {
	URL          *url.URL
	IsSilhouette null.Bool
	Height       null.Int
	Width        null.Int
}

// Cover defines a cover photo
type Cover struct {
	ID      null.String
	Source  *url.URL
	OffsetX null.Int
	OffsetY null.Int
}

// Like defines a page liked by a page
type Like struct {
	ID          null.String
	Name        null.String
	Category    null.String
	CreatedTime null.Time
}

// PageBackedInstagramAccount defines an Instagram account linked to a page
type PageBackedInstagramAccount struct {
	ID         null.String
	Username   null.String
	ProfilePic *url.URL
}
