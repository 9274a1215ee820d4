package types

import (
	"fmt"
	"net/url"

	"github.com/guregu/null/v6"
)

// Page defines a Facebook page. Only the decoder populates it.
type Page struct {
	ResponseMeta

	ID          null.String
	Name        null.String
	Category    null.String
	CreatedTime null.Time

	Link              *url.URL
	IsPublished       null.Bool
	CanPost           null.Bool
	Location          *Location
	Phone             null.String
	Checkins          null.Int
	Picture           *Picture
	Cover             *Cover
	Website           null.String
	CompanyOverview   null.String
	TalkingAboutCount null.Int
	AccessToken       null.String
	IsCommunityPage   null.Bool
	WereHereCount     null.Int
	FanCount          null.Int
	About             null.String
	Username          null.String
	Mission           null.String
	Hours             map[string]string

	Likes                       *PagableList[*Like]
	PageBackedInstagramAccounts *PagableList[*PageBackedInstagramAccount]
	InstagramBusinessAccountID  null.String
}

// GetID returns the page ID, or an empty string.
func (p *Page) GetID() string {
	return p.ID.ValueOrZero()
}

// PictureURL returns the URL of the page picture, if any.
func (p *Page) PictureURL() *url.URL {
	if p.Picture == nil {
		return nil
	}

	return p.Picture.URL
}

// Equal tells if two pages have the same identity, which is solely defined by
// the ID.
func (p *Page) Equal(other *Page) bool {
	if p == nil || other == nil {
		return p == other
	}

	return p.ID.Equal(other.ID)
}

// String implements fmt.Stringer
func (p *Page) String() string {
	return fmt.Sprintf("Page{id=%q, name=%q, category=%q, createdTime=%v, "+
		"link=%v, isPublished=%v, fanCount=%v, likes=%v, "+
		"pageBackedInstagramAccounts=%v}", p.ID.ValueOrZero(),
		p.Name.ValueOrZero(), p.Category.ValueOrZero(), p.CreatedTime.Ptr(),
		p.Link, p.IsPublished.Ptr(), p.FanCount.Ptr(), p.Likes,
		p.PageBackedInstagramAccounts)
}
