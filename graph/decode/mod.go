// Package decode turns Graph API JSON responses into the objects of the types
// package. Scalar fields are permissive: an absent or null key gives an
// invalid null value. Type mismatches, malformed timestamps or URLs, and
// missing required nested objects give a *DecodingError, and no object.
package decode

import (
	"github.com/guregu/null/v6"
	"github.com/nkcr/fbgraph/graph/types"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// DecodePage decodes a page from a response. If JSON storing is enabled, the
// recorder is cleared and the raw JSON is registered for the page.
func DecodePage(res Response, conf Config) (*types.Page, error) {
	json, err := res.AsJSONObject()
	if err != nil {
		return nil, newDecodingError(err)
	}

	page, err := DecodePageJSON(json)
	if err != nil {
		return nil, err
	}

	page.ResponseMeta = res.Meta()

	if conf.recording() {
		conf.Recorder.Clear()
		conf.Recorder.Register(page, json.Raw)
	}

	return page, nil
}

// DecodePageList decodes the pages contained in the top-level "data" array of
// a response.
func DecodePageList(res Response, conf Config) (*types.ResponseList[*types.Page], error) {
	if conf.recording() {
		conf.Recorder.Clear()
	}

	json, err := res.AsJSONObject()
	if err != nil {
		return nil, newDecodingError(err)
	}

	data := json.Get("data")
	if !data.IsArray() {
		return nil, newDecodingError(errors.Errorf("field %q: expected an array, got %s", "data", data.Raw))
	}

	paging, err := decodePaging(json)
	if err != nil {
		return nil, newDecodingError(err)
	}

	items := data.Array()
	pages := types.NewResponseList[*types.Page](len(items), paging, res.Meta())

	for i, item := range items {
		if !item.IsObject() {
			return nil, newDecodingError(errors.Errorf("data[%d]: expected an object, got %s", i, item.Raw))
		}

		page, err := decodePage(item)
		if err != nil {
			return nil, newDecodingError(errors.Wrapf(err, "data[%d]", i))
		}

		pages.Add(page)
	}

	if conf.recording() {
		conf.Recorder.Register(pages, json.Raw)
	}

	return pages, nil
}

// DecodeID decodes the {"id": "..."} reply of a creation endpoint.
func DecodeID(res Response) (string, error) {
	json, err := res.AsJSONObject()
	if err != nil {
		return "", newDecodingError(err)
	}

	id, err := getString(json, "id")
	if err != nil {
		return "", newDecodingError(err)
	}

	if !id.Valid {
		return "", newDecodingError(errors.Errorf("field %q is missing", "id"))
	}

	return id.String, nil
}

// DecodePageJSON decodes a page from a JSON object, such as an element of a
// list.
func DecodePageJSON(json gjson.Result) (*types.Page, error) {
	page, err := decodePage(json)
	return page, asDecodingError(err)
}

// DecodeLike decodes a liked page.
func DecodeLike(json gjson.Result) (*types.Like, error) {
	like, err := decodeLike(json)
	return like, asDecodingError(err)
}

// DecodePageBackedInstagramAccount decodes an Instagram account linked to a
// page.
func DecodePageBackedInstagramAccount(json gjson.Result) (*types.PageBackedInstagramAccount, error) {
	account, err := decodeInstagramAccount(json)
	return account, asDecodingError(err)
}

// DecodeLocation decodes a location object.
func DecodeLocation(json gjson.Result) (*types.Location, error) {
	location, err := decodeLocation(json)
	return location, asDecodingError(err)
}

// DecodePicture decodes a picture object. The "data" object is required.
func DecodePicture(json gjson.Result) (*types.Picture, error) {
	picture, err := decodePicture(json)
	return picture, asDecodingError(err)
}

// DecodeCover decodes a cover object.
func DecodeCover(json gjson.Result) (*types.Cover, error) {
	cover, err := decodeCover(json)
	return cover, asDecodingError(err)
}

// fieldDecoder accumulates the first error of a sequence of field decodes, so
// that a decoder can read fields one after the other.
type fieldDecoder struct {
	json gjson.Result
	err  error
}

func (d *fieldDecoder) fail(err error) bool {
	if d.err == nil && err != nil {
		d.err = err
	}

	return d.err != nil
}

func decodePage(json gjson.Result) (*types.Page, error) {
	if !json.IsObject() {
		return nil, errors.Errorf("page: expected an object, got %s", json.Raw)
	}

	d := &fieldDecoder{json: json}
	page := &types.Page{}

	page.ID = d.string("id")
	page.Name = d.string("name")
	page.Category = d.string("category")
	page.CreatedTime = d.time("created_time")
	page.Link = d.url("link")
	page.IsPublished = d.bool("is_published")
	page.CanPost = d.bool("can_post")

	d.do(func() (err error) {
		page.PageBackedInstagramAccounts, err = decodePagable(json,
			"page_backed_instagram_accounts", decodeInstagramAccount)
		return err
	})

	d.do(func() (err error) {
		page.InstagramBusinessAccountID, err = decodeInstagramBusinessAccountID(json)
		return err
	})

	d.do(func() (err error) {
		page.Likes, err = decodePagable(json, "likes", decodeLike)
		return err
	})

	d.do(func() (err error) {
		page.Location, err = decodeNested(json, "location", decodeLocation)
		return err
	})

	page.Phone = d.string("phone")
	page.Checkins = d.int("checkins")

	d.do(func() (err error) {
		page.Picture, err = decodeNested(json, "picture", decodePicture)
		return err
	})

	d.do(func() (err error) {
		page.Cover, err = decodeNested(json, "cover", decodeCover)
		return err
	})

	page.Website = d.string("website")
	page.CompanyOverview = d.string("company_overview")
	page.TalkingAboutCount = d.int("talking_about_count")
	page.AccessToken = d.string("access_token")
	page.IsCommunityPage = d.bool("is_community_page")
	page.WereHereCount = d.int("were_here_count")
	page.FanCount = d.int("fan_count")
	page.About = d.string("about")
	page.Username = d.string("username")
	page.Mission = d.string("mission")

	d.do(func() (err error) {
		page.Hours, err = getStringMap(json, "hours")
		return err
	})

	if d.err != nil {
		return nil, d.err
	}

	return page, nil
}

func decodeInstagramBusinessAccountID(json gjson.Result) (null.String, error) {
	account, ok, err := getObject(json, "instagram_business_account")
	if err != nil || !ok {
		return null.String{}, err
	}

	return getString(account, "id")
}

func decodeLike(json gjson.Result) (*types.Like, error) {
	d := &fieldDecoder{json: json}

	like := &types.Like{
		ID:          d.string("id"),
		Name:        d.string("name"),
		Category:    d.string("category"),
		CreatedTime: d.time("created_time"),
	}

	if d.err != nil {
		return nil, errors.Wrap(d.err, "like")
	}

	return like, nil
}

func decodeInstagramAccount(json gjson.Result) (*types.PageBackedInstagramAccount, error) {
	d := &fieldDecoder{json: json}

	account := &types.PageBackedInstagramAccount{
		ID:         d.string("id"),
		Username:   d.string("username"),
		ProfilePic: d.url("profile_pic"),
	}

	if d.err != nil {
		return nil, errors.Wrap(d.err, "instagram account")
	}

	return account, nil
}

func decodeLocation(json gjson.Result) (*types.Location, error) {
	d := &fieldDecoder{json: json}

	location := &types.Location{
		Street:    d.string("street"),
		City:      d.string("city"),
		State:     d.string("state"),
		Country:   d.string("country"),
		Zip:       d.string("zip"),
		Latitude:  d.float("latitude"),
		Longitude: d.float("longitude"),
	}

	if d.err != nil {
		return nil, errors.Wrap(d.err, "location")
	}

	return location, nil
}

func decodePicture(json gjson.Result) (*types.Picture, error) {
	data, ok, err := getObject(json, "data")
	if err != nil {
		return nil, errors.Wrap(err, "picture")
	}

	if !ok {
		return nil, errors.Errorf("picture: field %q is missing", "data")
	}

	d := &fieldDecoder{json: data}

	picture := &types.Picture{
		URL:          d.url("url"),
		IsSilhouette: d.bool("is_silhouette"),
		Height:       d.int("height"),
		Width:        d.int("width"),
	}

	if d.err != nil {
		return nil, errors.Wrap(d.err, "picture")
	}

	return picture, nil
}

func decodeCover(json gjson.Result) (*types.Cover, error) {
	d := &fieldDecoder{json: json}

	cover := &types.Cover{
		ID:      d.string("id"),
		Source:  d.url("source"),
		OffsetX: d.int("offset_x"),
		OffsetY: d.int("offset_y"),
	}

	if d.err != nil {
		return nil, errors.Wrap(d.err, "cover")
	}

	return cover, nil
}

// decodeNested decodes the object at key only if it is present and not null.
func decodeNested[T any](json gjson.Result, key string,
	decoder func(gjson.Result) (*T, error)) (*T, error) {

	obj, ok, err := getObject(json, key)
	if err != nil || !ok {
		return nil, err
	}

	return decoder(obj)
}

// decodePagable decodes the collection at key:
//   - absent key: empty list with a capacity of 0
//   - object without "data": empty list with a capacity of 1
//   - object with a "data" array: list populated from the array
func decodePagable[T any](json gjson.Result, key string,
	decoder func(gjson.Result) (T, error)) (*types.PagableList[T], error) {

	obj, ok, err := getObject(json, key)
	if err != nil {
		return nil, err
	}

	if !ok {
		return types.NewPagableList[T](0, nil), nil
	}

	paging, err := decodePaging(obj)
	if err != nil {
		return nil, errors.Wrap(err, key)
	}

	data, ok := lookup(obj, "data")
	if !ok {
		return types.NewPagableList[T](1, paging), nil
	}

	if !data.IsArray() {
		return nil, errors.Errorf("%s: field %q: expected an array, got %s", key, "data", data.Raw)
	}

	items := data.Array()
	list := types.NewPagableList[T](len(items), paging)

	for i, item := range items {
		if !item.IsObject() {
			return nil, errors.Errorf("%s.data[%d]: expected an object, got %s", key, i, item.Raw)
		}

		elem, err := decoder(item)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.data[%d]", key, i)
		}

		list.Add(elem)
	}

	return list, nil
}

func decodePaging(json gjson.Result) (*types.Paging, error) {
	obj, ok, err := getObject(json, "paging")
	if err != nil || !ok {
		return nil, err
	}

	d := &fieldDecoder{json: obj}
	paging := &types.Paging{
		Previous: d.string("previous").ValueOrZero(),
		Next:     d.string("next").ValueOrZero(),
	}

	d.do(func() error {
		cursors, ok, err := getObject(obj, "cursors")
		if err != nil || !ok {
			return err
		}

		c := &fieldDecoder{json: cursors}
		paging.Cursors.Before = c.string("before").ValueOrZero()
		paging.Cursors.After = c.string("after").ValueOrZero()

		return c.err
	})

	if d.err != nil {
		return nil, errors.Wrap(d.err, "paging")
	}

	return paging, nil
}
