// Package graph implements the page and Instagram methods of the Facebook
// Graph API on top of an injected HTTP client.
package graph

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nkcr/fbgraph/graph/decode"
	"github.com/nkcr/fbgraph/graph/types"
	"github.com/rs/zerolog"
)

// DefaultBase is the Graph API endpoint used by NewHTTPAPI
const DefaultBase = "https://graph.facebook.com/v19.0/"

// pageFields is the list of fields requested when no field is given
var pageFields = []string{
	"id", "name", "category", "link", "is_published", "can_post", "location",
	"phone", "checkins", "picture", "cover", "website", "company_overview",
	"talking_about_count", "is_community_page", "were_here_count", "fan_count",
	"about", "username", "mission", "hours", "instagram_business_account",
}

// ErrNoInstagramAccount is returned when a page has no linked Instagram
// business account.
var ErrNoInstagramAccount = errors.New("page has no instagram business account")

// GraphAPI defines the primitives we expect the Graph API to provide
type GraphAPI interface {
	GetPage(id string, fields ...string) (*types.Page, error)
	GetPages() (*types.ResponseList[*types.Page], error)
	GetInstagramBusinessAccount(pageID string) (*types.PageBackedInstagramAccount, error)
	PostInstagramMedia(accountID string, media types.Media) (string, error)
}

// HTTPClient defines the functions we expect from an HTTP client
type HTTPClient interface {
	Get(url string) (resp *http.Response, err error)
	PostForm(url string, data url.Values) (resp *http.Response, err error)
}

// Option is a function that configures the HTTP API
type Option func(*HTTPAPI)

// WithBase sets the base URL of the API. It must end with a slash.
func WithBase(base string) Option {
	return func(h *HTTPAPI) {
		h.base = base
	}
}

// WithJSONStore enables the recording of the raw JSON of decoded objects in
// the given recorder.
func WithJSONStore(recorder decode.Recorder) Option {
	return func(h *HTTPAPI) {
		h.conf = decode.Config{
			JSONStoreEnabled: true,
			Recorder:         recorder,
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(h *HTTPAPI) {
		h.logger = logger.With().Str("role", "graph").Logger()
	}
}

// NewHTTPAPI returns a new initialized Graph HTTP API
func NewHTTPAPI(token string, client HTTPClient, opts ...Option) GraphAPI {
	h := &HTTPAPI{
		base:   DefaultBase,
		token:  token,
		client: client,
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// HTTPAPI implements the Graph API over HTTP
//
// - implements graph.GraphAPI
type HTTPAPI struct {
	base   string
	token  string
	client HTTPClient
	conf   decode.Config
	logger zerolog.Logger
}

// GetPage implements GraphAPI. If no field is given, all the fields known by
// types.Page are requested.
func (h HTTPAPI) GetPage(id string, fields ...string) (*types.Page, error) {
	if len(fields) == 0 {
		fields = pageFields
	}

	vals := url.Values{
		"access_token": []string{h.token},
		"fields":       []string{strings.Join(fields, ",")},
	}

	res, err := h.get(url.PathEscape(id), vals)
	if err != nil {
		return nil, err
	}

	page, err := decode.DecodePage(res, h.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}

	return page, nil
}

// GetPages implements GraphAPI. It returns the pages managed by the token's
// user.
func (h HTTPAPI) GetPages() (*types.ResponseList[*types.Page], error) {
	vals := url.Values{
		"access_token": []string{h.token},
	}

	res, err := h.get("me/accounts", vals)
	if err != nil {
		return nil, err
	}

	pages, err := decode.DecodePageList(res, h.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pages: %w", err)
	}

	return pages, nil
}

// GetInstagramBusinessAccount implements GraphAPI
func (h HTTPAPI) GetInstagramBusinessAccount(pageID string) (*types.PageBackedInstagramAccount, error) {
	page, err := h.GetPage(pageID, "instagram_business_account")
	if err != nil {
		return nil, err
	}

	if !page.InstagramBusinessAccountID.Valid {
		return nil, ErrNoInstagramAccount
	}

	return &types.PageBackedInstagramAccount{
		ID: page.InstagramBusinessAccountID,
	}, nil
}

// PostInstagramMedia implements GraphAPI. It creates a media container on the
// account and returns its ID.
func (h HTTPAPI) PostInstagramMedia(accountID string, media types.Media) (string, error) {
	vals := media.Parameters().Values()
	vals.Set("access_token", h.token)

	u := h.base + url.PathEscape(accountID) + "/media"

	h.logger.Debug().Str("account", accountID).Str("type", string(media.MediaType)).
		Msg("posting instagram media")

	resp, err := h.client.PostForm(u, vals)
	if err != nil {
		return "", fmt.Errorf("failed to post '%s': %v", u, err)
	}

	res, err := readResponse(resp)
	if err != nil {
		return "", err
	}

	id, err := decode.DecodeID(res)
	if err != nil {
		return "", fmt.Errorf("failed to decode media id: %w", err)
	}

	return id, nil
}

func (h HTTPAPI) get(path string, vals url.Values) (decode.Response, error) {
	u := h.base + path + "?" + vals.Encode()

	h.logger.Debug().Str("path", path).Msg("get")

	resp, err := h.client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("failed to get '%s': %v", h.base+path, err)
	}

	return readResponse(resp)
}

// readResponse reads and closes the response body. Non-2xx statuses are
// returned as errors.
func readResponse(resp *http.Response) (decode.Response, error) {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %v", err)
	}

	meta := types.ResponseMeta{
		StatusCode: resp.StatusCode,
		AppUsage:   resp.Header.Get("X-App-Usage"),
		TraceID:    resp.Header.Get("X-FB-Trace-ID"),
	}

	return decode.NewResponse(body, meta), nil
}

func statusError(resp *http.Response) error {
	buf, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("http request failed with status %s: %s", resp.Status, buf)
}
