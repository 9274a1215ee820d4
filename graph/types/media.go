package types

import (
	"fmt"

	"github.com/guregu/null/v6"
)

// MediaType is the kind of content an Instagram media holds.
type MediaType string

const (
	// MediaImage is the default media type
	MediaImage MediaType = "IMAGE"
	// MediaVideo must be announced with the media_type parameter
	MediaVideo MediaType = "VIDEO"
)

// Media defines an Instagram media to be published on a business account.
type Media struct {
	MediaURL  string
	MediaType MediaType
	Caption   null.String
}

// NewImage returns an image media without caption.
func NewImage(url string) Media {
	return Media{MediaURL: url, MediaType: MediaImage}
}

// NewVideo returns a video media without caption.
func NewVideo(url string) Media {
	return Media{MediaURL: url, MediaType: MediaVideo}
}

// WithCaption returns a copy of the media with the given caption.
func (m Media) WithCaption(caption string) Media {
	m.Caption = null.StringFrom(caption)
	return m
}

// Parameters returns the form parameters expected by the media creation
// endpoint.
func (m Media) Parameters() Parameters {
	params := Parameters{}

	if m.MediaType == MediaVideo {
		params = append(params,
			Parameter{Name: "media_type", Value: string(MediaVideo)},
			Parameter{Name: "video_url", Value: m.MediaURL},
		)
	} else {
		params = append(params, Parameter{Name: "image_url", Value: m.MediaURL})
	}

	if m.Caption.Valid {
		params = append(params, Parameter{Name: "caption", Value: m.Caption.String})
	}

	return params
}

// MediaFromParameters rebuilds a media from its form parameters. The type is
// inferred from the presence of the video_url parameter.
func MediaFromParameters(params Parameters) Media {
	var media Media

	if url, ok := params.Get("video_url"); ok {
		media.MediaType = MediaVideo
		media.MediaURL = url
	} else {
		media.MediaType = MediaImage
		media.MediaURL, _ = params.Get("image_url")
	}

	if caption, ok := params.Get("caption"); ok {
		media.Caption = null.StringFrom(caption)
	}

	return media
}

// Equal compares all the fields of two medias.
func (m Media) Equal(other Media) bool {
	return m.MediaURL == other.MediaURL &&
		m.MediaType == other.MediaType &&
		m.Caption.Equal(other.Caption)
}

// String implements fmt.Stringer
func (m Media) String() string {
	return fmt.Sprintf("Media{mediaURL=%s}", m.MediaURL)
}
