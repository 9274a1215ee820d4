package decode

import (
	"net/url"

	"github.com/guregu/null/v6"
)

// do runs f unless a previous field failed.
func (d *fieldDecoder) do(f func() error) {
	if d.err != nil {
		return
	}

	d.fail(f())
}

func (d *fieldDecoder) string(key string) null.String {
	if d.err != nil {
		return null.String{}
	}

	v, err := getString(d.json, key)
	d.fail(err)

	return v
}

func (d *fieldDecoder) bool(key string) null.Bool {
	if d.err != nil {
		return null.Bool{}
	}

	v, err := getBool(d.json, key)
	d.fail(err)

	return v
}

func (d *fieldDecoder) int(key string) null.Int {
	if d.err != nil {
		return null.Int{}
	}

	v, err := getInt(d.json, key)
	d.fail(err)

	return v
}

func (d *fieldDecoder) float(key string) null.Float {
	if d.err != nil {
		return null.Float{}
	}

	v, err := getFloat(d.json, key)
	d.fail(err)

	return v
}

func (d *fieldDecoder) time(key string) null.Time {
	if d.err != nil {
		return null.Time{}
	}

	v, err := getTime(d.json, key)
	d.fail(err)

	return v
}

func (d *fieldDecoder) url(key string) *url.URL {
	if d.err != nil {
		return nil
	}

	v, err := getURL(d.json, key)
	d.fail(err)

	return v
}
