package decode

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// bounds of the int64 range, as float64. maxInt64 is 2^63 and itself out of
// range.
const (
	minInt64 = -(1 << 63)
	maxInt64 = 1 << 63
)

// iso8601Layouts are the timestamp layouts accepted in date fields. The Graph
// API sends the first one.
var iso8601Layouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func isNull(value gjson.Result) bool {
	return !value.Exists() || value.Type == gjson.Null
}

// lookup returns the value of key and tells if it is present and non-null.
func lookup(json gjson.Result, key string) (gjson.Result, bool) {
	value := json.Get(key)
	return value, !isNull(value)
}

func getString(json gjson.Result, key string) (null.String, error) {
	value, ok := lookup(json, key)
	if !ok {
		return null.String{}, nil
	}

	switch value.Type {
	case gjson.String:
		return null.StringFrom(value.Str), nil
	case gjson.Number, gjson.True, gjson.False:
		return null.StringFrom(value.Raw), nil
	default:
		return null.String{}, errors.Errorf("field %q: expected a string, got %s", key, value.Raw)
	}
}

// getText returns the string form of a typed scalar. An empty string is
// treated as absent.
func getText(json gjson.Result, key string) (string, bool, error) {
	value, ok := lookup(json, key)
	if !ok {
		return "", false, nil
	}

	switch value.Type {
	case gjson.String:
		text := strings.TrimSpace(value.Str)
		return text, text != "", nil
	case gjson.JSON:
		return "", false, errors.Errorf("field %q: expected a scalar, got %s", key, value.Raw)
	default:
		return value.Raw, true, nil
	}
}

func getBool(json gjson.Result, key string) (null.Bool, error) {
	text, ok, err := getText(json, key)
	if err != nil || !ok {
		return null.Bool{}, err
	}

	switch strings.ToLower(text) {
	case "true":
		return null.BoolFrom(true), nil
	case "false":
		return null.BoolFrom(false), nil
	default:
		return null.Bool{}, errors.Errorf("field %q: expected a boolean, got %s", key, text)
	}
}

func getInt(json gjson.Result, key string) (null.Int, error) {
	text, ok, err := getText(json, key)
	if err != nil || !ok {
		return null.Int{}, err
	}

	i, err := strconv.ParseInt(text, 10, 64)
	if err == nil {
		return null.IntFrom(i), nil
	}

	// JSON numbers such as 1e3 or 12.0 are truncated, strings must be
	// integers
	if json.Get(key).Type != gjson.Number {
		return null.Int{}, errors.Wrapf(err, "field %q", key)
	}

	f, ferr := strconv.ParseFloat(text, 64)
	if ferr != nil || f < minInt64 || f >= maxInt64 {
		return null.Int{}, errors.Errorf("field %q: %s is out of the int64 range", key, text)
	}

	return null.IntFrom(int64(f)), nil
}

func getFloat(json gjson.Result, key string) (null.Float, error) {
	text, ok, err := getText(json, key)
	if err != nil || !ok {
		return null.Float{}, err
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return null.Float{}, errors.Wrapf(err, "field %q", key)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}, errors.Errorf("field %q: %s is not a finite number", key, text)
	}

	return null.FloatFrom(f), nil
}

// getTime parses an ISO-8601 timestamp. Unlike the other typed fields, an
// empty string is malformed.
func getTime(json gjson.Result, key string) (null.Time, error) {
	value, ok := lookup(json, key)
	if !ok {
		return null.Time{}, nil
	}

	if value.Type != gjson.String {
		return null.Time{}, errors.Errorf("field %q: expected a timestamp, got %s", key, value.Raw)
	}

	t, err := parseISO8601(value.Str)
	if err != nil {
		return null.Time{}, errors.Wrapf(err, "field %q", key)
	}

	return null.TimeFrom(t), nil
}

func parseISO8601(text string) (time.Time, error) {
	var firstErr error

	for _, layout := range iso8601Layouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			return t, nil
		}

		if firstErr == nil {
			firstErr = err
		}
	}

	return time.Time{}, firstErr
}

func getURL(json gjson.Result, key string) (*url.URL, error) {
	text, ok, err := getText(json, key)
	if err != nil || !ok {
		return nil, err
	}

	u, err := url.Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "field %q", key)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("field %q: malformed URL %q", key, text)
	}

	return u, nil
}

// getObject returns the nested object at key. ok is false if the key is
// absent or null.
func getObject(json gjson.Result, key string) (value gjson.Result, ok bool, err error) {
	value, ok = lookup(json, key)
	if !ok {
		return gjson.Result{}, false, nil
	}

	if !value.IsObject() {
		return gjson.Result{}, false, errors.Errorf("field %q: expected an object, got %s", key, value.Raw)
	}

	return value, true, nil
}

func getStringMap(json gjson.Result, key string) (map[string]string, error) {
	obj, ok, err := getObject(json, key)
	if err != nil || !ok {
		return nil, err
	}

	res := map[string]string{}

	obj.ForEach(func(k, v gjson.Result) bool {
		res[k.String()] = v.String()
		return true
	})

	return res, nil
}
