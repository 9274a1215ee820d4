package aggregator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nkcr/fbgraph/graph"
	"github.com/nkcr/fbgraph/graph/decode"
	"github.com/nkcr/fbgraph/graph/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/buntdb"
)

func TestStartFail(t *testing.T) {
	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)

	api := fakeGraph{
		err: errors.New("fake"),
	}

	logger := zerolog.New(io.Discard)

	agg := NewBasicAggregator(db, api.factory, []string{"aa"}, logger)

	err = agg.Start(time.Second)
	require.EqualError(t, err, "failed to update pages: failed to get page 'aa': fake")
}

func TestStartStop(t *testing.T) {
	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)

	api := fakeGraph{
		pages: map[string]string{"aa": `{"id":"aa"}`},
	}

	logger := zerolog.New(io.Discard)

	agg := NewBasicAggregator(db, api.factory, []string{"aa"}, logger)

	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()

		err := agg.Start(time.Millisecond)
		require.NoError(t, err)
	}()

	time.Sleep(time.Millisecond * 10)
	agg.Stop()

	wait.Wait()
}

func TestUpdatePagesNotRecorded(t *testing.T) {
	api := fakeGraph{
		pages:    map[string]string{"aa": `{"id":"aa"}`},
		noRecord: true,
	}

	agg := BasicAggregator{
		factory: api.factory,
		pageIDs: []string{"aa"},
		now:     time.Now,
	}

	err := agg.updatePages()
	require.EqualError(t, err, "no raw JSON recorded for page 'aa'")
}

func TestUpdatePagesDecodeError(t *testing.T) {
	api := fakeGraph{
		pages: map[string]string{"aa": `{"created_time":"not-a-date"}`},
	}

	agg := BasicAggregator{
		factory: api.factory,
		pageIDs: []string{"aa"},
		now:     time.Now,
	}

	err := agg.updatePages()
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to get page 'aa'")
}

func TestUpdatePagesSuccess(t *testing.T) {
	api := fakeGraph{
		pages: map[string]string{
			"aa": `{"id":"aa","name":"A","fan_count":10}`,
			"bb": `{"id":"bb","name":"B"}`,
		},
	}

	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)

	err = CreateIndex(db)
	require.NoError(t, err)

	var logs bytes.Buffer

	ts := int64(0)

	agg := BasicAggregator{
		factory: api.factory,
		pageIDs: []string{"aa", "bb"},
		db:      db,
		logger:  zerolog.New(&logs),
		now: func() time.Time {
			ts++
			return time.Unix(0, ts)
		},
	}

	err = agg.updatePages()
	require.NoError(t, err)

	var snapshot Snapshot

	err = db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(KeyPrefix + "aa")
		if err != nil {
			return err
		}

		return json.Unmarshal([]byte(val), &snapshot)
	})
	require.NoError(t, err)

	require.Equal(t, "aa", snapshot.ID)
	require.Equal(t, "A", snapshot.Name)
	require.Equal(t, int64(10), snapshot.FanCount)
	require.Equal(t, int64(1), snapshot.FetchedAt)
	require.JSONEq(t, api.pages["aa"], string(snapshot.Raw))

	require.Contains(t, logs.String(), "new page 'aa' added")

	// the second update replaces the snapshots
	api.pages["aa"] = `{"id":"aa","name":"A","fan_count":11}`

	err = agg.updatePages()
	require.NoError(t, err)

	ids := []string{}

	err = db.View(func(tx *buntdb.Tx) error {
		return tx.Descend(FetchedAtIndex, func(key, value string) bool {
			ids = append(ids, key)
			return true
		})
	})
	require.NoError(t, err)

	require.Equal(t, []string{KeyPrefix + "bb", KeyPrefix + "aa"}, ids)
	require.Contains(t, logs.String(), "fan count of 'aa' changed")
}

func TestHTTPFactory(t *testing.T) {
	client := fakeClient{
		statusCode: 200,
		body:       []byte(`{"id":"aa","name":"A"}`),
	}

	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)

	factory := NewHTTPFactory("fake", client, graph.WithBase("https://graph.test/"))

	agg := NewBasicAggregator(db, factory, []string{"aa"}, zerolog.New(io.Discard))

	err = agg.(*BasicAggregator).updatePages()
	require.NoError(t, err)

	err = db.View(func(tx *buntdb.Tx) error {
		_, err := tx.Get(KeyPrefix + "aa")
		return err
	})
	require.NoError(t, err)
}

// ----------------------------------------------------------------------------
// Utility functions

// fakeGraph decodes the configured raw pages with the given recorder, like
// the HTTP API does.
type fakeGraph struct {
	err      error
	pages    map[string]string
	noRecord bool
}

func (g fakeGraph) factory(recorder decode.Recorder) API {
	return fakeGraphAPI{
		fakeGraph: g,
		recorder:  recorder,
	}
}

type fakeGraphAPI struct {
	fakeGraph
	recorder decode.Recorder
}

func (g fakeGraphAPI) GetPage(id string, fields ...string) (*types.Page, error) {
	if g.err != nil {
		return nil, g.err
	}

	raw, ok := g.pages[id]
	if !ok {
		return nil, fmt.Errorf("page not found")
	}

	conf := decode.Config{JSONStoreEnabled: !g.noRecord, Recorder: g.recorder}

	return decode.DecodePage(decode.NewResponse([]byte(raw), types.ResponseMeta{}), conf)
}

type fakeClient struct {
	body       []byte
	err        error
	statusCode int
}

func (c fakeClient) Get(url string) (resp *http.Response, err error) {
	if c.err != nil {
		return nil, c.err
	}

	buff := bytes.NewBuffer(c.body)
	body := io.NopCloser(buff)

	return &http.Response{
		StatusCode: c.statusCode,
		Status:     strconv.Itoa(c.statusCode),
		Body:       body,
	}, nil
}

func (c fakeClient) PostForm(url string, data url.Values) (resp *http.Response, err error) {
	return c.Get(url)
}
