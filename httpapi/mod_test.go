package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nkcr/fbgraph/aggregator"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/buntdb"
)

// This test performs a simple scenario. It starts the server and makes an HTTP
// request. The process should not return any error.
func TestScenario(t *testing.T) {
	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)

	err = aggregator.CreateIndex(db)
	require.NoError(t, err)

	logger := zerolog.New(io.Discard)

	httpapi := NewNativeHTTP("localhost:0", db, logger)

	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		err := httpapi.Start()
		require.NoError(t, err)
	}()

	defer func() {
		t.Log("stopping")
		httpapi.Stop()
		wait.Wait()
		t.Log("stopped")
	}()

	time.Sleep(time.Second * 1)

	addr := httpapi.GetAddr()
	require.NotNil(t, addr)

	url := "http://" + addr.String() + "/api/pages"
	t.Logf("fetching url %s", url)

	resp, err := http.Get(url)
	require.NoError(t, err)

	require.Equal(t, 200, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestWrongAddr(t *testing.T) {
	a := HTTPAPI{
		server: &http.Server{Addr: "x"},
	}

	err := a.Start()
	require.EqualError(t, err, "failed to create conn 'x': listen tcp: address x: missing port in address")
}

// GetAddr can be polled while the server is starting.
func TestGetAddrWhileStarting(t *testing.T) {
	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)

	httpapi := NewNativeHTTP("localhost:0", db, zerolog.New(io.Discard))

	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		err := httpapi.Start()
		require.NoError(t, err)
	}()

	defer func() {
		httpapi.Stop()
		wait.Wait()
	}()

	require.Eventually(t, func() bool {
		return httpapi.GetAddr() != nil
	}, 5*time.Second, time.Millisecond)
}

// If the listener is nil, the server should return a nil address.
func TestGetAddr(t *testing.T) {
	a := HTTPAPI{}

	addr := a.GetAddr()
	require.Nil(t, addr)
}

func TestGetPages(t *testing.T) {
	db := newSnapshotDB(t, 20)

	handler := getPages(db)

	t.Run("Get pages without count", getTestWithCount(handler, "", 12))
	t.Run("Get pages with count", getTestWithCount(handler, "?count=5", 5))
	t.Run("Get pages with over maximum count", getTestWithCount(handler, "?count=50", 12))
	t.Run("Get pages with wrong count", getTestWithWrongCount(handler))
}

func TestGetPagesCorrupted(t *testing.T) {
	db := newSnapshotDB(t, 1)

	err := db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(aggregator.KeyPrefix+"bad", `{"fetched_at":1000,"name":[]}`, nil)
		return err
	})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "http://example.com/api/pages", nil)
	require.NoError(t, err)

	getPages(db)(rr, req)
	require.Equal(t, http.StatusInternalServerError, rr.Result().StatusCode)
}

func TestGetRawPage(t *testing.T) {
	db := newSnapshotDB(t, 3)

	handler := getRawPage(db)

	rr := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "http://example.com/api/pages/raw?id=1", nil)
	require.NoError(t, err)

	handler(rr, req)
	require.Equal(t, 200, rr.Result().StatusCode)
	require.JSONEq(t, `{"id":"1","fan_count":1}`, rr.Body.String())
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	req, err = http.NewRequest(http.MethodGet, "http://example.com/api/pages/raw?id=404", nil)
	require.NoError(t, err)

	handler(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Result().StatusCode)

	rr = httptest.NewRecorder()
	req, err = http.NewRequest(http.MethodGet, "http://example.com/api/pages/raw", nil)
	require.NoError(t, err)

	handler(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
}

func getTestWithCount(handler func(http.ResponseWriter, *http.Request),
	query string, expected int) func(t *testing.T) {

	return func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		req, err := http.NewRequest(http.MethodGet, "http://example.com/api/pages"+query, nil)
		require.NoError(t, err)

		handler(rr, req)
		require.Equal(t, 200, rr.Result().StatusCode)

		result := []aggregator.Snapshot{}

		err = json.Unmarshal(rr.Body.Bytes(), &result)
		require.NoError(t, err)

		require.Len(t, result, expected)

		// the result should be sorted by fetch time, newest first, and
		// without the raw JSON
		for i, snapshot := range result {
			require.Equal(t, int64(19-i), snapshot.FetchedAt)
			require.Nil(t, snapshot.Raw)
		}
	}
}

func getTestWithWrongCount(handler func(http.ResponseWriter, *http.Request)) func(t *testing.T) {
	return func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		req, err := http.NewRequest(http.MethodGet, "http://example.com?count=-1", nil)
		require.NoError(t, err)

		handler(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
	}
}

// -----------------------------------------------------------------------------
// Utility functions

// newSnapshotDB returns a db with n snapshots, where the snapshot i has been
// fetched at i and has a fan count of i.
func newSnapshotDB(t *testing.T, n int) *buntdb.DB {
	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)

	err = aggregator.CreateIndex(db)
	require.NoError(t, err)

	// inserted in reverse order so the index does the sorting
	for i := n - 1; i >= 0; i-- {
		snapshot := aggregator.Snapshot{
			ID:        fmt.Sprint(i),
			Name:      fmt.Sprintf("page %d", i),
			FanCount:  int64(i),
			FetchedAt: int64(i),
			Raw:       json.RawMessage(fmt.Sprintf(`{"id":"%d","fan_count":%d}`, i, i)),
		}

		buf, err := json.Marshal(&snapshot)
		require.NoError(t, err)

		err = db.Update(func(tx *buntdb.Tx) error {
			_, _, err = tx.Set(aggregator.KeyPrefix+snapshot.ID, string(buf), nil)
			return err
		})
		require.NoError(t, err)
	}

	return db
}
