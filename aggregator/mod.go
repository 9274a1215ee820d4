package aggregator

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nkcr/fbgraph/graph"
	"github.com/nkcr/fbgraph/graph/decode"
	"github.com/nkcr/fbgraph/graph/types"
	"github.com/rs/zerolog"
	"github.com/tidwall/buntdb"
)

// KeyPrefix prefixes the keys of the snapshots saved in the database
const KeyPrefix = "page:"

// FetchedAtIndex is the name of the index on snapshots' fetch time
const FetchedAtIndex = "fetched_at"

// Aggregator defines the primitives required for an Aggregator.
type Aggregator interface {
	// Start should start a goroutine that periodically fetches the pages on
	// the Graph API and update the local database accordingly.
	Start(interval time.Duration) error

	// Stop should stop the periodical update and free resources.
	Stop()
}

// Snapshot is the last fetched state of a page, along with the raw JSON it
// was decoded from.
type Snapshot struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	FanCount  int64           `json:"fan_count"`
	FetchedAt int64           `json:"fetched_at"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// API is the part of the Graph API used by the aggregator. It is satisfied by
// graph.HTTPAPI.
type API interface {
	GetPage(id string, fields ...string) (*types.Page, error)
}

// APIFactory returns an API that records the raw JSON of decoded pages in the
// given recorder.
type APIFactory func(recorder decode.Recorder) API

// NewHTTPFactory returns an APIFactory over the Graph HTTP API.
func NewHTTPFactory(token string, client graph.HTTPClient, opts ...graph.Option) APIFactory {
	return func(recorder decode.Recorder) API {
		o := append([]graph.Option{graph.WithJSONStore(recorder)}, opts...)
		return graph.NewHTTPAPI(token, client, o...)
	}
}

// CreateIndex creates the index used to sort snapshots. It must be called
// once on a newly opened database.
func CreateIndex(db *buntdb.DB) error {
	return db.CreateIndex(FetchedAtIndex, KeyPrefix+"*", buntdb.IndexJSON(FetchedAtIndex))
}

// NewBasicAggregator returns a new initialized basic Aggregator.
func NewBasicAggregator(db *buntdb.DB, factory APIFactory, pageIDs []string,
	logger zerolog.Logger) Aggregator {

	logger = logger.With().Str("role", "aggregator").Logger()

	return &BasicAggregator{
		db:      db,
		factory: factory,
		pageIDs: pageIDs,
		quit:    make(chan struct{}),
		logger:  logger,
		now:     time.Now,
	}
}

// BasicAggregator implements a basic Aggregator
//
// - implements aggregator.Aggregator
type BasicAggregator struct {
	sync.Mutex
	db      *buntdb.DB
	factory APIFactory
	pageIDs []string
	logger  zerolog.Logger
	quit    chan struct{}
	now     func() time.Time
}

// Start implements aggregator.Aggregator. It should be called only if the
// aggregator is not already running.
func (a *BasicAggregator) Start(interval time.Duration) error {
	a.logger.Info().Msg("aggregator starting")

	ticker := time.NewTicker(interval)

	defer ticker.Stop()

	for {
		a.logger.Info().Msg("updating pages")

		err := a.updatePages()
		if err != nil {
			return fmt.Errorf("failed to update pages: %v", err)
		}

		select {
		case <-a.quit:
			return nil
		case <-ticker.C:
			continue
		}
	}
}

func (a *BasicAggregator) updatePages() error {
	a.Lock()
	defer a.Unlock()

	snapshots := make([]Snapshot, 0, len(a.pageIDs))

	for _, id := range a.pageIDs {
		// a fresh recorder per call, so that fetches never see each other's
		// entries
		recorder := decode.NewMemoryRecorder()
		api := a.factory(recorder)

		page, err := api.GetPage(id)
		if err != nil {
			return fmt.Errorf("failed to get page '%s': %v", id, err)
		}

		raw, ok := recorder.Lookup(page)
		if !ok {
			return fmt.Errorf("no raw JSON recorded for page '%s'", id)
		}

		snapshots = append(snapshots, Snapshot{
			ID:        page.GetID(),
			Name:      page.Name.ValueOrZero(),
			FanCount:  page.FanCount.ValueOrZero(),
			FetchedAt: a.now().UnixNano(),
			Raw:       json.RawMessage(raw),
		})
	}

	err := a.db.Update(func(tx *buntdb.Tx) error {
		for _, snapshot := range snapshots {
			buf, err := json.Marshal(snapshot)
			if err != nil {
				return fmt.Errorf("failed to marshal snapshot: %v", err)
			}

			prev, replaced, err := tx.Set(KeyPrefix+snapshot.ID, string(buf), &buntdb.SetOptions{})
			if err != nil {
				return fmt.Errorf("failed to set: %v", err)
			}

			a.logSnapshot(snapshot, prev, replaced)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to update the db: %v", err)
	}

	return nil
}

func (a *BasicAggregator) logSnapshot(snapshot Snapshot, prev string, replaced bool) {
	if !replaced {
		a.logger.Info().Msgf("new page '%s' added", snapshot.ID)
		return
	}

	var old Snapshot

	err := json.Unmarshal([]byte(prev), &old)
	if err != nil {
		a.logger.Warn().Err(err).Msgf("failed to unmarshal previous snapshot of '%s'", snapshot.ID)
		return
	}

	if old.FanCount != snapshot.FanCount {
		a.logger.Info().Int64("from", old.FanCount).Int64("to", snapshot.FanCount).
			Msgf("fan count of '%s' changed", snapshot.ID)
	}
}

// Stop implements aggregator.Aggregator. It should be called only if the
// Aggregator is started.
func (a *BasicAggregator) Stop() {
	a.quit <- struct{}{}
}
