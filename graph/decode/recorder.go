package decode

import "sync"

// Recorder keeps the raw JSON behind decoded objects, for later inspection.
// Top-level decoders call Clear when a decode starts and Register once the
// object is built.
type Recorder interface {
	Clear()
	Register(obj any, raw string)
}

// Config defines how top-level decoders behave. The zero value disables
// recording.
type Config struct {
	JSONStoreEnabled bool
	Recorder         Recorder
}

func (c Config) recording() bool {
	return c.JSONStoreEnabled && c.Recorder != nil
}

// NewMemoryRecorder returns an empty in-memory recorder. A recorder should be
// scoped to a caller: decoders clear it at each top-level decode.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		entries: make(map[any]string),
	}
}

// MemoryRecorder is a Recorder that keeps entries in a map keyed by the
// decoded objects' pointers.
//
// - implements decode.Recorder
type MemoryRecorder struct {
	sync.Mutex
	entries map[any]string
}

// Clear implements decode.Recorder
func (m *MemoryRecorder) Clear() {
	m.Lock()
	defer m.Unlock()

	m.entries = make(map[any]string)
}

// Register implements decode.Recorder. obj must be comparable, which is the
// case of the pointers returned by the decoders.
func (m *MemoryRecorder) Register(obj any, raw string) {
	m.Lock()
	defer m.Unlock()

	m.entries[obj] = raw
}

// Lookup returns the raw JSON registered for obj.
func (m *MemoryRecorder) Lookup(obj any) (string, bool) {
	m.Lock()
	defer m.Unlock()

	raw, ok := m.entries[obj]
	return raw, ok
}

// Len returns the number of registered objects.
func (m *MemoryRecorder) Len() int {
	m.Lock()
	defer m.Unlock()

	return len(m.entries)
}
