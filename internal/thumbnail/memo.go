package thumbnail

import (
	"container/list"
	"sync"

	"github.com/justyntemme/shelf/internal/debug"
	"github.com/justyntemme/shelf/internal/store"
)

// memo is an LRU of index rows kept in front of the SQLite index so repeated
// scans of the same root do not hit the database for every image.
type memo struct {
	mu      sync.Mutex
	rows    map[string]*memoEntry // source path -> entry
	lru     *list.List            // front = most recent
	maxSize int
}

type memoEntry struct {
	row     store.Thumb
	element *list.Element
}

func newMemo(maxEntries int) *memo {
	return &memo{
		rows:    make(map[string]*memoEntry),
		lru:     list.New(),
		maxSize: maxEntries,
	}
}

func (m *memo) get(src string) (store.Thumb, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.rows[src]
	if !ok {
		return store.Thumb{}, false
	}
	m.lru.MoveToFront(entry.element)
	return entry.row, true
}

// put adds a row, evicting old entries if necessary.
func (m *memo) put(row store.Thumb) {
	if m.maxSize <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.rows[row.SourcePath]; ok {
		entry.row = row
		m.lru.MoveToFront(entry.element)
		return
	}

	for m.lru.Len() >= m.maxSize {
		oldest := m.lru.Back()
		if oldest == nil {
			break
		}
		old := oldest.Value.(*memoEntry)
		delete(m.rows, old.row.SourcePath)
		m.lru.Remove(oldest)
		debug.Log(debug.THUMB, "memo: evicted %s", old.row.SourcePath)
	}

	entry := &memoEntry{row: row}
	entry.element = m.lru.PushFront(entry)
	m.rows[row.SourcePath] = entry
}

func (m *memo) remove(src string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.rows[src]; ok {
		m.lru.Remove(entry.element)
		delete(m.rows, src)
	}
}

func (m *memo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
