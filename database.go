package accumulator

import "sync"

// InMemoryDatabase is a simple in-memory Database implementation used by
// tests and by hosts that do not need durable persistence between process
// restarts.
type InMemoryDatabase struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewInMemoryDatabase creates a new in-memory database.
func NewInMemoryDatabase() *InMemoryDatabase {
	return &InMemoryDatabase{data: make(map[string][]byte)}
}

func (db *InMemoryDatabase) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	value, exists := db.data[string(key)]
	if !exists {
		return nil, nil
	}
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (db *InMemoryDatabase) Set(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	db.data[string(key)] = stored
	return nil
}

func (db *InMemoryDatabase) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.data, string(key))
	return nil
}

func (db *InMemoryDatabase) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, exists := db.data[string(key)]
	return exists, nil
}
