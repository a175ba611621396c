package sink

import (
	"sync"

	"github.com/HMasataka/chatwork-log-exporter/internal/ports"
)

// MemorySink keeps delivered files in memory. Used by tests to assert on
// export output without touching the filesystem.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
	order []string
}

var _ ports.Sink = (*MemorySink)(nil)

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// Deliver records content under filename. Contents are copied so later
// mutation by the caller cannot change what was delivered.
func (s *MemorySink) Deliver(filename string, content []byte) error {
	if err := validateFilename(filename); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.files[filename]; !exists {
		s.order = append(s.order, filename)
	}
	s.files[filename] = append([]byte(nil), content...)
	return nil
}

// Get returns the content delivered under filename.
func (s *MemorySink) Get(filename string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[filename]
	return content, ok
}

// Filenames returns delivered filenames in delivery order.
func (s *MemorySink) Filenames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}
