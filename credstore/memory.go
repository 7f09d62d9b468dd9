package credstore

import (
	"sync"

	"github.com/awnumar/memguard"
)

// MemoryEphemeral keeps the access credential in a memguard enclave (encrypted at
// rest in memory, wiped on clear). It is the default ephemeral tier.
type MemoryEphemeral struct {
	mu     sync.Mutex
	sealed *memguard.Enclave
}

// NewMemoryEphemeral returns an empty ephemeral tier.
func NewMemoryEphemeral() *MemoryEphemeral {
	return &MemoryEphemeral{}
}

// Set seals value into a fresh enclave, replacing any previous credential.
func (m *MemoryEphemeral) Set(value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" {
		m.sealed = nil
		return nil
	}
	// NewEnclave wipes the source buffer, so hand it a private copy.
	m.sealed = memguard.NewEnclave([]byte(value))
	return nil
}

// Get opens the enclave and returns a copy of the credential.
func (m *MemoryEphemeral) Get() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed == nil {
		return "", false
	}
	buf, err := m.sealed.Open()
	if err != nil {
		return "", false
	}
	defer buf.Destroy()
	return string(buf.Bytes()), true
}

// Clear drops the enclave reference.
func (m *MemoryEphemeral) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sealed = nil
}
