package mocks

import (
	"strings"
	"sync"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

// PlainHashPrefix marks hashes produced by MockPasswordHasher
const PlainHashPrefix = "plain$"

// MockPasswordHasher stands in for bcrypt. Hashes are the password behind
// PlainHashPrefix, so stored credentials can be read back in assertions.
type MockPasswordHasher struct {
	mu sync.Mutex

	// HashErr, when set, fails every Hash call
	HashErr error
	// Hashed lists every password passed to Hash, in order
	Hashed []string
}

// NewMockPasswordHasher creates a MockPasswordHasher that always succeeds
func NewMockPasswordHasher() *MockPasswordHasher {
	return &MockPasswordHasher{}
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.HashErr != nil {
		return "", m.HashErr
	}
	m.Hashed = append(m.Hashed, password)
	return PlainHashPrefix + password, nil
}

func (m *MockPasswordHasher) Verify(hashedPassword, password string) bool {
	stored, ok := strings.CutPrefix(hashedPassword, PlainHashPrefix)
	return ok && stored == password
}

var _ domain.PasswordService = (*MockPasswordHasher)(nil)
