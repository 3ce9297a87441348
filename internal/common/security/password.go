package security

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var bcryptCost = bcrypt.DefaultCost

// dummy is a hash of an unguessable password at the current cost, compared
// against when there is no stored hash.
var dummy struct {
	mu   sync.Mutex
	hash []byte
}

// SetBcryptCost changes the cost used by HashPassword. Values outside
// bcrypt's range fall back to the default.
func SetBcryptCost(cost int) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	bcryptCost = cost
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck spends the same work as a failed CheckPasswordHash. It is
// used when no user row exists so that a missing username and a wrong
// password cannot be told apart by timing.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
}

func dummyHash() []byte {
	dummy.mu.Lock()
	defer dummy.mu.Unlock()
	if cost, err := bcrypt.Cost(dummy.hash); err == nil && cost == bcryptCost {
		return dummy.hash
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("cloudcoder-no-such-user"), bcryptCost)
	if err != nil {
		panic(err)
	}
	dummy.hash = hash
	return hash
}
