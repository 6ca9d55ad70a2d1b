package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// CodeHasherImpl implements domain.CodeHasher with bcrypt
type CodeHasherImpl struct {
	cost int
}

// NewCodeHasher creates a hasher; cost 0 selects bcrypt.DefaultCost
func NewCodeHasher(cost int) domain.CodeHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &CodeHasherImpl{cost: cost}
}

// Hash implements domain.CodeHasher
func (h *CodeHasherImpl) Hash(code string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify implements domain.CodeHasher
func (h *CodeHasherImpl) Verify(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
