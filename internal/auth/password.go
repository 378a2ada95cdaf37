package auth

import "golang.org/x/crypto/bcrypt"

// Credential is a bcrypt-hashed room password. It satisfies the chat
// package's credential interface: two equal plaintexts match, nothing else
// does, and the plaintext is never retained.
type Credential struct {
	hash []byte
}

func NewCredential(password string) (*Credential, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Credential{hash: hash}, nil
}

func (c *Credential) Match(password string) bool {
	return bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
}
