package models

// Credential is one row of auth_data.csv. Password holds either a bcrypt
// hash or, for rows written by older tooling, the plaintext password.
type Credential struct {
	UserID   string
	Password string
}
