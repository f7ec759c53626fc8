package domain

// CredentialPair is the access/refresh token pair issued by the QMS backend.
// Both halves are always set or cleared together.
type CredentialPair struct {
	AccessToken  string `json:"accessToken" toml:"access_token"`
	RefreshToken string `json:"refreshToken" toml:"refresh_token"`
}

// IsZero reports whether the pair carries no credential at all.
func (p CredentialPair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Validate returns ErrPartialCredentials when exactly one half is set.
// The zero pair is valid and means "no session".
func (p CredentialPair) Validate() error {
	if (p.AccessToken == "") != (p.RefreshToken == "") {
		return ErrPartialCredentials
	}
	return nil
}
