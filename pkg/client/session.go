package client

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Session holds the credentials attached to every call.
type Session struct {
	AppID       string
	AppSecret   string
	AccessToken string
}

// AppSecretProof returns the hex HMAC-SHA256 of the access token keyed by the
// app secret, or "" when no secret is configured.
func (s Session) AppSecretProof() string {
	if s.AppSecret == "" || s.AccessToken == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(s.AppSecret))
	mac.Write([]byte(s.AccessToken))
	return hex.EncodeToString(mac.Sum(nil))
}

// apply adds the session credentials to encoded params.
func (s Session) apply(params map[string]string) {
	if s.AccessToken != "" {
		params["access_token"] = s.AccessToken
	}
	if proof := s.AppSecretProof(); proof != "" {
		params["appsecret_proof"] = proof
	}
}

// principal identifies the token in cache keys without storing it.
func (s Session) principal() string {
	if s.AccessToken == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.AccessToken))
	return hex.EncodeToString(sum[:8])
}
