package client

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestSession_AppSecretProof(t *testing.T) {
	const (
		appID       = "reikgukrhgfgtcheghjteirdldlrkjbu"
		appSecret   = "gdrtejfdghurnhnjghjnertihbknlrvv"
		accessToken = "bekguvjhdvdburldfnrfdguljijenklc"
	)

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(accessToken))
	want := hex.EncodeToString(mac.Sum(nil))

	s := Session{AppID: appID, AppSecret: appSecret, AccessToken: accessToken}
	if got := s.AppSecretProof(); got != want {
		t.Errorf("AppSecretProof() = %q, want %q", got, want)
	}
}

func TestSession_WithoutAppSecret(t *testing.T) {
	s := Session{AccessToken: "thisisfakeaccesstoken"}
	if proof := s.AppSecretProof(); proof != "" {
		t.Errorf("AppSecretProof() = %q, want empty", proof)
	}

	params := map[string]string{}
	s.apply(params)
	if params["access_token"] != "thisisfakeaccesstoken" {
		t.Errorf("access_token = %q", params["access_token"])
	}
	if _, ok := params["appsecret_proof"]; ok {
		t.Error("appsecret_proof must not be sent without a secret")
	}
}

func TestSession_Principal(t *testing.T) {
	a := Session{AccessToken: "token-a"}.principal()
	b := Session{AccessToken: "token-b"}.principal()
	if a == b || len(a) != 16 {
		t.Errorf("principal() = %q / %q, want distinct 16 hex chars", a, b)
	}
	if (Session{}).principal() != "" {
		t.Error("principal() without token should be empty")
	}
}
