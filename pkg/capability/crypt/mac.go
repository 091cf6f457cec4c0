package crypt

import (
	"crypto/hmac"
	"crypto/sha256"
)

// Auth computes an HMAC-SHA256 keyed MAC over data, the auth()/auth_verify()
// pair from spec §4.6.
func Auth(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// AuthVerify reports whether tag is the correct HMAC-SHA256 MAC of data
// under key, comparing in constant time via hmac.Equal.
func AuthVerify(key, data, tag []byte) bool {
	return hmac.Equal(Auth(key, data), tag)
}
