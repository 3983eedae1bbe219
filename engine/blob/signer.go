package blob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Permissions used in signed URLs.
const (
	PermRead  = "r"
	PermWrite = "w"
)

// Signer produces SAS-style signed URLs: an HMAC-SHA256 over a canonical
// string of verb, resource path, expiry and permissions, carried as query
// parameters (sp, se, sig).
type Signer struct {
	accountKey []byte
}

func NewSigner(accountKey string) *Signer {
	return &Signer{accountKey: []byte(accountKey)}
}

func canonicalString(verb, resource string, expiry int64, permissions string) string {
	return strings.Join([]string{verb, resource, strconv.FormatInt(expiry, 10), permissions}, "\n")
}

// Signature computes the base64 HMAC for one request.
func (s *Signer) Signature(verb, resource string, expiry int64, permissions string) string {
	mac := hmac.New(sha256.New, s.accountKey)
	mac.Write([]byte(canonicalString(verb, resource, expiry, permissions)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks a presented signature in constant time.
func (s *Signer) Verify(verb, resource string, expiry int64, permissions, signature string) bool {
	if time.Now().Unix() > expiry {
		return false
	}
	expected := s.Signature(verb, resource, expiry, permissions)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignURL builds a full signed URL for container/name under endpoint.
func (s *Signer) SignURL(endpoint, verb, container, name, permissions string, expiry time.Time) string {
	resource := container + "/" + name
	q := url.Values{}
	q.Set("sp", permissions)
	q.Set("se", strconv.FormatInt(expiry.Unix(), 10))
	q.Set("sig", s.Signature(verb, resource, expiry.Unix(), permissions))
	return fmt.Sprintf("%s/%s?%s", strings.TrimRight(endpoint, "/"), resource, q.Encode())
}
