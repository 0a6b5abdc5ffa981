package stream

import (
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const btihPrefix = "urn:btih:"

var (
	hexHash    = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)
	base32Hash = regexp.MustCompile(`^[A-Za-z2-7]{32}$`)
)

// ErrInvalidInfoHash is returned for strings that are neither a BitTorrent
// v1 info hash nor a magnet link carrying one.
var ErrInvalidInfoHash = errors.New("invalid info hash")

// InfoHash extracts the lowercase hex info hash from a raw hash (hex or
// base32) or a magnet link.
func InfoHash(s string) (string, error) {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(strings.ToLower(s), "magnet:") {
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidInfoHash, err)
		}
		for _, xt := range u.Query()["xt"] {
			if len(xt) > len(btihPrefix) && strings.EqualFold(xt[:len(btihPrefix)], btihPrefix) {
				return InfoHash(xt[len(btihPrefix):])
			}
		}
		return "", fmt.Errorf("%w: magnet link without btih", ErrInvalidInfoHash)
	}

	switch {
	case hexHash.MatchString(s):
		return strings.ToLower(s), nil
	case base32Hash.MatchString(s):
		raw, err := base32.StdEncoding.DecodeString(strings.ToUpper(s))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidInfoHash, err)
		}
		return hex.EncodeToString(raw), nil
	default:
		return "", ErrInvalidInfoHash
	}
}
