package cache

import (
	"errors"
	"strconv"
	"strings"
)

const latestSuffix = "last_messages"

var errBadKey = errors.New("cache: not a range key")

// Key names one cached page: either the newest page (Latest) or the closed
// id range [Lo, Hi]. Limit is the page size a latest page was requested
// with; it is stored with the page, not in the key string.
type Key struct {
	Latest bool
	Lo, Hi int64
	Limit  int
}

// LatestKey is the key for the page requested without a starting id. It
// matches a latest page of any size.
var LatestKey = Key{Latest: true}

// KeyFor returns the key under which a page requested with (firstID, limit)
// is cached. A non-positive firstID asks for the newest page.
func KeyFor(firstID int64, limit int) Key {
	if firstID <= 0 {
		return Key{Latest: true, Limit: limit}
	}
	lo := firstID - int64(limit)
	if lo < 1 {
		lo = 1
	}
	return Key{Lo: lo, Hi: firstID - 1}
}

// Contains reports whether id falls in the key's range. The latest key has
// no range and never contains anything.
func (k Key) Contains(id int64) bool {
	return !k.Latest && k.Lo <= id && id <= k.Hi
}

func (k Key) String() string {
	if k.Latest {
		return latestSuffix
	}
	return strconv.FormatInt(k.Lo, 10) + "-" + strconv.FormatInt(k.Hi, 10)
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	if s == latestSuffix {
		return LatestKey, nil
	}
	loStr, hiStr, ok := strings.Cut(s, "-")
	if !ok {
		return Key{}, errBadKey
	}
	lo, err := strconv.ParseInt(loStr, 10, 64)
	if err != nil || lo < 1 {
		return Key{}, errBadKey
	}
	hi, err := strconv.ParseInt(hiStr, 10, 64)
	if err != nil || hi < lo {
		return Key{}, errBadKey
	}
	return Key{Lo: lo, Hi: hi}, nil
}
