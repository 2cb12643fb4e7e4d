// Package cos: short opaque ID generation for element instances, and the
// name-validation helpers the router and config loader use
// to reject malformed element/class names at configuration time.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/teris-io/shortid"

	"github.com/clickrt/corepath/cmn/atomic"
)

const (
	// alphabet for generating IDs, similar to shortid.DEFAULT_ABC
	// NOTE: len(idABC) > 0x3f - see GenTie()
	idABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"
)

const (
	LenShortID = 9  // ID length, as per https://github.com/teris-io/shortid#id-length
	tooLongID  = 32 // cannot be smaller than any valid max length above
	tooLongName = 64
)

const (
	mayOnlyContain = "may only contain letters, numbers, dashes (-), underscores (_)"
	OnlyNice       = "must be at most 32 characters and " + mayOnlyContain
	OnlyPlus       = mayOnlyContain + ", and dots (.)"
)

var (
	sid     *shortid.Shortid
	sidOnce sync.Once
	rtie    atomic.Uint32
)

// InitShortID seeds the generator explicitly, e.g. with a daemon's
// startup timestamp; callers that never call it get a zero-seeded
// generator lazily on first GenUUID.
func InitShortID(seed uint64) {
	sid = shortid.MustNew(4 /*worker*/, idABC, seed)
}

// GenUUID returns a short opaque identifier; element.Base.Init uses it to
// stamp every element instance.
func GenUUID() (uuid string) {
	sidOnce.Do(func() {
		if sid == nil {
			InitShortID(0)
		}
	})
	var h, t string
	uuid = sid.MustGenerate()
	if !isAlpha(uuid[0]) {
		tie := int(rtie.Add(1))
		h = string(rune('A' + tie%26))
	}
	c := uuid[len(uuid)-1]
	if c == '-' || c == '_' {
		tie := int(rtie.Add(1))
		t = string(rune('a' + tie%26))
	}
	return h + uuid + t
}

func IsValidUUID(uuid string) bool {
	return len(uuid) >= LenShortID && IsAlphaNice(uuid)
}

// HashString64 returns the seeded xxhash-64 digest of s, the same hash
// family flow.Node uses (unseeded) for KindHash lookups.
func HashString64(s string, seed uint64) uint64 {
	return xxhash.Checksum64S([]byte(s), seed)
}

//
// utility functions
//

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// letters and numbers w/ '-' and '_' permitted with limitations (see OnlyNice const)
func IsAlphaNice(s string) bool {
	l := len(s)
	if l > tooLongID {
		return false
	}
	for i := range l {
		c := s[i]
		if isAlpha(c) || (c >= '0' && c <= '9') {
			continue
		}
		if c != '-' && c != '_' {
			return false
		}
		if i == 0 || i == l-1 {
			return false
		}
	}
	return true
}

// alpha-numeric++ including letters, numbers, dashes (-), and underscores (_)
// period (.) is allowed except for '..' (OnlyPlus const) - used to validate
// element names in the graph description.
func CheckAlphaPlus(s, tag string) error {
	l := len(s)
	if l > tooLongName {
		return fmt.Errorf("%s is too long: %d > %d(max length)", tag, l, tooLongName)
	}
	for i := range l {
		c := s[i]
		if isAlpha(c) || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		if c != '.' {
			return errors.New(tag + " is invalid: " + OnlyPlus)
		}
		if i < l-1 && s[i+1] == '.' {
			return errors.New(tag + " is invalid: " + OnlyPlus)
		}
	}
	return nil
}

// 3-letter tie breaker (fast)
func GenTie() string {
	tie := rtie.Add(1)
	b0 := idABC[tie&0x3f]
	b1 := idABC[(^tie)&0x3f]
	b2 := idABC[(tie>>2)&0x3f]
	return string([]byte{b0, b1, b2})
}

func CryptoRandS(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = idABC[int(b[i])%len(idABC)]
	}
	return string(b)
}
