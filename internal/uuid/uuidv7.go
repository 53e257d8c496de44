// Package uuid generates time-ordered UUIDv7 identifiers. Chat threads
// and messages use these as primary keys so that creation order survives
// index scans and cursor pagination.
package uuid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	googleuuid "github.com/google/uuid"
)

// New returns a new UUIDv7 string: 48 bits of Unix milliseconds, version
// and variant bits per RFC 4122, and 74 bits of randomness.
func New() string {
	var id [16]byte

	timestamp := uint64(time.Now().UnixMilli())
	binary.BigEndian.PutUint64(id[0:8], timestamp<<16)

	if _, err := rand.Read(id[6:]); err != nil {
		// Random source failure: fall back to a v4 from the library.
		return googleuuid.New().String()
	}

	id[6] = (id[6] & 0x0f) | 0x70
	id[8] = (id[8] & 0x3f) | 0x80

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		binary.BigEndian.Uint32(id[0:4]),
		binary.BigEndian.Uint16(id[4:6]),
		binary.BigEndian.Uint16(id[6:8]),
		binary.BigEndian.Uint16(id[8:10]),
		id[10:16],
	)
}

// IsValid reports whether s parses as a UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
