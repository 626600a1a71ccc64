// package cadata provides content IDs for programs.
package cadata

import (
	"database/sql/driver"
	"encoding/base64"
	"fmt"
)

const IDSize = 32

// ID is the hash of some content.
type ID [IDSize]byte

// idEncoding is a URL safe base64 encoding whose alphabet is in ASCII order,
// so encoded IDs sort the same way as the IDs.
var idEncoding = base64.NewEncoding("-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz").
	WithPadding(base64.NoPadding)

func (id ID) String() string {
	return idEncoding.EncodeToString(id[:])
}

// ParseID is the inverse of ID.String
func ParseID(s string) (ID, error) {
	var id ID
	data, err := idEncoding.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parsing ID: %w", err)
	}
	if len(data) != IDSize {
		return id, fmt.Errorf("parsing ID: decoded to %d bytes, want %d", len(data), IDSize)
	}
	copy(id[:], data)
	return id, nil
}

// Scan implements sql.Scanner. IDs are stored as BLOBs.
func (id *ID) Scan(x any) error {
	data, ok := x.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into ID", x)
	}
	if len(data) != IDSize {
		return fmt.Errorf("wrong length for ID HAVE: %d WANT: %d", len(data), IDSize)
	}
	copy(id[:], data)
	return nil
}

func (id ID) Value() (driver.Value, error) {
	return id[:], nil
}
