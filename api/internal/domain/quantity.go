package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
)

// Quantity is a chain integer that MasChain sends either as a JSON number,
// a decimal string or a 0x-prefixed hex string.
type Quantity uint64

func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return fmt.Errorf("empty quantity")
		}
	} else {
		s = string(b)
	}

	v, ok := math.ParseUint64(s)
	if !ok {
		return fmt.Errorf("invalid quantity: %s", s)
	}
	*q = Quantity(v)
	return nil
}

func (q *Quantity) Uint64Ptr() *uint64 {
	if q == nil {
		return nil
	}
	v := uint64(*q)
	return &v
}

// FlexString accepts both JSON strings and numbers (user ids, unix timestamps).
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

func (q Quantity) String() string {
	return strconv.FormatUint(uint64(q), 10)
}
