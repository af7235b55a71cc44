// Package cookies persists session cookie jars, one record per account
// identity. A saved jar is the only state that outlives the process; losing
// one costs a fresh credential login, which is the most detectable action
// the tool performs, so writes are atomic and loads never fail hard.
package cookies

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
)

// ErrNotFound is returned by Load when no usable jar exists for the
// account. A corrupt record reports the same way; callers treat both as
// "no saved session".
var ErrNotFound = errors.New("cookie jar not found")

// json is the codec for jar records. The jsoniter compat config round-trips
// exactly like encoding/json but decodes large jars faster.
var json = jsoniter.ConfigCompatibleWithStandardLibrary
