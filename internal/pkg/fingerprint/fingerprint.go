// Package fingerprint computes stable cache keys for the query cache: an
// FNV-1a hash over a canonical encoding of the inputs that determine a
// query's result.
package fingerprint

import (
	"encoding/hex"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/LerianStudio/confdogma/internal/domain/query"
)

// Of returns a stable, printable key for (project, repo, absRevision, q).
// Two calls with equal arguments always return the same key; the encoding
// is internal and not meant to be parsed back.
func Of(project, repo string, absRevision int64, q query.Query) string {
	h := fnv.New64a()

	write := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0}) // field separator, avoids "ab"+"c" == "a"+"bc" collisions
	}

	write(project)
	write(repo)
	write(strconv.FormatInt(absRevision, 10))
	write(string(q.Type))
	write(q.Path)
	write(strings.Join(q.Expressions, "\x1f"))

	return hex.EncodeToString(h.Sum(nil))
}
