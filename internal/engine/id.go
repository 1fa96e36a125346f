package engine

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/hammamikhairi/snapcook/internal/domain"
)

var requestSeq atomic.Uint64

// requestID tags a generation request for logs, e.g. "image-3f9a0c1e".
func requestID(kind domain.RecipeKind) string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s-%d", kind, requestSeq.Add(1))
	}
	return kind.String() + "-" + hex.EncodeToString(b)
}
