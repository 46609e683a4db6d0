// Package txref generates the human-presentable transaction references
// printed on receipts. References are time-prefixed so they sort naturally
// and carry a random suffix to stay unique within the store.
package txref

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

func New() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("TXN-%d", time.Now().UTC().UnixNano())
	}
	stamp := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("TXN-%s-%s", stamp, strings.ToUpper(hex.EncodeToString(buf)))
}
