package crypto

import (
	"crypto/subtle"
	"runtime"
)

// Wipe overwrites b with zeros. Best effort only: copies the runtime made
// before the call are out of reach.
func Wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	runtime.KeepAlive(b)
}
