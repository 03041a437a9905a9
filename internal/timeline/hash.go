package timeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashObjects returns a stable content hash of the compiled objects. Gateways
// compare it against the last seen value to detect updates without diffing
// the object array.
func HashObjects(objs any) (string, error) {
	data, err := json.Marshal(objs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal timeline for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
