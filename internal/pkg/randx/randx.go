/*
Package randx provides functions for generating cryptographically secure
random identifiers used for connections and stored avatar objects.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding.
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the number of characters in the Base62 set.
	Base62Len = int64(len(Base62Chars))

	// ConnectionIDLength is the length of the random part of a connection ID.
	ConnectionIDLength = 8
)

// ConnectionID generates a short Base62 identifier for a live connection,
// used only for logging and hub bookkeeping.
func ConnectionID() (string, error) {
	result := make([]byte, ConnectionIDLength)

	for i := range ConnectionIDLength {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for connection id: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return "conn_" + string(result), nil
}

// AvatarKey generates the object key under which an uploaded avatar image is
// stored, namespaced by nickname with a UUID to keep old references stable.
func AvatarKey(nickname string, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("avatars/%s/%s%s", nickname, uuid.New().String(), ext)
}
