package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"time"
)

// UploadFilename returns "<field>-<unix millis>-<random>.<ext>" for an
// uploaded file, keeping the lowercase extension of the original name.
func UploadFilename(field, original string, now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1e9))
	suffix := int64(0)
	if err == nil {
		suffix = n.Int64()
	}
	return fmt.Sprintf("%s-%d-%d%s", field, now.UnixMilli(), suffix, strings.ToLower(filepath.Ext(original)))
}
