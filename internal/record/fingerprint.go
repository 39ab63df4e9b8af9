package record

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fingerprint returns the hex SHA-256 of the normalized content. Two records
// that differ only in Unicode form, letter case or spacing share a fingerprint.
func Fingerprint(c Content) string {
	fold := cases.Fold()
	fields := []string{
		c.Name, c.Address, c.Phone, c.Section,
		c.Colony, c.Request, c.Reference, c.CreatedBy,
	}

	h := sha256.New()
	for i, f := range fields {
		if i > 0 {
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(normalize(fold, f)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func normalize(fold cases.Caser, s string) string {
	s = fold.String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(s), " ")
}
