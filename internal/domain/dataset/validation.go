package dataset

import (
	"path/filepath"
	"strings"
)

// ValidateCSVName rejects upload names that are empty or lack a .csv suffix.
func ValidateCSVName(name string) error {
	base := strings.TrimSpace(filepath.Base(name))
	if name == "" || base == "" || base == "." {
		return ErrNoFile
	}
	if !strings.HasSuffix(strings.ToLower(base), ".csv") {
		return ErrNotCSV
	}
	return nil
}
