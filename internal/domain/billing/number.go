package billing

import (
	"strings"
)

// NormalizeNumber left-pads the leading digit run of a document number to
// four digits, preserving any trailing non-numeric suffix ("14/A" -> "0014/A").
// Numbers without a leading digit run are returned trimmed and unchanged.
// The function is idempotent.
func NormalizeNumber(number string) string {
	number = strings.TrimSpace(number)
	i := 0
	for i < len(number) && number[i] >= '0' && number[i] <= '9' {
		i++
	}
	if i == 0 || i >= 4 {
		return number
	}
	return strings.Repeat("0", 4-i) + number
}
