package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// GetInstanceID returns an identifier for this process, used as the owner
// value of distributed locks so a holder can be traced in Valkey.
// Order: explicit override, sanitized hostname plus pid, random id.
func GetInstanceID(override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}

	hostname, err := os.Hostname()
	if err == nil && hostname != "" && hostname != "localhost" {
		cleanHost := strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
				return r
			}
			return -1
		}, hostname)
		if cleanHost != "" {
			return fmt.Sprintf("azcrm-%s-%d", cleanHost, os.Getpid())
		}
	}

	return "azcrm-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
