// SPDX-License-Identifier: Apache-2.0

package dialect

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// escapeString doubles single quotes, the one escaping rule shared by
// all three engines (spec §4.1: "single-quoted strings (doubling ''
// to escape)").
func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// formatCommon renders the value kinds whose literal form is
// identical across all three dialects, returning ok=false for
// anything dialect-specific (bool and string-prefix forms differ).
func formatCommon(v any) (string, bool, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", true, nil
	case uuid.UUID:
		return "'" + val.String() + "'", true, nil
	case time.Time:
		return "'" + val.UTC().Format("2006-01-02 15:04:05.000") + "'", true, nil
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%d", val), true, nil
	case float32, float64:
		return fmt.Sprintf("%v", val), true, nil
	default:
		return "", false, nil
	}
}
