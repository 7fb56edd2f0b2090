// SPDX-License-Identifier: Apache-2.0

package data

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dbex-project/dbex/pkg/dbexerr"
	"github.com/dbex-project/dbex/pkg/dialect"
	"github.com/dbex-project/dbex/pkg/schema"
)

// Coerce converts a raw parsed scalar to the Go type dialect.FormatValue
// expects for col's engine type (spec §4.4.4). A nil raw value passes
// through untouched; nullability is an engine constraint, not a
// coercion concern.
func Coerce(raw any, col *schema.ColumnSchema, dia dialect.Dialect) (any, error) {
	if raw == nil {
		return nil, nil
	}
	typeName := strings.ToLower(col.Type)

	switch {
	case isGUIDTypeName(typeName):
		return coerceGUID(raw)
	case isBoolTypeName(typeName):
		return coerceBool(raw)
	case isDateTimeTypeName(typeName):
		return coerceDateTime(raw)
	case isBinaryTypeName(typeName):
		return coerceBinary(raw)
	case dia.IsIntegerType(col.Type):
		return coerceInt(raw)
	case dia.IsDecimalType(col.Type):
		return coerceDecimal(raw)
	case dia.IsStringType(col.Type):
		return coerceString(raw), nil
	default:
		return raw, nil
	}
}

func isGUIDTypeName(t string) bool {
	return strings.Contains(t, "uniqueidentifier") || strings.Contains(t, "uuid") || strings.Contains(t, "guid")
}

func isBoolTypeName(t string) bool {
	return t == "bit" || t == "bool" || t == "boolean" || t == "tinyint(1)"
}

func isDateTimeTypeName(t string) bool {
	return strings.Contains(t, "date") || strings.Contains(t, "time")
}

func isBinaryTypeName(t string) bool {
	return strings.Contains(t, "binary") || strings.Contains(t, "blob") || strings.Contains(t, "bytea") || strings.Contains(t, "varbinary")
}

// coerceGUID implements the integer-shorthand rule (spec §4.4.4):
// a plain integer scalar in a guid column is deterministically
// expanded via IntegerToGUID rather than rejected.
func coerceGUID(raw any) (any, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		if u, err := uuid.Parse(v); err == nil {
			return u, nil
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return IntegerToGUID(n), nil
		}
		return nil, fmt.Errorf("%w: %q is not a guid or integer shorthand", dbexerr.ErrValueCoercion, v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dbexerr.ErrValueCoercion, err)
		}
		return IntegerToGUID(n), nil
	case int, int32, int64:
		n, _ := toInt64(v)
		return IntegerToGUID(n), nil
	default:
		return nil, fmt.Errorf("%w: cannot coerce %T to guid", dbexerr.ErrValueCoercion, raw)
	}
}

func coerceBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
	case json.Number:
		n, err := v.Int64()
		if err == nil {
			return n != 0, nil
		}
	case int, int32, int64:
		n, _ := toInt64(v)
		return n != 0, nil
	}
	return nil, fmt.Errorf("%w: cannot coerce %v to bool", dbexerr.ErrValueCoercion, raw)
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func coerceDateTime(raw any) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: cannot coerce %v to a date/time value", dbexerr.ErrValueCoercion, raw)
}

func coerceBinary(raw any) (any, error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	case string:
		s := strings.TrimPrefix(strings.TrimPrefix(v, "0x"), "0X")
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dbexerr.ErrValueCoercion, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: cannot coerce %T to binary", dbexerr.ErrValueCoercion, raw)
}

func coerceInt(raw any) (any, error) {
	switch v := raw.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dbexerr.ErrValueCoercion, err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dbexerr.ErrValueCoercion, err)
		}
		return n, nil
	default:
		return toInt64(v)
	}
}

func coerceDecimal(raw any) (any, error) {
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dbexerr.ErrValueCoercion, err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dbexerr.ErrValueCoercion, err)
		}
		return f, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	default:
		n, err := toInt64(v)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot coerce %T to decimal", dbexerr.ErrValueCoercion, raw)
		}
		return float64(n), nil
	}
}

func coerceString(raw any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", raw)
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	default:
		return 0, fmt.Errorf("%w: cannot coerce %T to integer", dbexerr.ErrValueCoercion, raw)
	}
}
