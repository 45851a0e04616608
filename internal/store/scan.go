package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/charismamove/apiserver/types"
)

// dateColumn scans DATE columns, which drivers return either as time.Time or
// as text.
type dateColumn struct {
	value string
}

func (c *dateColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		c.value = ""
	case time.Time:
		c.value = v.Format(types.DateLayout)
	case []byte:
		c.value = clip(string(v), len(types.DateLayout))
	case string:
		c.value = clip(v, len(types.DateLayout))
	default:
		return fmt.Errorf("unsupported date value %T", src)
	}
	return nil
}

// clockColumn scans TIME columns into HH:MM.
type clockColumn struct {
	value string
}

func (c *clockColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		c.value = ""
	case time.Time:
		c.value = v.Format(types.TimeLayout)
	case []byte:
		c.value = clip(string(v), len(types.TimeLayout))
	case string:
		c.value = clip(v, len(types.TimeLayout))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
	return nil
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n]
	}
	return s
}

// likePattern builds a substring pattern for
// `LOWER(col) LIKE LOWER(?) ESCAPE '!'`. Case folding is left to the
// database so both sides fold with the same rules.
func likePattern(term string) string {
	replacer := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + replacer.Replace(term) + "%"
}
