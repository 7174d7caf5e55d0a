package storage

import (
	"bytes"
	"cmp"
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
	"time"
)

// Normalize maps a value returned by any backend onto a canonical comparable
// form: integers become int64, integral floats become int64, []byte becomes
// string and times are moved to UTC. Every NaN maps to one value that equals
// itself and sorts after all other numbers, as in PostgreSQL. nil stays nil.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return normalizeUint(x)
	case float32:
		return normalizeFloat(float64(x))
	case float64:
		return normalizeFloat(x)
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC()
	case string, bool:
		return x
	case driver.Valuer:
		if dv, err := x.Value(); err == nil {
			return Normalize(dv)
		}
	}
	if reflect.TypeOf(v).Comparable() {
		return v
	}
	return fmt.Sprint(v)
}

func normalizeUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

// notANumber is the normalized form of a float NaN.
type notANumber struct{}

func (notANumber) String() string { return "NaN" }

func normalizeFloat(f float64) any {
	if math.IsNaN(f) {
		return notANumber{}
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, uint64, float64, notANumber:
		return 2
	case time.Time:
		return 3
	case string:
		return 4
	case []byte:
		return 5
	}
	return 6
}

// Compare orders normalized values: nil, booleans, numbers, times, strings,
// then anything else by its fmt representation.
func Compare(a, b any) int {
	a, b = Normalize(a), Normalize(b)
	if ra, rb := rank(a), rank(b); ra != rb {
		return cmp.Compare(ra, rb)
	}
	if _, ok := a.(notANumber); ok {
		if _, ok := b.(notANumber); ok {
			return 0
		}
		return 1
	}
	if _, ok := b.(notANumber); ok {
		return -1
	}
	switch x := a.(type) {
	case nil:
		return 0
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
		return cmp.Compare(toFloat(x), toFloat(b))
	case uint64, float64:
		return cmp.Compare(toFloat(x), toFloat(b))
	case time.Time:
		return x.Compare(b.(time.Time))
	case string:
		return strings.Compare(x, b.(string))
	case []byte:
		return bytes.Compare(x, b.([]byte))
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float64:
		return x
	}
	return math.NaN()
}

// Duplicates computes the uniqueness of vals, skipping nil.
func Duplicates(vals []any) Uniqueness {
	counts := make(map[any]int, len(vals))
	var order []any
	for _, v := range vals {
		k := Normalize(v)
		if k == nil {
			continue
		}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	var dups []any
	for _, k := range order {
		if counts[k] > 1 {
			dups = append(dups, k)
		}
	}
	slices.SortStableFunc(dups, func(a, b any) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return Compare(a, b)
	})
	return Uniqueness{Unique: len(dups) == 0, Duplicates: capSample(dups)}
}

// Include computes whether every non-nil child value appears among the
// parent values.
func Include(child, parent []any) Inclusion {
	have := make(map[any]struct{}, len(parent))
	for _, v := range parent {
		if k := Normalize(v); k != nil {
			have[k] = struct{}{}
		}
	}

	seen := make(map[any]struct{})
	var missing []any
	for _, v := range child {
		k := Normalize(v)
		if k == nil {
			continue
		}
		if _, ok := have[k]; ok {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		missing = append(missing, k)
	}
	slices.SortFunc(missing, Compare)
	return Inclusion{Included: len(missing) == 0, Missing: capSample(missing)}
}

// FormatSample renders a value sample for messages, e.g. `2, "x"`.
func FormatSample(vals []any) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		switch x := v.(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%q", x))
		case time.Time:
			parts = append(parts, x.Format(time.RFC3339))
		default:
			parts = append(parts, fmt.Sprint(x))
		}
	}
	return strings.Join(parts, ", ")
}
