package ratings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MaxValue is the highest rating, 5.00 stars, in hundredths.
const MaxValue Value = 500

// Value is a star rating held exactly in hundredths (0..500).
type Value int

// ParseValue parses a decimal such as "4", "4.5", or "4.75". At most two
// fractional digits are accepted; the range is not checked here.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty rating")
	}

	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid rating %q", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("rating %q has more than two decimal places", s)
	}
	for _, part := range []string{whole, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("invalid rating %q", s)
			}
		}
	}
	if len(whole) > 3 {
		return 0, fmt.Errorf("rating %q out of range", s)
	}

	w := 0
	if whole != "" {
		w, _ = strconv.Atoi(whole)
	}
	f := 0
	if frac != "" {
		f, _ = strconv.Atoi(frac)
		if len(frac) == 1 {
			f *= 10
		}
	}

	v := Value(w*100 + f)
	if neg {
		v = -v
	}
	return v, nil
}

// String formats the value with two decimals, e.g. "4.50".
func (v Value) String() string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, int(v)/100, int(v)%100)
}

// MarshalJSON encodes the value as a decimal string.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("rating is required")
	}

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("rating must be a number")
		}
		raw = n.String()
	}

	parsed, err := ParseValue(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
