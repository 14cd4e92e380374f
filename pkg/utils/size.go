package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	KiloByte int64 = 1024
	MegaByte       = 1024 * KiloByte
	GigaByte       = 1024 * MegaByte
)

var sizePattern = regexp.MustCompile(`^([\d.]+)\s*([A-Za-z]+)$`)

// Decimal units are 1000-based, IEC and single-letter units 1024-based.
var sizeUnits = map[string]int64{
	"B":   1,
	"KB":  1000,
	"MB":  1000 * 1000,
	"GB":  1000 * 1000 * 1000,
	"K":   KiloByte,
	"KIB": KiloByte,
	"M":   MegaByte,
	"MIB": MegaByte,
	"G":   GigaByte,
	"GIB": GigaByte,
}

// ParseDataSize parses sizes such as "512", "64KiB" or "16MB" into bytes.
func ParseDataSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative size: %s", s)
		}
		return n, nil
	}

	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid size format: %s (expected format like '16MB', '512KiB')", s)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %s", m[1])
	}
	mult, ok := sizeUnits[strings.ToUpper(m[2])]
	if !ok {
		return 0, fmt.Errorf("unknown unit: %s", m[2])
	}
	return int64(value * float64(mult)), nil
}

// FormatDataSize renders bytes with an IEC unit, e.g. "1.5 KiB", which
// ParseDataSize reads back.
func FormatDataSize(bytes int64) string {
	if bytes < KiloByte {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := KiloByte, 0
	for n := bytes / KiloByte; n >= KiloByte && exp < 2; n /= KiloByte {
		div *= KiloByte
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMG"[exp])
}
