package config

import (
	"encoding/json"
	"fmt"
	"time"

	"vmstore/pkg/utils"
)

// Duration accepts "15s"-style strings or a number of seconds in JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*d = Duration(val * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("duration must be a string or number, got %T", v)
	}
	return nil
}

// DataSize accepts "16MB"-style strings or a plain byte count in JSON.
type DataSize int64

func (s DataSize) Bytes() int {
	return int(s)
}

func (s DataSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(s))
}

func (s *DataSize) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*s = DataSize(val)
	case string:
		n, err := utils.ParseDataSize(val)
		if err != nil {
			return fmt.Errorf("invalid data size: %w", err)
		}
		*s = DataSize(n)
	default:
		return fmt.Errorf("data size must be a number or string, got %T", v)
	}
	return nil
}
