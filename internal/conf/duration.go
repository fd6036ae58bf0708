package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 配置中的时长, 支持 "1.5s" 或纳秒整数
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*d = Duration(x)
		return nil
	case string:
		return d.UnmarshalText([]byte(x))
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
