package ext

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/r3labs/diff/v3"
)

// DeepCopy 深拷贝 src 到 dst
func DeepCopy(dst, src any) error {
	return copier.CopyWithOption(dst, src, copier.Option{DeepCopy: true})
}

// Diff 返回 a -> b 的变更列表
func Diff(a, b any) (diff.Changelog, error) {
	return diff.Diff(a, b)
}

// DiffLog 返回变更列表及其可读描述
func DiffLog(a, b any) (diff.Changelog, string, error) {
	changes, err := diff.Diff(a, b)
	if err != nil {
		return nil, "", err
	}
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, fmt.Sprintf("  %s %s: %v -> %v", c.Type, strings.Join(c.Path, "."), c.From, c.To))
	}
	return changes, strings.Join(lines, "\n"), nil
}

func ToJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
