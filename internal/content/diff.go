package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Diff 比较两个文档的顶层键，返回发生变化的键以及对应的新值。
// 只在 before 中存在、after 中缺失的键也视为变化，但不会出现在补丁里。
func Diff(before, after Document) ([]string, Document) {
	keys := make(map[string]struct{}, len(before)+len(after))
	for key := range before {
		keys[key] = struct{}{}
	}
	for key := range after {
		keys[key] = struct{}{}
	}

	changed := make([]string, 0)
	patch := Document{}
	for key := range keys {
		next, inAfter := after[key]
		prev, inBefore := before[key]
		if inAfter && inBefore && sameValue(prev, next) {
			continue
		}
		changed = append(changed, key)
		if inAfter {
			patch[key] = deepCopy(next)
		}
	}

	sort.Strings(changed)
	return changed, patch
}

// ApplyPatch 用补丁中的值整体替换对应顶层键（浅合并，后写入者覆盖），
// 返回归一化后的新文档。补丁中出现未知键时返回 ErrUnknownKey。
func ApplyPatch(doc Document, patch Document) (Document, error) {
	for key := range patch {
		if !IsKnownKey(key) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
	}

	next := Clone(doc)
	if next == nil {
		next = Default()
	}
	for key, value := range patch {
		next[key] = deepCopy(value)
	}
	return Normalize(next), nil
}

// sameValue 以 JSON 编码结果比较两个值，避免 int 与 float64 之类的表示差异。
func sameValue(a, b any) bool {
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(left, right)
}
