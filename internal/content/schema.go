// Package content 定义站点内容 JSON 文档的默认结构，并负责把历史格式归一化。
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/folio/internal/view"
)

// Document 是站点内容的 JSON 文档，顶层键见 Keys。
type Document map[string]any

// 顶层键
const (
	KeyHero           = "hero"
	KeyAbout          = "about"
	KeyProjects       = "projects"
	KeySkills         = "skills"
	KeyExperience     = "experience"
	KeyBlog           = "blog"
	KeySocial         = "social"
	KeyTheme          = "theme"
	KeyCustomSections = "customSections"
	KeySectionOrder   = "sectionOrder"
	KeySettings       = "settings"
)

// CustomSectionPrefix 用于在 sectionOrder 中引用自定义区块。
const CustomSectionPrefix = "custom:"

// MaskedSecret 是后台展示主密钥时使用的占位值。
const MaskedSecret = "********"

var (
	// ErrUnknownKey 表示补丁中包含文档不支持的顶层键。
	ErrUnknownKey = errors.New("unknown content key")
	// ErrUnknownSection 表示排序中引用了不存在的区块。
	ErrUnknownSection = errors.New("unknown section")
	// ErrDuplicateSection 表示排序中同一区块出现多次。
	ErrDuplicateSection = errors.New("duplicate section")
	// ErrInvalidDocument 表示无法解析的内容文档。
	ErrInvalidDocument = errors.New("invalid content document")
)

// Keys 按固定顺序列出文档支持的全部顶层键。
var Keys = []string{
	KeyHero,
	KeyAbout,
	KeyProjects,
	KeySkills,
	KeyExperience,
	KeyBlog,
	KeySocial,
	KeyTheme,
	KeyCustomSections,
	KeySectionOrder,
	KeySettings,
}

// DefaultSectionOrder 是内置区块的默认展示顺序。
var DefaultSectionOrder = []string{
	KeyHero,
	KeyAbout,
	KeyProjects,
	KeySkills,
	KeyExperience,
	KeyBlog,
	KeySocial,
}

// Default 返回一份全新的默认文档，调用方可以随意修改。
func Default() Document {
	order := make([]any, 0, len(DefaultSectionOrder))
	for _, id := range DefaultSectionOrder {
		order = append(order, id)
	}

	return Document{
		KeyHero: map[string]any{
			"name":        "",
			"title":       "Hi, I'm a developer",
			"subtitle":    "",
			"description": "",
			"ctaText":     "View my work",
			"ctaLink":     "#projects",
			"image":       "",
		},
		KeyAbout: map[string]any{
			"heading":    "About Me",
			"bio":        "",
			"image":      "",
			"highlights": []any{},
		},
		KeyProjects:   []any{},
		KeySkills:     []any{},
		KeyExperience: []any{},
		KeyBlog: map[string]any{
			"enabled":      true,
			"heading":      "Blog",
			"postsPerPage": float64(6),
		},
		KeySocial: []any{},
		KeyTheme: map[string]any{
			"mode":         "dark",
			"primaryColor": "#6366f1",
			"accentColor":  "#22d3ee",
			"font":         "Inter",
		},
		KeyCustomSections: []any{},
		KeySectionOrder:   order,
		KeySettings: map[string]any{
			"siteTitle":       "Portfolio",
			"metaDescription": "",
			"masterKey":       "",
		},
	}
}

// IsKnownKey 判断 key 是否是文档支持的顶层键。
func IsKnownKey(key string) bool {
	for _, candidate := range Keys {
		if candidate == key {
			return true
		}
	}
	return false
}

// Parse 把原始 JSON 解析为文档，空输入返回 nil。
func Parse(raw []byte) (Document, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

// Marshal 序列化文档；encoding/json 会对 map 键排序，输出稳定。
func Marshal(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	return json.Marshal(doc)
}

// Normalize 迁移历史格式并补齐缺失字段，返回新的文档，不修改入参。
func Normalize(doc Document) Document {
	if doc == nil {
		return Default()
	}

	out, _ := deepCopy(map[string]any(doc)).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}

	migrateLegacy(out)
	mergeDefaults(out, Default())
	normalizeSocial(out)
	normalizeCustomSections(out)
	out[KeySectionOrder] = normalizeOrder(out)

	return Document(out)
}

// Public 返回可以下发给访客的副本：去掉主密钥。
func Public(doc Document) Document {
	out := Clone(doc)
	if settings, ok := out[KeySettings].(map[string]any); ok {
		delete(settings, "masterKey")
	}
	return out
}

// Masked 返回后台展示用的副本：主密钥被替换为占位值。
func Masked(doc Document) Document {
	out := Clone(doc)
	if settings, ok := out[KeySettings].(map[string]any); ok {
		if key, _ := settings["masterKey"].(string); key != "" {
			settings["masterKey"] = MaskedSecret
		}
	}
	return out
}

// MasterKey 读取文档中配置的后台主密钥。
func MasterKey(doc Document) string {
	settings, ok := doc[KeySettings].(map[string]any)
	if !ok {
		return ""
	}
	key, _ := settings["masterKey"].(string)
	return strings.TrimSpace(key)
}

// PreserveMasterKey 当 next 中的主密钥仍是占位值时，沿用 prev 中的真实值。
func PreserveMasterKey(next, prev Document) {
	settings, ok := next[KeySettings].(map[string]any)
	if !ok {
		return
	}
	if key, _ := settings["masterKey"].(string); key == MaskedSecret {
		settings["masterKey"] = MasterKey(prev)
	}
}

// KeepMasterKey 返回 incoming 的副本，其中未携带 masterKey 的 settings 会被标记为占位值，
// 交给 PreserveMasterKey 沿用原值；只有显式的空串才会清除主密钥。
// whole 表示整体替换，此时缺少 settings 也按沿用处理。
func KeepMasterKey(incoming Document, whole bool) Document {
	out := Clone(incoming)
	if out == nil {
		return nil
	}

	raw, present := out[KeySettings]
	if !present {
		if whole {
			out[KeySettings] = map[string]any{"masterKey": MaskedSecret}
		}
		return out
	}
	if settings, ok := raw.(map[string]any); ok {
		if _, set := settings["masterKey"]; !set {
			settings["masterKey"] = MaskedSecret
		}
	}
	return out
}

// Clone 深拷贝文档。
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out, _ := deepCopy(map[string]any(doc)).(map[string]any)
	return Document(out)
}

// SectionIDs 返回当前文档中所有合法的区块 ID。
func SectionIDs(doc Document) []string {
	ids := append([]string(nil), DefaultSectionOrder...)
	for _, id := range customSectionIDs(doc) {
		ids = append(ids, CustomSectionPrefix+id)
	}
	return ids
}

// ValidateOrder 校验新的区块排序：每个 ID 都必须存在且不能重复。
func ValidateOrder(doc Document, order []string) error {
	known := make(map[string]struct{})
	for _, id := range SectionIDs(doc) {
		known[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(order))
	for _, raw := range order {
		id := strings.TrimSpace(raw)
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSection, raw)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateSection, raw)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func migrateLegacy(doc map[string]any) {
	if hero, ok := doc[KeyHero].(map[string]any); ok {
		title, _ := hero["title"].(string)
		if heading, ok := hero["heading"].(string); ok {
			if strings.TrimSpace(title) == "" && strings.TrimSpace(heading) != "" {
				hero["title"] = heading
			}
			delete(hero, "heading")
		}
	}

	if legacy, ok := doc["socialLinks"]; ok {
		if existing, _ := doc[KeySocial].([]any); len(existing) == 0 {
			doc[KeySocial] = legacy
		}
		delete(doc, "socialLinks")
	}

	if legacy, ok := doc["sections"]; ok {
		if existing, _ := doc[KeyCustomSections].([]any); len(existing) == 0 {
			doc[KeyCustomSections] = legacy
		}
		delete(doc, "sections")
	}

	switch skills := doc[KeySkills].(type) {
	case []any:
		doc[KeySkills] = migrateSkillList(skills)
	case map[string]any:
		categories := make([]string, 0, len(skills))
		for name := range skills {
			categories = append(categories, name)
		}
		sort.Strings(categories)

		list := make([]any, 0, len(categories))
		for _, name := range categories {
			list = append(list, map[string]any{
				"category": name,
				"items":    toAnyList(skills[name]),
			})
		}
		doc[KeySkills] = list
	}
}

// migrateSkillList 把扁平的字符串技能归入 General 分类，保留已是分类结构的条目。
func migrateSkillList(items []any) []any {
	var loose []any
	out := make([]any, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				loose = append(loose, v)
			}
		case map[string]any:
			if _, ok := v["items"]; !ok {
				v["items"] = []any{}
			} else {
				v["items"] = toAnyList(v["items"])
			}
			if _, ok := v["category"].(string); !ok {
				v["category"] = "General"
			}
			out = append(out, v)
		}
	}
	if len(loose) > 0 {
		out = append([]any{map[string]any{"category": "General", "items": loose}}, out...)
	}
	return out
}

func normalizeSocial(doc map[string]any) {
	switch social := doc[KeySocial].(type) {
	case map[string]any:
		platforms := make([]string, 0, len(social))
		for name := range social {
			platforms = append(platforms, name)
		}
		sort.Strings(platforms)

		list := make([]any, 0, len(platforms))
		for _, name := range platforms {
			url, _ := social[name].(string)
			if strings.TrimSpace(url) == "" {
				continue
			}
			list = append(list, map[string]any{
				"platform": name,
				"url":      url,
				"icon":     view.SocialIconKey(name),
			})
		}
		doc[KeySocial] = list
	case []any:
		for _, item := range social {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if icon, _ := entry["icon"].(string); strings.TrimSpace(icon) == "" {
				platform, _ := entry["platform"].(string)
				entry["icon"] = view.SocialIconKey(platform)
			}
		}
	default:
		doc[KeySocial] = []any{}
	}
}

func normalizeCustomSections(doc map[string]any) {
	sections, ok := doc[KeyCustomSections].([]any)
	if !ok {
		doc[KeyCustomSections] = []any{}
		return
	}

	used := make(map[string]struct{}, len(sections))
	kept := make([]any, 0, len(sections))
	for _, item := range sections {
		section, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := section["id"].(string)
		id = strings.TrimSpace(id)
		if _, dup := used[id]; id == "" || dup {
			id = nextSectionID(used)
		}
		used[id] = struct{}{}
		section["id"] = id
		if _, ok := section["visible"].(bool); !ok {
			section["visible"] = true
		}
		kept = append(kept, section)
	}
	doc[KeyCustomSections] = kept
}

func nextSectionID(used map[string]struct{}) string {
	for n := len(used) + 1; ; n++ {
		candidate := fmt.Sprintf("section-%d", n)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}

func customSectionIDs(doc Document) []string {
	sections, _ := doc[KeyCustomSections].([]any)
	ids := make([]string, 0, len(sections))
	for _, item := range sections {
		section, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, _ := section["id"].(string); strings.TrimSpace(id) != "" {
			ids = append(ids, strings.TrimSpace(id))
		}
	}
	return ids
}

// normalizeOrder 保留已有排序中合法且不重复的 ID，再把缺失的区块追加到末尾。
func normalizeOrder(doc map[string]any) []any {
	ids := SectionIDs(Document(doc))
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(ids))
	order := make([]any, 0, len(ids))
	if current, ok := doc[KeySectionOrder].([]any); ok {
		for _, item := range current {
			id, _ := item.(string)
			id = strings.TrimSpace(id)
			if _, ok := known[id]; !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			order = append(order, id)
		}
	}

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	return order
}

// mergeDefaults 为缺失或类型不符的键填入默认值，对象会递归合并。
func mergeDefaults(dst, defaults map[string]any) {
	for key, def := range defaults {
		current, exists := dst[key]
		if !exists || current == nil {
			dst[key] = def
			continue
		}

		switch defValue := def.(type) {
		case map[string]any:
			currentMap, ok := current.(map[string]any)
			if !ok {
				dst[key] = defValue
				continue
			}
			mergeDefaults(currentMap, defValue)
		case []any:
			if _, ok := current.([]any); !ok && !isLegacyList(key, current) {
				dst[key] = defValue
			}
		}
	}
}

// isLegacyList 允许 social 在归一化前仍是对象形式。
func isLegacyList(key string, value any) bool {
	if key != KeySocial {
		return false
	}
	_, ok := value.(map[string]any)
	return ok
}

func toAnyList(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, item)
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return []any{}
		}
		return []any{v}
	default:
		return []any{}
	}
}

func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = deepCopy(item)
		}
		return out
	case Document:
		return deepCopy(map[string]any(v))
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopy(item)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out
	default:
		return v
	}
}
