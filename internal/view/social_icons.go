package view

import "strings"

// SocialIconOption describes a selectable icon for social links in the admin UI.
type SocialIconOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type socialIconAsset struct {
	Key     string
	Label   string
	Aliases []string
}

// DefaultSocialIcon 是无法识别平台时使用的图标键。
const DefaultSocialIcon = "link"

var (
	socialIconDefinitions = []socialIconAsset{
		{Key: "github", Label: "GitHub", Aliases: []string{"gh"}},
		{Key: "gitlab", Label: "GitLab"},
		{Key: "linkedin", Label: "LinkedIn", Aliases: []string{"linked-in"}},
		{Key: "x", Label: "X / Twitter", Aliases: []string{"twitter"}},
		{Key: "email", Label: "邮箱", Aliases: []string{"mail", "e-mail"}},
		{Key: "telegram", Label: "Telegram", Aliases: []string{"tg"}},
		{Key: "wechat", Label: "微信", Aliases: []string{"weixin"}},
		{Key: "youtube", Label: "YouTube"},
		{Key: "instagram", Label: "Instagram"},
		{Key: "dribbble", Label: "Dribbble"},
		{Key: "website", Label: "个人网站", Aliases: []string{"web", "blog", "homepage"}},
	}
	socialIconLookup = func() map[string]string {
		lookup := make(map[string]string, len(socialIconDefinitions)*2)
		for _, icon := range socialIconDefinitions {
			lookup[icon.Key] = icon.Key
			for _, alias := range icon.Aliases {
				lookup[alias] = icon.Key
			}
		}
		return lookup
	}()
)

// SocialIconOptions exposes the selectable icon metadata for the admin UI.
func SocialIconOptions() []SocialIconOption {
	options := make([]SocialIconOption, 0, len(socialIconDefinitions)+1)
	for _, icon := range socialIconDefinitions {
		options = append(options, SocialIconOption{Key: icon.Key, Label: icon.Label})
	}
	return append(options, SocialIconOption{Key: DefaultSocialIcon, Label: "默认"})
}

// SocialIconKey 把平台名称解析为图标键，无法识别时回退到默认图标。
func SocialIconKey(platform string) string {
	trimmed := strings.ToLower(strings.TrimSpace(platform))
	if trimmed == "" {
		return DefaultSocialIcon
	}
	if key, ok := socialIconLookup[trimmed]; ok {
		return key
	}
	return DefaultSocialIcon
}
