package content

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNilReturnsDefault(t *testing.T) {
	doc := Normalize(nil)

	for _, key := range Keys {
		assert.Contains(t, doc, key)
	}
	assert.Equal(t, []any{"hero", "about", "projects", "skills", "experience", "blog", "social"}, doc[KeySectionOrder])
}

func TestNormalizeFillsMissingNestedFields(t *testing.T) {
	doc := Normalize(Document{
		KeyHero: map[string]any{"title": "Jane Doe"},
		KeyTheme: map[string]any{
			"primaryColor": "#000000",
		},
	})

	hero := doc[KeyHero].(map[string]any)
	assert.Equal(t, "Jane Doe", hero["title"])
	assert.Equal(t, "View my work", hero["ctaText"])

	theme := doc[KeyTheme].(map[string]any)
	assert.Equal(t, "#000000", theme["primaryColor"])
	assert.Equal(t, "dark", theme["mode"])
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	input := Document{KeyHero: map[string]any{"heading": "Legacy"}}
	_ = Normalize(input)

	hero := input[KeyHero].(map[string]any)
	assert.Equal(t, "Legacy", hero["heading"])
	assert.NotContains(t, hero, "title")
}

func TestNormalizeMigratesLegacyShapes(t *testing.T) {
	tests := []struct {
		name  string
		input Document
		check func(t *testing.T, doc Document)
	}{
		{
			name:  "hero heading becomes title",
			input: Document{KeyHero: map[string]any{"heading": "Hello"}},
			check: func(t *testing.T, doc Document) {
				hero := doc[KeyHero].(map[string]any)
				assert.Equal(t, "Hello", hero["title"])
				assert.NotContains(t, hero, "heading")
			},
		},
		{
			name:  "flat skill list",
			input: Document{KeySkills: []any{"Go", "SQL", ""}},
			check: func(t *testing.T, doc Document) {
				skills := doc[KeySkills].([]any)
				require.Len(t, skills, 1)
				first := skills[0].(map[string]any)
				assert.Equal(t, "General", first["category"])
				assert.Equal(t, []any{"Go", "SQL"}, first["items"])
			},
		},
		{
			name: "skill map",
			input: Document{KeySkills: map[string]any{
				"Frontend": []any{"React"},
				"Backend":  []any{"Go", "Postgres"},
			}},
			check: func(t *testing.T, doc Document) {
				skills := doc[KeySkills].([]any)
				require.Len(t, skills, 2)
				assert.Equal(t, "Backend", skills[0].(map[string]any)["category"])
				assert.Equal(t, "Frontend", skills[1].(map[string]any)["category"])
			},
		},
		{
			name: "social links object",
			input: Document{"socialLinks": map[string]any{
				"github":  "https://github.com/jane",
				"twitter": "https://x.com/jane",
				"empty":   "",
			}},
			check: func(t *testing.T, doc Document) {
				assert.NotContains(t, doc, "socialLinks")
				social := doc[KeySocial].([]any)
				require.Len(t, social, 2)
				github := social[0].(map[string]any)
				assert.Equal(t, "github", github["platform"])
				assert.Equal(t, "github", github["icon"])
				twitter := social[1].(map[string]any)
				assert.Equal(t, "x", twitter["icon"])
			},
		},
		{
			name: "sections become custom sections",
			input: Document{"sections": []any{
				map[string]any{"title": "Talks", "content": "..."},
			}},
			check: func(t *testing.T, doc Document) {
				assert.NotContains(t, doc, "sections")
				sections := doc[KeyCustomSections].([]any)
				require.Len(t, sections, 1)
				section := sections[0].(map[string]any)
				assert.Equal(t, "section-1", section["id"])
				assert.Equal(t, true, section["visible"])
				assert.Contains(t, doc[KeySectionOrder], "custom:section-1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Normalize(tt.input))
		})
	}
}

func TestNormalizeRepairsSectionOrder(t *testing.T) {
	doc := Normalize(Document{
		KeyCustomSections: []any{map[string]any{"id": "talks", "title": "Talks"}},
		KeySectionOrder:   []any{"projects", "projects", "ghost", "custom:talks", "hero"},
	})

	order := doc[KeySectionOrder].([]any)
	assert.Equal(t, []any{"projects", "custom:talks", "hero", "about", "skills", "experience", "blog", "social"}, order)
}

func TestNormalizeReplacesWrongTypes(t *testing.T) {
	doc := Normalize(Document{
		KeyProjects: "not a list",
		KeyTheme:    []any{"nope"},
	})

	assert.Equal(t, []any{}, doc[KeyProjects])
	assert.IsType(t, map[string]any{}, doc[KeyTheme])
}

func TestValidateOrder(t *testing.T) {
	doc := Normalize(Document{
		KeyCustomSections: []any{map[string]any{"id": "talks"}},
	})

	require.NoError(t, ValidateOrder(doc, []string{"custom:talks", "hero"}))

	err := ValidateOrder(doc, []string{"hero", "custom:missing"})
	assert.True(t, errors.Is(err, ErrUnknownSection))

	err = ValidateOrder(doc, []string{"hero", "hero"})
	assert.True(t, errors.Is(err, ErrDuplicateSection))
}

func TestPublicStripsMasterKey(t *testing.T) {
	doc := Normalize(Document{KeySettings: map[string]any{"masterKey": "s3cret"}})

	public := Public(doc)
	settings := public[KeySettings].(map[string]any)
	assert.NotContains(t, settings, "masterKey")
	assert.Equal(t, "s3cret", MasterKey(doc), "original must be untouched")
}

func TestMaskedAndPreserveMasterKey(t *testing.T) {
	prev := Normalize(Document{KeySettings: map[string]any{"masterKey": "s3cret"}})

	masked := Masked(prev)
	assert.Equal(t, MaskedSecret, masked[KeySettings].(map[string]any)["masterKey"])

	PreserveMasterKey(masked, prev)
	assert.Equal(t, "s3cret", MasterKey(masked))

	next := Clone(prev)
	next[KeySettings].(map[string]any)["masterKey"] = "rotated"
	PreserveMasterKey(next, prev)
	assert.Equal(t, "rotated", MasterKey(next))
}

func TestParseAndMarshal(t *testing.T) {
	doc, err := Parse([]byte(`{"hero":{"title":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, "x", doc[KeyHero].(map[string]any)["title"])

	empty, err := Parse(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = Parse([]byte(`{broken`))
	assert.True(t, errors.Is(err, ErrInvalidDocument))

	raw, err := Marshal(Document{"b": 1, "a": 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2,"b":1}`, string(raw))
}

func TestKeepMasterKey(t *testing.T) {
	patch := Document{KeySettings: map[string]any{"siteTitle": "New title"}}
	kept := KeepMasterKey(patch, false)
	assert.Equal(t, MaskedSecret, kept[KeySettings].(map[string]any)["masterKey"])
	_, touched := patch[KeySettings].(map[string]any)["masterKey"]
	assert.False(t, touched)

	cleared := KeepMasterKey(Document{KeySettings: map[string]any{"masterKey": ""}}, false)
	assert.Equal(t, "", cleared[KeySettings].(map[string]any)["masterKey"])

	heroOnly := KeepMasterKey(Document{KeyHero: map[string]any{}}, false)
	assert.NotContains(t, heroOnly, KeySettings)

	whole := KeepMasterKey(Document{KeyHero: map[string]any{}}, true)
	assert.Equal(t, MaskedSecret, whole[KeySettings].(map[string]any)["masterKey"])

	assert.Nil(t, KeepMasterKey(nil, true))
}
