package service

import (
	"fmt"
	"testing"

	"github.com/folio/internal/content"
	"github.com/folio/internal/db"
	"github.com/stretchr/testify/require"
)

func newTestVersionService(t *testing.T, name string) (*ContentVersionService, *ContentService) {
	t.Helper()
	gdb := setupServiceTestDB(t, name)
	contents := NewContentService(gdb)
	return NewContentVersionService(gdb, contents), contents
}

func heroTitle(doc content.Document) any {
	return doc[content.KeyHero].(map[string]any)["title"]
}

func TestContentVersionService_DraftStartsFromLiveDocument(t *testing.T) {
	svc, contents := newTestVersionService(t, "version-draft")

	_, _, err := contents.Patch(content.Document{content.KeyHero: map[string]any{"title": "Live"}}, 1)
	require.NoError(t, err)

	draft, err := svc.Draft(1)
	require.NoError(t, err)
	require.Equal(t, db.VersionStatusDraft, draft.Version.Status)
	require.Equal(t, 1, draft.Version.Version)
	require.Equal(t, "Live", heroTitle(draft.Document))

	again, err := svc.Draft(1)
	require.NoError(t, err)
	require.Equal(t, draft.Version.ID, again.Version.ID)
}

func TestContentVersionService_DraftEditsDoNotTouchPublicContent(t *testing.T) {
	svc, contents := newTestVersionService(t, "version-isolated")

	_, changed, err := svc.PatchDraft(content.Document{content.KeyHero: map[string]any{"title": "Draft only"}}, 1)
	require.NoError(t, err)
	require.Equal(t, []string{content.KeyHero}, changed)

	public, err := contents.Public()
	require.NoError(t, err)
	require.NotEqual(t, "Draft only", heroTitle(public))

	replaced := content.Default()
	replaced[content.KeyTheme].(map[string]any)["mode"] = "light"
	snapshot, changed, err := svc.SaveDraft(replaced, 1)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{content.KeyHero, content.KeyTheme}, changed)
	require.Equal(t, "light", snapshot.Document[content.KeyTheme].(map[string]any)["mode"])
}

func TestContentVersionService_PublishAndPublicView(t *testing.T) {
	svc, contents := newTestVersionService(t, "version-publish")

	_, _, err := svc.PatchDraft(content.Document{content.KeyHero: map[string]any{"title": "First"}}, 1)
	require.NoError(t, err)

	published, err := svc.Publish(1, "initial")
	require.NoError(t, err)
	require.Equal(t, 1, published.Version)
	require.True(t, published.Active)
	require.NotNil(t, published.PublishedAt)

	public, err := contents.Public()
	require.NoError(t, err)
	require.Equal(t, "First", heroTitle(public))

	live, err := contents.Get()
	require.NoError(t, err)
	require.Equal(t, "First", heroTitle(live.Document))

	// 发布之后继续编辑草稿不影响已发布的内容
	_, _, err = svc.PatchDraft(content.Document{content.KeyHero: map[string]any{"title": "Second"}}, 1)
	require.NoError(t, err)
	public, err = contents.Public()
	require.NoError(t, err)
	require.Equal(t, "First", heroTitle(public))

	draft, err := svc.Draft(1)
	require.NoError(t, err)
	require.Equal(t, 2, draft.Version.Version)

	second, err := svc.Publish(1, "")
	require.NoError(t, err)
	require.Equal(t, 2, second.Version)

	history, err := svc.History(1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, second.ID, history[0].ID)
	require.True(t, history[0].Active)

	public, err = contents.Public()
	require.NoError(t, err)
	require.Equal(t, "Second", heroTitle(public))

	var active int64
	require.NoError(t, svc.db.Model(&db.ContentVersion{}).
		Where("status = ? AND active = ?", db.VersionStatusPublished, true).
		Count(&active).Error)
	require.EqualValues(t, 1, active)
}

func TestContentVersionService_PublishPrunesHistory(t *testing.T) {
	svc, _ := newTestVersionService(t, "version-prune")

	for i := 1; i <= db.MaxPublishedVersions+3; i++ {
		_, _, err := svc.PatchDraft(content.Document{content.KeyHero: map[string]any{"title": fmt.Sprintf("v%d", i)}}, 1)
		require.NoError(t, err)
		_, err = svc.Publish(1, "")
		require.NoError(t, err)
	}

	history, err := svc.History(0)
	require.NoError(t, err)
	require.Len(t, history, db.MaxPublishedVersions)
	require.Equal(t, db.MaxPublishedVersions+3, history[0].Version)
	require.Equal(t, 4, history[len(history)-1].Version)

	var total int64
	require.NoError(t, svc.db.Unscoped().Model(&db.ContentVersion{}).
		Where("status = ?", db.VersionStatusPublished).
		Count(&total).Error)
	require.EqualValues(t, db.MaxPublishedVersions, total)
}

func TestContentVersionService_Rollback(t *testing.T) {
	svc, contents := newTestVersionService(t, "version-rollback")

	_, _, err := svc.PatchDraft(content.Document{content.KeyHero: map[string]any{"title": "Original"}}, 1)
	require.NoError(t, err)
	first, err := svc.Publish(1, "")
	require.NoError(t, err)

	_, _, err = svc.PatchDraft(content.Document{content.KeyHero: map[string]any{"title": "Mistake"}}, 1)
	require.NoError(t, err)
	_, err = svc.Publish(1, "")
	require.NoError(t, err)

	restored, err := svc.Rollback(first.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 3, restored.Version)
	require.NotNil(t, restored.SourceVersionID)
	require.Equal(t, first.ID, *restored.SourceVersionID)
	require.Equal(t, "rollback to v1", restored.Note)

	public, err := contents.Public()
	require.NoError(t, err)
	require.Equal(t, "Original", heroTitle(public))

	draft, err := svc.Draft(1)
	require.NoError(t, err)
	require.Equal(t, "Original", heroTitle(draft.Document))
	require.Equal(t, 4, draft.Version.Version)

	_, err = svc.Rollback(9999, 1)
	require.ErrorIs(t, err, ErrVersionNotFound)
}

func TestContentVersionService_LiveEditsSurvivePublish(t *testing.T) {
	svc, contents := newTestVersionService(t, "version-live-edit")

	_, _, err := svc.PatchDraft(content.Document{content.KeyTheme: map[string]any{"mode": "light"}}, 1)
	require.NoError(t, err)
	_, err = svc.Publish(1, "")
	require.NoError(t, err)

	// 草稿里尚未发布的修改
	_, _, err = svc.PatchDraft(content.Document{content.KeyAbout: map[string]any{"heading": "Draft heading"}}, 1)
	require.NoError(t, err)

	_, changed, err := contents.Patch(content.Document{content.KeyHero: map[string]any{"title": "Live edit"}}, 1)
	require.NoError(t, err)
	require.Equal(t, []string{content.KeyHero}, changed)

	public, err := contents.Public()
	require.NoError(t, err)
	require.Equal(t, "Live edit", heroTitle(public))

	draft, err := svc.Draft(1)
	require.NoError(t, err)
	require.Equal(t, "Live edit", heroTitle(draft.Document))
	require.Equal(t, "Draft heading", draft.Document[content.KeyAbout].(map[string]any)["heading"])

	_, err = svc.Publish(1, "")
	require.NoError(t, err)

	public, err = contents.Public()
	require.NoError(t, err)
	require.Equal(t, "Live edit", heroTitle(public))
	require.Equal(t, "Draft heading", public[content.KeyAbout].(map[string]any)["heading"])
	require.Equal(t, "light", public[content.KeyTheme].(map[string]any)["mode"])
}
