package appservice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/astra/internal/apperr"
	"github.com/starford/astra/internal/command"
	"github.com/starford/astra/internal/intent"
	"github.com/starford/astra/internal/models"
	"github.com/starford/astra/internal/storage"
	"github.com/starford/astra/internal/testutil"
)

func newService(t *testing.T) (*Service, storage.Store, *MockEmitter) {
	t.Helper()
	store := testutil.TestStore(t)
	em := &MockEmitter{}
	return New(store, WithEmitter(em), WithLogger(testutil.DiscardLogger())), store, em
}

func TestSubmit_AddPage(t *testing.T) {
	svc, store, em := newService(t)
	ctx := context.Background()
	bp := testutil.TestApp(t, store, "Shop")

	reply, err := svc.Submit(ctx, bp.ID, "add page About", models.HomePageID)
	require.NoError(t, err)
	assert.True(t, reply.Applied)
	assert.Equal(t, intent.ModeDirect, reply.Intent.Mode)
	assert.Equal(t, []string{"Home", "About"}, reply.Blueprint.PageNames())
	assert.Equal(t, reply.Blueprint.Pages[1].ID, reply.ActivePageID)
	assert.Equal(t, `Added page "About".`, reply.Message)
	assert.Equal(t, []string{EventAppUpdated}, em.Names())

	stored, err := store.Get(ctx, bp.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Pages, 2)
}

func TestSubmit_Vague(t *testing.T) {
	svc, store, em := newService(t)
	bp := testutil.TestApp(t, store, "Shop")

	reply, err := svc.Submit(context.Background(), bp.ID, "add", "")
	require.NoError(t, err)
	assert.False(t, reply.Applied)
	assert.Equal(t, intent.ModeVague, reply.Intent.Mode)
	assert.Equal(t, intent.VagueMessage, reply.Message)
	assert.NotEmpty(t, reply.Intent.Suggestions)
	assert.Equal(t, models.HomePageID, reply.ActivePageID)
	assert.Empty(t, em.Names())
}

func TestSubmit_Unknown(t *testing.T) {
	svc, store, _ := newService(t)
	bp := testutil.TestApp(t, store, "Shop")

	reply, err := svc.Submit(context.Background(), bp.ID, "xyzzy quux", "")
	require.NoError(t, err)
	assert.False(t, reply.Applied)
	assert.Equal(t, intent.ModeUnknown, reply.Intent.Mode)
	assert.Equal(t, intent.UnknownMessage, reply.Message)
}

func TestSubmit_PageNotFound(t *testing.T) {
	svc, store, em := newService(t)
	bp := testutil.TestApp(t, store, "Shop", "About")

	reply, err := svc.Submit(context.Background(), bp.ID, "rename page Blog to News", "")
	require.NoError(t, err)
	assert.False(t, reply.Applied)
	assert.Equal(t, `Page "Blog" not found.`, reply.Message)
	assert.Equal(t, bp.Pages, reply.Blueprint.Pages)
	assert.Empty(t, em.Names())
}

func TestSubmit_LastPage(t *testing.T) {
	svc, store, _ := newService(t)
	bp := testutil.TestApp(t, store, "Shop")

	reply, err := svc.Submit(context.Background(), bp.ID, "delete page Home", models.HomePageID)
	require.NoError(t, err)
	assert.False(t, reply.Applied)
	assert.Equal(t, "Cannot delete the last page.", reply.Message)
	assert.Len(t, reply.Blueprint.Pages, 1)
}

func TestSubmit_DeleteActiveMovesToFirst(t *testing.T) {
	svc, store, _ := newService(t)
	bp := testutil.TestApp(t, store, "Shop", "About")

	reply, err := svc.Submit(context.Background(), bp.ID, "delete page about", bp.Pages[1].ID)
	require.NoError(t, err)
	assert.True(t, reply.Applied)
	assert.Equal(t, models.HomePageID, reply.ActivePageID)
}

func TestSubmit_UnknownApp(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Submit(context.Background(), "app_missing", "add page About", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSubmit_SerializesCycles(t *testing.T) {
	svc, store, _ := newService(t)
	bp := testutil.TestApp(t, store, "Shop")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Submit(context.Background(), bp.ID, "add page About", "")
		}()
	}
	wg.Wait()

	got, err := store.Get(context.Background(), bp.ID)
	require.NoError(t, err)
	assert.Len(t, got.Pages, 11)
}

func TestApply_StructuredCommand(t *testing.T) {
	svc, store, _ := newService(t)
	bp := testutil.TestApp(t, store, "Shop")

	reply, err := svc.Apply(context.Background(), bp.ID, command.NewRenamePage("HOME", "Start"), "")
	require.NoError(t, err)
	assert.True(t, reply.Applied)
	assert.Equal(t, "Start", reply.Blueprint.Pages[0].Name)
	assert.Equal(t, "/start", reply.Blueprint.Pages[0].Path)
	assert.Equal(t, command.List{command.NewRenamePage("HOME", "Start")}, reply.Intent.Commands)
}

func TestApply_NilCommand(t *testing.T) {
	svc, store, _ := newService(t)
	bp := testutil.TestApp(t, store, "Shop")
	_, err := svc.Apply(context.Background(), bp.ID, nil, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestAnalyze_UsesAppContext(t *testing.T) {
	svc, store, _ := newService(t)
	bp := testutil.TestApp(t, store, "Shop", "Settings", "About", "Contact")

	res, err := svc.Analyze(context.Background(), bp.ID, "hm")
	require.NoError(t, err)
	require.Len(t, res.Suggestions, 2)
	assert.Equal(t, "add page Dashboard", res.Suggestions[0].Command)
	assert.Equal(t, "rename page Home to Dashboard", res.Suggestions[1].Command)
}

func TestCreateApp_DefaultNames(t *testing.T) {
	svc, _, em := newService(t)
	ctx := context.Background()

	a, err := svc.CreateApp(ctx, "")
	require.NoError(t, err)
	b, err := svc.CreateApp(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "New App 1", a.Name)
	assert.Equal(t, "New App 2", b.Name)
	assert.Equal(t, []string{EventAppCreated, EventAppCreated}, em.Names())
	assert.Equal(t, AppEvent{ID: a.ID, Name: "New App 1"}, em.Events[0].Data)
}

func TestRenameApp(t *testing.T) {
	svc, store, _ := newService(t)
	bp := testutil.TestApp(t, store, "Shop")

	got, err := svc.RenameApp(context.Background(), bp.ID, "  Storefront ")
	require.NoError(t, err)
	assert.Equal(t, "Storefront", got.Name)

	_, err = svc.RenameApp(context.Background(), bp.ID, "   ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestSetPreviewMode(t *testing.T) {
	svc, store, _ := newService(t)
	bp := testutil.TestApp(t, store, "Shop")

	got, err := svc.SetPreviewMode(context.Background(), bp.ID, models.PreviewMobile)
	require.NoError(t, err)
	assert.Equal(t, models.NewLayout(models.PreviewMobile), got.Layout)

	_, err = svc.SetPreviewMode(context.Background(), bp.ID, "tablet")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestDeleteApp(t *testing.T) {
	svc, store, em := newService(t)
	bp := testutil.TestApp(t, store, "Shop")

	require.NoError(t, svc.DeleteApp(context.Background(), bp.ID))
	assert.Equal(t, []string{EventAppDeleted}, em.Names())

	err := svc.DeleteApp(context.Background(), bp.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	list, err := svc.ListApps(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestApply_BlankName(t *testing.T) {
	svc, store, em := newService(t)
	bp := testutil.TestApp(t, store, "Shop")
	_, err := svc.Apply(context.Background(), bp.ID, command.NewAddPage("  "), "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, em.Names())
}
