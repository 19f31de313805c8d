package service

import (
	"context"
	"encoding/json"
	"testing"

	"tether-data/internal/domain"
	"tether-data/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type adminFixture struct {
	*entryFixture
	svc *AdminService
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	ef := newEntryFixture(t)
	return &adminFixture{
		entryFixture: ef,
		svc: NewAdminService(ef.tethers, ef.templates, ef.logs, ef.reference,
			ef.contacts, zap.NewNop()),
	}
}

func (f *adminFixture) seedDataset(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	tpl := plainTemplate()
	f.bind(t, "demo123", tpl)

	_, err := f.entryFixture.svc.Submit(ctx, domain.Anonymous(), "demo123",
		map[string]string{"Inspector": "Kim"}, nil)
	require.NoError(t, err)

	auraTpl := stopwatchTemplate()
	f.seedTemplate(t, auraTpl)
	_, err = f.lifecycleFixture.svc.Assign(ctx, domain.Anonymous(), "aura-1", auraTpl.TemplateID, nil)
	require.NoError(t, err)

	u1 := domain.Principal{UserID: "u1", Kind: domain.PrincipalAuthenticated}
	require.NoError(t, f.logs.AppendEntry(ctx,
		domain.LogStream{Scope: domain.ScopeAura, TetherID: "aura-1", OwnerID: u1.UserID},
		&domain.LogEntry{EntryID: store.NewPushIDGenerator().Next(), TetherID: "aura-1", SubmittedBy: u1.UserID}))

	require.NoError(t, f.reference.UpsertContent(ctx,
		&domain.ReferenceContent{TetherID: "aura-1", Title: "Manual"}))

	_, err = NewContentService(f.reference, f.contacts, zap.NewNop()).
		CreateContact(ctx, adminPrincipal, &domain.VendorContact{
			TetherID: "demo123",
			Type:     domain.ContactVendor,
			Name:     "Acme Corp",
			Email:    "support@acme.example",
		})
	require.NoError(t, err)
}

func TestExport_RequiresAdmin(t *testing.T) {
	f := newAdminFixture(t)

	_, err := f.svc.Export(context.Background(), domain.Anonymous())
	require.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestExportImport_RoundTrip(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.seedDataset(t)

	bundle, err := f.svc.Export(ctx, adminPrincipal)
	require.NoError(t, err)
	require.NotNil(t, bundle.Metadata)
	require.Equal(t, ExportVersion, bundle.Metadata.Version)
	require.Equal(t, adminPrincipal.UserID, bundle.Metadata.ExportedBy)
	require.Len(t, bundle.Tethers, 2)
	require.Len(t, bundle.GlobalTemplates, 2)
	require.Len(t, bundle.SharedLogs["demo123"], 1)
	require.Len(t, bundle.Users["u1"]["aura-1"], 1)
	require.Contains(t, bundle.ReferenceContent, "aura-1")
	require.Len(t, bundle.VendorContacts["demo123"], 1)

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)

	// 导入到全新的数据集
	g := newAdminFixture(t)
	require.NoError(t, g.svc.Import(ctx, adminPrincipal, raw))

	imported, err := g.svc.Export(ctx, adminPrincipal)
	require.NoError(t, err)
	require.Len(t, imported.Tethers, 2)
	require.Len(t, imported.SharedLogs["demo123"], 1)
	require.Len(t, imported.Users["u1"]["aura-1"], 1)
}

func TestImport_UnknownTopLevelKeyRejected(t *testing.T) {
	f := newAdminFixture(t)

	err := f.svc.Import(context.Background(), adminPrincipal,
		[]byte(`{"tethers":{},"shred_logs":{}}`))
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))
}

func TestImport_BadTemplateRejected(t *testing.T) {
	f := newAdminFixture(t)

	err := f.svc.Import(context.Background(), adminPrincipal,
		[]byte(`{"global_templates":{"t1":{"template_id":"t1","name":"","scope":"terra"}}}`))
	require.Error(t, err)
}

func TestImport_ReplacesExistingData(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.seedDataset(t)

	// 空数据集导入 == 清空
	require.NoError(t, f.svc.Import(ctx, adminPrincipal, []byte(`{}`)))

	bundle, err := f.svc.Export(ctx, adminPrincipal)
	require.NoError(t, err)
	require.Empty(t, bundle.Tethers)
	require.Empty(t, bundle.SharedLogs)
	require.Empty(t, bundle.Users)
}

func TestRawSection_GetAndPut(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.seedDataset(t)

	v, err := f.svc.GetSection(ctx, adminPrincipal, SectionTethers)
	require.NoError(t, err)
	tethers, ok := v.(map[string]*domain.Tether)
	require.True(t, ok)
	require.Contains(t, tethers, "demo123")

	_, err = f.svc.GetSection(ctx, adminPrincipal, "bogus")
	require.Error(t, err)

	require.NoError(t, f.svc.PutSection(ctx, adminPrincipal, SectionTethers, []byte(`{}`)))
	v, err = f.svc.GetSection(ctx, adminPrincipal, SectionTethers)
	require.NoError(t, err)
	require.Empty(t, v.(map[string]*domain.Tether))
}

func TestUsage(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.seedDataset(t)

	report, err := f.svc.Usage(ctx, adminPrincipal)
	require.NoError(t, err)
	require.Equal(t, 2, report.TetherCount)
	require.Equal(t, 2, report.TemplateCount)
	require.Equal(t, 1, report.EntryCount)

	byName := map[string]TemplateUsage{}
	for _, u := range report.Templates {
		byName[u.TemplateName] = u
	}
	require.Equal(t, 1, byName["Site Visit"].TetherCount)
	require.Equal(t, 1, byName["Site Visit"].EntryCount)
	require.Equal(t, 1, byName["Work Session"].TetherCount)
	require.Equal(t, 0, byName["Work Session"].EntryCount)
}
