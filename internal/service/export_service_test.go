package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/models"
	"github.com/timegrid-hq/timegrid-api/pkg/export"
	"github.com/timegrid-hq/timegrid-api/pkg/storage"
)

type anomalyListerStub struct{}

func (anomalyListerStub) GetAnomalies(ctx context.Context, tenantID string, filter models.AttendanceFilter) ([]models.AnomalySummary, int, error) {
	late := models.AnomalyLate
	note := "arrived 25 minutes late"
	return []models.AnomalySummary{
		{
			Record: models.AttendanceRecord{
				ID:          "rec-1",
				TenantID:    tenantID,
				EmployeeID:  "emp-1",
				Timestamp:   time.Date(2026, 3, 2, 8, 25, 0, 0, time.UTC),
				Type:        models.PunchIn,
				HasAnomaly:  true,
				AnomalyType: &late,
				AnomalyNote: &note,
			},
			Score: 7.5,
		},
	}, 1, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(anomalyListerStub{}, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportAnomaliesCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.ExportAnomalies(context.Background(), "tenant-1", models.AttendanceFilter{}, models.ExportCSV)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/anomalies/export/download?token=")

	path := store.Path(result.RelativePath)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportAnomaliesPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.ExportAnomalies(context.Background(), "tenant-1", models.AttendanceFilter{}, models.ExportPDF)
	require.NoError(t, err)
	require.Equal(t, models.ExportPDF, result.Format)

	path := filepath.Clean(store.Path(result.RelativePath))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportAnomaliesUnsupportedFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	_, err := svc.ExportAnomalies(context.Background(), "tenant-1", models.AttendanceFilter{}, models.ExportFormat("xlsx"))
	require.Error(t, err)
}

func TestExportTokenRoundTrip(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	result, err := svc.ExportAnomalies(context.Background(), "tenant-1", models.AttendanceFilter{}, models.ExportJSON)
	require.NoError(t, err)

	tenantID, relPath, expiresAt, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	require.Equal(t, "tenant-1", tenantID)
	require.Equal(t, result.RelativePath, relPath)
	require.WithinDuration(t, result.ExpiresAt, expiresAt, time.Second)

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func TestExportCleanupRemovesExpired(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.ExportAnomalies(context.Background(), "tenant-1", models.AttendanceFilter{}, models.ExportCSV)
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(result.RelativePath), old, old))

	removed, err := svc.Cleanup(24 * time.Hour)
	require.NoError(t, err)
	require.Len(t, removed, 1)

	_, err = os.Stat(store.Path(result.RelativePath))
	require.True(t, os.IsNotExist(err))
}
