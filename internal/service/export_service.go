package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/models"
	"github.com/timegrid-hq/timegrid-api/pkg/export"
	"github.com/timegrid-hq/timegrid-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type anomalyLister interface {
	GetAnomalies(ctx context.Context, tenantID string, filter models.AttendanceFilter) ([]models.AnomalySummary, int, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders anomaly listings into downloadable files with
// signed, expiring URLs.
type ExportService struct {
	anomalies anomalyLister
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(anomalies anomalyLister, fs fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		anomalies: anomalies,
		storage:   fs,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// ExportAnomalies renders the filtered anomalies and stores the file.
func (s *ExportService) ExportAnomalies(ctx context.Context, tenantID string, filter models.AttendanceFilter, format models.ExportFormat) (*ExportResult, error) {
	summaries, _, err := s.anomalies.GetAnomalies(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	var payload []byte
	title := fmt.Sprintf("Anomalies %s", time.Now().UTC().Format("2006-01-02"))
	switch format {
	case models.ExportCSV:
		payload, err = s.csv.Render(anomalyDataset(summaries))
	case models.ExportPDF:
		payload, err = s.pdf.Render(anomalyDataset(summaries), title)
	case models.ExportJSON:
		payload, err = json.MarshalIndent(summaries, "", "  ")
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("anomalies_%s_%s.%s", sanitizeFilename(tenantID), time.Now().UTC().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(tenantID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/anomalies/export/download?token=%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (tenantID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func anomalyDataset(summaries []models.AnomalySummary) export.Dataset {
	headers := []string{"Date", "Employee ID", "Type", "Anomaly", "Note", "Score", "Corrected"}
	rows := make([]map[string]string, 0, len(summaries))
	for _, s := range summaries {
		kind := ""
		if s.Record.AnomalyType != nil {
			kind = string(*s.Record.AnomalyType)
		}
		note := ""
		if s.Record.AnomalyNote != nil {
			note = *s.Record.AnomalyNote
		}
		rows = append(rows, map[string]string{
			"Date":        s.Record.Timestamp.UTC().Format(time.RFC3339),
			"Employee ID": s.Record.EmployeeID,
			"Type":        string(s.Record.Type),
			"Anomaly":     kind,
			"Note":        note,
			"Score":       fmt.Sprintf("%.1f", s.Score),
			"Corrected":   fmt.Sprintf("%t", s.Record.IsCorrected),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
