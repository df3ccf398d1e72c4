package service

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/pkg/config"
	appErrors "github.com/tutorbase/booking-api/pkg/errors"
	"github.com/tutorbase/booking-api/pkg/export"
)

type exportSessionLister interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

const exportPageSize = 200

// ScheduleExport is a rendered schedule ready to stream to the client.
type ScheduleExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a tutor's booked schedule as CSV or PDF. Every
// rendered file is also archived on disk for support lookups.
type ExportService struct {
	sessions exportSessionLister
	store    fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	cfg      config.ExportConfig
	loc      *time.Location
}

// NewExportService constructs an ExportService. A nil store disables
// archiving.
func NewExportService(sessions exportSessionLister, store fileStorage, cfg config.ExportConfig, loc *time.Location, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 92
	}
	if cfg.ArchiveTTL <= 0 {
		cfg.ArchiveTTL = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		sessions: sessions,
		store:    store,
		csv:      csv,
		pdf:      pdf,
		logger:   logger,
		cfg:      cfg,
		loc:      loc,
	}
}

// TutorSchedule exports every session of one tutor inside [from, to].
func (s *ExportService) TutorSchedule(ctx context.Context, tutorID string, from, to time.Time, format string) (*ScheduleExport, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not precede from")
	}
	if to.Sub(from) > time.Duration(s.cfg.MaxRangeDays)*24*time.Hour {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("export range is capped at %d days", s.cfg.MaxRangeDays))
	}

	sessions, err := s.collect(ctx, tutorID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions for export")
	}

	dataset := s.buildDataset(sessions)

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		title := fmt.Sprintf("Schedule %s to %s", from.In(s.loc).Format("2006-01-02"), to.In(s.loc).Format("2006-01-02"))
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule export")
	}

	result := &ScheduleExport{
		Filename:    fmt.Sprintf("schedule_%s_%s.%s", from.In(s.loc).Format("20060102"), to.In(s.loc).Format("20060102"), format),
		ContentType: "text/csv",
		Data:        payload,
	}
	if format == ExportFormatPDF {
		result.ContentType = "application/pdf"
	}

	// Archive failures never fail the download itself.
	if s.store != nil {
		if _, aerr := s.store.Save(path.Join(tutorID, result.Filename), payload); aerr != nil {
			s.logger.Warn("failed to archive export",
				zap.String("tutor_id", tutorID),
				zap.Error(aerr))
		}
	}

	s.logger.Info("schedule exported",
		zap.String("tutor_id", tutorID),
		zap.String("format", format),
		zap.Int("sessions", len(sessions)))
	return result, nil
}

// CleanupArchive removes archived exports older than ttl. A ttl of zero or
// below falls back to the configured archive TTL.
func (s *ExportService) CleanupArchive(ttl time.Duration) ([]string, error) {
	if s.store == nil {
		return nil, nil
	}
	if ttl <= 0 {
		ttl = s.cfg.ArchiveTTL
	}
	return s.store.CleanupOlderThan(ttl)
}

// collect pages through the full range; exports ignore the API page cap.
func (s *ExportService) collect(ctx context.Context, tutorID string, from, to time.Time) ([]models.Session, error) {
	var all []models.Session
	for page := 1; ; page++ {
		batch, _, err := s.sessions.List(ctx, models.SessionFilter{
			TutorID:  tutorID,
			From:     &from,
			To:       &to,
			Page:     page,
			PageSize: exportPageSize,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < exportPageSize {
			return all, nil
		}
	}
}

func (s *ExportService) buildDataset(sessions []models.Session) export.Dataset {
	headers := []string{"Date", "Start", "End", "Duration (min)", "Student", "Status", "Trial", "Subscription"}
	rows := make([]map[string]string, 0, len(sessions))
	for _, sess := range sessions {
		start := sess.ScheduledAt.In(s.loc)
		end := sess.EndsAt().In(s.loc)

		subscription := ""
		if sess.SubscriptionID != nil {
			subscription = *sess.SubscriptionID
		}
		trial := ""
		if sess.IsTrial {
			trial = "yes"
		}

		rows = append(rows, map[string]string{
			"Date":           start.Format("2006-01-02"),
			"Start":          start.Format("15:04"),
			"End":            end.Format("15:04"),
			"Duration (min)": strconv.Itoa(sess.DurationMinutes),
			"Student":        sess.StudentName,
			"Status":         string(sess.Status),
			"Trial":          trial,
			"Subscription":   subscription,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
