package service

import (
	"bytes"
	"context"
	"errors"
	"fitdesk/backoffice/internal/domain"
	"fitdesk/backoffice/internal/metrics"
	"fitdesk/backoffice/internal/planner"
	"fitdesk/backoffice/internal/storage"
	"fmt"
	"path"
	"sort"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ExportFormat selects the rendering of a template export.
type ExportFormat string

const (
	ExportICS  ExportFormat = "ics"
	ExportXLSX ExportFormat = "xlsx"
)

const (
	icsContentType  = "text/calendar; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// PeriodsSheet is the worksheet written by the XLSX export.
	PeriodsSheet = "Periodos"
	dateLayout   = "2006-01-02"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrNothingToExport   = errors.New("template has no ranges to export")
)

// ExportResult points at an uploaded export.
type ExportResult struct {
	Key         string
	URL         string
	Format      ExportFormat
	ContentType string
	ExpiresAt   time.Time
}

type ExportService interface {
	ExportTemplate(ctx context.Context, trainerID, templateID primitive.ObjectID, format ExportFormat, start time.Time) (*ExportResult, error)
}

type exportService struct {
	templates TemplateService
	files     storage.FileStorage
	keyPrefix string
	urlExpiry time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService wires the export renderer to template lookup and object storage.
func NewExportService(templates TemplateService, files storage.FileStorage, keyPrefix string, urlExpiry time.Duration, logger *zap.Logger) ExportService {
	if urlExpiry <= 0 {
		urlExpiry = storage.DefaultPresignedURLExpiry
	}
	return &exportService{
		templates: templates,
		files:     files,
		keyPrefix: keyPrefix,
		urlExpiry: urlExpiry,
		logger:    logger,
		now:       time.Now,
	}
}

// ExportTemplate renders the template's ranges as calendar entries starting
// at start (day 1), uploads the file and returns a presigned link to it.
func (s *exportService) ExportTemplate(ctx context.Context, trainerID, templateID primitive.ObjectID, format ExportFormat, start time.Time) (*ExportResult, error) {
	tpl, err := s.templates.GetTemplate(ctx, trainerID, templateID)
	if err != nil {
		return nil, err
	}
	if len(tpl.Ranges) == 0 {
		return nil, ErrNothingToExport
	}

	var (
		body        []byte
		contentType string
	)
	switch format {
	case ExportICS:
		body = RenderICS(tpl, start, s.now())
		contentType = icsContentType
	case ExportXLSX:
		body, err = RenderXLSX(tpl, start)
		if err != nil {
			return nil, fmt.Errorf("render xlsx: %w", err)
		}
		contentType = xlsxContentType
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	key := path.Join(s.keyPrefix, trainerID.Hex(), templateID.Hex(), uuid.NewString()+"."+string(format))
	if err := s.files.PutObject(ctx, key, contentType, bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	url, err := s.files.GeneratePresignedDownloadURL(ctx, key, s.urlExpiry)
	if err != nil {
		// An export nobody can download is garbage.
		if derr := s.files.DeleteObject(ctx, key); derr != nil {
			s.logger.Warn("cleanup export", zap.String("key", key), zap.Error(derr))
		}
		return nil, fmt.Errorf("presign export: %w", err)
	}

	metrics.TemplateExports.WithLabelValues(string(format)).Inc()
	s.logger.Info("template exported",
		zap.String("template_id", templateID.Hex()),
		zap.String("format", string(format)),
		zap.Int("ranges", len(tpl.Ranges)),
		zap.Int("bytes", len(body)))

	return &ExportResult{
		Key:         key,
		URL:         url,
		Format:      format,
		ContentType: contentType,
		ExpiresAt:   s.now().Add(s.urlExpiry),
	}, nil
}

// exportRow is a range placed on the calendar.
type exportRow struct {
	rangeID   string
	name      string
	startWeek int
	startDow  int
	endWeek   int
	endDow    int
	startDay  int
	endDay    int
	first     time.Time
	last      time.Time
}

// exportRows orders the ranges by start day and resolves their dates.
func exportRows(tpl *domain.Template, start time.Time) []exportRow {
	day1 := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	rows := make([]exportRow, 0, len(tpl.Ranges))
	for _, r := range tpl.Ranges {
		sd := planner.WeekDayToIndex(r.StartWeek, r.StartDayOfWeek)
		ed := planner.WeekDayToIndex(r.EndWeek, r.EndDayOfWeek)
		name := r.Name
		if name == "" {
			name = planner.DefaultPeriodName(sd)
		}
		rows = append(rows, exportRow{
			rangeID:   r.ID.Hex(),
			name:      name,
			startWeek: r.StartWeek,
			startDow:  r.StartDayOfWeek,
			endWeek:   r.EndWeek,
			endDow:    r.EndDayOfWeek,
			startDay:  sd,
			endDay:    ed,
			first:     day1.AddDate(0, 0, sd-1),
			last:      day1.AddDate(0, 0, ed-1),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].startDay < rows[j].startDay })
	return rows
}

// RenderICS writes one all-day event per range. DTEND is exclusive.
func RenderICS(tpl *domain.Template, start, stamp time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//fitdesk//backoffice//ES")
	cal.SetXWRCalName(tpl.Name)

	for _, row := range exportRows(tpl, start) {
		event := cal.AddEvent(row.rangeID + "@" + tpl.ID.Hex())
		event.SetDtStampTime(stamp.UTC())
		event.SetSummary(row.name)
		event.SetDescription(fmt.Sprintf("%s: semana %d día %d a semana %d día %d",
			tpl.Name, row.startWeek, row.startDow, row.endWeek, row.endDow))
		event.SetAllDayStartAt(row.first)
		event.SetAllDayEndAt(row.last.AddDate(0, 0, 1))
	}
	return []byte(cal.Serialize())
}

// RenderXLSX writes the ranges to the "Periodos" sheet, one row each.
func RenderXLSX(tpl *domain.Template, start time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PeriodsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := []string{"Nombre", "Semana inicio", "Día inicio", "Semana fin", "Día fin", "Día plan inicio", "Día plan fin", "Fecha inicio", "Fecha fin"}
	if err := f.SetSheetRow(PeriodsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(PeriodsSheet, "A1", "I1", bold)
	}
	_ = f.AutoFilter(PeriodsSheet, "A1:I1", nil)

	for i, row := range exportRows(tpl, start) {
		values := []interface{}{
			row.name, row.startWeek, row.startDow, row.endWeek, row.endDow,
			row.startDay, row.endDay,
			row.first.Format(dateLayout), row.last.Format(dateLayout),
		}
		cell := "A" + strconv.Itoa(i+2)
		if err := f.SetSheetRow(PeriodsSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(PeriodsSheet, "A", "A", 28)
	_ = f.SetColWidth(PeriodsSheet, "B", "I", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
