package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
)

// Export formats understood by the export service.
const (
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
	FormatICS  = "ics"
)

var contentTypes = map[string]string{
	FormatCSV:  "text/csv",
	FormatPDF:  "application/pdf",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatICS:  "text/calendar",
}

var timetableHeaders = []string{"ID", "Type", "Course Code", "Course Name", "Day", "Slot", "Start", "End", "Room", "Instructor", "Assigned To"}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type calendarRenderer interface {
	Render(name string, events []export.Event) ([]byte, error)
}

type sectionViewer interface {
	Section(ctx context.Context, sectionID string) (*dto.SectionView, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders the published timetable as CSV, PDF, XLSX or per-section iCalendar.
type ExportService struct {
	source    timetableSnapshot
	sections  sectionViewer
	renderers map[string]datasetRenderer
	calendar  calendarRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with the default renderers.
func NewExportService(source timetableSnapshot, sections sectionViewer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		source:   source,
		sections: sections,
		renderers: map[string]datasetRenderer{
			FormatCSV:  export.NewCSVExporter(),
			FormatPDF:  export.NewPDFExporter(),
			FormatXLSX: export.NewXLSXExporter(),
		},
		calendar: export.NewCalendarExporter(""),
		logger:   logger,
	}
}

// Export renders the whole published timetable in the requested format. An empty format means CSV.
func (s *ExportService) Export(ctx context.Context, query dto.ExportQuery) (*ExportFile, error) {
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = FormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", query.Format))
	}
	tt, _, err := s.source.Snapshot()
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(TimetableDataset(tt))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable export")
	}
	s.logger.Debug("timetable exported", zap.String("format", format), zap.Int("bytes", len(body)))
	return &ExportFile{
		Filename:    fmt.Sprintf("timetable_%s.%s", shortRunID(tt.RunID), format),
		ContentType: contentTypes[format],
		Body:        body,
	}, nil
}

// SectionCalendar renders a section's week as recurring iCalendar events
// anchored on the week the timetable was generated.
func (s *ExportService) SectionCalendar(ctx context.Context, sectionID string) (*ExportFile, error) {
	tt, _, err := s.source.Snapshot()
	if err != nil {
		return nil, err
	}
	view, err := s.sections.Section(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	events := make([]export.Event, 0, len(view.Entries))
	for _, entry := range view.Entries {
		start, end, err := entryWindow(tt.GeneratedAt, entry)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid slot window")
		}
		events = append(events, export.Event{
			UID:         fmt.Sprintf("%s-%s-%s@timetable", tt.RunID, entry.AssignmentID, view.SectionID),
			Summary:     fmt.Sprintf("%s %s", entry.CourseCode, entry.CourseName),
			Location:    entry.RoomID,
			Description: fmt.Sprintf("%s with %s", entry.Kind, instructorLabel(entry)),
			Start:       start,
			End:         end,
			Weekly:      true,
		})
	}

	body, err := s.calendar.Render(fmt.Sprintf("Timetable %s", view.SectionID), events)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render section calendar")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s.%s", view.SectionID, FormatICS),
		ContentType: contentTypes[FormatICS],
		Body:        body,
	}, nil
}

// TimetableDataset flattens the timetable into export rows.
func TimetableDataset(tt *models.Timetable) export.Dataset {
	rows := make([]map[string]string, 0, len(tt.Assignments))
	for _, a := range tt.Assignments {
		window := tt.Grid.Window(a.Slot.Slot)
		rows = append(rows, map[string]string{
			"ID":          a.ID,
			"Type":        string(a.Kind),
			"Course Code": a.CourseCode,
			"Course Name": a.CourseName,
			"Day":         tt.Grid.DayName(a.Slot.Day),
			"Slot":        fmt.Sprintf("%d", a.Slot.Slot),
			"Start":       window.Start,
			"End":         window.End,
			"Room":        a.RoomID,
			"Instructor":  instructorName(a),
			"Assigned To": a.TargetID,
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Timetable seed %d", tt.Seed),
		Headers: timetableHeaders,
		Rows:    rows,
	}
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// entryWindow resolves an entry to concrete times on the first matching
// weekday on or after anchor. Unknown day names fall back to the day index.
func entryWindow(anchor time.Time, entry dto.ViewEntry) (time.Time, time.Time, error) {
	base := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
	offset := entry.DayIndex
	if wd, ok := weekdays[strings.ToLower(entry.Day)]; ok {
		offset = (int(wd) - int(base.Weekday()) + 7) % 7
	}
	day := base.AddDate(0, 0, offset)

	start, err := clockOffset(entry.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := clockOffset(entry.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return day.Add(start), day.Add(end), nil
}

func clockOffset(raw string) (time.Duration, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func instructorName(a models.Assignment) string {
	if a.InstructorName != "" {
		return a.InstructorName
	}
	return a.InstructorID
}

func instructorLabel(entry dto.ViewEntry) string {
	if entry.Instructor != "" {
		return entry.Instructor
	}
	return entry.InstructorID
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "na"
	}
	return id
}
