package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/models"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
	"github.com/bogdanivan12/odes/pkg/export"
	"github.com/bogdanivan12/odes/pkg/storage"
)

type timetableViewer interface {
	GroupView(ctx context.Context, scheduleID, groupID string) (*models.TimetableView, error)
}

type exportScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

type entryLister interface {
	ListEntries(ctx context.Context, scheduleID string, filter models.TimetableFilter) ([]models.TimetableEntry, error)
}

// ExportService renders completed schedules into downloadable CSV or PDF files.
// Download links are signed and expire; a cleanup loop removes stale files.
type ExportService struct {
	timetables timetableViewer
	schedules  exportScheduleReader
	entries    entryLister
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	store      *storage.LocalStorage
	signer     *storage.SignedURLSigner
	baseURL    string
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(timetables timetableViewer, schedules exportScheduleReader, entries entryLister, store *storage.LocalStorage, signer *storage.SignedURLSigner, baseURL string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		timetables: timetables,
		schedules:  schedules,
		entries:    entries,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		store:      store,
		signer:     signer,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Export renders a completed schedule, optionally narrowed to one group's view,
// saves the file and returns a signed download URL.
func (s *ExportService) Export(ctx context.Context, scheduleID string, req dto.ExportScheduleRequest) (*dto.ExportScheduleResponse, error) {
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if schedule.Status != models.ScheduleStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "schedule is not completed")
	}

	var entries []models.TimetableEntry
	if req.GroupID != "" {
		view, err := s.timetables.GroupView(ctx, scheduleID, req.GroupID)
		if err != nil {
			return nil, err
		}
		entries = view.Entries
	} else {
		all, err := s.entries.ListEntries(ctx, scheduleID, models.TimetableFilter{})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entries")
		}
		entries = positionEntries(all, schedule.TimeGridConfig)
	}

	dataset := timetableDataset(entries)

	var payload []byte
	switch req.Format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, "Timetable "+scheduleID)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := exportFilename(scheduleID, req.GroupID, req.Format)
	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(scheduleID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	return &dto.ExportScheduleResponse{
		URL:       s.baseURL + "/downloads/" + token,
		Format:    req.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownload validates a signed token and opens the referenced file.
func (s *ExportService) ResolveDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, relPath, nil
}

// StartCleanup removes expired export files until the context is cancelled.
func (s *ExportService) StartCleanup(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.store.CleanupOlderThan(ttl)
				if err != nil {
					s.logger.Sugar().Warnw("export cleanup failed", "error", err)
					continue
				}
				if len(deleted) > 0 {
					s.logger.Sugar().Infow("expired exports removed", "count", len(deleted))
				}
			}
		}
	}()
}

var timetableHeaders = []string{"day", "slot", "course", "type", "group", "professor", "room", "duration_slots", "active_weeks"}

func timetableDataset(entries []models.TimetableEntry) export.Dataset {
	sorted := append([]models.TimetableEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartTimeslot != sorted[j].StartTimeslot {
			return sorted[i].StartTimeslot < sorted[j].StartTimeslot
		}
		return sorted[i].ActivityID < sorted[j].ActivityID
	})

	rows := make([]map[string]string, 0, len(sorted))
	for _, e := range sorted {
		professor := ""
		if e.ProfessorName != nil {
			professor = *e.ProfessorName
		}
		weeks := make([]string, 0, len(e.ActiveWeeks))
		for _, w := range e.ActiveWeeks {
			weeks = append(weeks, strconv.FormatInt(w, 10))
		}
		rows = append(rows, map[string]string{
			"day":            strconv.Itoa(e.Day),
			"slot":           strconv.Itoa(e.Slot),
			"course":         e.CourseName,
			"type":           string(e.ActivityType),
			"group":          e.GroupName,
			"professor":      professor,
			"room":           e.RoomName,
			"duration_slots": strconv.Itoa(e.DurationSlots),
			"active_weeks":   strings.Join(weeks, " "),
		})
	}
	return export.Dataset{Headers: timetableHeaders, Rows: rows}
}

func exportFilename(scheduleID, groupID, format string) string {
	scope := "full"
	if groupID != "" {
		scope = "group-" + groupID
	}
	return fmt.Sprintf("%s/%s-%d.%s", scheduleID, scope, time.Now().UnixNano(), format)
}
