package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventcrm/internal/models"
	"eventcrm/internal/pdf"
)

// DepartmentProgress counts one assignment's tasks by status.
type DepartmentProgress struct {
	AssignmentID   int64                     `json:"assignment_id"`
	DepartmentID   int64                     `json:"department_id"`
	DepartmentName string                    `json:"department_name"`
	ByStatus       map[models.TaskStatus]int `json:"by_status"`
	Total          int                       `json:"total"`
	Completed      int                       `json:"completed"`
}

type EventProgress struct {
	EventID     int64                `json:"event_id"`
	Name        string               `json:"name"`
	StartDate   time.Time            `json:"start_date"`
	Departments []DepartmentProgress `json:"departments"`
	Total       int                  `json:"total"`
	Completed   int                  `json:"completed"`
	// Cancelled tasks are left out of the percentage.
	PercentDone int `json:"percent_done"`
}

type ReportService interface {
	Progress(ctx context.Context, eventID int64) (*EventProgress, error)
	// SummaryPDF renders the same document management receives by email.
	SummaryPDF(ctx context.Context, eventID int64) (string, []byte, error)
}

type reportService struct {
	events EventService
	docs   pdf.Generator
}

func NewReportService(events EventService, docs pdf.Generator) ReportService {
	return &reportService{events: events, docs: docs}
}

func (s *reportService) Progress(ctx context.Context, eventID int64) (*EventProgress, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	out := &EventProgress{
		EventID:     event.ID,
		Name:        event.Name,
		StartDate:   event.StartDate,
		Departments: make([]DepartmentProgress, 0, len(event.Departments)),
	}
	cancelled := 0
	for _, a := range event.Departments {
		dp := DepartmentProgress{
			AssignmentID: a.ID,
			DepartmentID: a.DepartmentID,
			ByStatus:     map[models.TaskStatus]int{},
		}
		if a.Department != nil {
			dp.DepartmentName = a.Department.Name
		}
		for _, t := range a.Tasks {
			dp.ByStatus[t.Status]++
			dp.Total++
			switch t.Status {
			case models.StatusCompleted:
				dp.Completed++
			case models.StatusCancelled:
				cancelled++
			}
		}
		out.Total += dp.Total
		out.Completed += dp.Completed
		out.Departments = append(out.Departments, dp)
	}
	if live := out.Total - cancelled; live > 0 {
		out.PercentDone = out.Completed * 100 / live
	}
	return out, nil
}

func (s *reportService) SummaryPDF(ctx context.Context, eventID int64) (string, []byte, error) {
	if s.docs == nil {
		return "", nil, errors.New("summary pdf: no document generator configured")
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return "", nil, err
	}
	var tasks []models.Task
	for _, a := range event.Departments {
		tasks = append(tasks, a.Tasks...)
	}
	path, content, err := s.docs.GenerateEventSummary(summaryData(event, event.Departments, tasks))
	if err != nil {
		return "", nil, fmt.Errorf("summary pdf for event %d: %w", eventID, err)
	}
	return path, content, nil
}
