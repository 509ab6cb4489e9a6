package services

import (
	"context"
	"errors"
	"fmt"

	"eventcrm/internal/models"
	"eventcrm/internal/repositories"
)

type ReminderService interface {
	ListByEvent(ctx context.Context, eventID int64) ([]models.Reminder, error)
	// Delete removes a reminder that has not been sent yet.
	Delete(ctx context.Context, id int64) error
}

type reminderService struct {
	store *repositories.Store
}

func NewReminderService(store *repositories.Store) ReminderService {
	return &reminderService{store: store}
}

func (s *reminderService) ListByEvent(ctx context.Context, eventID int64) ([]models.Reminder, error) {
	if _, err := s.store.Events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrEventNotFound, eventID)
		}
		return nil, err
	}
	reminders, err := s.store.Reminders.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	return reminders, nil
}

func (s *reminderService) Delete(ctx context.Context, id int64) error {
	err := s.store.Reminders.DeletePending(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrReminderNotPending):
		return fmt.Errorf("%w: id=%d", ErrReminderAlreadySent, id)
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("%w: id=%d", ErrReminderNotFound, id)
	}
	return err
}
