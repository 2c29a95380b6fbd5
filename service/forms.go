package service

import (
	"context"

	"github.com/agrosite/agrosite/store"
)

// FormService accepts public form submissions. Each submission is stored
// together with an outbox message in one transaction, so a stored record
// always has a pending delivery and delivery can never lose a submission.
type FormService struct {
	store  store.Store
	nudger Nudger
}

// SubmitContact stores m and queues its operator email.
func (s *FormService) SubmitContact(ctx context.Context, m *store.ContactMessage) (*store.OutboxMessage, error) {
	var out store.OutboxMessage
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.ContactMessages().Create(ctx, m); err != nil {
			return err
		}
		out = store.OutboxMessage{Kind: store.OutboxContactMessage, RefID: m.ID}
		return tx.Outbox().Enqueue(ctx, &out)
	})
	if err != nil {
		return nil, err
	}
	s.nudge()
	return &out, nil
}

// SubmitJobApplication stores a and queues its operator email.
func (s *FormService) SubmitJobApplication(ctx context.Context, a *store.JobApplication) (*store.OutboxMessage, error) {
	var out store.OutboxMessage
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.JobApplications().Create(ctx, a); err != nil {
			return err
		}
		out = store.OutboxMessage{Kind: store.OutboxJobApplication, RefID: a.ID}
		return tx.Outbox().Enqueue(ctx, &out)
	})
	if err != nil {
		return nil, err
	}
	s.nudge()
	return &out, nil
}

func (s *FormService) nudge() {
	if s.nudger != nil {
		s.nudger.Nudge()
	}
}

func (s *FormService) ListContacts(ctx context.Context) ([]store.ContactMessage, error) {
	return s.store.ContactMessages().List(ctx)
}

func (s *FormService) ListJobApplications(ctx context.Context) ([]store.JobApplication, error) {
	return s.store.JobApplications().List(ctx)
}

// Deliveries lists outbox messages, filtered by status when it is not empty.
func (s *FormService) Deliveries(ctx context.Context, status store.OutboxStatus) ([]store.OutboxMessage, error) {
	return s.store.Outbox().List(ctx, status)
}
