package relations

import (
	"context"
	"errors"
	"log"

	"github.com/imadgeboyega/orbit-backend/internal/notify"
)

var (
	ErrCannotRequestSelf = errors.New("cannot send connection request to yourself")
	ErrNotReceiver       = errors.New("only the receiver can respond to a request")
	ErrAlreadyResolved   = errors.New("request has already been responded to")
)

type Service interface {
	SendConnectionRequest(ctx context.Context, senderID, receiverID int64) error
	AcceptRequest(ctx context.Context, requestID, userID int64) error
	DeclineRequest(ctx context.Context, requestID, userID int64) error
	CountConnections(ctx context.Context, userID int64) (int, error)
	ListEdges(ctx context.Context, userID int64) ([]Edge, error)
	RelatedUserIDs(ctx context.Context, userID int64) ([]int64, error)
}

type service struct {
	repo     Repository
	notifier notify.Notifier
}

func NewService(repo Repository, notifier notify.Notifier) Service {
	return &service{repo: repo, notifier: notifier}
}

// SendConnectionRequest creates (or re-finds) the pending relation and
// notifies the receiver. Notification failures are logged and swallowed: the
// request itself is the durable outcome.
func (s *service) SendConnectionRequest(ctx context.Context, senderID, receiverID int64) error {
	if senderID == receiverID {
		return ErrCannotRequestSelf
	}

	rel, err := s.repo.CreateRequest(ctx, senderID, receiverID)
	if err != nil {
		return err
	}

	if rel.Status != StatusPending {
		// Already accepted or declined earlier, nothing to notify.
		return nil
	}

	sender, err := s.repo.GetUserContact(ctx, senderID)
	if err != nil {
		log.Printf("relations: sender contact lookup failed for %d: %v", senderID, err)
		return nil
	}
	receiver, err := s.repo.GetUserContact(ctx, receiverID)
	if err != nil || receiver.Email == nil {
		return nil
	}

	if err := s.notifier.NotifyConnectionRequest(ctx, *receiver.Email, sender.DisplayName); err != nil {
		log.Printf("relations: notification failed for request %d: %v", rel.ID, err)
	}

	return nil
}

func (s *service) AcceptRequest(ctx context.Context, requestID, userID int64) error {
	return s.respond(ctx, requestID, userID, StatusAccepted)
}

func (s *service) DeclineRequest(ctx context.Context, requestID, userID int64) error {
	return s.respond(ctx, requestID, userID, StatusDeclined)
}

func (s *service) respond(ctx context.Context, requestID, userID int64, status string) error {
	rel, err := s.repo.GetRelation(ctx, requestID)
	if err != nil {
		return err
	}
	if rel.ReceiverID != userID {
		return ErrNotReceiver
	}
	if rel.Status != StatusPending {
		return ErrAlreadyResolved
	}

	return s.repo.UpdateStatus(ctx, requestID, status)
}

func (s *service) CountConnections(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountAccepted(ctx, userID)
}

func (s *service) ListEdges(ctx context.Context, userID int64) ([]Edge, error) {
	return s.repo.ListEdges(ctx, userID)
}

// RelatedUserIDs flattens the user's edges (pending and accepted, either
// direction) to the ids on the other end.
func (s *service) RelatedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
	edges, err := s.repo.ListEdges(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.OtherID)
	}
	return ids, nil
}
