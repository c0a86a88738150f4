package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"movie-reservation/internal/data/repository"
	"movie-reservation/pkg/broker"
	"movie-reservation/pkg/mailer"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// BindingKeys are the routing keys the notification queue subscribes to
var BindingKeys = []string{RoutingReservationCreated, RoutingReservationCancelled}

type Notifier struct {
	users  repository.UserRepository
	mailer mailer.Mailer
	log    *zap.Logger
}

func NewNotifier(users repository.UserRepository, m mailer.Mailer, log *zap.Logger) *Notifier {
	return &Notifier{
		users:  users,
		mailer: m,
		log:    log.With(zap.String("component", "notifier")),
	}
}

// Handle is a broker.HandlerFunc sending one mail per reservation event
func (n *Notifier) Handle(ctx context.Context, d amqp.Delivery) error {
	var ev ReservationEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		return fmt.Errorf("decode %s: %v: %w", d.RoutingKey, err, broker.ErrSkipMessage)
	}

	var (
		subject string
		tmpl    = confirmationTmpl
	)
	switch d.RoutingKey {
	case RoutingReservationCreated:
		subject = "Reservation confirmed: " + ev.Code
	case RoutingReservationCancelled:
		subject = "Reservation cancelled: " + ev.Code
		tmpl = cancellationTmpl
	default:
		return fmt.Errorf("unexpected routing key %q: %w", d.RoutingKey, broker.ErrSkipMessage)
	}

	user, err := n.users.FindByID(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not found: %w", ev.UserID, broker.ErrSkipMessage)
	}

	body, err := render(tmpl, user.Username, ev)
	if err != nil {
		return fmt.Errorf("render %s mail: %v: %w", d.RoutingKey, err, broker.ErrSkipMessage)
	}

	if err := n.mailer.Send(ctx, user.Email, subject, body); err != nil {
		return err
	}

	n.log.Info("Reservation notification sent",
		zap.String("routing_key", d.RoutingKey),
		zap.String("code", ev.Code),
		zap.String("user_id", ev.UserID.String()),
	)
	return nil
}
