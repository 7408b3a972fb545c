package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/clinicore/visit-api/internal/model"
)

type Service interface {
	SendVisitReceipt(ctx context.Context, to string, visit *model.Visit) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	logger zerolog.Logger
}

func NewSMTPService(cfg SMTPConfig, logger zerolog.Logger) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

func (s *smtpService) SendVisitReceipt(_ context.Context, to string, visit *model.Visit) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your visit receipt")
	m.SetBody("text/plain", receiptBody(visit))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send receipt: %w", err)
	}
	return nil
}

func receiptBody(visit *model.Visit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Visit %s on %s\n\n", visit.ID, visit.ScheduledDate.Format("2006-01-02"))
	for _, t := range visit.Treatments {
		fmt.Fprintf(&b, "%-30s x%d  %s\n", t.Name, t.Quantity, t.TotalPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\nPayment status: %s\n", visit.TotalAmount.StringFixed(2), visit.PaymentStatus)
	return b.String()
}
