package email

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type GomailProvider struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewGomailProvider(cfg Config) (*GomailProvider, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("email provider requires host and from address")
	}
	return &GomailProvider{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		fromName: cfg.FromName,
	}, nil
}

func (p *GomailProvider) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.from, p.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return p.dialer.DialAndSend(m)
}
