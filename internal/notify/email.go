package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// Notifier delivers tracking events to product watchers.
type Notifier interface {
	NotifyPriceChange(ctx context.Context, toEmail string, product *models.TrackedProduct, oldPrice, newPrice float64, insight, reviewSummary string) error
	NotifyProductAdded(ctx context.Context, toEmail string, product *models.TrackedProduct) error
}

// EmailNotifier sends notifications over SMTP. With no SMTP host configured
// every call is a logged no-op, so the tracker works without mail setup.
type EmailNotifier struct {
	config *config.Config
	logger *logrus.Logger
}

// NewEmailNotifier creates an SMTP-backed notifier.
func NewEmailNotifier(cfg *config.Config) *EmailNotifier {
	return &EmailNotifier{
		config: cfg,
		logger: utils.GetLogger(),
	}
}

func (n *EmailNotifier) enabled() bool {
	smtpCfg := n.config.Notify.SMTP
	return smtpCfg.Host != "" && smtpCfg.From != ""
}

var priceChangeTemplate = template.Must(template.New("price_change").Parse(`<html>
<body>
<h2>{{.Headline}}</h2>
<p><strong>{{.Name}}</strong> is now <strong>{{.NewPrice}}</strong> (was {{.OldPrice}}).</p>
{{if .Insight}}<p><em>{{.Insight}}</em></p>{{end}}
{{if .ReviewSummary}}<p>{{.ReviewSummary}}</p>{{end}}
<p><a href="{{.URL}}">View product</a></p>
</body>
</html>`))

var productAddedTemplate = template.Must(template.New("product_added").Parse(`<html>
<body>
<h2>Now tracking: {{.Name}}</h2>
<p>You will receive an email whenever the price changes.</p>
<p><a href="{{.URL}}">View product</a></p>
</body>
</html>`))

// NotifyPriceChange emails one watcher about a recorded price change.
func (n *EmailNotifier) NotifyPriceChange(ctx context.Context, toEmail string, product *models.TrackedProduct, oldPrice, newPrice float64, insight, reviewSummary string) error {
	if !n.enabled() {
		n.logger.WithField("to", toEmail).Debug("SMTP not configured, skipping price change notification")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := priceChangeSubject(product.Name, oldPrice, newPrice)

	var body bytes.Buffer
	err := priceChangeTemplate.Execute(&body, map[string]string{
		"Headline":      subject,
		"Name":          product.Name,
		"OldPrice":      formatPrice(oldPrice, product.Currency),
		"NewPrice":      formatPrice(newPrice, product.Currency),
		"Insight":       insight,
		"ReviewSummary": reviewSummary,
		"URL":           product.URL,
	})
	if err != nil {
		return fmt.Errorf("failed to render price change email: %w", err)
	}

	if err := n.send(toEmail, subject, body.String()); err != nil {
		return err
	}

	n.logger.WithFields(logrus.Fields{
		"to":        toEmail,
		"product":   product.Name,
		"old_price": oldPrice,
		"new_price": newPrice,
	}).Info("Price change notification sent")
	return nil
}

// NotifyProductAdded emails a watcher that tracking has started.
func (n *EmailNotifier) NotifyProductAdded(ctx context.Context, toEmail string, product *models.TrackedProduct) error {
	if !n.enabled() {
		n.logger.WithField("to", toEmail).Debug("SMTP not configured, skipping product added notification")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("Now tracking: %s", product.Name)

	var body bytes.Buffer
	err := productAddedTemplate.Execute(&body, map[string]string{
		"Name": product.Name,
		"URL":  product.URL,
	})
	if err != nil {
		return fmt.Errorf("failed to render product added email: %w", err)
	}

	if err := n.send(toEmail, subject, body.String()); err != nil {
		return err
	}

	n.logger.WithFields(logrus.Fields{
		"to":      toEmail,
		"product": product.Name,
	}).Info("Product added notification sent")
	return nil
}

// send delivers one HTML message. smtp.SendMail upgrades to STARTTLS when
// the server offers it.
func (n *EmailNotifier) send(to, subject, htmlBody string) error {
	smtpCfg := n.config.Notify.SMTP
	addr := fmt.Sprintf("%s:%d", smtpCfg.Host, smtpCfg.Port)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", smtpCfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if smtpCfg.Username != "" {
		auth = smtp.PlainAuth("", smtpCfg.Username, smtpCfg.Password, smtpCfg.Host)
	}

	if err := smtp.SendMail(addr, auth, smtpCfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func priceChangeSubject(name string, oldPrice, newPrice float64) string {
	if newPrice < oldPrice {
		return fmt.Sprintf("Price dropped: %s", name)
	}
	return fmt.Sprintf("Price increased: %s", name)
}

func formatPrice(price float64, currency string) string {
	if currency == "" || currency == "USD" {
		return fmt.Sprintf("$%.2f", price)
	}
	return fmt.Sprintf("%.2f %s", price, currency)
}
