package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-portal/config"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-auth-portal/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue, 16)
	if err != nil {
		logger.Fatalf("amqp: %v", err)
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries()
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	w := &worker{Sender: mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender), Logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			switch w.Handle(ctx, msg.Body) {
			case outcomeSent:
				_ = msg.Ack(false)
			case outcomeRetry:
				_ = msg.Nack(false, true)
			default:
				_ = msg.Nack(false, false)
			}
		}
		close(done)
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker listening")
	<-stop
	logger.Info("shutting down...")
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeRetry
	outcomeDrop
)

var errEmptyEmail = errors.New("job renders to an empty email")

// worker renders queued EmailJobs and hands them to the Sender.
type worker struct {
	Sender mailer.Sender
	Logger *logrus.Logger
}

// render fills subject and bodies from the template when the job names one.
func render(job *mailer.EmailJob) error {
	helpers.EnsureRecipientAndEmail(job)
	if job.Template != "" {
		helpers.LocalizeTimes(job.Data)
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("render %s: %w", job.Template, err)
		}
		job.Subject, job.Text, job.HTML = s, t, h
	}
	if job.Subject == "" {
		job.Subject = helpers.SubjectFor(job)
	}
	if job.To == "" || (job.Text == "" && job.HTML == "") {
		return errEmptyEmail
	}
	return nil
}

// Handle processes one message. Malformed or unrenderable jobs are dropped;
// delivery failures are retried.
func (w *worker) Handle(ctx context.Context, body []byte) outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Logger.WithError(err).Warn("bad message")
		return outcomeDrop
	}
	log := w.Logger.WithFields(logrus.Fields{"template": job.Template, "to": job.To})
	if err := render(&job); err != nil {
		log.WithError(err).Error("render email failed")
		return outcomeDrop
	}
	if err := w.Sender.Send(ctx, job.To, job.Subject, job.Text, job.HTML); err != nil {
		log.WithError(err).Warn("send email failed")
		return outcomeRetry
	}
	log.Info("email sent")
	return outcomeSent
}
