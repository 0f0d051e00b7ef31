package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/taskboard-api/config"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
	"github.com/oksasatya/taskboard-api/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env, cfg.LogLevel)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}

	var sender mailer.Sender
	if cfg.MailSendEnabled {
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
			logger.Fatal("Mailgun not configured")
		}
		sender = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender, cfg.MailgunAPIBase)
	} else {
		logger.Warn("MAIL_SEND_ENABLED=false; jobs are logged, not sent")
		sender = mailer.LogSender{Logger: logger}
	}

	conn, ch, err := helpers.DialQueue(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		logger.WithError(err).Fatal("amqp connect")
	}
	defer func() { _ = conn.Close() }()
	defer func() { _ = ch.Close() }()

	// prefetch bounds the jobs held in memory at once
	if err := ch.Qos(16, 0, false); err != nil {
		logger.WithError(err).Fatal("amqp qos")
	}
	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).Fatal("amqp consume")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			handle(ctx, logger, sender, msg)
		}
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker listening")
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		_ = ch.Cancel("", false)
	case <-done:
		logger.Warn("delivery channel closed")
		return
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

// handle settles one delivery. A job that already failed once is dropped
// instead of requeued so a bad address cannot spin forever.
func handle(ctx context.Context, logger *logrus.Logger, sender mailer.Sender, msg amqp.Delivery) {
	outcome, err := mailer.Process(context.WithoutCancel(ctx), msg.Body, sender)
	if outcome == mailer.Requeue && msg.Redelivered {
		outcome = mailer.Drop
	}

	entry := logger.WithFields(logrus.Fields{"outcome": outcome.String(), "redelivered": msg.Redelivered})
	switch outcome {
	case mailer.Ack:
		entry.Debug("email sent")
		_ = msg.Ack(false)
	case mailer.Requeue:
		entry.WithError(err).Warn("email send failed")
		_ = msg.Nack(false, true)
	default:
		entry.WithError(err).Error("email job dropped")
		_ = msg.Nack(false, false)
	}
}
