package mailer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
	mailtpl "github.com/oksasatya/go-ddd-identity/pkg/mailer/templates"
)

// Outcome tells the consumer loop what to do with a delivery.
type Outcome int

const (
	Ack Outcome = iota
	Requeue
	Drop
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	default:
		return "drop"
	}
}

const (
	claimPrefix     = "email:job:"
	defaultClaimTTL = 24 * time.Hour
	sendTimeout     = 15 * time.Second
)

// Worker renders and sends queued email jobs. With Redis set, a job ID is
// claimed before sending so a redelivered job is not mailed twice.
type Worker struct {
	Sender   Sender
	Redis    *redis.Client
	ClaimTTL time.Duration
	Logger   *logrus.Logger
}

func NewWorker(s Sender, rdb *redis.Client, logger *logrus.Logger) *Worker {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &Worker{Sender: s, Redis: rdb, ClaimTTL: defaultClaimTTL, Logger: logger}
}

// Process handles one message body.
func (w *Worker) Process(ctx context.Context, body []byte) Outcome {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Logger.WithError(err).Warn("bad email message")
		return Drop
	}
	if job.To == "" {
		w.Logger.WithField("job_id", job.ID).Warn("email job without recipient")
		return Drop
	}
	log := w.Logger.WithFields(logrus.Fields{"job_id": job.ID, "template": job.Template})

	claimed := false
	if w.Redis != nil && job.ID != "" {
		ok, err := helpers.RedisClaim(ctx, w.Redis, claimPrefix+job.ID, w.ClaimTTL)
		switch {
		case err != nil:
			log.WithError(err).Warn("redis claim failed; sending without dedupe")
		case !ok:
			log.Info("email job already handled")
			return Ack
		default:
			claimed = true
		}
	}
	release := func() {
		if claimed {
			if err := helpers.RedisDel(ctx, w.Redis, claimPrefix+job.ID); err != nil {
				log.WithError(err).Warn("redis release failed")
			}
		}
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		if !mailtpl.Known(job.Template) {
			log.Warn("unknown email template")
			release()
			return Drop
		}
		job.ensureRecipient()
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			log.WithError(err).Error("render failed")
			release()
			return Drop
		}
		subject, text, html = s, t, h
	}

	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := w.Sender.Send(c, job.To, subject, text, html); err != nil {
		log.WithError(err).Error("send failed")
		release()
		return Requeue
	}
	log.Info("email sent")
	return Ack
}
