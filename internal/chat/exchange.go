package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apierrors "github.com/diogo/detectchat/internal/errors"
	"github.com/diogo/detectchat/internal/models"
)

// Detector sends a prompt to the detection service
type Detector interface {
	Detect(ctx context.Context, prompt string) (*models.DetectResult, error)
}

// Exchange runs one detect call for sub and turns the outcome into a Reply.
// It never fails: errors become the fallback message and a log entry.
func Exchange(ctx context.Context, d Detector, logger zerolog.Logger, sub Submission) Reply {
	start := time.Now()

	result, err := d.Detect(ctx, sub.Prompt)
	if err == nil && result == nil {
		err = apierrors.NewParseError("empty result", "")
	}
	if err != nil {
		logger.Error().
			Err(err).
			Int("seq", sub.Seq).
			Int("prompt_len", len(sub.Prompt)).
			Int("status", apierrors.GetHTTPStatus(err)).
			Str("endpoint", apierrors.GetEndpoint(err)).
			Str("body", apierrors.GetResponseBody(err)).
			Bool("timeout", apierrors.IsTimeoutError(err)).
			Dur("elapsed", time.Since(start)).
			Msg("detect failed")
		return Reply{Seq: sub.Seq, Message: models.NewFailureMessage()}
	}

	event := logger.Debug().
		Int("seq", sub.Seq).
		Str("kind", result.Kind.String()).
		Dur("elapsed", time.Since(start))
	if result.Anomaly != "" {
		event = event.Str("anomaly", result.Anomaly)
	}
	event.Int("sensitive", len(result.Sensitive)).Msg("detect ok")

	return Reply{Seq: sub.Seq, Message: models.NewReplyMessage(result)}
}
