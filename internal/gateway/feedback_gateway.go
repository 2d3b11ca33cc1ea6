package gateway

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FeedbackRequest packages the rated question/answer pair together with
// the user's sentiment and free-text comment.
type FeedbackRequest struct {
	FeedbackType string `json:"feedbackType" validate:"required,oneof=positive negative"`
	FeedbackText string `json:"feedbackText"`
	FeedbackTo   string `json:"feedbackTo" validate:"required"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
}

type IFeedbackGateway interface {
	Submit(ctx context.Context, request FeedbackRequest) error
}

type feedbackGateway struct {
	client   *Client
	validate *validator.Validate
}

func NewFeedbackGateway(client *Client) IFeedbackGateway {
	return &feedbackGateway{
		client:   client,
		validate: validator.New(),
	}
}

// Submit posts the feedback record. Callers fire-and-forget: a failure is
// logged upstream and never blocks the chat flow.
func (g *feedbackGateway) Submit(ctx context.Context, request FeedbackRequest) error {
	if err := g.validate.Struct(request); err != nil {
		return fmt.Errorf("invalid feedback request: %w", err)
	}

	var res struct {
		Data string `json:"data"`
	}
	if err := g.client.postJSON(ctx, "/api/ingest_feedback", request, &res); err != nil {
		return fmt.Errorf("submit feedback: %w", err)
	}
	return nil
}
