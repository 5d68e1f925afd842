package nats

import (
	"context"

	"github.com/tunogya/gametrend/pkg/model"
	"github.com/tunogya/gametrend/pkg/pipeline"
)

// Publisher sends training progress and reports of one run
type Publisher struct {
	client *Client
	runID  string
}

// NewPublisher creates a publisher for runID
func NewPublisher(client *Client, runID string) *Publisher {
	return &Publisher{client: client, runID: runID}
}

// PublishProgress sends one epoch record
func (p *Publisher) PublishProgress(ctx context.Context, pr model.Progress) error {
	return p.client.PublishJSON(ctx, SubjectProgress, NewProgressMessage(p.runID, pr))
}

// PublishReport sends the evaluation summary
func (p *Publisher) PublishReport(ctx context.Context, rep *pipeline.Report) error {
	return p.client.PublishJSON(ctx, SubjectReport, NewReportMessage(rep))
}
