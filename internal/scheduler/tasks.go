package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskSolicitationEmail delivers the quotation order email to one supplier.
const TaskSolicitationEmail = "quotation.solicitation.email"

// TaskQuotationExpirySweep cancels submitted quotations whose validity window
// passed. Enqueued periodically.
const TaskQuotationExpirySweep = "quotation.expiry.sweep"

type SolicitationEmailPayload struct {
	QuotationSupplierID string `json:"quotationSupplierId"`
}

func NewSolicitationEmailTask(payload SolicitationEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSolicitationEmail, data), nil
}

func ParseSolicitationEmailPayload(task *asynq.Task) (SolicitationEmailPayload, error) {
	var payload SolicitationEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SolicitationEmailPayload{}, err
	}
	return payload, nil
}

func NewQuotationExpirySweepTask() *asynq.Task {
	return asynq.NewTask(TaskQuotationExpirySweep, nil)
}
