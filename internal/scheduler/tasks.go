package scheduler

import (
	"encoding/json"
	"fmt"

	"converzia_backend/internal/qualification/ports"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskContactCheck = "qualification.contact.check"

const TaskDeliveryRetry = "qualification.delivery.retry"

type ContactCheckPayload struct {
	LeadOfferID string `json:"leadOfferId"`
	Version     int    `json:"version"`
}

type DeliveryRetryPayload struct {
	LeadOfferID string `json:"leadOfferId"`
}

// contactCheckTaskID makes arming the same version twice a no-op.
func contactCheckTaskID(check ports.ContactCheck) string {
	return fmt.Sprintf("contact-check:%s:%d", check.LeadOfferID, check.Version)
}

func NewContactCheckTask(check ports.ContactCheck) (*asynq.Task, error) {
	data, err := json.Marshal(ContactCheckPayload{
		LeadOfferID: check.LeadOfferID.String(),
		Version:     check.Version,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskContactCheck, data, asynq.TaskID(contactCheckTaskID(check))), nil
}

func ParseContactCheckPayload(task *asynq.Task) (ports.ContactCheck, error) {
	var payload ContactCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ports.ContactCheck{}, err
	}
	id, err := uuid.Parse(payload.LeadOfferID)
	if err != nil {
		return ports.ContactCheck{}, err
	}
	return ports.ContactCheck{LeadOfferID: id, Version: payload.Version}, nil
}

func NewDeliveryRetryTask(leadOfferID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(DeliveryRetryPayload{LeadOfferID: leadOfferID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeliveryRetry, data), nil
}

func ParseDeliveryRetryPayload(task *asynq.Task) (uuid.UUID, error) {
	var payload DeliveryRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(payload.LeadOfferID)
}
