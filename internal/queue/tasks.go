package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeAPIKeySweep = "apikey:sweep"
)

type APIKeySweepPayload struct {
	RequestedAt int64 `json:"requested_at"`
}

func NewAPIKeySweepTask() (*asynq.Task, error) {
	data, err := json.Marshal(APIKeySweepPayload{RequestedAt: time.Now().Unix()})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeAPIKeySweep, data), nil
}
