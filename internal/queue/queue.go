package queue

import (
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

func EnqueueDistribution(asynqClient *asynq.Client, payload DistributePostPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDistributePost, taskPayload)

	_, err = asynqClient.Enqueue(task, asynq.MaxRetry(3))
	if err != nil {
		return err
	}

	log.Printf("Task scheduled: %+v", payload)
	return nil
}
