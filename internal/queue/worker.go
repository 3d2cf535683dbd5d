package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
)

func (j *Queue) HandleDistributePostTask(ctx context.Context, task *asynq.Task) error {
	var payload DistributePostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	_, err := j.ds.Publish(ctx, payload.PostID, payload.Platform)
	if err != nil {
		log.Printf("Error distributing post %d to %s: %v", payload.PostID, payload.Platform, err)

		// Retrying cannot fix a bad request or a missing account; only
		// transient upstream and refresh failures go back on the queue.
		switch errutil.KindOf(err) {
		case errutil.KindValidation, errutil.KindNotFound, errutil.KindNotConnected, errutil.KindConfiguration:
			return nil
		}
		return err
	}

	return nil
}
