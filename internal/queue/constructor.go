package queue

import (
	"github.com/oakcrestrealty/socialcast/internal/service"
)

type Queue struct {
	ds service.DistributionService
}

func NewQueue(ds service.DistributionService) *Queue {
	return &Queue{
		ds: ds,
	}
}

const TaskTypeDistributePost = "social:distribute"

// DistributePostPayload carries one post/platform pair; a multi-platform
// distribution enqueues one task per platform.
type DistributePostPayload struct {
	PostID   int64  `json:"post_id"`
	Platform string `json:"platform"`
}
