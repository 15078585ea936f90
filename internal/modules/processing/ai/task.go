package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/tracepaper/core/internal/models"
	"github.com/tracepaper/core/internal/pkg/taskqueue"
	"gorm.io/gorm"
)

const (
	TaskTypeItemSummary = "summary:item"

	backfillBatchSize = 20
)

// SummaryTaskPayload is the queue payload for one item summary.
type SummaryTaskPayload struct {
	ItemID string `json:"item_id"`
}

// EnqueueItemSummary schedules summary generation for an item via the redis
// task queue. Requires the queue; callers without redis summarize inline.
func (s *Service) EnqueueItemSummary(ctx context.Context, itemID string) (*taskqueue.Task, error) {
	if s.taskSvc == nil {
		return nil, errors.New("task queue is not configured")
	}

	payload := SummaryTaskPayload{ItemID: itemID}
	task, err := s.taskSvc.Enqueue(ctx, TaskTypeItemSummary, payload, itemID)
	if err != nil {
		return nil, err
	}

	if task.Status == taskqueue.TaskPending {
		go s.executeSummaryTask(context.Background(), task.ID, payload)
	}
	return task, nil
}

func (s *Service) executeSummaryTask(ctx context.Context, taskID string, payload SummaryTaskPayload) {
	s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")

	var item models.ContentItemModel
	if err := s.db.First(&item, "id = ?", payload.ItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, "content item not found")
			return
		}
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}

	summary, _, err := s.GenerateForItem(ctx, &item)
	if err != nil {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}

	s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, map[string]interface{}{
		"summary_id": summary.ID,
	}, "")
}

// BackfillSummaries enqueues summary tasks for items that have none yet.
// Returns how many tasks were scheduled.
func (s *Service) BackfillSummaries(ctx context.Context) (int, error) {
	if s.taskSvc == nil {
		return 0, nil
	}

	ids, err := s.unsummarizedItemIDs(backfillBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list unsummarized items: %w", err)
	}

	scheduled := 0
	for _, id := range ids {
		if _, err := s.EnqueueItemSummary(ctx, id); err != nil {
			return scheduled, err
		}
		scheduled++
	}
	return scheduled, nil
}
