package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
)

// DBFailureSink writes dead tasks to task_failure_logs
type DBFailureSink struct {
	logs repositories.TaskFailureLogStore
}

// NewDBFailureSink creates a new failure sink
func NewDBFailureSink(logs repositories.TaskFailureLogStore) *DBFailureSink {
	return &DBFailureSink{logs: logs}
}

// RecordFailure stores the task arguments, the final error and a trace made
// of the error chain followed by the attempt history
func (s *DBFailureSink) RecordFailure(ctx context.Context, task *Task, err error) error {
	args, mErr := json.Marshal(task.Args)
	if mErr != nil {
		return mErr
	}
	kwargs := map[string]interface{}{
		"retries":    task.Retries,
		"eta":        task.ETA,
		"created_at": task.CreatedAt,
	}
	for k, v := range task.Kwargs {
		kwargs[k] = v
	}
	kw, mErr := json.Marshal(kwargs)
	if mErr != nil {
		return mErr
	}

	entry := &models.TaskFailureLog{
		TaskID:       task.ID,
		TaskName:     task.Name,
		Args:         datatypes.JSON(args),
		Kwargs:       datatypes.JSON(kw),
		ErrorMessage: err.Error(),
		Traceback:    traceback(err, task.History),
	}
	if cErr := s.logs.Create(ctx, entry); cErr != nil {
		return fmt.Errorf("failed to write failure log: %w", cErr)
	}
	return nil
}

func traceback(err error, history []string) string {
	var b strings.Builder
	depth := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(&b, "%s%T: %v\n", strings.Repeat("  ", depth), e, e)
		depth++
	}
	if len(history) > 0 {
		b.WriteString("attempts:\n")
		for _, h := range history {
			b.WriteString("  " + h + "\n")
		}
	}
	return b.String()
}
