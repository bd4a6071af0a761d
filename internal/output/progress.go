package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/echolens/echolens/internal/visibility"
)

// ProgressPrinter writes a line per task state change, suitable for
// non-interactive terminals and logs.
type ProgressPrinter struct {
	W io.Writer

	mu   sync.Mutex
	last map[string]string
}

// Observe is a visibility.ProgressFunc.
func (p *ProgressPrinter) Observe(tasks []visibility.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last == nil {
		p.last = make(map[string]string, len(tasks))
	}

	done := 0
	for _, task := range tasks {
		if task.Status == visibility.TaskCompleted || task.Status == visibility.TaskError {
			done++
		}
		key := fmt.Sprintf("%s/%d/%s", task.Status, task.Retries, task.Error)
		if p.last[task.ID] == key {
			continue
		}
		p.last[task.ID] = key

		switch task.Status {
		case visibility.TaskPending:
			// Seeding emits every task as pending; stay quiet.
		case visibility.TaskInProgress:
			if task.Retries > 0 {
				fmt.Fprintf(p.W, "  [%d/%d] %s retrying (attempt %d): %s\n", done, len(tasks), task.Label, task.Retries+1, task.Error)
			} else {
				fmt.Fprintf(p.W, "  [%d/%d] %s started\n", done, len(tasks), task.Label)
			}
		case visibility.TaskCompleted:
			fmt.Fprintf(p.W, "  [%d/%d] %s done\n", done, len(tasks), task.Label)
		case visibility.TaskError:
			fmt.Fprintf(p.W, "  [%d/%d] %s failed: %s\n", done, len(tasks), task.Label, task.Error)
		}
	}
}
