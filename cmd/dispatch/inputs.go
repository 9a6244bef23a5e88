package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tasknet/dispatch/internal/types"
)

// readJSONFile decodes a JSON input file into the given destination.
func readJSONFile(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// loadTasks reads and validates a task batch.
func loadTasks(path string) ([]*types.Task, error) {
	var tasks []*types.Task
	if err := readJSONFile(path, &tasks); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("task %s: %w", t.ID, err)
		}
	}
	return tasks, nil
}

// loadWorkers reads and validates a worker pool.
func loadWorkers(path string) ([]*types.Worker, error) {
	var workers []*types.Worker
	if err := readJSONFile(path, &workers); err != nil {
		return nil, err
	}
	for _, w := range workers {
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("worker %s: %w", w.ID, err)
		}
	}
	return workers, nil
}

// loadDeliverables reads a deliverable batch.
func loadDeliverables(path string) ([]*types.Deliverable, error) {
	var deliverables []*types.Deliverable
	if err := readJSONFile(path, &deliverables); err != nil {
		return nil, err
	}
	for _, d := range deliverables {
		if d.ID == "" {
			return nil, fmt.Errorf("every deliverable needs an id")
		}
	}
	return deliverables, nil
}
