package main

import (
	"research-workers/internal/common/camunda"
	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"
	"research-workers/internal/research/pipeline"
	"research-workers/pkg/registry"

	aq "research-workers/internal/workers/research/answer-question"
	ept "research-workers/internal/workers/research/extract-page-text"
	gsq "research-workers/internal/workers/research/generate-search-query"
	sc "research-workers/internal/workers/research/summarize-context"
	ws "research-workers/internal/workers/research/web-search"
)

type registration struct {
	taskType string
	handler  camunda.JobHandler
}

// buildHandlers creates a handler for every enabled research worker. All of
// them share one pipeline so pacing and connection pools are shared too.
func buildHandlers(cfg *config.Config, p *pipeline.Pipeline, log logger.Logger) ([]registration, error) {
	var regs []registration
	add := func(taskType string, build func() (camunda.JobHandler, error)) error {
		if !config.IsWorkerEnabled(cfg, taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			return nil
		}
		h, err := build()
		if err != nil {
			return err
		}
		regs = append(regs, registration{taskType: taskType, handler: h})
		return nil
	}

	steps := []struct {
		taskType string
		build    func() (camunda.JobHandler, error)
	}{
		{gsq.TaskType, func() (camunda.JobHandler, error) {
			return gsq.NewHandler(gsq.HandlerOptions{AppConfig: cfg, Generator: p, Logger: log})
		}},
		{ws.TaskType, func() (camunda.JobHandler, error) {
			return ws.NewHandler(ws.HandlerOptions{AppConfig: cfg, Searcher: p, Logger: log})
		}},
		{ept.TaskType, func() (camunda.JobHandler, error) {
			return ept.NewHandler(ept.HandlerOptions{AppConfig: cfg, Gatherer: p, Logger: log})
		}},
		{sc.TaskType, func() (camunda.JobHandler, error) {
			return sc.NewHandler(sc.HandlerOptions{AppConfig: cfg, Summarizer: p, Logger: log})
		}},
		{aq.TaskType, func() (camunda.JobHandler, error) {
			return aq.NewHandler(aq.HandlerOptions{AppConfig: cfg, Pipeline: p, Logger: log})
		}},
	}
	for _, s := range steps {
		if err := add(s.taskType, s.build); err != nil {
			return nil, err
		}
	}
	return regs, nil
}

// describeActivities logs the registry entry of each registered worker and
// returns the task types the registry does not know.
func describeActivities(reg *registry.ActivityRegistry, regs []registration, log logger.Logger) []string {
	var unknown []string
	for _, r := range regs {
		a, ok := reg.Find(r.taskType)
		if !ok {
			unknown = append(unknown, r.taskType)
			log.Warn("worker has no registry entry", map[string]interface{}{"taskType": r.taskType})
			continue
		}
		log.Info("activity registered", map[string]interface{}{
			"taskType":    a.TaskType,
			"displayName": a.DisplayName,
			"version":     a.Version,
			"status":      a.ImplementationStatus,
		})
	}
	return unknown
}
