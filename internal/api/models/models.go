// Package models holds the request and response types for the HTTP API.
package models

import (
	"github.com/smazurov/procdrain/internal/attach"
	"github.com/smazurov/procdrain/internal/logging"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" doc:"Git commit hash"`
	BuildDate string `json:"build_date" doc:"Build timestamp"`
	GoVersion string `json:"go_version" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Build platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Attachment models
type AttachmentsData struct {
	Attachments []attach.Attachment `json:"attachments" doc:"All tracked attachments"`
	Count       int                 `json:"count" example:"2" doc:"Number of attachments"`
}

type AttachmentsResponse struct {
	Body AttachmentsData
}

type AttachmentResponse struct {
	Body attach.Attachment
}

// CreateAttachmentInput describes a running process to drain. At least one
// of the stream paths must be given; each should point at a FIFO or file
// carrying that stream's output.
type CreateAttachmentInput struct {
	Body struct {
		Pid        int    `json:"pid" minimum:"1" example:"4242" doc:"PID of the running process"`
		StdoutPath string `json:"stdout_path,omitempty" doc:"Path to the process stdout FIFO or file"`
		StderrPath string `json:"stderr_path,omitempty" doc:"Path to the process stderr FIFO or file"`
	}
}

// CreateAttachmentData reports the drain decision per requested stream.
type CreateAttachmentData struct {
	Pid     string            `json:"pid" example:"4242" doc:"PID the drainer attached to"`
	Results map[string]string `json:"results" doc:"Drain result per stream: handling or ignore_dead_process"`
}

type CreateAttachmentResponse struct {
	Status int
	Body   CreateAttachmentData
}

// Drain stats models
type StreamStats struct {
	TasksStarted uint64 `json:"tasks_started" doc:"Drain tasks started on this stream label"`
	Chunks       uint64 `json:"chunks" doc:"Chunks dispatched"`
	Bytes        uint64 `json:"bytes" doc:"Bytes drained"`
	ReadFailures uint64 `json:"read_failures" doc:"Reads that terminated a task"`
}

type StatsData struct {
	Streams map[string]StreamStats `json:"streams" doc:"Counters keyed by stream label"`
}

type StatsResponse struct {
	Body StatsData
}

// Log history models
type LogsData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Buffered log entries, oldest first"`
	Count   int                `json:"count" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
