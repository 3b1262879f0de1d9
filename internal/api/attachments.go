package api

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/procdrain/internal/api/models"
	"github.com/smazurov/procdrain/internal/drain"
	"github.com/smazurov/procdrain/internal/logging"
	"github.com/smazurov/procdrain/internal/proc"
)

// registerAttachmentRoutes sets up the attachment management endpoints.
func (s *Server) registerAttachmentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "create-attachment",
		Method:        http.MethodPost,
		Path:          "/api/attachments",
		Summary:       "Attach",
		Description:   "Attach the drainer to a running process and start draining the given output streams.",
		Tags:          []string{"attachments"},
		Security:      withAuth(),
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 401, 404},
	}, s.createAttachment)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-attachments",
		Method:      http.MethodGet,
		Path:        "/api/attachments",
		Summary:     "List Attachments",
		Description: "List every attachment the daemon has tracked, draining or terminated.",
		Tags:        []string{"attachments"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.AttachmentsResponse, error) {
		attachments := s.options.Registry.List()
		return &models.AttachmentsResponse{
			Body: models.AttachmentsData{
				Attachments: attachments,
				Count:       len(attachments),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-attachment",
		Method:      http.MethodGet,
		Path:        "/api/attachments/{pid}/{stream}",
		Summary:     "Get Attachment",
		Description: "Get one attachment by pid and stream name.",
		Tags:        []string{"attachments"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *struct {
		Pid    string `path:"pid" doc:"Process ID"`
		Stream string `path:"stream" enum:"stdout,stderr" doc:"Stream name"`
	}) (*models.AttachmentResponse, error) {
		a, ok := s.options.Registry.Get(input.Pid + "/" + input.Stream)
		if !ok {
			return nil, huma.Error404NotFound("attachment not found")
		}
		return &models.AttachmentResponse{Body: a}, nil
	})
}

func (s *Server) createAttachment(ctx context.Context, input *models.CreateAttachmentInput) (*models.CreateAttachmentResponse, error) {
	body := input.Body
	if body.StdoutPath == "" && body.StderrPath == "" {
		return nil, huma.Error400BadRequest("at least one of stdout_path or stderr_path is required")
	}

	var stdoutFile, stderrFile *os.File
	closeAll := func() {
		if stdoutFile != nil {
			stdoutFile.Close()
		}
		if stderrFile != nil {
			stderrFile.Close()
		}
	}

	if body.StdoutPath != "" {
		f, err := proc.OpenSource(body.StdoutPath)
		if err != nil {
			return nil, huma.Error400BadRequest("cannot open stdout source", err)
		}
		stdoutFile = f
	}
	if body.StderrPath != "" {
		f, err := proc.OpenSource(body.StderrPath)
		if err != nil {
			closeAll()
			return nil, huma.Error400BadRequest("cannot open stderr source", err)
		}
		stderrFile = f
	}

	// The drain.Process contract wants readers and tolerates nil streams,
	// but a typed nil *os.File would dodge the reader's nil check.
	var stdout, stderr io.Reader
	if stdoutFile != nil {
		stdout = stdoutFile
	}
	if stderrFile != nil {
		stderr = stderrFile
	}

	attached, err := proc.Attach(body.Pid, stdout, stderr)
	if err != nil {
		closeAll()
		return nil, huma.Error404NotFound("process not found", err)
	}

	pid := strconv.Itoa(body.Pid)
	results := make(map[string]string)

	// The registry owns each opened source from Track onward and closes
	// it when the drain terminates. A refused drain never publishes a
	// termination event, so mark those terminated here.
	if body.StdoutPath != "" {
		a := s.options.Registry.Track(pid, "stdout", body.StdoutPath, stdoutFile)
		result := s.options.Handler.DrainStdout(attached, relayCallback(pid, "stdout"))
		results["stdout"] = string(result)
		if result != drain.Handling {
			s.options.Registry.MarkTerminated(a.ID, string(result))
		}
	}
	if body.StderrPath != "" {
		a := s.options.Registry.Track(pid, "stderr", body.StderrPath, stderrFile)
		result := s.options.Handler.DrainStderr(attached, relayCallback(pid, "stderr"))
		results["stderr"] = string(result)
		if result != drain.Handling {
			s.options.Registry.MarkTerminated(a.ID, string(result))
		}
	}

	return &models.CreateAttachmentResponse{
		Status: http.StatusCreated,
		Body: models.CreateAttachmentData{
			Pid:     pid,
			Results: results,
		},
	}, nil
}

// relayCallback forwards drained chunks into our own log stream, which
// carries them to stdout and the journal.
func relayCallback(pid, stream string) drain.ChunkFunc {
	logger := logging.GetLogger("output").With("pid", pid, "stream", stream)
	return func(chunk string) {
		logger.Info(chunk)
	}
}
