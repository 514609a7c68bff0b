package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/attunefin/attune-go/errors"
)

// maxStatementSize caps the in-memory statement buffer at 50 MB, matching
// the backend's upload limit.
const maxStatementSize = 50 << 20

// UploadStatement submits a bank statement for import. The returned job ID
// keys the live progress stream; follow it with a progress.Client.
func (c *Client) UploadStatement(ctx context.Context, filename string, content io.Reader) (*UploadJob, error) {
	if filename == "" {
		return nil, errors.New("filename is required")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("statement", filepath.Base(filename))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create multipart part")
	}

	n, err := io.Copy(part, io.LimitReader(content, maxStatementSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read statement")
	}
	if n > maxStatementSize {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "statement exceeds %d bytes", maxStatementSize)
	}
	if n == 0 {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "statement is empty")
	}

	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finalize multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/uploads", &body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(headerIdempotencyKey, uuid.NewString())

	var job UploadJob
	if err := c.do(req, &job); err != nil {
		return nil, err
	}
	if job.JobID == "" {
		return nil, errors.New("backend accepted the upload but returned no job ID")
	}
	return &job, nil
}

// UploadStatus fetches the current state of an import job. An unknown job
// ID yields ErrJobNotFound.
func (c *Client) UploadStatus(ctx context.Context, jobID string) (*UploadJob, error) {
	if jobID == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "job ID is required")
	}

	var job UploadJob
	if err := c.get(ctx, "/api/uploads/"+url.PathEscape(jobID), nil, &job); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Wrapf(errors.ErrJobNotFound, "job %s", jobID)
		}
		return nil, err
	}
	return &job, nil
}
