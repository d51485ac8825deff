package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/household-extractor/internal/common"
)

var errRateLimited = errors.New("rate limit exceeded")

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := common.HTTPStatus(err)
	if errors.Is(err, errRateLimited) {
		status = http.StatusTooManyRequests
	}
	msg := err.Error()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		common.LoggerFromContext(r.Context(), logger).Error("http.handler.failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{
		Error:     msg,
		Code:      common.ErrorCode(err),
		RequestID: common.RequestIDFromContext(r.Context()),
	})
}

// writeFile sends an export as a download.
func writeFile(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// decodeJSON reads a single JSON document into v. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return common.NewAppError("INVALID_JSON", "request body is empty", common.ErrInvalidInput)
		}
		return common.NewAppError("INVALID_JSON", "invalid JSON body: "+err.Error(), common.ErrInvalidInput)
	}
	return nil
}

// readUpload returns the multipart "file" part and its name.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return "", nil, common.NewAppError("UPLOAD_TOO_LARGE", fmt.Sprintf("upload exceeds %d bytes", limit), common.ErrInvalidInput)
		}
		return "", nil, common.NewAppError("INVALID_UPLOAD", "expected a multipart form: "+err.Error(), common.ErrInvalidInput)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return "", nil, common.NewAppError("INVALID_UPLOAD", "missing form field \"file\"", common.ErrInvalidInput)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, common.WrapError(err, "read upload")
	}
	if len(data) == 0 {
		return "", nil, common.NewAppError("INVALID_UPLOAD", "uploaded file is empty", common.ErrInvalidInput)
	}
	return hdr.Filename, data, nil
}
