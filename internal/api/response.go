// Package api provides HTTP response utilities for reveal.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nampox/reveal/internal/models"
)

// Messages shown to API clients
const (
	msgMissingNameOrEmail = "Vui lòng cung cấp tên và email"
	msgUserCreated        = "Tạo người dùng thành công!"
	msgMethodNotAllowed   = "Method không được hỗ trợ"
	msgInvalidJSON        = "Dữ liệu JSON không hợp lệ"
	msgVisitorNotFound    = "Không tìm thấy khách truy cập"
	msgNotFound           = "Không tìm thấy"
	msgInternalError      = "Lỗi máy chủ nội bộ"
)

// Pre-marshaled fallback responses to avoid runtime JSON encoding failures
var (
	fallbackErrorResponse []byte
)

// init validates that our fallback responses can be marshaled
func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(errorResponse(msgInternalError))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

func errorResponse(message string) models.APIResponse {
	return models.Error(message)
}

// writeJSONResponse writes a JSON response to the http.ResponseWriter with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	// Marshal first so an encoding failure can still change the status code
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

// methodNotAllowed answers with the 405 envelope and an Allow header.
func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSONResponse(w, http.StatusMethodNotAllowed, errorResponse(msgMethodNotAllowed))
}
