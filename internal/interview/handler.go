package interview

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"interview-backend/internal/shared/server/middleware"
	"interview-backend/internal/shared/server/respond"
)

// multipart overhead allowed on top of the file limit
const uploadEnvelopeBytes = 1 << 20

// Handler exposes the interview engine over HTTP.
type Handler struct {
	Svc      *Service
	MaxBytes int64

	upgrader *websocket.Upgrader
}

// NewHandler constructs a Handler. allowedOrigins gates the websocket feed
// the same way CORS gates the rest of the API.
func NewHandler(svc *Service, maxBytes int64, allowedOrigins []string) *Handler {
	return &Handler{
		Svc:      svc,
		MaxBytes: maxBytes,
		upgrader: newUpgrader(middleware.NewOriginPolicy(allowedOrigins)),
	}
}

// RegisterRoutes attaches interview routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/interview")
	g.GET("", h.view)
	g.POST("/start", h.begin)
	g.POST("/resume-file", h.upload)
	g.POST("/validation/confirm", h.confirm)
	g.POST("/validation/reject", h.reject)
	g.POST("/validation/answer", h.provide)
	g.POST("/welcome-back/resume", h.welcomeBackResume)
	g.POST("/welcome-back/restart", h.welcomeBackRestart)
	g.PUT("/draft", h.saveDraft)
	g.POST("/answers", h.submit)
	g.POST("/questions/retry", h.retry)
	g.POST("/reset", h.reset)
	g.GET("/stream", h.stream)
}

func (h *Handler) view(c *gin.Context) {
	writeView(c, http.StatusOK, h.Svc.View())
}

func (h *Handler) begin(c *gin.Context) {
	v, err := h.Svc.Begin(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeView(c, http.StatusCreated, v)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBytes+uploadEnvelopeBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(c, ErrFileTooLarge)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > h.MaxBytes {
		writeError(c, ErrFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	v, err := h.Svc.Upload(c.Request.Context(), Upload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeView(c, http.StatusOK, v)
}

func (h *Handler) confirm(c *gin.Context) {
	v, err := h.Svc.Confirm(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeView(c, http.StatusOK, v)
}

func (h *Handler) reject(c *gin.Context) {
	v, err := h.Svc.Reject(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeView(c, http.StatusOK, v)
}

type provideRequest struct {
	Value string `json:"value"`
}

func (h *Handler) provide(c *gin.Context) {
	var req provideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	v, err := h.Svc.Provide(c.Request.Context(), req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	writeView(c, http.StatusOK, v)
}

func (h *Handler) welcomeBackResume(c *gin.Context) {
	v, err := h.Svc.WelcomeBackResume(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeView(c, http.StatusOK, v)
}

func (h *Handler) welcomeBackRestart(c *gin.Context) {
	v, err := h.Svc.WelcomeBackRestart(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeView(c, http.StatusOK, v)
}

type answerRequest struct {
	QuestionIndex *int   `json:"questionIndex"`
	Answer        string `json:"answer"`
}

func (h *Handler) saveDraft(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.QuestionIndex == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "questionIndex is required", nil)
		return
	}
	if err := h.Svc.SaveDraft(*req.QuestionIndex, req.Answer); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) submit(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.QuestionIndex == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "questionIndex is required", nil)
		return
	}
	v, err := h.Svc.Submit(c.Request.Context(), *req.QuestionIndex, strings.TrimRight(req.Answer, "\r\n"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeView(c, http.StatusOK, v)
}

func (h *Handler) retry(c *gin.Context) {
	v, err := h.Svc.RetryQuestions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeView(c, http.StatusOK, v)
}

func (h *Handler) reset(c *gin.Context) {
	v, err := h.Svc.Reset(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeView(c, http.StatusOK, v)
}

func writeView(c *gin.Context, status int, v View) {
	c.Set(middleware.InterviewStatusKey, string(v.Status))
	if v.Candidate != nil {
		c.Set(middleware.CandidateIDKey, v.Candidate.ID)
	}
	respond.JSON(c, status, v)
}

func writeError(c *gin.Context, err error) {
	code := ErrorCode(err)
	var details interface{}
	var fe *FieldError
	if errors.As(err, &fe) {
		details = gin.H{"field": fe.Field}
	}

	status := http.StatusInternalServerError
	switch code {
	case "invalid_field", "empty_answer":
		status = http.StatusBadRequest
	case "unsupported_type":
		status = http.StatusUnsupportedMediaType
	case "unreadable_file":
		status = http.StatusUnprocessableEntity
	case "file_too_large":
		status = http.StatusRequestEntityTooLarge
	case "generation_failed":
		status = http.StatusBadGateway
	case "invalid_transition", "no_active_question", "stale_submission":
		status = http.StatusConflict
	case "not_found":
		status = http.StatusNotFound
	}

	message := UserMessage(err)
	if status == http.StatusInternalServerError {
		message = "internal error"
		details = err.Error()
	}
	respond.Error(c, status, code, message, details)
}
