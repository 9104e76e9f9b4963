package handler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fadilmartias/exam-grader/internal/apperror"
	"github.com/fadilmartias/exam-grader/internal/dto"
	"github.com/fadilmartias/exam-grader/internal/middleware"
	"github.com/fadilmartias/exam-grader/internal/service"
	"github.com/fadilmartias/exam-grader/internal/usecase"
	"github.com/fadilmartias/exam-grader/internal/util"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type GradingHandler struct {
	grading   *usecase.GradingUsecase
	results   *usecase.ResultUsecase
	validator *validator.Validate
	outputDir string
	uploadDir string
	debug     bool
	logger    zerolog.Logger
}

type HandlerConfig struct {
	OutputDir string
	UploadDir string
	Debug     bool
}

func NewGradingHandler(grading *usecase.GradingUsecase, results *usecase.ResultUsecase, validate *validator.Validate, cfg HandlerConfig, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		grading:   grading,
		results:   results,
		validator: validate,
		outputDir: cfg.OutputDir,
		uploadDir: cfg.UploadDir,
		debug:     cfg.Debug,
		logger:    logger.With().Str("component", "grading_handler").Logger(),
	}
}

func (h *GradingHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/", h.Root)
	app.Post("/transcribe/answer", middleware.RateLimiter(10, time.Minute), h.TranscribeAnswer)
	app.Post("/transcribe/rubric", middleware.RateLimiter(10, time.Minute), h.TranscribeRubric)
	app.Post("/generate_score", middleware.RateLimiter(10, time.Minute), h.GenerateScore)
	app.Post("/grade/submissions", middleware.RateLimiter(2, time.Minute), h.GradeSubmissions)
	app.Post("/final_grading", middleware.RateLimiter(2, time.Minute), h.FinalGrading)
	app.Post("/reconcile", h.Reconcile)
}

func (h *GradingHandler) Root(c *fiber.Ctx) error {
	return c.JSON(dto.MessageResponse{Message: "AI Graded Assignments server is running"})
}

func (h *GradingHandler) TranscribeAnswer(c *fiber.Ctx) error {
	return h.transcribe(c, service.KindAnswerScript, "answer_output.txt")
}

func (h *GradingHandler) TranscribeRubric(c *fiber.Ctx) error {
	return h.transcribe(c, service.KindRubric, "rubric_output.txt")
}

func (h *GradingHandler) transcribe(c *fiber.Ctx, kind service.DocumentKind, suffix string) error {
	dir, cleanup, err := h.tempDir()
	if err != nil {
		return h.fail(c, "failed to prepare upload", err)
	}
	defer cleanup()

	path, original, err := h.saveUpload(c, dir, "file")
	if err != nil {
		return h.badRequest(c, "file is required", err)
	}

	doc, err := h.grading.TranscribeDocument(c.UserContext(), path, kind)
	if err != nil {
		return h.fail(c, fmt.Sprintf("failed to transcribe %s", kind), err)
	}

	name, err := util.SaveOutput(h.outputDir, original, suffix, doc.Text)
	if err != nil {
		return h.fail(c, "failed to save transcription", err)
	}
	return c.JSON(dto.DocumentResponse{Filename: name, Content: doc.Text})
}

func (h *GradingHandler) GenerateScore(c *fiber.Ctx) error {
	dir, cleanup, err := h.tempDir()
	if err != nil {
		return h.fail(c, "failed to prepare upload", err)
	}
	defer cleanup()

	rubricPath, _, err := h.saveUpload(c, dir, "rubric_file")
	if err != nil {
		return h.badRequest(c, "rubric_file is required", err)
	}
	answerPath, _, err := h.saveUpload(c, dir, "answer_file")
	if err != nil {
		return h.badRequest(c, "answer_file is required", err)
	}

	raw, err := h.grading.GenerateScore(c.UserContext(), rubricPath, answerPath)
	if err != nil {
		return h.fail(c, "failed to generate score", err)
	}

	name, err := util.SaveOutput(h.outputDir, "", "score_output.txt", raw)
	if err != nil {
		return h.fail(c, "failed to save score", err)
	}
	return c.JSON(dto.DocumentResponse{Filename: name, Content: raw})
}

func (h *GradingHandler) GradeSubmissions(c *fiber.Ctx) error {
	var req dto.GradeSubmissionsRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "invalid request body", err)
	}
	if err := h.validator.Struct(req); err != nil {
		return h.invalid(c, err)
	}

	batch, err := h.grading.GradeSubmissions(c.UserContext(), req.AssignmentID, req.AssignmentIdea)
	if err != nil {
		return h.fail(c, "failed to grade submissions", err)
	}
	return c.JSON(dto.GradeSubmissionsResponse{Count: batch.Count, Results: batch.Outcomes})
}

func (h *GradingHandler) FinalGrading(c *fiber.Ctx) error {
	var req dto.AssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "invalid request body", err)
	}
	if err := h.validator.Struct(req); err != nil {
		return h.invalid(c, err)
	}

	batch, err := h.grading.FinalGrading(c.UserContext(), req.AssignmentID)
	if err != nil {
		return h.fail(c, "final grading failed", err)
	}
	return c.JSON(dto.FinalGradingResponse{
		Message:     fmt.Sprintf("Graded %d of %d submissions", batch.Graded, batch.Count),
		GradedCount: batch.Graded,
		Results:     batch.Outcomes,
	})
}

func (h *GradingHandler) Reconcile(c *fiber.Ctx) error {
	var req dto.AssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "invalid request body", err)
	}
	if err := h.validator.Struct(req); err != nil {
		return h.invalid(c, err)
	}

	report, err := h.results.Reconcile(c.UserContext(), req.AssignmentID)
	if err != nil {
		return h.fail(c, "reconcile failed", err)
	}
	return c.JSON(dto.ReconcileResponse(report))
}

func (h *GradingHandler) invalid(c *fiber.Ctx, err error) error {
	return util.ErrorResponse(c, util.ErrorResponseFormat{
		Code:    fiber.StatusBadRequest,
		Message: "validation failed",
		Details: validationDetails(err),
		Debug:   h.debug,
	}, err)
}

func (h *GradingHandler) saveUpload(c *fiber.Ctx, dir, field string) (string, string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", "", err
	}
	original := filepath.Base(file.Filename)
	path := filepath.Join(dir, field+"_"+original)
	if err := c.SaveFile(file, path); err != nil {
		return "", "", fmt.Errorf("cannot save %s: %w", field, err)
	}
	return path, original, nil
}

func (h *GradingHandler) tempDir() (string, func(), error) {
	if h.uploadDir != "" {
		if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
			return "", nil, err
		}
	}
	dir, err := os.MkdirTemp(h.uploadDir, "upload-*")
	if err != nil {
		return "", nil, err
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func (h *GradingHandler) badRequest(c *fiber.Ctx, message string, err error) error {
	return util.ErrorResponse(c, util.ErrorResponseFormat{
		Code:    fiber.StatusBadRequest,
		Message: message,
		Debug:   h.debug,
	}, err)
}

func (h *GradingHandler) fail(c *fiber.Ctx, message string, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Path()).Msg(message)
	}
	return util.ErrorResponse(c, util.ErrorResponseFormat{
		Code:    code,
		Message: fmt.Sprintf("%s: %v", message, err),
		Debug:   h.debug,
	}, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrUnsupportedDocument):
		return fiber.StatusBadRequest
	case errors.Is(err, apperror.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		details[fe.Field()] = fe.Tag()
	}
	return details
}
