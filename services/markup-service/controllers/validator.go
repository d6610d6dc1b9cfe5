package controllers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
)

// RequestValidator handles all input validation
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		validate: validator.New(),
	}
}

// ParseTask validates the :task path parameter.
func (rv *RequestValidator) ParseTask(c *gin.Context) (models.TaskType, error) {
	return models.ParseTaskType(c.Param("task"))
}

// ParseSubmitRequest binds and validates a verdict submission.
func (rv *RequestValidator) ParseSubmitRequest(c *gin.Context) (int, models.Verdict, error) {
	var req models.SubmitVerdictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return 0, models.Verdict{}, fmt.Errorf("invalid payload: %w", err)
	}
	if err := rv.validate.Struct(&req); err != nil {
		return 0, models.Verdict{}, fmt.Errorf("validation failed: %w", err)
	}

	verdict := models.Verdict{
		Category: models.Category(req.Category),
		Flags:    make([]models.Flag, 0, len(req.Flags)),
	}
	for _, f := range req.Flags {
		verdict.Flags = append(verdict.Flags, models.Flag(f))
	}
	return *req.Position, verdict, nil
}
