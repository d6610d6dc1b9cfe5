package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/markup-backend/services/common/errors"
	"github.com/yashrajoria/markup-backend/services/common/logger"
	"github.com/yashrajoria/markup-backend/services/markup-service/middleware"
	"github.com/yashrajoria/markup-backend/services/markup-service/services"
	"go.uber.org/zap"
)

type MarkupController struct {
	markup    services.MarkupService
	sessions  services.SessionService
	validator *RequestValidator
	cookie    middleware.CookieOptions
	logger    *zap.Logger
}

func NewMarkupController(markup services.MarkupService, sessions services.SessionService, cookie middleware.CookieOptions, logger *zap.Logger) *MarkupController {
	return &MarkupController{
		markup:    markup,
		sessions:  sessions,
		validator: NewRequestValidator(),
		cookie:    cookie,
		logger:    logger,
	}
}

// ListTasks returns both task types with their categories and flags.
func (mc *MarkupController) ListTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": mc.markup.Tasks()})
}

// GetSearchStep returns the active search record or the exhaustion notice.
func (mc *MarkupController) GetSearchStep(c *gin.Context) {
	step, err := mc.markup.SearchStep(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		mc.fail(c, "GetSearchStep", err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// GetMatchingStep returns the active matching pair or the exhaustion notice.
func (mc *MarkupController) GetMatchingStep(c *gin.Context) {
	step, err := mc.markup.MatchingStep(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		mc.fail(c, "GetMatchingStep", err)
		return
	}
	c.JSON(http.StatusOK, step)
}

func (mc *MarkupController) SubmitSearch(c *gin.Context) {
	position, verdict, err := mc.validator.ParseSubmitRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
		return
	}

	step, err := mc.markup.SubmitSearch(c.Request.Context(), middleware.SessionID(c), position, verdict)
	if errors.Is(err, apperrors.ErrStaleSubmission) {
		c.JSON(http.StatusConflict, gin.H{"error": apperrors.ErrStaleSubmission.Message, "step": step})
		return
	}
	if err != nil {
		mc.fail(c, "SubmitSearch", err)
		return
	}
	c.JSON(http.StatusOK, step)
}

func (mc *MarkupController) SubmitMatching(c *gin.Context) {
	position, verdict, err := mc.validator.ParseSubmitRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
		return
	}

	step, err := mc.markup.SubmitMatching(c.Request.Context(), middleware.SessionID(c), position, verdict)
	if errors.Is(err, apperrors.ErrStaleSubmission) {
		c.JSON(http.StatusConflict, gin.H{"error": apperrors.ErrStaleSubmission.Message, "step": step})
		return
	}
	if err != nil {
		mc.fail(c, "SubmitMatching", err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// GetStats returns both progress counters and their sum.
func (mc *MarkupController) GetStats(c *gin.Context) {
	stats, err := mc.markup.Stats(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		mc.fail(c, "GetStats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (mc *MarkupController) GetSession(c *gin.Context) {
	session, err := mc.sessions.Get(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		mc.fail(c, "GetSession", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// RestartSession starts over with zeroed counters and a new session id.
func (mc *MarkupController) RestartSession(c *gin.Context) {
	session, err := mc.sessions.Restart(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		mc.fail(c, "RestartSession", err)
		return
	}
	middleware.SetSessionCookie(c, session.ID, mc.cookie)
	c.JSON(http.StatusOK, session)
}

func (mc *MarkupController) ListDatasets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"datasets": mc.markup.Datasets()})
}

// ReloadDataset re-reads one dataset from its source. The previous snapshot
// stays active when the reload fails.
func (mc *MarkupController) ReloadDataset(c *gin.Context) {
	task, err := mc.validator.ParseTask(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Wrap(apperrors.ErrUnknownTask, err))
		return
	}

	info, err := mc.markup.ReloadDataset(c.Request.Context(), task)
	if err != nil {
		mc.fail(c, "ReloadDataset", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (mc *MarkupController) fail(c *gin.Context, op string, err error) {
	appErr := apperrors.As(err)
	log := logger.With(c, mc.logger).With(zap.String("op", op), zap.String("session_id", middleware.SessionID(c)))
	if appErr.Code >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Error(err))
	} else {
		log.Debug("Request rejected", zap.Int("status", appErr.Code), zap.Error(err))
	}
	apperrors.Respond(c, appErr)
}
