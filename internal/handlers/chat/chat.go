package chat

import (
	"io"
	"net/http"
	"time"

	"deepclaude-go/internal/constants"
	apperrors "deepclaude-go/internal/errors"
	"deepclaude-go/internal/handlers/common"
	"deepclaude-go/internal/logging"
	"deepclaude-go/internal/middleware"
	"deepclaude-go/internal/pipeline"
	"deepclaude-go/internal/resolver"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ChatCompletions handles POST / and POST /v1/chat/completions.
func (h *Handler) ChatCompletions(c *gin.Context) {
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxRequestBodySize))
	if err != nil {
		common.AbortWithAPIError(c, apperrors.InvalidRequest("Failed to read request body: "+err.Error()))
		return
	}

	cfg := h.cfgMgr.GetConfig()
	apiKey := middleware.ExtractAPIKey(c)

	plan, resErr := resolver.Resolve(cfg, c.Request.Header, body, apiKey)
	if resErr != nil {
		entry := logging.WithReq(c, log.Fields{"code": resErr.Code})
		if resErr.IsConfigError() {
			entry.Warn("plan resolution failed")
		} else {
			entry.Error("plan resolution failed")
		}
		common.AbortWithAPIError(c, resErr)
		return
	}

	c.Set("target_backend", plan.Answer.Backend)
	c.Set("answer_model", plan.Answer.Model)
	logging.WithReq(c, log.Fields{
		"reasoning_backend": plan.Reasoning.Backend,
		"reasoning_model":   plan.Reasoning.Model,
		"target":            plan.Answer.Backend,
		"model":             plan.Answer.Model,
		"stream":            plan.Stream,
		"verbose":           plan.Verbose,
	}).Debug("plan resolved")

	pc := &pipeline.Controller{Client: h.client}

	if plan.Stream {
		w, fl := common.PrepareSSE(c)
		m := pipeline.NewMerger(w, fl, true, plan.Verbose, plan.Answer.Model)
		if runErr := pc.Run(c.Request.Context(), plan, m); runErr != nil {
			// Nothing was flushed yet: drop the SSE headers so the fallback
			// error goes out as a plain JSON response.
			header := c.Writer.Header()
			header.Del("Content-Type")
			header.Del("Cache-Control")
			header.Del("Connection")
			logFailure(c, runErr)
			common.AbortWithAPIError(c, runErr)
			return
		}
	} else {
		m := pipeline.NewMerger(nil, nil, false, plan.Verbose, plan.Answer.Model)
		if runErr := pc.Run(c.Request.Context(), plan, m); runErr != nil {
			logFailure(c, runErr)
			common.AbortWithAPIError(c, runErr)
			return
		}
		if c.Request.Context().Err() != nil {
			// Client went away before the answer completed.
			c.Abort()
			return
		}
		doc, docErr := m.FinalDocument()
		if docErr != nil {
			common.AbortWithAPIError(c, apperrors.New(http.StatusInternalServerError, "server_error", "server_error", docErr.Error()))
			return
		}
		c.Data(http.StatusOK, "application/json", doc)
	}

	logging.WithReq(c, log.Fields{
		"state":      pc.State().String(),
		"latency_ms": logging.DurationMS(time.Since(start)),
	}).Debug("pipeline finished")
}

// logFailure records a pipeline failure, escalating auth-class errors that
// will not recover on retry.
func logFailure(c *gin.Context, apiErr *apperrors.APIError) {
	entry := logging.WithReq(c, log.Fields{"code": apiErr.Code, "status": apiErr.HTTPStatus})
	if apiErr.IsCritical() {
		entry.Error("pipeline failed")
		return
	}
	entry.Warn("pipeline failed")
}
