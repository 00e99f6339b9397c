package apperr

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/model"
)

// IsExpected reports whether err is part of normal operation and only deserves a warning
func IsExpected(err error) bool {
	return goerr.HasTag(err, model.ErrTagEmptyResult) ||
		goerr.HasTag(err, model.ErrTagInvalidQuery) ||
		goerr.HasTag(err, model.ErrTagUnauthorized) ||
		goerr.HasTag(err, model.ErrTagStaleDelta) ||
		goerr.HasTag(err, model.ErrTagMalformedPayload)
}

// Handle logs an error that reached the edge of the application
func Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}
	logger := ctxlog.From(ctx)
	if IsExpected(err) {
		logger.Warn("request failed", "error", err)
		return
	}
	logger.Error("application error", "error", err)
}
