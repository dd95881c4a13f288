package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
)

func chiParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func badRequest(msg string) error {
	return curatorerrors.New(curatorerrors.KindInvalidInput, msg)
}

func notFound(msg string) error {
	return curatorerrors.New(curatorerrors.KindResourceNotFound, msg)
}
