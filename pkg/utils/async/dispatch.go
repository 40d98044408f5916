package async

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/ctxlog"
	"github.com/soc-lab/kestrel/pkg/domain/model"
)

// Dispatch runs a handler in the background with panic recovery. The handler
// gets a fresh context so it outlives the request, with the logger and auth
// claims carried over.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := detach(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ctxlog.From(bgCtx).Error("panic in async handler",
					"recover", r,
					"stack", string(debug.Stack()),
				)
			}
		}()

		if err := handler(bgCtx); err != nil {
			ctxlog.From(bgCtx).Error("error in async handler", "error", err)
		}
	}()
}

// detach builds a background context preserving cross-cutting values
func detach(ctx context.Context) context.Context {
	bgCtx := context.Background()

	if logger := ctxlog.From(ctx); logger != nil {
		bgCtx = ctxlog.With(bgCtx, logger)
	}
	if authCtx, ok := model.GetAuthContext(ctx); ok {
		bgCtx = model.WithAuthContext(bgCtx, authCtx.Clone())
	}

	return bgCtx
}
