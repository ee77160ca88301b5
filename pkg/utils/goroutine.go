package utils

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang-sentiment-quant/pkg/logger"
)

// GoSafe runs fn in a goroutine and recovers from panics, logging them.
func GoSafe(log *logger.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Recovered from panic in goroutine",
					logger.StringField("panic", fmt.Sprint(r)),
					logger.StringField("stack", string(debug.Stack())))
			}
		}()
		fn()
	}()
}

// ShouldContinue reports whether the context is still alive.
func ShouldContinue(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	default:
		return true
	}
}
