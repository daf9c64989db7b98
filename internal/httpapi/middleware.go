package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/safar/go-logistics/internal/apperror"
	"github.com/safar/go-logistics/internal/auth"
	"github.com/safar/go-logistics/internal/logging"
)

const (
	HeaderRequestID = "X-Request-ID"

	keyRequestID = "request_id"
	keyPrincipal = "principal"
)

type MetricsRecorder interface {
	Handler() http.Handler
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
	InFlight(delta float64)
}

func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String(keyRequestID, c.GetString(keyRequestID)),
		)
		abortWithError(c, apperror.Internal(fmt.Errorf("panic: %v", recovered)))
	})
}

// RequestID honours an incoming X-Request-ID or mints a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(keyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func Tracing(service string) gin.HandlerFunc {
	tracer := otel.Tracer("github.com/safar/go-logistics/internal/httpapi")
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(c.Request.Method),
				semconv.HTTPRouteKey.String(route),
				attribute.String("service.name", service),
				attribute.String("request.id", c.GetString(keyRequestID)),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// AccessLog stores a request-scoped logger in the request context and writes
// one line per request once the handler chain has finished.
func AccessLog(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		fields := []zap.Field{zap.String(keyRequestID, c.GetString(keyRequestID))}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		logger := base.With(fields...)
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))

		c.Next()

		status := c.Writer.Status()
		line := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", line...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", line...)
		default:
			logger.Info("request", line...)
		}
	}
}

func Metrics(m MetricsRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		m.InFlight(1)
		defer m.InFlight(-1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func Authenticate(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortWithError(c, apperror.Unauthorized("missing bearer token"))
			return
		}
		principal, err := a.Authenticate(strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(keyPrincipal, principal)
		logger := logging.FromContext(c.Request.Context()).With(zap.String("user", principal.Subject))
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principalFrom(c)
		if !ok || !p.IsAdmin() {
			abortWithError(c, apperror.Forbidden("administrator role required"))
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(keyPrincipal)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
