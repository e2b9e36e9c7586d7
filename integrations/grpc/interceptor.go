package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"

	"github.com/appid-oss/go-appid-middleware/core"
)

// Interceptor authenticates gRPC calls with App ID bearer tokens.
type Interceptor struct {
	core                *core.Core
	tokenExtractor      TokenExtractor
	errorHandler        ErrorHandler
	excludedMethods     map[string]bool
	methodScopes        map[string]string
	credentialsOptional bool
	logger              core.Logger
}

// New creates a new gRPC interceptor with the provided options.
// WithCore option is required.
func New(opts ...Option) (*Interceptor, error) {
	interceptor := &Interceptor{
		tokenExtractor:  MetadataTokenExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
		methodScopes:    make(map[string]string),
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, err
		}
	}

	if interceptor.core == nil {
		return nil, errors.New("core is required, use WithCore option")
	}

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that
// authenticates calls and stores the authorization context and profile in
// the request context.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		// Check if method is excluded
		if i.excludedMethods[info.FullMethod] {
			if i.logger != nil {
				i.logger.Debug("skipping authentication for excluded method",
					"method", info.FullMethod)
			}
			return handler(ctx, req)
		}

		authenticatedCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}

		return handler(authenticatedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// authenticates streams and stores the authorization context and profile in
// the stream context.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		// Check if method is excluded
		if i.excludedMethods[info.FullMethod] {
			if i.logger != nil {
				i.logger.Debug("skipping authentication for excluded method",
					"method", info.FullMethod)
			}
			return handler(srv, ss)
		}

		authenticatedCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{
			ServerStream: ss,
			ctx:          authenticatedCtx,
		})
	}
}

func (i *Interceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	scope := i.methodScopes[method]

	authorization, err := i.tokenExtractor(ctx)
	if err != nil {
		if i.logger != nil {
			i.logger.Error("failed to extract token from gRPC metadata",
				"error", err,
				"method", method)
		}
		return ctx, i.errorHandler(core.FailureFor(errors.Join(core.ErrInvalidAuthorizationHeader, err), i.core.RequiredScope(scope)))
	}

	result := i.core.Authenticate(ctx, authorization, scope)

	switch result.Outcome {
	case core.OutcomeSuccess:
		return core.SetAuthorizationContext(ctx, result.AuthContext, result.Profile), nil
	case core.OutcomePass:
		if i.credentialsOptional {
			if i.logger != nil {
				i.logger.Debug("no credentials provided, continuing without authorization context (credentials optional)",
					"method", method)
			}
			return ctx, nil
		}
		return ctx, i.errorHandler(result.Failure)
	default:
		if i.logger != nil {
			i.logger.Warn("authentication failed",
				"error", result.Failure,
				"method", method)
		}
		return ctx, i.errorHandler(result.Failure)
	}
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context with the authorization context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
