// Package grpc provides gRPC server interceptors that authenticate calls
// with App ID access and identity tokens.
//
// The "authorization" metadata entry carries the same value an HTTP request
// would send in its Authorization header:
//
//	Bearer <access_token> [<identity_token>]
//
// # Basic Usage
//
//	import (
//	    "log"
//	    "net"
//
//	    appidgrpc "github.com/appid-oss/go-appid-middleware/integrations/grpc"
//	    "github.com/appid-oss/go-appid-middleware/core"
//	    "google.golang.org/grpc"
//	)
//
//	func main() {
//	    c, err := core.New(core.WithValidator(v), core.WithTenantID(tenantID))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    interceptor, err := appidgrpc.New(
//	        appidgrpc.WithCore(c),
//	        appidgrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	        appidgrpc.WithMethodScope("/notes.Notes/Delete", "notes.write"),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    server := grpc.NewServer(
//	        grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	        grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	    )
//
//	    listener, _ := net.Listen("tcp", ":50051")
//	    server.Serve(listener)
//	}
//
// # Accessing the Authorization Context
//
//	func (s *server) Get(ctx context.Context, req *pb.GetRequest) (*pb.Note, error) {
//	    ac, err := appidgrpc.GetAuthorizationContext(ctx)
//	    if err != nil {
//	        return nil, status.Error(codes.Internal, "no authorization context")
//	    }
//	    profile, _ := appidgrpc.GetProfile(ctx)
//	    ...
//	}
//
// # Status Codes
//
//	missing credentials              -> Unauthenticated
//	malformed authorization metadata -> InvalidArgument
//	invalid or expired token         -> Unauthenticated
//	insufficient scope               -> PermissionDenied
package grpc
