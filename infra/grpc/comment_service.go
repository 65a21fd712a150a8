package grpc

import (
	"context"
	"discussion/app"
	"discussion/pkg/httperror"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "discussion.v1.CommentService"

// CommentService is satisfied by CommentServiceServer; grpc checks the
// registered value against it.
type CommentService interface {
	handlers() *CommentServiceServer
}

// CommentServiceServer exposes the comment handlers over gRPC. Requests and
// responses are google.protobuf.Struct values carrying the same JSON shapes
// as the HTTP API.
//
// Thread replies nest as Struct values, so protobuf's recursion limit bounds
// the reply depth ListComments can return at a few thousand levels. The HTTP
// API has no such bound.
type CommentServiceServer struct {
	listComments    app.Handler[app.GetCommentsRequest, app.GetCommentsResponse]
	createComment   app.Handler[app.CreateCommentRequest, app.CreateCommentResponse]
	updateComment   app.Handler[app.UpdateCommentRequest, app.UpdateCommentResponse]
	deleteComment   app.Handler[app.DeleteCommentRequest, app.DeleteCommentResponse]
	toggleUpvote    app.Handler[app.ToggleUpvoteRequest, app.ToggleUpvoteResponse]
	suggestMentions app.Handler[app.SuggestMentionsRequest, app.SuggestMentionsResponse]
}

type CommentHandlers struct {
	ListComments    app.Handler[app.GetCommentsRequest, app.GetCommentsResponse]
	CreateComment   app.Handler[app.CreateCommentRequest, app.CreateCommentResponse]
	UpdateComment   app.Handler[app.UpdateCommentRequest, app.UpdateCommentResponse]
	DeleteComment   app.Handler[app.DeleteCommentRequest, app.DeleteCommentResponse]
	ToggleUpvote    app.Handler[app.ToggleUpvoteRequest, app.ToggleUpvoteResponse]
	SuggestMentions app.Handler[app.SuggestMentionsRequest, app.SuggestMentionsResponse]
}

func NewCommentServiceServer(h CommentHandlers) *CommentServiceServer {
	return &CommentServiceServer{
		listComments:    h.ListComments,
		createComment:   h.CreateComment,
		updateComment:   h.UpdateComment,
		deleteComment:   h.DeleteComment,
		toggleUpvote:    h.ToggleUpvote,
		suggestMentions: h.SuggestMentions,
	}
}

func (s *CommentServiceServer) handlers() *CommentServiceServer {
	return s
}

var commentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CommentService)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListComments", func(s *CommentServiceServer) app.Handler[app.GetCommentsRequest, app.GetCommentsResponse] {
			return s.listComments
		}),
		unary("CreateComment", func(s *CommentServiceServer) app.Handler[app.CreateCommentRequest, app.CreateCommentResponse] {
			return s.createComment
		}),
		unary("UpdateComment", func(s *CommentServiceServer) app.Handler[app.UpdateCommentRequest, app.UpdateCommentResponse] {
			return s.updateComment
		}),
		unary("DeleteComment", func(s *CommentServiceServer) app.Handler[app.DeleteCommentRequest, app.DeleteCommentResponse] {
			return s.deleteComment
		}),
		unary("ToggleUpvote", func(s *CommentServiceServer) app.Handler[app.ToggleUpvoteRequest, app.ToggleUpvoteResponse] {
			return s.toggleUpvote
		}),
		unary("SuggestMentions", func(s *CommentServiceServer) app.Handler[app.SuggestMentionsRequest, app.SuggestMentionsResponse] {
			return s.suggestMentions
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "discussion/v1/comment_service.proto",
}

func RegisterCommentService(registrar grpc.ServiceRegistrar, srv *CommentServiceServer) {
	registrar.RegisterService(&commentServiceDesc, srv)
}

func unary[R any, Res any](method string, pick func(*CommentServiceServer) app.Handler[R, Res]) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}

			call := func(ctx context.Context, req any) (any, error) {
				handler := pick(srv.(CommentService).handlers())
				return invoke(ctx, handler, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return call(ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			return interceptor(ctx, in, info, call)
		},
	}
}

func invoke[R any, Res any](ctx context.Context, handler app.Handler[R, Res], in *structpb.Struct) (*structpb.Struct, error) {
	var req R

	raw, err := protojson.Marshal(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "request is not a valid struct")
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	res, err := handler.Handle(ctx, &req)
	if err != nil {
		return nil, toStatus(err)
	}

	raw, err = json.Marshal(res)
	if err != nil {
		zap.L().Error("Failed to encode gRPC response", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}

	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		zap.L().Error("Failed to convert gRPC response", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}

	return out, nil
}

// toStatus maps a handler failure onto a gRPC status. The machine code
// travels as an ErrorInfo reason.
func toStatus(err error) error {
	var httpErr *httperror.Error
	if !errors.As(err, &httpErr) {
		zap.L().Error("Unhandled error", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}

	if httpErr.Status >= 500 {
		zap.L().Error("Handler returned server error", zap.String("code", httpErr.Code), zap.Error(httpErr))
	} else {
		zap.L().Warn("Handler returned client error", zap.String("code", httpErr.Code), zap.Error(httpErr))
	}

	st := status.New(codeFor(httpErr.Status), httpErr.Message)
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: httpErr.Code,
		Domain: "discussion",
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}

func codeFor(httpStatus int) codes.Code {
	switch httpStatus {
	case 400:
		return codes.InvalidArgument
	case 401:
		return codes.Unauthenticated
	case 404:
		return codes.NotFound
	case 503:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// ErrorCode extracts the machine code attached by toStatus.
func ErrorCode(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			return info.Reason
		}
	}
	return ""
}
