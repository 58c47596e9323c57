package grpc

// proto.go defines the operator API by hand in the shape protoc-gen-go-grpc
// emits. Messages are plain structs carried by the JSON codec.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const serviceName = "sportsmaker.payment.v1.TransactionService"

// Full method names, also used by the client.
const (
	MethodGetTransaction    = "/" + serviceName + "/GetTransaction"
	MethodCheckTransaction  = "/" + serviceName + "/CheckTransaction"
	MethodRefundTransaction = "/" + serviceName + "/RefundTransaction"
	MethodCancelTransaction = "/" + serviceName + "/CancelTransaction"
	MethodResumeEffects     = "/" + serviceName + "/ResumeEffects"
)

// TransactionServiceServer is the server API for TransactionService.
type TransactionServiceServer interface {
	GetTransaction(context.Context, *TransactionIDRequest) (*TransactionMsg, error)
	CheckTransaction(context.Context, *TransactionIDRequest) (*CheckStatusMsg, error)
	RefundTransaction(context.Context, *RefundTransactionRequest) (*RefundMsg, error)
	CancelTransaction(context.Context, *TransactionIDRequest) (*RefundMsg, error)
	ResumeEffects(context.Context, *TransactionIDRequest) (*ResumeEffectsMsg, error)
	mustEmbedUnimplementedTransactionServiceServer()
}

// UnimplementedTransactionServiceServer provides forward-compatible default implementations.
type UnimplementedTransactionServiceServer struct{}

func (UnimplementedTransactionServiceServer) GetTransaction(context.Context, *TransactionIDRequest) (*TransactionMsg, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetTransaction not implemented")
}
func (UnimplementedTransactionServiceServer) CheckTransaction(context.Context, *TransactionIDRequest) (*CheckStatusMsg, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CheckTransaction not implemented")
}
func (UnimplementedTransactionServiceServer) RefundTransaction(context.Context, *RefundTransactionRequest) (*RefundMsg, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RefundTransaction not implemented")
}
func (UnimplementedTransactionServiceServer) CancelTransaction(context.Context, *TransactionIDRequest) (*RefundMsg, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CancelTransaction not implemented")
}
func (UnimplementedTransactionServiceServer) ResumeEffects(context.Context, *TransactionIDRequest) (*ResumeEffectsMsg, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ResumeEffects not implemented")
}
func (UnimplementedTransactionServiceServer) mustEmbedUnimplementedTransactionServiceServer() {}

// RegisterTransactionServiceServer registers the TransactionServiceServer with the gRPC server.
func RegisterTransactionServiceServer(s *grpclib.Server, srv TransactionServiceServer) {
	s.RegisterService(&_TransactionService_serviceDesc, srv)
}

var _TransactionService_serviceDesc = grpclib.ServiceDesc{ //nolint:revive
	ServiceName: serviceName,
	HandlerType: (*TransactionServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "GetTransaction", Handler: _TransactionService_GetTransaction_Handler},
		{MethodName: "CheckTransaction", Handler: _TransactionService_CheckTransaction_Handler},
		{MethodName: "RefundTransaction", Handler: _TransactionService_RefundTransaction_Handler},
		{MethodName: "CancelTransaction", Handler: _TransactionService_CancelTransaction_Handler},
		{MethodName: "ResumeEffects", Handler: _TransactionService_ResumeEffects_Handler},
	},
	Streams: []grpclib.StreamDesc{},
}

func _TransactionService_GetTransaction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) { //nolint:revive,errcheck // gRPC handler registration
	in := new(TransactionIDRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionServiceServer).GetTransaction(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodGetTransaction,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransactionServiceServer).GetTransaction(ctx, req.(*TransactionIDRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransactionService_CheckTransaction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) { //nolint:revive,errcheck // gRPC handler registration
	in := new(TransactionIDRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionServiceServer).CheckTransaction(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodCheckTransaction,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransactionServiceServer).CheckTransaction(ctx, req.(*TransactionIDRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransactionService_RefundTransaction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) { //nolint:revive,errcheck // gRPC handler registration
	in := new(RefundTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionServiceServer).RefundTransaction(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodRefundTransaction,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransactionServiceServer).RefundTransaction(ctx, req.(*RefundTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransactionService_CancelTransaction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) { //nolint:revive,errcheck // gRPC handler registration
	in := new(TransactionIDRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionServiceServer).CancelTransaction(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodCancelTransaction,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransactionServiceServer).CancelTransaction(ctx, req.(*TransactionIDRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransactionService_ResumeEffects_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) { //nolint:revive,errcheck // gRPC handler registration
	in := new(TransactionIDRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionServiceServer).ResumeEffects(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodResumeEffects,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransactionServiceServer).ResumeEffects(ctx, req.(*TransactionIDRequest))
	}
	return interceptor(ctx, in, info, handler)
}
