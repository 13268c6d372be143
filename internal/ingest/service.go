// Package ingest exposes a gRPC endpoint that lets external systems push
// transactions into the generator's event queue alongside the synthetic
// emitters.
//
// Requests and responses are google.protobuf.Struct values carrying the same
// flat mapping used on the Kafka topic, so no generated stubs are needed.
package ingest

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"fraudstream/internal/domain"
)

const (
	ServiceName           = "fraudstream.v1.Ingestion"
	sendTransactionMethod = "/" + ServiceName + "/SendTransaction"
)

type IngestionServer interface {
	SendTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IngestionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendTransaction", Handler: sendTransactionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fraudstream/v1/ingestion.proto",
}

func sendTransactionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IngestionServer).SendTransaction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: sendTransactionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IngestionServer).SendTransaction(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// SendTransaction calls the ingestion service over cc.
func SendTransaction(ctx context.Context, cc grpc.ClientConnInterface, tx domain.Transaction) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(tx.Fields())
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, sendTransactionMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}
