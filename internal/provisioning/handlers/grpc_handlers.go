package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gartstein/tenantprov/internal/provisioning/auth"
	"github.com/gartstein/tenantprov/internal/provisioning/models"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName            = "provisioning.v1.ProvisioningService"
	ProvisionCompanyMethod = auth.ProvisionCompanyMethod
	GetCompanyMethod       = "/" + ServiceName + "/GetCompany"
)

// ProvisioningServer is the gRPC surface. Messages are google.protobuf.Struct
// values carrying the same JSON documents as the HTTP routes.
type ProvisioningServer interface {
	ProvisionCompany(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetCompany(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes provisioning.v1.ProvisioningService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProvisioningServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProvisionCompany", Handler: provisionCompanyHandler},
		{MethodName: "GetCompany", Handler: getCompanyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "provisioning/v1/provisioning.proto",
}

func provisionCompanyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProvisioningServer).ProvisionCompany(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ProvisionCompanyMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ProvisioningServer).ProvisionCompany(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getCompanyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProvisioningServer).GetCompany(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetCompanyMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ProvisioningServer).GetCompany(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ProvisioningHandler provides the gRPC methods, mapping requests to a
// ProvisioningController.
type ProvisioningHandler struct {
	service ProvisioningController
	logger  *zap.Logger
}

func NewProvisioningHandler(service ProvisioningController, logger *zap.Logger) *ProvisioningHandler {
	return &ProvisioningHandler{
		service: service,
		logger:  logger.Named("grpc_handler"),
	}
}

// ProvisionCompany creates a company from a provisioning request document.
func (h *ProvisioningHandler) ProvisionCompany(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.ProvisionRequest
	if err := structToValue(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := h.service.ProvisionCompany(ctx, &req)
	if err != nil {
		h.logger.Warn("Provision company failed",
			zap.Error(err),
			zap.String("operator", auth.Subject(ctx)),
		)
		return nil, mapServiceError(err, h.logger)
	}
	return valueToStruct(resultToResponse(result))
}

// GetCompany reads {"businessId": "..."} and returns the stored company.
func (h *ProvisioningHandler) GetCompany(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	businessID := in.GetFields()["businessId"].GetStringValue()

	company, err := h.service.GetCompany(ctx, businessID)
	if err != nil {
		return nil, mapServiceError(err, h.logger)
	}
	return valueToStruct(&CompanyResponse{Success: true, Company: companyToDTO(company)})
}

func structToValue(in *structpb.Struct, out interface{}) error {
	if in == nil {
		return fmt.Errorf("request body required")
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("malformed request: %w", err)
	}
	return nil
}

func valueToStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
