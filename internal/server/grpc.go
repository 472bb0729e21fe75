package server

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
	"github.com/joseph-ayodele/fleet-tracker/internal/entity"
	"github.com/joseph-ayodele/fleet-tracker/internal/export"
	"github.com/joseph-ayodele/fleet-tracker/internal/repository"
	"github.com/joseph-ayodele/fleet-tracker/internal/utils"
)

const documentServiceName = "fleet.v1.DocumentService"

// DocumentServiceServer is the gRPC surface. Messages are
// google.protobuf.Struct so no generated stubs are needed.
type DocumentServiceServer interface {
	// ProcessDocument takes {filename, media_type, content_base64, vehicle_id?}.
	ProcessDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// ListVehicles takes {active_only?}.
	ListVehicles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// ExportMaintenance takes {vehicle_id?, from_date?, to_date?} and returns {xlsx_base64}.
	ExportMaintenance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type DocumentService struct {
	processor DocumentProcessor
	vehicles  repository.VehicleRepository
	exporter  *export.Service
	maxBytes  int64
	logger    *slog.Logger
}

func NewDocumentService(proc DocumentProcessor, vehicles repository.VehicleRepository, exporter *export.Service, maxBytes int64, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytes
	}
	return &DocumentService{processor: proc, vehicles: vehicles, exporter: exporter, maxBytes: maxBytes, logger: logger}
}

// ProcessDocument returns the outcome map for committed and manual-resolution
// results alike; callers read "stage" to tell them apart. Fatal failures are
// status errors.
func (s *DocumentService) ProcessDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	filename := strings.TrimSpace(f["filename"].GetStringValue())
	encoded := f["content_base64"].GetStringValue()
	if filename == "" || encoded == "" {
		return nil, status.Error(codes.InvalidArgument, "filename and content_base64 are required")
	}
	if int64(base64.StdEncoding.DecodedLen(len(encoded))) > s.maxBytes+2 {
		return nil, status.Errorf(codes.ResourceExhausted, "document exceeds the %d MB limit", s.maxBytes>>20)
	}
	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "content_base64 is not valid base64")
	}
	hint, err := parseVehicleID(f["vehicle_id"].GetStringValue())
	if err != nil {
		return nil, common.InvalidArgumentError(common.PublicMessage(err))
	}

	doc := entity.NewUploadedDocument(filename, f["media_type"].GetStringValue(), content)
	out, err := s.processor.Process(ctx, doc, hint)
	if err != nil && !common.IsSoftFailure(err) {
		return nil, common.GRPCError(err)
	}
	resp, err := structpb.NewStruct(utils.OutcomeToMap(out))
	if err != nil {
		s.logger.Error("grpc.process.encode_failed", "doc", filename, "err", err)
		return nil, common.InternalError("could not encode outcome")
	}
	return resp, nil
}

func (s *DocumentService) ListVehicles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	list := s.vehicles.ListAll
	if req.GetFields()["active_only"].GetBoolValue() {
		list = s.vehicles.ListActive
	}
	vs, err := list(ctx)
	if err != nil {
		s.logger.Warn("grpc.vehicles.list_failed", "err", err)
		return nil, common.InternalError("list vehicles failed")
	}
	return structpb.NewStruct(map[string]any{"vehicles": utils.VehiclesToList(vs)})
}

func (s *DocumentService) ExportMaintenance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.exporter == nil {
		return nil, status.Error(codes.Unimplemented, "export is not configured")
	}
	f := req.GetFields()
	vid, err := parseVehicleID(f["vehicle_id"].GetStringValue())
	if err != nil {
		return nil, common.InvalidArgumentError(common.PublicMessage(err))
	}
	from, err := utils.ParseOptionalYMD(strings.TrimSpace(f["from_date"].GetStringValue()))
	if err != nil {
		return nil, common.InvalidArgumentError("from_date must be YYYY-MM-DD")
	}
	to, err := utils.ParseOptionalYMD(strings.TrimSpace(f["to_date"].GetStringValue()))
	if err != nil {
		return nil, common.InvalidArgumentError("to_date must be YYYY-MM-DD")
	}

	xlsx, err := s.exporter.ExportMaintenanceXLSX(ctx, vid, from, to)
	if err != nil {
		s.logger.Error("grpc.export.failed", "err", err)
		return nil, common.InternalError("export failed")
	}
	return structpb.NewStruct(map[string]any{
		"xlsx_base64": base64.StdEncoding.EncodeToString(xlsx),
	})
}

func unaryHandler(method string, call func(DocumentServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DocumentServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + documentServiceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(DocumentServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// DocumentServiceDesc describes fleet.v1.DocumentService for grpc.Server.
var DocumentServiceDesc = grpc.ServiceDesc{
	ServiceName: documentServiceName,
	HandlerType: (*DocumentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ProcessDocument", DocumentServiceServer.ProcessDocument),
		unaryHandler("ListVehicles", DocumentServiceServer.ListVehicles),
		unaryHandler("ExportMaintenance", DocumentServiceServer.ExportMaintenance),
	},
	Streams: []grpc.StreamDesc{},
}

// NewGRPCServer registers the document service with health and reflection.
func NewGRPCServer(svc DocumentServiceServer, logger *slog.Logger) *grpc.Server {
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	gs.RegisterService(&DocumentServiceDesc, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(documentServiceName, healthpb.HealthCheckResponse_SERVING)

	// Reflection for grpcurl
	reflection.Register(gs)
	return gs
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc.request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds())
		return resp, err
	}
}
