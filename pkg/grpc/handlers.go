package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/models"
)

func validateDeviceID(deviceID *string) z.ZogIssueList {
	var deviceIdValidator = z.String().Trim().Min(1).Required()
	return deviceIdValidator.Validate(deviceID)
}

func envelope(message string, data any) (*structpb.Struct, error) {
	raw, err := json.Marshal(models.NewAPIResponse(message, data, common.FormatTimestamp(time.Now())))
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("convert envelope: %w", err)
	}
	return out, nil
}

func readFailed(operation string, err error) error {
	common.GetLoggerWith(common.LoggerNameGrpcServer).Error("Dashboard read failed",
		zap.String("operation", operation),
		zap.Error(err),
	)
	return status.Error(codes.Internal, "Internal server error")
}

func respond(operation, message string, data any) (*structpb.Struct, error) {
	out, err := envelope(message, data)
	if err != nil {
		return nil, readFailed(operation, err)
	}
	return out, nil
}

func (s *DashboardServer) ListDevices(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	devices, err := s.Iot.Dashboard.ListDevices(ctx)
	if err != nil {
		return nil, readFailed("list_devices", err)
	}
	return respond("list_devices", "Devices retrieved successfully", devices)
}

func (s *DashboardServer) GetStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats, err := s.Iot.Dashboard.GetStats(ctx)
	if err != nil {
		return nil, readFailed("get_stats", err)
	}
	return respond("get_stats", "Statistics retrieved successfully", stats)
}

func (s *DashboardServer) GetDeviceHealth(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.history(ctx, models.TopicHealth, "Health", req)
}

func (s *DashboardServer) GetDeviceAlarms(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.history(ctx, models.TopicAlarm, "Alarm", req)
}

func (s *DashboardServer) GetDeviceSos(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.history(ctx, models.TopicSOS, "SOS", req)
}

func (s *DashboardServer) history(ctx context.Context, topic models.Topic, label string, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	deviceID := req.GetValue()
	if err := validateDeviceID(&deviceID); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
	}

	operation := "history_" + string(topic)
	docs, err := s.Iot.Dashboard.GetDeviceHistory(ctx, topic, deviceID)
	if err != nil {
		return nil, readFailed(operation, err)
	}
	return respond(operation, fmt.Sprintf("%s data retrieved for device %s", label, deviceID), docs)
}
