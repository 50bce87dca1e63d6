package gameserver

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pvp.v1.PvPService"

// PvPServiceServer is the gRPC surface. Requests and responses are
// google.protobuf.Struct documents keyed by the snake_case field names of the
// domain types.
type PvPServiceServer interface {
	CreateChallenge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AcceptChallenge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeclineChallenge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListChallenges(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetActiveBattle(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBattleState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExecuteAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AttemptFlee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinQueue(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LeaveQueue(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetQueueStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCombatHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCombatStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Leaderboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Subscribe(*structpb.Struct, grpc.ServerStream) error
}

// GRPCServer adapts Service to PvPServiceServer.
type GRPCServer struct {
	svc    *Service
	logger *zap.Logger
}

var _ PvPServiceServer = (*GRPCServer)(nil)

// NewGRPCServer creates a GRPCServer.
//
// Precondition: svc and logger must be non-nil.
func NewGRPCServer(svc *Service, logger *zap.Logger) *GRPCServer {
	return &GRPCServer{svc: svc, logger: logger}
}

// RegisterPvPServiceServer registers srv on r.
func RegisterPvPServiceServer(r grpc.ServiceRegistrar, srv PvPServiceServer) {
	r.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the wire path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type unaryCall func(PvPServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PvPServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PvPServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PvPServiceServer).Subscribe(in, stream)
}

// ServiceDesc describes PvPService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PvPServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateChallenge", Handler: unaryHandler("CreateChallenge", PvPServiceServer.CreateChallenge)},
		{MethodName: "AcceptChallenge", Handler: unaryHandler("AcceptChallenge", PvPServiceServer.AcceptChallenge)},
		{MethodName: "DeclineChallenge", Handler: unaryHandler("DeclineChallenge", PvPServiceServer.DeclineChallenge)},
		{MethodName: "ListChallenges", Handler: unaryHandler("ListChallenges", PvPServiceServer.ListChallenges)},
		{MethodName: "GetActiveBattle", Handler: unaryHandler("GetActiveBattle", PvPServiceServer.GetActiveBattle)},
		{MethodName: "GetBattleState", Handler: unaryHandler("GetBattleState", PvPServiceServer.GetBattleState)},
		{MethodName: "ExecuteAction", Handler: unaryHandler("ExecuteAction", PvPServiceServer.ExecuteAction)},
		{MethodName: "AttemptFlee", Handler: unaryHandler("AttemptFlee", PvPServiceServer.AttemptFlee)},
		{MethodName: "JoinQueue", Handler: unaryHandler("JoinQueue", PvPServiceServer.JoinQueue)},
		{MethodName: "LeaveQueue", Handler: unaryHandler("LeaveQueue", PvPServiceServer.LeaveQueue)},
		{MethodName: "GetQueueStatus", Handler: unaryHandler("GetQueueStatus", PvPServiceServer.GetQueueStatus)},
		{MethodName: "GetCombatHistory", Handler: unaryHandler("GetCombatHistory", PvPServiceServer.GetCombatHistory)},
		{MethodName: "GetCombatStats", Handler: unaryHandler("GetCombatStats", PvPServiceServer.GetCombatStats)},
		{MethodName: "Leaderboard", Handler: unaryHandler("Leaderboard", PvPServiceServer.Leaderboard)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "pvp/v1/pvp.proto",
}

// CreateChallenge expects challenger_id, target_id, combat_type and an optional message.
func (g *GRPCServer) CreateChallenge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, err := g.svc.CreateChallenge(ctx, str(in, "challenger_id"), str(in, "target_id"), str(in, "combat_type"), str(in, "message"))
	return g.reply("CreateChallenge", c, err)
}

// AcceptChallenge expects challenge_id and player_id.
func (g *GRPCServer) AcceptChallenge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	b, err := g.svc.AcceptChallenge(ctx, str(in, "challenge_id"), str(in, "player_id"))
	return g.reply("AcceptChallenge", b, err)
}

// DeclineChallenge expects challenge_id and player_id.
func (g *GRPCServer) DeclineChallenge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, err := g.svc.DeclineChallenge(ctx, str(in, "challenge_id"), str(in, "player_id"))
	return g.reply("DeclineChallenge", c, err)
}

// ListChallenges expects player_id and replies {"challenges": [...]}.
func (g *GRPCServer) ListChallenges(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	out, err := g.svc.ListChallenges(ctx, str(in, "player_id"))
	return g.reply("ListChallenges", map[string]any{"challenges": out}, err)
}

// GetActiveBattle expects player_id.
func (g *GRPCServer) GetActiveBattle(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	b, err := g.svc.GetActiveBattle(ctx, str(in, "player_id"))
	return g.reply("GetActiveBattle", b, err)
}

// GetBattleState expects battle_id.
func (g *GRPCServer) GetBattleState(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	b, err := g.svc.GetBattleState(ctx, str(in, "battle_id"))
	return g.reply("GetBattleState", b, err)
}

// ExecuteAction expects battle_id, player_id, action and optional target_id and ability_id.
func (g *GRPCServer) ExecuteAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	b, err := g.svc.ExecuteAction(ctx, str(in, "battle_id"), str(in, "player_id"),
		str(in, "action"), str(in, "target_id"), str(in, "ability_id"))
	return g.reply("ExecuteAction", b, err)
}

// AttemptFlee expects battle_id and player_id.
func (g *GRPCServer) AttemptFlee(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	b, err := g.svc.AttemptFlee(ctx, str(in, "battle_id"), str(in, "player_id"))
	return g.reply("AttemptFlee", b, err)
}

// JoinQueue expects player_id and an optional ranked flag.
func (g *GRPCServer) JoinQueue(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	res, err := g.svc.JoinQueue(ctx, str(in, "player_id"), in.GetFields()["ranked"].GetBoolValue())
	return g.reply("JoinQueue", res, err)
}

// LeaveQueue expects player_id.
func (g *GRPCServer) LeaveQueue(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	err := g.svc.LeaveQueue(ctx, str(in, "player_id"))
	return g.reply("LeaveQueue", map[string]any{"left": err == nil}, err)
}

// GetQueueStatus expects player_id.
func (g *GRPCServer) GetQueueStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	st, err := g.svc.GetQueueStatus(ctx, str(in, "player_id"))
	return g.reply("GetQueueStatus", st, err)
}

// GetCombatHistory expects player_id and optional limit and skip; it replies {"battles": [...]}.
func (g *GRPCServer) GetCombatHistory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	out, err := g.svc.GetCombatHistory(ctx, str(in, "player_id"), num(in, "limit"), num(in, "skip"))
	return g.reply("GetCombatHistory", map[string]any{"battles": out}, err)
}

// GetCombatStats expects player_id.
func (g *GRPCServer) GetCombatStats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	cs, err := g.svc.GetCombatStats(ctx, str(in, "player_id"))
	return g.reply("GetCombatStats", cs, err)
}

// Leaderboard expects an optional limit; it replies {"entries": [...]}.
func (g *GRPCServer) Leaderboard(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	out, err := g.svc.Leaderboard(ctx, num(in, "limit"))
	return g.reply("Leaderboard", map[string]any{"entries": out}, err)
}

// Subscribe streams player_id's notifications until the client goes away or
// the subscriber is dropped.
func (g *GRPCServer) Subscribe(in *structpb.Struct, stream grpc.ServerStream) error {
	playerID := str(in, "player_id")
	if playerID == "" {
		return toStatus(fmt.Errorf("%w: player_id", pvperr.ErrMissingField))
	}
	sub := g.svc.Subscribe(playerID)
	defer g.svc.Unsubscribe(sub)
	g.logger.Info("subscriber connected", zap.String("player_id", playerID))

	// header frame so clients know the subscription is live
	if err := stream.SendMsg(&structpb.Struct{Fields: map[string]*structpb.Value{
		"type": structpb.NewStringValue("subscribed"),
	}}); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("subscriber disconnected", zap.String("player_id", playerID))
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return status.Error(codes.ResourceExhausted, "subscriber dropped")
			}
			msg, err := toStruct(ev)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

func (g *GRPCServer) reply(method string, v any, err error) (*structpb.Struct, error) {
	if err != nil {
		if pvperr.CategoryOf(err) == pvperr.CategoryUnknown {
			g.logger.Error("rpc failed", zap.String("method", method), zap.Error(err))
		}
		return nil, toStatus(err)
	}
	out, err := toStruct(v)
	if err != nil {
		g.logger.Error("encoding reply", zap.String("method", method), zap.Error(err))
		return nil, status.Error(codes.Internal, "encoding reply")
	}
	return out, nil
}

// toStatus maps a pvperr category onto a gRPC status code.
func toStatus(err error) error {
	code := codes.Internal
	switch pvperr.CategoryOf(err) {
	case pvperr.CategoryValidation:
		code = codes.InvalidArgument
	case pvperr.CategoryConflict:
		code = codes.FailedPrecondition
	case pvperr.CategoryNotFound:
		code = codes.NotFound
	case pvperr.CategoryExhausted:
		code = codes.ResourceExhausted
	case pvperr.CategoryForbidden:
		code = codes.PermissionDenied
	}
	return status.Error(code, pvperr.CodeOf(err)+": "+err.Error())
}

// toStruct converts v to a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling reply: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("reply is not an object: %w", err)
	}
	return structpb.NewStruct(m)
}

func str(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func num(in *structpb.Struct, key string) int {
	return int(in.GetFields()[key].GetNumberValue())
}
