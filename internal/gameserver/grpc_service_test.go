package gameserver_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/pvp/internal/gameserver"
)

// testGRPCServer starts an in-process gRPC server over f and returns a connected client.
func testGRPCServer(t *testing.T, f *fixture) *grpc.ClientConn {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcServer := grpc.NewServer()
	gameserver.RegisterPvPServiceServer(grpcServer, gameserver.NewGRPCServer(f.svc, zap.NewNop()))

	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(func() { grpcServer.Stop() })

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func call(t *testing.T, conn *grpc.ClientConn, method string, req map[string]any) (*structpb.Struct, error) {
	t.Helper()
	in, err := structpb.NewStruct(req)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := new(structpb.Struct)
	err = conn.Invoke(ctx, gameserver.FullMethod(method), in, out)
	return out, err
}

func field(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func TestGRPC_ChallengeToAction(t *testing.T) {
	f := newFixture(t, hitSource())
	conn := testGRPCServer(t, f)

	c, err := call(t, conn, "CreateChallenge", map[string]any{
		"challenger_id": "alice", "target_id": "bob", "combat_type": "duel", "message": "now",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", field(c, "status"))
	assert.Equal(t, "Bob", field(c, "target_name"))

	list, err := call(t, conn, "ListChallenges", map[string]any{"player_id": "bob"})
	require.NoError(t, err)
	assert.Len(t, list.GetFields()["challenges"].GetListValue().GetValues(), 1)

	b, err := call(t, conn, "AcceptChallenge", map[string]any{"challenge_id": field(c, "id"), "player_id": "bob"})
	require.NoError(t, err)
	battleID := field(b, "id")
	require.NotEmpty(t, battleID)
	assert.Equal(t, "active", field(b, "status"))

	combatants := b.GetFields()["combatants"].GetListValue().GetValues()
	idx := int(b.GetFields()["current_actor_index"].GetNumberValue())
	actor := combatants[idx].GetStructValue().GetFields()["player_id"].GetStringValue()

	after, err := call(t, conn, "ExecuteAction", map[string]any{
		"battle_id": battleID, "player_id": actor, "action": "attack",
	})
	require.NoError(t, err)
	assert.Len(t, after.GetFields()["combat_log"].GetListValue().GetValues(), 1)

	state, err := call(t, conn, "GetBattleState", map[string]any{"battle_id": battleID})
	require.NoError(t, err)
	assert.Equal(t, battleID, field(state, "id"))
}

func TestGRPC_ErrorCodes(t *testing.T) {
	f := newFixture(t, hitSource())
	conn := testGRPCServer(t, f)

	tests := []struct {
		name   string
		method string
		req    map[string]any
		want   codes.Code
	}{
		{"unknown battle", "GetBattleState", map[string]any{"battle_id": "nope"}, codes.NotFound},
		{"missing battle id", "GetBattleState", map[string]any{}, codes.InvalidArgument},
		{"self challenge", "CreateChallenge", map[string]any{"challenger_id": "alice", "target_id": "alice", "combat_type": "duel"}, codes.InvalidArgument},
		{"not queued", "LeaveQueue", map[string]any{"player_id": "alice"}, codes.NotFound},
		{"no active battle", "GetActiveBattle", map[string]any{"player_id": "alice"}, codes.NotFound},
		{"unknown player stats", "GetCombatStats", map[string]any{"player_id": "zed"}, codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, conn, tt.method, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestGRPC_NotYourTurnIsFailedPrecondition(t *testing.T) {
	f := newFixture(t, hitSource())
	conn := testGRPCServer(t, f)
	b := f.duel(t)
	idle := b.Combatants[1-b.CurrentActorIndex].PlayerID

	_, err := call(t, conn, "ExecuteAction", map[string]any{"battle_id": b.ID, "player_id": idle, "action": "attack"})
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "not_your_turn")
}

func TestGRPC_QueueAndStats(t *testing.T) {
	f := newFixture(t, hitSource())
	conn := testGRPCServer(t, f)

	res, err := call(t, conn, "JoinQueue", map[string]any{"player_id": "alice", "ranked": true})
	require.NoError(t, err)
	st := res.GetFields()["status"].GetStructValue()
	assert.Equal(t, float64(1), st.GetFields()["position"].GetNumberValue())

	qs, err := call(t, conn, "GetQueueStatus", map[string]any{"player_id": "alice"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), qs.GetFields()["queued"].GetNumberValue())

	left, err := call(t, conn, "LeaveQueue", map[string]any{"player_id": "alice"})
	require.NoError(t, err)
	assert.True(t, left.GetFields()["left"].GetBoolValue())

	stats, err := call(t, conn, "GetCombatStats", map[string]any{"player_id": "alice"})
	require.NoError(t, err)
	assert.Equal(t, float64(1000), stats.GetFields()["pvp_rating"].GetNumberValue())
	assert.Equal(t, "bronze", field(stats, "arena_tier"))

	hist, err := call(t, conn, "GetCombatHistory", map[string]any{"player_id": "alice", "limit": 5})
	require.NoError(t, err)
	assert.Empty(t, hist.GetFields()["battles"].GetListValue().GetValues())
}

func TestGRPC_Leaderboard(t *testing.T) {
	f := newFixture(t, hitSource())
	conn := testGRPCServer(t, f)

	b := f.fightToEnd(t, f.duel(t).ID)

	out, err := call(t, conn, "Leaderboard", map[string]any{"limit": 10})
	require.NoError(t, err)
	entries := out.GetFields()["entries"].GetListValue().GetValues()
	require.Len(t, entries, 2)
	top := entries[0].GetStructValue()
	assert.Equal(t, b.WinnerID, field(top, "player_id"))
	assert.Equal(t, float64(1016), top.GetFields()["pvp_rating"].GetNumberValue())
}

func TestGRPC_SubscribeStreamsEvents(t *testing.T) {
	f := newFixture(t, hitSource())
	conn := testGRPCServer(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := conn.NewStream(ctx, &gameserver.ServiceDesc.Streams[0], gameserver.FullMethod("Subscribe"))
	require.NoError(t, err)
	in, err := structpb.NewStruct(map[string]any{"player_id": "bob"})
	require.NoError(t, err)
	require.NoError(t, stream.SendMsg(in))
	require.NoError(t, stream.CloseSend())

	hello := new(structpb.Struct)
	require.NoError(t, stream.RecvMsg(hello))
	assert.Equal(t, "subscribed", field(hello, "type"))

	_, err = call(t, conn, "CreateChallenge", map[string]any{
		"challenger_id": "alice", "target_id": "bob", "combat_type": "arena",
	})
	require.NoError(t, err)

	ev := new(structpb.Struct)
	require.NoError(t, stream.RecvMsg(ev))
	assert.Equal(t, string(gameserver.EventChallengeReceived), field(ev, "type"))
	challenge := ev.GetFields()["challenge"].GetStructValue()
	assert.Equal(t, "alice", field(challenge, "challenger_id"))
}

func TestServiceDesc_MatchesProtoContract(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "..", "api", "proto", gameserver.ServiceDesc.Metadata.(string)))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package pvp.v1;")
	assert.Contains(t, string(src), "service PvPService {")

	rpcRE := regexp.MustCompile(`rpc (\w+)\(google\.protobuf\.Struct\) returns \((stream )?google\.protobuf\.Struct\)`)
	unary := map[string]bool{}
	streams := map[string]bool{}
	for _, m := range rpcRE.FindAllStringSubmatch(string(src), -1) {
		if m[2] != "" {
			streams[m[1]] = true
		} else {
			unary[m[1]] = true
		}
	}

	descUnary := map[string]bool{}
	for _, m := range gameserver.ServiceDesc.Methods {
		descUnary[m.MethodName] = true
	}
	descStreams := map[string]bool{}
	for _, sd := range gameserver.ServiceDesc.Streams {
		assert.True(t, sd.ServerStreams, sd.StreamName)
		assert.False(t, sd.ClientStreams, sd.StreamName)
		descStreams[sd.StreamName] = true
	}
	assert.Equal(t, descUnary, unary)
	assert.Equal(t, descStreams, streams)
	assert.Equal(t, gameserver.ServiceName, gameserver.ServiceDesc.ServiceName)
}
