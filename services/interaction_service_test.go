package services

import (
	"context"
	"testing"

	"spark_server/apperrors"
	"spark_server/models"
	"spark_server/testsupport"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	fake         *testsupport.FakeDynamo
	dynamo       *DynamoService
	cache        *RedisCache
	profiles     *UserProfileService
	interactions *InteractionService
	matches      *MatchService
	chats        *ChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := testsupport.NewFakeDynamo()
	dynamo := &DynamoService{Client: fake}

	mr := miniredis.RunT(t)
	cache := &RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	profiles := &UserProfileService{Dynamo: dynamo}
	return &testEnv{
		fake:         fake,
		dynamo:       dynamo,
		cache:        cache,
		profiles:     profiles,
		interactions: &InteractionService{Dynamo: dynamo, Cache: cache, Profiles: profiles},
		matches:      &MatchService{Dynamo: dynamo, Profiles: profiles},
		chats:        &ChatService{Dynamo: dynamo},
	}
}

func (e *testEnv) seedUser(t *testing.T, id, name string) {
	t.Helper()
	_, err := e.profiles.AddUserProfile(context.Background(), models.UserProfile{UserID: id, Name: name, Age: 30})
	require.NoError(t, err)
}

func TestMarkSeenPassOnlyRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	result, err := env.interactions.MarkSeen(ctx, "alice", "bob", "pass")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRecorded, result.Status)
	assert.Empty(t, result.MatchID)

	profile, err := env.profiles.GetUserProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Contains(t, profile.SeenUsers, "bob")

	outgoing, err := env.interactions.ListOutgoing(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, outgoing)
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")

	_, err := env.interactions.MarkSeen(ctx, "alice", "bob", "pass")
	require.NoError(t, err)
	_, err = env.interactions.MarkSeen(ctx, "alice", "bob", "pass")
	require.NoError(t, err)

	profile, err := env.profiles.GetUserProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, profile.SeenUsers)
}

func TestMarkSeenRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")

	_, err := env.interactions.MarkSeen(ctx, "alice", "bob", "superlike")
	var ae *apperrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperrors.KindInvalidArgument, ae.Kind)

	_, err = env.interactions.MarkSeen(ctx, "alice", "alice", "friend")
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperrors.KindInvalidArgument, ae.Kind)

	_, err = env.interactions.MarkSeen(ctx, "ghost", "alice", "friend")
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperrors.KindNotFound, ae.Kind)
}

func TestJudgmentCreatesPendingRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	result, err := env.interactions.MarkSeen(ctx, "alice", "bob", "romantic")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)

	outgoing, err := env.interactions.ListOutgoing(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, models.RequestTypeRomantic, outgoing[0].Type)
	assert.Equal(t, "bob", outgoing[0].User.UserID)

	incoming, err := env.interactions.ListIncoming(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "alice", incoming[0].User.UserID)

	count, err := env.interactions.CountIncoming(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRejudgingOverwritesRequestType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	_, err := env.interactions.MarkSeen(ctx, "alice", "bob", "friend")
	require.NoError(t, err)
	_, err = env.interactions.MarkSeen(ctx, "alice", "bob", "romantic")
	require.NoError(t, err)

	outgoing, err := env.interactions.ListOutgoing(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, models.RequestTypeRomantic, outgoing[0].Type)
}

func TestReciprocityFormsMatchAndChat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	_, err := env.interactions.MarkSeen(ctx, "alice", "bob", "romantic")
	require.NoError(t, err)

	result, err := env.interactions.MarkSeen(ctx, "bob", "alice", "romantic")
	require.NoError(t, err)
	assert.Equal(t, models.StatusMatched, result.Status)
	require.NotEmpty(t, result.MatchID)
	require.NotEmpty(t, result.ChatID)

	// Both requests are consumed.
	outgoing, err := env.interactions.ListOutgoing(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, outgoing)
	incoming, err := env.interactions.ListIncoming(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, incoming)

	// Both users see the match with the counterpart's profile and the chat.
	for user, counterpart := range map[string]string{"alice": "bob", "bob": "alice"} {
		matches, err := env.matches.GetCurrentMatches(ctx, user)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, result.MatchID, matches[0].MatchID)
		assert.Equal(t, counterpart, matches[0].User.UserID)
		require.NotNil(t, matches[0].ChatID)
		assert.Equal(t, result.ChatID, *matches[0].ChatID)
	}

	// The chat accepts messages from participants.
	_, err = env.chats.SendMessage(ctx, "alice", result.ChatID, "hi!")
	require.NoError(t, err)
}

func TestTieBreakUsesCompletingRequestType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	_, err := env.interactions.MarkSeen(ctx, "alice", "bob", "friend")
	require.NoError(t, err)
	result, err := env.interactions.MarkSeen(ctx, "bob", "alice", "romantic")
	require.NoError(t, err)
	assert.Equal(t, models.StatusMatched, result.Status)

	matches, err := env.matches.GetCurrentMatches(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.RequestTypeRomantic, matches[0].Type)
}

func TestResubmitAfterMatchReturnsExistingMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	_, err := env.interactions.MarkSeen(ctx, "alice", "bob", "friend")
	require.NoError(t, err)
	first, err := env.interactions.MarkSeen(ctx, "bob", "alice", "friend")
	require.NoError(t, err)

	second, err := env.interactions.MarkSeen(ctx, "alice", "bob", "friend")
	require.NoError(t, err)
	assert.Equal(t, models.StatusMatched, second.Status)
	assert.Equal(t, first.MatchID, second.MatchID)
	assert.Equal(t, first.ChatID, second.ChatID)

	matches, err := env.matches.GetCurrentMatches(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

// hookedTransactor lets a test mutate the store between a submission's
// pre-checks and its transaction, reproducing the reciprocal-race window.
type hookedTransactor struct {
	*testsupport.FakeDynamo
	before func()
}

func (h *hookedTransactor) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	if h.before != nil {
		hook := h.before
		h.before = nil
		hook()
	}
	return h.FakeDynamo.TransactWriteItems(ctx, params, optFns...)
}

func TestConcurrentPromotionCreatesOneMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	// Bob's request is already stored, so Alice's submission will promote.
	_, err := env.interactions.MarkSeen(ctx, "bob", "alice", "romantic")
	require.NoError(t, err)

	// The "winner" match lands between Alice's reciprocity check and her
	// transaction, exactly as a concurrent submission from Bob would.
	winner := models.Match{
		PairKey:   models.PairKey("alice", "bob"),
		MatchID:   "winner-match",
		ChatID:    "winner-chat",
		Type:      models.RequestTypeRomantic,
		Users:     []string{"bob", "alice"},
		CreatedAt: "2026-08-28T10:00:00Z",
	}
	winner.User1, winner.User2 = models.SortedPair("alice", "bob")

	hooked := &hookedTransactor{FakeDynamo: env.fake, before: func() {
		require.NoError(t, env.dynamo.PutItem(ctx, models.MatchesTable, winner))
		require.NoError(t, env.dynamo.PutItem(ctx, models.ChatsTable, models.Chat{
			ChatID:    winner.ChatID,
			MatchID:   winner.MatchID,
			Users:     winner.Users,
			CreatedAt: winner.CreatedAt,
		}))
	}}
	env.interactions.Dynamo = &DynamoService{Client: hooked}

	result, err := env.interactions.MarkSeen(ctx, "alice", "bob", "romantic")
	require.NoError(t, err)
	assert.Equal(t, models.StatusMatched, result.Status)
	assert.Equal(t, "winner-match", result.MatchID)
	assert.Equal(t, "winner-chat", result.ChatID)

	// Exactly one match survives.
	matches, err := env.matches.GetCurrentMatches(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "winner-match", matches[0].MatchID)
}

func TestCancelOutgoing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	_, err := env.interactions.MarkSeen(ctx, "alice", "bob", "friend")
	require.NoError(t, err)
	requestID := models.RequestKey("alice", "bob")

	// Only the creator may cancel.
	err = env.interactions.CancelOutgoing(ctx, "bob", requestID)
	var ae *apperrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperrors.KindPermissionDenied, ae.Kind)

	require.NoError(t, env.interactions.CancelOutgoing(ctx, "alice", requestID))

	incoming, err := env.interactions.ListIncoming(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, incoming)

	count, err := env.interactions.CountIncoming(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	err = env.interactions.CancelOutgoing(ctx, "alice", requestID)
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperrors.KindNotFound, ae.Kind)
}

func TestDenyIncomingLeavesOtherDirectionIntact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	_, err := env.interactions.MarkSeen(ctx, "alice", "bob", "romantic")
	require.NoError(t, err)
	requestID := models.RequestKey("alice", "bob")

	// Only the recipient may deny.
	err = env.interactions.DenyIncoming(ctx, "alice", requestID)
	var ae *apperrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperrors.KindPermissionDenied, ae.Kind)

	require.NoError(t, env.interactions.DenyIncoming(ctx, "bob", requestID))

	incoming, err := env.interactions.ListIncoming(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, incoming)

	// Denial is one-sided: a later judgment from Bob still goes pending,
	// it does not resurrect a match from the deleted request.
	result, err := env.interactions.MarkSeen(ctx, "bob", "alice", "romantic")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)
}

func TestCountIncomingFallsBackToStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")
	env.seedUser(t, "carol", "Carol")

	_, err := env.interactions.MarkSeen(ctx, "alice", "carol", "friend")
	require.NoError(t, err)
	_, err = env.interactions.MarkSeen(ctx, "bob", "carol", "romantic")
	require.NoError(t, err)

	// Drop the cached counter; the next read recomputes from the store.
	require.NoError(t, env.cache.InvalidateIncomingCount(ctx, "carol"))

	count, err := env.interactions.CountIncoming(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// And the recomputed value is cached.
	cached, hit, err := env.cache.GetIncomingCount(ctx, "carol")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, int64(2), cached)
}

func TestListingsSkipPairsWithLiveMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	// A stale request left behind by a partial failure.
	stale := models.MatchRequest{
		RequestID: models.RequestKey("alice", "bob"),
		From:      "alice",
		To:        "bob",
		Type:      models.RequestTypeFriend,
		CreatedAt: "2026-08-28T09:00:00Z",
	}
	require.NoError(t, env.dynamo.PutItem(ctx, models.MatchRequestsTable, stale))

	match := models.Match{
		PairKey:   models.PairKey("alice", "bob"),
		MatchID:   "m1",
		ChatID:    "c1",
		Type:      models.RequestTypeFriend,
		Users:     []string{"alice", "bob"},
		CreatedAt: "2026-08-28T09:00:01Z",
	}
	match.User1, match.User2 = models.SortedPair("alice", "bob")
	require.NoError(t, env.dynamo.PutItem(ctx, models.MatchesTable, match))

	outgoing, err := env.interactions.ListOutgoing(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, outgoing)

	incoming, err := env.interactions.ListIncoming(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, incoming)
}
