package services

import (
	"context"
	"testing"

	"spark_server/apperrors"
	"spark_server/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formMatch(t *testing.T, env *testEnv, a, b string) *MarkSeenResult {
	t.Helper()
	ctx := context.Background()
	_, err := env.interactions.MarkSeen(ctx, a, b, "romantic")
	require.NoError(t, err)
	result, err := env.interactions.MarkSeen(ctx, b, a, "romantic")
	require.NoError(t, err)
	require.Equal(t, models.StatusMatched, result.Status)
	return result
}

func TestGetCurrentMatchesJoinsCounterpartProfiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")
	env.seedUser(t, "carol", "Carol")

	formMatch(t, env, "alice", "bob")
	formMatch(t, env, "carol", "alice")

	matches, err := env.matches.GetCurrentMatches(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	names := []string{matches[0].User.Name, matches[1].User.Name}
	assert.ElementsMatch(t, []string{"Bob", "Carol"}, names)
	for _, m := range matches {
		assert.NotNil(t, m.ChatID)
	}

	// Carol only sees her own match.
	carolMatches, err := env.matches.GetCurrentMatches(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, carolMatches, 1)
	assert.Equal(t, "Alice", carolMatches[0].User.Name)
}

func TestMissingChatDegradesToNullChatID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	result := formMatch(t, env, "alice", "bob")

	// Simulate a lost chat record.
	require.NoError(t, env.dynamo.DeleteItem(ctx, models.ChatsTable, map[string]types.AttributeValue{
		"chatId": &types.AttributeValueMemberS{Value: result.ChatID},
	}))

	matches, err := env.matches.GetCurrentMatches(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Nil(t, matches[0].ChatID)
}

func TestGetChatSummaries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	result := formMatch(t, env, "alice", "bob")

	summaries, err := env.matches.GetChatSummaries(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, result.ChatID, summaries[0].ChatID)
	assert.Equal(t, "Bob", summaries[0].Name)
	assert.Equal(t, models.RequestTypeRomantic, summaries[0].Type)
}

func TestUnmatchDeletesMatchChatAndMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")

	result := formMatch(t, env, "alice", "bob")
	_, err := env.chats.SendMessage(ctx, "alice", result.ChatID, "hey")
	require.NoError(t, err)
	_, err = env.chats.SendMessage(ctx, "bob", result.ChatID, "hey back")
	require.NoError(t, err)

	require.NoError(t, env.matches.Unmatch(ctx, "bob", result.MatchID))

	matches, err := env.matches.GetCurrentMatches(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, matches)

	// The chat is gone along with the match.
	_, err = env.chats.GetMessages(ctx, "alice", result.ChatID, 0)
	var ae *apperrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperrors.KindNotFound, ae.Kind)

	// The pair can match again from scratch.
	again := formMatch(t, env, "alice", "bob")
	assert.NotEqual(t, result.MatchID, again.MatchID)
}

func TestUnmatchRejectsNonParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "Alice")
	env.seedUser(t, "bob", "Bob")
	env.seedUser(t, "mallory", "Mallory")

	result := formMatch(t, env, "alice", "bob")

	err := env.matches.Unmatch(ctx, "mallory", result.MatchID)
	var ae *apperrors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperrors.KindPermissionDenied, ae.Kind)

	err = env.matches.Unmatch(ctx, "alice", "no-such-match")
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperrors.KindNotFound, ae.Kind)
}
