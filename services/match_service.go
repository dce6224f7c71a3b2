package services

import (
	"context"
	"log"

	"spark_server/apperrors"
	"spark_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MatchService serves the match read model and the unmatch action.
type MatchService struct {
	Dynamo   *DynamoService
	Profiles *UserProfileService
}

// GetCurrentMatches returns the user's live matches with the counterpart's
// public profile. A failed chat lookup degrades that entry to a null chatId
// instead of failing the whole listing.
func (ms *MatchService) GetCurrentMatches(ctx context.Context, userID string) ([]models.MatchWithProfile, error) {
	matches, err := ms.matchesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]models.MatchWithProfile, 0, len(matches))
	for _, match := range matches {
		counterpart := match.Counterpart(userID)
		profile, err := ms.Profiles.GetPublicProfile(ctx, counterpart)
		if err != nil {
			continue // counterpart profile vanished, skip the entry
		}

		entry := models.MatchWithProfile{
			MatchID:   match.MatchID,
			Type:      match.Type,
			CreatedAt: match.CreatedAt,
			User:      *profile,
		}

		chatKey := map[string]types.AttributeValue{
			"chatId": &types.AttributeValueMemberS{Value: match.ChatID},
		}
		if _, err := ms.Dynamo.GetItem(ctx, models.ChatsTable, chatKey); err == nil {
			chatID := match.ChatID
			entry.ChatID = &chatID
		} else {
			log.Printf("Chat %s missing for match %s, degrading to null", match.ChatID, match.MatchID)
		}

		results = append(results, entry)
	}

	return results, nil
}

// GetChatSummaries projects the user's matches into their chat listing.
func (ms *MatchService) GetChatSummaries(ctx context.Context, userID string) ([]models.ChatSummary, error) {
	matches, err := ms.GetCurrentMatches(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ChatSummary, 0, len(matches))
	for _, match := range matches {
		if match.ChatID == nil {
			continue
		}
		summaries = append(summaries, models.ChatSummary{
			ChatID: *match.ChatID,
			Name:   match.User.Name,
			Type:   match.Type,
		})
	}
	return summaries, nil
}

// Unmatch deletes a match together with its chat and messages. The chat and
// match records go in one transaction so the store never holds a match
// without its chat or vice versa.
func (ms *MatchService) Unmatch(ctx context.Context, userID, matchID string) error {
	match, err := ms.getMatchByID(ctx, matchID)
	if err != nil {
		return err
	}

	if !match.Contains(userID) {
		return apperrors.PermissionDenied("not a participant of this match")
	}

	// Purge messages first; a failure here leaves the match intact and the
	// whole unmatch retryable.
	if err := ms.purgeMessages(ctx, match.ChatID); err != nil {
		return apperrors.Unavailable("failed to delete chat messages", err)
	}

	txErr := ms.Dynamo.TransactWrite(ctx, []types.TransactWriteItem{
		{
			Delete: &types.Delete{
				TableName: aws.String(models.ChatsTable),
				Key: map[string]types.AttributeValue{
					"chatId": &types.AttributeValueMemberS{Value: match.ChatID},
				},
			},
		},
		{
			Delete: &types.Delete{
				TableName: aws.String(models.MatchesTable),
				Key: map[string]types.AttributeValue{
					"pairKey": &types.AttributeValueMemberS{Value: match.PairKey},
				},
			},
		},
	})
	if txErr != nil {
		return apperrors.Unavailable("failed to delete match", txErr)
	}

	log.Printf("Match %s dissolved by %s", matchID, userID)
	return nil
}

func (ms *MatchService) matchesForUser(ctx context.Context, userID string) ([]models.Match, error) {
	var matches []models.Match

	// The sorted pair members sit in separate GSIs, so membership needs
	// one query per side.
	for _, index := range []struct {
		name string
		attr string
	}{
		{models.MatchUser1Index, "user1"},
		{models.MatchUser2Index, "user2"},
	} {
		items, err := ms.Dynamo.QueryItems(ctx, models.MatchesTable, index.name,
			"#u = :uid",
			map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
			},
			map[string]string{"#u": index.attr},
			0, true,
		)
		if err != nil {
			return nil, apperrors.Unavailable("failed to fetch matches", err)
		}

		for _, item := range items {
			var match models.Match
			if err := attributevalue.UnmarshalMap(item, &match); err != nil {
				continue
			}
			matches = append(matches, match)
		}
	}

	return matches, nil
}

func (ms *MatchService) getMatchByID(ctx context.Context, matchID string) (*models.Match, error) {
	items, err := ms.Dynamo.QueryItems(ctx, models.MatchesTable, models.MatchIDIndex,
		"#m = :mid",
		map[string]types.AttributeValue{
			":mid": &types.AttributeValueMemberS{Value: matchID},
		},
		map[string]string{"#m": "matchId"},
		1, true,
	)
	if err != nil {
		return nil, apperrors.Unavailable("failed to fetch match", err)
	}
	if len(items) == 0 {
		return nil, apperrors.NotFound("match not found")
	}

	var match models.Match
	if err := attributevalue.UnmarshalMap(items[0], &match); err != nil {
		return nil, apperrors.Unavailable("failed to parse match", err)
	}
	return &match, nil
}

func (ms *MatchService) purgeMessages(ctx context.Context, chatID string) error {
	items, err := ms.Dynamo.QueryItems(ctx, models.MessagesTable, "",
		"#c = :chatId",
		map[string]types.AttributeValue{
			":chatId": &types.AttributeValueMemberS{Value: chatID},
		},
		map[string]string{"#c": "chatId"},
		0, true,
	)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	keys := make([]map[string]types.AttributeValue, 0, len(items))
	for _, item := range items {
		keys = append(keys, map[string]types.AttributeValue{
			"chatId":    item["chatId"],
			"createdAt": item["createdAt"],
		})
	}

	return ms.Dynamo.BatchDeleteItems(ctx, models.MessagesTable, keys)
}
