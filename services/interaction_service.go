package services

import (
	"context"
	"errors"
	"log"
	"time"

	"spark_server/apperrors"
	"spark_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// InteractionService records judgments and runs the match-formation engine.
type InteractionService struct {
	Dynamo   *DynamoService
	Cache    *RedisCache
	Profiles *UserProfileService
}

// MarkSeenResult is the outcome of recording a judgment.
type MarkSeenResult struct {
	Status  string `json:"status"`
	MatchID string `json:"matchId,omitempty"`
	ChatID  string `json:"chatId,omitempty"`
}

// MarkSeen adds targetID to userID's seen set and, for friend/romantic
// judgments, hands the directional request to the formation engine.
func (s *InteractionService) MarkSeen(ctx context.Context, userID, targetID, action string) (*MarkSeenResult, error) {
	judgment, ok := models.ParseJudgment(action)
	if !ok {
		return nil, apperrors.InvalidArgument("action must be one of pass, friend, romantic")
	}
	if userID == targetID {
		return nil, apperrors.InvalidArgument("cannot judge yourself")
	}

	// The actor must exist; the seen set lives on their profile document.
	if _, err := s.Profiles.GetUserProfile(ctx, userID); err != nil {
		return nil, err
	}

	// ADD on a string set is a no-op when the member is already present,
	// which gives markSeen its idempotency for free.
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
	_, err := s.Dynamo.UpdateItem(ctx, models.UserProfilesTable,
		"ADD seenUsers :target",
		key,
		map[string]types.AttributeValue{
			":target": &types.AttributeValueMemberSS{Value: []string{targetID}},
		},
		nil,
	)
	if err != nil {
		return nil, apperrors.Unavailable("failed to record seen user", err)
	}

	if judgment == models.JudgmentPass {
		return &MarkSeenResult{Status: models.StatusRecorded}, nil
	}

	return s.SubmitRequest(ctx, userID, targetID, models.RequestType(judgment))
}

// SubmitRequest upserts the directional request (from, to) and promotes the
// pair into a match and chat when the reciprocal request exists.
//
// Match+Chat creation happens inside one TransactWriteItems guarded by
// attribute_not_exists on the sorted pair key, so the promotion runs at most
// once per pair even when both users trigger it concurrently.
func (s *InteractionService) SubmitRequest(ctx context.Context, from, to string, reqType models.RequestType) (*MarkSeenResult, error) {
	pairKey := models.PairKey(from, to)

	// Retry idempotency: a live match for the pair short-circuits before
	// any write, so re-judging a matched user never stacks state.
	if existing, err := s.getMatchByPair(ctx, pairKey); err == nil {
		return &MarkSeenResult{Status: models.StatusMatched, MatchID: existing.MatchID, ChatID: existing.ChatID}, nil
	} else if !errors.Is(err, ErrItemNotFound) {
		return nil, apperrors.Unavailable("failed to check existing match", err)
	}

	now := time.Now().UTC()
	request := models.MatchRequest{
		RequestID: models.RequestKey(from, to),
		From:      from,
		To:        to,
		Type:      reqType,
		CreatedAt: now.Format(time.RFC3339),
	}

	// Overwrite semantics: same ordered pair, last write wins.
	if err := s.Dynamo.PutItem(ctx, models.MatchRequestsTable, request); err != nil {
		return nil, apperrors.Unavailable("failed to store match request", err)
	}

	reciprocal, err := s.getRequest(ctx, models.RequestKey(to, from))
	if errors.Is(err, ErrItemNotFound) {
		_ = s.Cache.IncrIncomingCount(ctx, to) // cache drift is self-healing
		return &MarkSeenResult{Status: models.StatusPending}, nil
	} else if err != nil {
		return nil, apperrors.Unavailable("failed to check reciprocal request", err)
	}

	// Reciprocity trigger. When the two types disagree, the request that
	// completed the pair wins.
	matchType := reqType
	if reciprocal.Type != reqType {
		log.Printf("Request types disagree for %s (%s vs %s), using %s", pairKey, reqType, reciprocal.Type, reqType)
	}

	match := models.Match{
		PairKey:   pairKey,
		MatchID:   uuid.NewString(),
		ChatID:    uuid.NewString(),
		Type:      matchType,
		Users:     []string{from, to},
		CreatedAt: now.Format(time.RFC3339),
	}
	match.User1, match.User2 = models.SortedPair(from, to)

	chat := models.Chat{
		ChatID:    match.ChatID,
		MatchID:   match.MatchID,
		Users:     []string{from, to},
		CreatedAt: match.CreatedAt,
	}

	matchItem, err := attributevalue.MarshalMap(match)
	if err != nil {
		return nil, apperrors.Unavailable("failed to marshal match", err)
	}
	chatItem, err := attributevalue.MarshalMap(chat)
	if err != nil {
		return nil, apperrors.Unavailable("failed to marshal chat", err)
	}

	txErr := s.Dynamo.TransactWrite(ctx, []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           aws.String(models.MatchesTable),
				Item:                matchItem,
				ConditionExpression: aws.String("attribute_not_exists(pairKey)"),
			},
		},
		{
			Put: &types.Put{
				TableName: aws.String(models.ChatsTable),
				Item:      chatItem,
			},
		},
		{
			Delete: &types.Delete{
				TableName: aws.String(models.MatchRequestsTable),
				Key:       requestKeyAttr(models.RequestKey(from, to)),
			},
		},
		{
			Delete: &types.Delete{
				TableName: aws.String(models.MatchRequestsTable),
				Key:       requestKeyAttr(models.RequestKey(to, from)),
			},
		},
	})
	if txErr != nil {
		if IsConditionalCheckFailed(txErr) {
			// Lost the race against the reciprocal submission. The winner's
			// match is the match; report it instead of failing.
			winner, err := s.getMatchByPair(ctx, pairKey)
			if err != nil {
				return nil, apperrors.Unavailable("failed to resolve concurrent match", err)
			}
			log.Printf("Concurrent match detected for %s, returning %s", pairKey, winner.MatchID)
			return &MarkSeenResult{Status: models.StatusMatched, MatchID: winner.MatchID, ChatID: winner.ChatID}, nil
		}
		return nil, apperrors.Unavailable("failed to create match", txErr)
	}

	log.Printf("🎉 Match formed: %s and %s (%s)", from, to, matchType)

	// Both requests are consumed; drop the counters so the next count read
	// rebuilds from the store.
	_ = s.Cache.InvalidateIncomingCount(ctx, from)
	_ = s.Cache.InvalidateIncomingCount(ctx, to)

	return &MarkSeenResult{Status: models.StatusMatched, MatchID: match.MatchID, ChatID: match.ChatID}, nil
}

// ListOutgoing returns the user's live outgoing requests joined with the
// recipient's public profile. Pairs that already have a live match are
// filtered out so stale requests left by a partial failure never resurface.
func (s *InteractionService) ListOutgoing(ctx context.Context, userID string) ([]models.RequestWithProfile, error) {
	return s.listRequests(ctx, userID, models.RequestFromIndex, "#from = :uid", "from")
}

// ListIncoming is the symmetric read model over the recipient direction.
func (s *InteractionService) ListIncoming(ctx context.Context, userID string) ([]models.RequestWithProfile, error) {
	return s.listRequests(ctx, userID, models.RequestToIndex, "#to = :uid", "to")
}

func (s *InteractionService) listRequests(ctx context.Context, userID, index, keyCondition, attr string) ([]models.RequestWithProfile, error) {
	items, err := s.Dynamo.QueryItems(ctx, models.MatchRequestsTable, index,
		keyCondition,
		map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		map[string]string{"#" + attr: attr},
		0, true,
	)
	if err != nil {
		return nil, apperrors.Unavailable("failed to fetch match requests", err)
	}

	results := make([]models.RequestWithProfile, 0, len(items))
	for _, item := range items {
		var request models.MatchRequest
		if err := attributevalue.UnmarshalMap(item, &request); err != nil {
			continue
		}

		// A live match supersedes any leftover request for the pair.
		if _, err := s.getMatchByPair(ctx, models.PairKey(request.From, request.To)); err == nil {
			continue
		}

		counterpart := request.To
		if attr == "to" {
			counterpart = request.From
		}
		profile, err := s.Profiles.GetPublicProfile(ctx, counterpart)
		if err != nil {
			continue // skip requests whose counterpart vanished
		}

		results = append(results, models.RequestWithProfile{
			RequestID: request.RequestID,
			Type:      request.Type,
			CreatedAt: request.CreatedAt,
			User:      *profile,
		})
	}

	return results, nil
}

// CountIncoming returns the number of live incoming requests, cache-first
// with the store as fallback.
func (s *InteractionService) CountIncoming(ctx context.Context, userID string) (int64, error) {
	if count, hit, err := s.Cache.GetIncomingCount(ctx, userID); err == nil && hit {
		return count, nil
	}

	incoming, err := s.ListIncoming(ctx, userID)
	if err != nil {
		return 0, err
	}

	count := int64(len(incoming))
	_ = s.Cache.SetIncomingCount(ctx, userID, count)
	return count, nil
}

// CancelOutgoing deletes a request its creator no longer wants. Fail-closed:
// anyone but the creator gets PermissionDenied.
func (s *InteractionService) CancelOutgoing(ctx context.Context, userID, requestID string) error {
	request, err := s.getRequest(ctx, requestID)
	if errors.Is(err, ErrItemNotFound) {
		return apperrors.NotFound("match request not found")
	} else if err != nil {
		return apperrors.Unavailable("failed to fetch match request", err)
	}

	if request.From != userID {
		return apperrors.PermissionDenied("not the owner of this request")
	}

	if err := s.Dynamo.DeleteItem(ctx, models.MatchRequestsTable, requestKeyAttr(requestID)); err != nil {
		return apperrors.Unavailable("failed to delete match request", err)
	}

	_ = s.Cache.DecrIncomingCount(ctx, request.To)
	return nil
}

// DenyIncoming deletes only the incoming direction; the other side's
// outgoing request stays until its owner cancels it.
func (s *InteractionService) DenyIncoming(ctx context.Context, userID, requestID string) error {
	request, err := s.getRequest(ctx, requestID)
	if errors.Is(err, ErrItemNotFound) {
		return apperrors.NotFound("match request not found")
	} else if err != nil {
		return apperrors.Unavailable("failed to fetch match request", err)
	}

	if request.To != userID {
		return apperrors.PermissionDenied("not the recipient of this request")
	}

	if err := s.Dynamo.DeleteItem(ctx, models.MatchRequestsTable, requestKeyAttr(requestID)); err != nil {
		return apperrors.Unavailable("failed to delete match request", err)
	}

	_ = s.Cache.DecrIncomingCount(ctx, userID)
	return nil
}

func (s *InteractionService) getRequest(ctx context.Context, requestID string) (*models.MatchRequest, error) {
	item, err := s.Dynamo.GetItem(ctx, models.MatchRequestsTable, requestKeyAttr(requestID))
	if err != nil {
		return nil, err
	}

	var request models.MatchRequest
	if err := attributevalue.UnmarshalMap(item, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (s *InteractionService) getMatchByPair(ctx context.Context, pairKey string) (*models.Match, error) {
	item, err := s.Dynamo.GetItem(ctx, models.MatchesTable, map[string]types.AttributeValue{
		"pairKey": &types.AttributeValueMemberS{Value: pairKey},
	})
	if err != nil {
		return nil, err
	}

	var match models.Match
	if err := attributevalue.UnmarshalMap(item, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func requestKeyAttr(requestID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"requestId": &types.AttributeValueMemberS{Value: requestID},
	}
}
