package services

import (
	"context"
	"errors"
	"time"

	"spark_server/apperrors"
	"spark_server/models"
	"spark_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type UserProfileService struct {
	Dynamo *DynamoService
}

// AddUserProfile upserts a user profile.
func (ups *UserProfileService) AddUserProfile(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error) {
	if profile.UserID == "" {
		return nil, apperrors.InvalidArgument("userId is required")
	}
	if profile.CreatedAt == "" {
		profile.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := ups.Dynamo.PutItem(ctx, models.UserProfilesTable, profile); err != nil {
		return nil, apperrors.Unavailable("failed to store profile", err)
	}
	return &profile, nil
}

// GetUserProfile retrieves a stored profile by id.
func (ups *UserProfileService) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}

	item, err := ups.Dynamo.GetItem(ctx, models.UserProfilesTable, key)
	if errors.Is(err, ErrItemNotFound) {
		return nil, apperrors.NotFound("user not found")
	} else if err != nil {
		return nil, apperrors.Unavailable("failed to fetch profile", err)
	}

	var profile models.UserProfile
	if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
		return nil, apperrors.Unavailable("failed to parse profile", err)
	}
	return &profile, nil
}

// GetPublicProfile returns the public projection of a profile.
func (ups *UserProfileService) GetPublicProfile(ctx context.Context, userID string) (*models.PublicProfile, error) {
	profile, err := ups.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	pub := profile.Public()
	return &pub, nil
}

// GetCandidateProfiles pages through profiles the user has not judged yet.
// The seen set is read fresh on every call, so exclusions from concurrent
// markSeen calls take effect on the next page request without any cache.
func (ups *UserProfileService) GetCandidateProfiles(
	ctx context.Context,
	userID string,
	pageSize int,
	cursorToken string,
) ([]models.PublicProfile, string, error) {
	if pageSize <= 0 {
		pageSize = 10
	}

	viewer, err := ups.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	seen := make(map[string]struct{}, len(viewer.SeenUsers)+1)
	seen[userID] = struct{}{}
	for _, id := range viewer.SeenUsers {
		seen[id] = struct{}{}
	}

	cursor, err := utils.DecodeCursor(cursorToken)
	if err != nil {
		return nil, "", apperrors.InvalidArgument("invalid pagination token")
	}

	var startKey map[string]types.AttributeValue
	if cursor.LastUserID != "" {
		startKey = map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: cursor.LastUserID},
		}
	}

	candidates := make([]models.PublicProfile, 0, pageSize)
	lastScanned := ""

	// Scan page by page until the requested number of unseen profiles is
	// collected or the table runs out.
	for len(candidates) < pageSize {
		items, lastKey, err := ups.Dynamo.ScanPage(ctx, models.UserProfilesTable, int32(pageSize*2), startKey)
		if err != nil {
			return nil, "", apperrors.Unavailable("failed to scan profiles", err)
		}

		for _, item := range items {
			id := utils.ExtractString(item, "userId")
			if id == "" {
				continue
			}
			lastScanned = id
			if _, excluded := seen[id]; excluded {
				continue
			}

			var profile models.UserProfile
			if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
				continue
			}
			candidates = append(candidates, profile.Public())
			if len(candidates) == pageSize {
				break
			}
		}

		if lastKey == nil {
			if len(candidates) < pageSize {
				lastScanned = "" // table exhausted, no next page
			}
			break
		}
		startKey = lastKey
	}

	nextToken := ""
	if lastScanned != "" {
		nextToken, err = utils.EncodeCursor(utils.Cursor{LastUserID: lastScanned})
		if err != nil {
			return nil, "", apperrors.Unavailable("failed to encode cursor", err)
		}
	}

	return candidates, nextToken, nil
}
