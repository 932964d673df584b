package metastore

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

const preferencesSK = "PREFERENCES"

type preferencesItem struct {
	PK             string         `dynamodbav:"pk"`
	SK             string         `dynamodbav:"sk"`
	UserID         string         `dynamodbav:"userId"`
	Genres         []string       `dynamodbav:"genres"`
	Themes         []string       `dynamodbav:"themes"`
	ArtStyle       string         `dynamodbav:"artStyle"`
	TargetAudience string         `dynamodbav:"targetAudience"`
	ContentRating  string         `dynamodbav:"contentRating"`
	Insights       map[string]any `dynamodbav:"insights,omitempty"`
	CreatedAt      string         `dynamodbav:"createdAt"`
	UpdatedAt      string         `dynamodbav:"updatedAt"`
}

func (it preferencesItem) toModel() models.Preferences {
	createdAt, _ := time.Parse(time.RFC3339, it.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, it.UpdatedAt)
	return models.Preferences{
		UserID:         it.UserID,
		Genres:         it.Genres,
		Themes:         it.Themes,
		ArtStyle:       it.ArtStyle,
		TargetAudience: it.TargetAudience,
		ContentRating:  it.ContentRating,
		Insights:       it.Insights,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
}

func (s *DynamoDBStore) GetLatestPreferences(ctx context.Context, userID string) (*models.Preferences, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: userPK(userID)},
			"sk": &types.AttributeValueMemberS{Value: preferencesSK},
		},
	})
	if err != nil {
		return nil, classifyErr(err, "get preferences")
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError("preferences")
	}
	var item preferencesItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewInternalError(err, "unmarshal preferences")
	}
	model := item.toModel()
	return &model, nil
}

func (s *DynamoDBStore) SavePreferences(ctx context.Context, prefs models.Preferences) error {
	now := time.Now().UTC()
	createdAt := prefs.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	item := preferencesItem{
		PK:             userPK(prefs.UserID),
		SK:             preferencesSK,
		UserID:         prefs.UserID,
		Genres:         prefs.Genres,
		Themes:         prefs.Themes,
		ArtStyle:       prefs.ArtStyle,
		TargetAudience: prefs.TargetAudience,
		ContentRating:  prefs.ContentRating,
		Insights:       prefs.Insights,
		CreatedAt:      createdAt.Format(time.RFC3339),
		UpdatedAt:      now.Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewInternalError(err, "marshal preferences")
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	return classifyErr(err, "save preferences")
}

var _ MetaStore = (*DynamoDBStore)(nil)
