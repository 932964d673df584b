package metastore

import (
	"fmt"
	"time"

	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

type storyItem struct {
	PK        string `dynamodbav:"pk"`
	SK        string `dynamodbav:"sk"`
	GSI1PK    string `dynamodbav:"gsi1pk"`
	GSI1SK    string `dynamodbav:"gsi1sk"`
	GSI2PK    string `dynamodbav:"gsi2pk"`
	StoryID   string `dynamodbav:"storyId"`
	UserID    string `dynamodbav:"userId"`
	Title     string `dynamodbav:"title"`
	S3Key     string `dynamodbav:"s3Key"`
	Status    string `dynamodbav:"status"`
	CreatedAt string `dynamodbav:"createdAt"`
	UpdatedAt string `dynamodbav:"updatedAt"`
}

func (it storyItem) toModel() models.Story {
	createdAt, _ := time.Parse(time.RFC3339, it.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, it.UpdatedAt)
	return models.Story{
		StoryID:   it.StoryID,
		UserID:    it.UserID,
		Title:     it.Title,
		S3Key:     it.S3Key,
		Status:    models.Status(it.Status),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

func (s *DynamoDBStore) CreateStory(ctx context.Context, story models.Story) error {
	item := storyItem{
		PK:        userPK(story.UserID),
		SK:        storySK(story.StoryID),
		GSI1PK:    statusGSIPK(story.Status),
		GSI1SK:    story.UpdatedAt.Format(time.RFC3339),
		GSI2PK:    entityGSIPK(story.StoryID),
		StoryID:   story.StoryID,
		UserID:    story.UserID,
		Title:     story.Title,
		S3Key:     story.S3Key,
		Status:    string(story.Status),
		CreatedAt: story.CreatedAt.Format(time.RFC3339),
		UpdatedAt: story.UpdatedAt.Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewInternalError(err, "marshal story")
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if isConditionalCheckFailed(err) {
		return nil
	}
	return classifyErr(err, "create story")
}

func (s *DynamoDBStore) UpdateStoryStatus(ctx context.Context, storyID string, status models.Status, update StoryUpdate) error {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(gsiByEntityID),
		KeyConditionExpression: aws.String("gsi2pk = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: entityGSIPK(storyID)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return classifyErr(err, "locate story")
	}
	if len(out.Items) == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("story %q not found", storyID))
	}

	var existing storyItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &existing); err != nil {
		return apperrors.NewInternalError(err, "unmarshal story")
	}

	current := models.Status(existing.Status)
	if current != status && !current.CanTransitionTo(status) {
		return apperrors.NewConflictError(
			fmt.Sprintf("illegal status transition for story %q: %s -> %s", storyID, current, status))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	names := map[string]string{"#status": "status"}
	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: string(status)},
		":now":    &types.AttributeValueMemberS{Value: now},
		":gsi1pk": &types.AttributeValueMemberS{Value: statusGSIPK(status)},
	}
	expr := "SET #status = :status, updatedAt = :now, gsi1pk = :gsi1pk, gsi1sk = :now"
	if update.Title != nil {
		expr += ", title = :title"
		values[":title"] = &types.AttributeValueMemberS{Value: *update.Title}
	}
	if update.S3Key != nil {
		expr += ", s3Key = :s3key"
		values[":s3key"] = &types.AttributeValueMemberS{Value: *update.S3Key}
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: existing.PK},
			"sk": &types.AttributeValueMemberS{Value: existing.SK},
		},
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(pk)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if isConditionalCheckFailed(err) {
		return apperrors.NewConflictError(fmt.Sprintf("story %q not found", storyID))
	}
	return classifyErr(err, "update story status")
}

func (s *DynamoDBStore) GetStory(ctx context.Context, userID, storyID string) (*models.Story, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: userPK(userID)},
			"sk": &types.AttributeValueMemberS{Value: storySK(storyID)},
		},
	})
	if err != nil {
		return nil, classifyErr(err, "get story")
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError("story")
	}
	var item storyItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewInternalError(err, "unmarshal story")
	}
	model := item.toModel()
	return &model, nil
}

func (s *DynamoDBStore) ListUserStories(ctx context.Context, userID string) ([]models.Story, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression:  aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: userPK(userID)},
			":prefix": &types.AttributeValueMemberS{Value: "STORY#"},
		},
	})
	if err != nil {
		return nil, classifyErr(err, "list user stories")
	}
	stories := make([]models.Story, 0, len(out.Items))
	for _, rawItem := range out.Items {
		var item storyItem
		if err := attributevalue.UnmarshalMap(rawItem, &item); err != nil {
			return nil, apperrors.NewInternalError(err, "unmarshal story")
		}
		stories = append(stories, item.toModel())
	}
	return stories, nil
}
