package metastore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

type episodeItem struct {
	PK            string  `dynamodbav:"pk"`
	SK            string  `dynamodbav:"sk"`
	GSI1PK        string  `dynamodbav:"gsi1pk"`
	GSI1SK        string  `dynamodbav:"gsi1sk"`
	GSI2PK        string  `dynamodbav:"gsi2pk"`
	EpisodeID     string  `dynamodbav:"episodeId"`
	StoryID       string  `dynamodbav:"storyId"`
	EpisodeNumber int     `dynamodbav:"episodeNumber"`
	S3Key         string  `dynamodbav:"s3Key"`
	PDFS3Key      *string `dynamodbav:"pdfS3Key,omitempty"`
	ImageCount    int     `dynamodbav:"imageCount"`
	Status        string  `dynamodbav:"status"`
	ErrorMessage  *string `dynamodbav:"errorMessage,omitempty"`
	CreatedAt     string  `dynamodbav:"createdAt"`
	UpdatedAt     string  `dynamodbav:"updatedAt"`
}

func (it episodeItem) toModel() models.Episode {
	createdAt, _ := time.Parse(time.RFC3339, it.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, it.UpdatedAt)
	return models.Episode{
		EpisodeID:     it.EpisodeID,
		StoryID:       it.StoryID,
		EpisodeNumber: it.EpisodeNumber,
		S3Key:         it.S3Key,
		PDFS3Key:      it.PDFS3Key,
		ImageCount:    it.ImageCount,
		Status:        models.Status(it.Status),
		ErrorMessage:  it.ErrorMessage,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

func (s *DynamoDBStore) CreateEpisode(ctx context.Context, episode models.Episode) error {
	item := episodeItem{
		PK:            storyPK(episode.StoryID),
		SK:            episodeSK(episode.EpisodeNumber),
		GSI1PK:        statusGSIPK(episode.Status),
		GSI1SK:        episode.UpdatedAt.Format(time.RFC3339),
		GSI2PK:        entityGSIPK(episode.EpisodeID),
		EpisodeID:     episode.EpisodeID,
		StoryID:       episode.StoryID,
		EpisodeNumber: episode.EpisodeNumber,
		S3Key:         episode.S3Key,
		PDFS3Key:      episode.PDFS3Key,
		ImageCount:    episode.ImageCount,
		Status:        string(episode.Status),
		ErrorMessage:  episode.ErrorMessage,
		CreatedAt:     episode.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     episode.UpdatedAt.Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewInternalError(err, "marshal episode")
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if isConditionalCheckFailed(err) {
		return nil
	}
	return classifyErr(err, "create episode")
}

func (s *DynamoDBStore) UpdateEpisodeStatus(ctx context.Context, storyID string, episodeNumber int, status models.Status, update EpisodeUpdate) error {
	key := map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: storyPK(storyID)},
		"sk": &types.AttributeValueMemberS{Value: episodeSK(episodeNumber)},
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: aws.String(s.tableName), Key: key})
	if err != nil {
		return classifyErr(err, "get episode")
	}
	if out.Item == nil {
		return apperrors.NewConflictError(fmt.Sprintf("episode %s#%d not found", storyID, episodeNumber))
	}
	var existing episodeItem
	if err := attributevalue.UnmarshalMap(out.Item, &existing); err != nil {
		return apperrors.NewInternalError(err, "unmarshal episode")
	}

	current := models.Status(existing.Status)
	if current != status && !current.CanTransitionTo(status) {
		return apperrors.NewConflictError(
			fmt.Sprintf("illegal status transition for episode %s#%d: %s -> %s", storyID, episodeNumber, current, status))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	names := map[string]string{"#status": "status"}
	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: string(status)},
		":now":    &types.AttributeValueMemberS{Value: now},
		":gsi1pk": &types.AttributeValueMemberS{Value: statusGSIPK(status)},
	}
	expr := "SET #status = :status, updatedAt = :now, gsi1pk = :gsi1pk, gsi1sk = :now"
	if update.S3Key != nil {
		expr += ", s3Key = :s3key"
		values[":s3key"] = &types.AttributeValueMemberS{Value: *update.S3Key}
	}
	if update.PDFS3Key != nil {
		expr += ", pdfS3Key = :pdfkey"
		values[":pdfkey"] = &types.AttributeValueMemberS{Value: *update.PDFS3Key}
	}
	if update.ImageCount != nil {
		expr += ", imageCount = :imgcount"
		values[":imgcount"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", *update.ImageCount)}
	}
	if update.ErrorMessage != nil {
		expr += ", errorMessage = :errmsg"
		values[":errmsg"] = &types.AttributeValueMemberS{Value: *update.ErrorMessage}
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       key,
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(pk)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if isConditionalCheckFailed(err) {
		return apperrors.NewConflictError(fmt.Sprintf("episode %s#%d not found", storyID, episodeNumber))
	}
	return classifyErr(err, "update episode status")
}

func (s *DynamoDBStore) GetEpisode(ctx context.Context, storyID string, episodeNumber int) (*models.Episode, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: storyPK(storyID)},
			"sk": &types.AttributeValueMemberS{Value: episodeSK(episodeNumber)},
		},
	})
	if err != nil {
		return nil, classifyErr(err, "get episode")
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError("episode")
	}
	var item episodeItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewInternalError(err, "unmarshal episode")
	}
	model := item.toModel()
	return &model, nil
}

func (s *DynamoDBStore) ListStoryEpisodes(ctx context.Context, storyID string) ([]models.Episode, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: storyPK(storyID)},
			":prefix": &types.AttributeValueMemberS{Value: "EPISODE#"},
		},
		ScanIndexForward: aws.Bool(true), // ascending sort key => ascending episodeNumber
	})
	if err != nil {
		return nil, classifyErr(err, "list story episodes")
	}
	episodes := make([]models.Episode, 0, len(out.Items))
	for _, rawItem := range out.Items {
		var item episodeItem
		if err := attributevalue.UnmarshalMap(rawItem, &item); err != nil {
			return nil, apperrors.NewInternalError(err, "unmarshal episode")
		}
		episodes = append(episodes, item.toModel())
	}
	return episodes, nil
}
