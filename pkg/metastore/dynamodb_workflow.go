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

const workflowSK = "META"

func workflowPK(workflowID string) string { return "WORKFLOW#" + workflowID }

type workflowItem struct {
	PK               string `dynamodbav:"pk"`
	SK               string `dynamodbav:"sk"`
	GSI1PK           string `dynamodbav:"gsi1pk"`
	GSI1SK           string `dynamodbav:"gsi1sk"`
	WorkflowID       string `dynamodbav:"workflowId"`
	RequestID        string `dynamodbav:"requestId"`
	UserID           string `dynamodbav:"userId"`
	NumberOfStories  int    `dynamodbav:"numberOfStories"`
	BatchSize        int    `dynamodbav:"batchSize"`
	CurrentBatch     int    `dynamodbav:"currentBatch"`
	TotalBatches     int    `dynamodbav:"totalBatches"`
	StoriesCompleted int                `dynamodbav:"storiesCompleted"`
	WaveSize         int                `dynamodbav:"waveSize"`
	WaveCompleted    int                `dynamodbav:"waveCompleted"`
	Status           string             `dynamodbav:"status"`
	Preferences      models.Preferences `dynamodbav:"preferences"`
	Insights         map[string]any     `dynamodbav:"insights,omitempty"`
	CreatedAt        string             `dynamodbav:"createdAt"`
	UpdatedAt        string             `dynamodbav:"updatedAt"`
}

func (it workflowItem) toModel() models.BatchWorkflow {
	createdAt, _ := time.Parse(time.RFC3339, it.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, it.UpdatedAt)
	return models.BatchWorkflow{
		WorkflowID:       it.WorkflowID,
		RequestID:        it.RequestID,
		UserID:           it.UserID,
		NumberOfStories:  it.NumberOfStories,
		BatchSize:        it.BatchSize,
		CurrentBatch:     it.CurrentBatch,
		TotalBatches:     it.TotalBatches,
		StoriesCompleted: it.StoriesCompleted,
		WaveSize:         it.WaveSize,
		WaveCompleted:    it.WaveCompleted,
		Status:           models.Status(it.Status),
		Preferences:      it.Preferences,
		Insights:         it.Insights,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}

func (s *DynamoDBStore) CreateBatchWorkflow(ctx context.Context, workflow models.BatchWorkflow) error {
	item := workflowItem{
		PK:               workflowPK(workflow.WorkflowID),
		SK:               workflowSK,
		GSI1PK:           statusGSIPK(workflow.Status),
		GSI1SK:           workflow.UpdatedAt.Format(time.RFC3339),
		WorkflowID:       workflow.WorkflowID,
		RequestID:        workflow.RequestID,
		UserID:           workflow.UserID,
		NumberOfStories:  workflow.NumberOfStories,
		BatchSize:        workflow.BatchSize,
		CurrentBatch:     workflow.CurrentBatch,
		TotalBatches:     workflow.TotalBatches,
		StoriesCompleted: workflow.StoriesCompleted,
		WaveSize:         workflow.WaveSize,
		WaveCompleted:    workflow.WaveCompleted,
		Status:           string(workflow.Status),
		Preferences:      workflow.Preferences,
		Insights:         workflow.Insights,
		CreatedAt:        workflow.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        workflow.UpdatedAt.Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewInternalError(err, "marshal batch workflow")
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if isConditionalCheckFailed(err) {
		return nil
	}
	return classifyErr(err, "create batch workflow")
}

func (s *DynamoDBStore) GetBatchWorkflow(ctx context.Context, workflowID string) (*models.BatchWorkflow, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: workflowPK(workflowID)},
			"sk": &types.AttributeValueMemberS{Value: workflowSK},
		},
	})
	if err != nil {
		return nil, classifyErr(err, "get batch workflow")
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError("batch workflow")
	}
	var item workflowItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewInternalError(err, "unmarshal batch workflow")
	}
	model := item.toModel()
	return &model, nil
}

// IncrementStoriesCompleted applies an atomic ADD against storiesCompleted
// and waveCompleted so concurrent StatusUpdate deliveries for distinct
// stories in the same batch never lose an increment to a read-modify-write
// race. The caller decides whether the returned WaveCompleted/WaveSize
// means the current wave is done; this method must not be called twice for
// the same story's terminal outcome.
func (s *DynamoDBStore) IncrementStoriesCompleted(ctx context.Context, workflowID string) (*models.BatchWorkflow, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: workflowPK(workflowID)},
			"sk": &types.AttributeValueMemberS{Value: workflowSK},
		},
		UpdateExpression:    aws.String("ADD storiesCompleted :one, waveCompleted :one SET updatedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(pk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":now": &types.AttributeValueMemberS{Value: now},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if isConditionalCheckFailed(err) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("batch workflow %q not found", workflowID))
	}
	if err != nil {
		return nil, classifyErr(err, "increment batch workflow progress")
	}
	var item workflowItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, apperrors.NewInternalError(err, "unmarshal batch workflow")
	}
	model := item.toModel()
	return &model, nil
}

// AdvanceBatchWave sets currentBatch to nextBatch and resets the wave
// counters for a new wave of waveSize stories. The conditional guard
// (currentBatch < nextBatch) makes this a no-op under redelivery of the
// StatusUpdate that triggered the advance, instead of clobbering a wave
// already in flight.
func (s *DynamoDBStore) AdvanceBatchWave(ctx context.Context, workflowID string, nextBatch, waveSize int) (*models.BatchWorkflow, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: workflowPK(workflowID)},
			"sk": &types.AttributeValueMemberS{Value: workflowSK},
		},
		UpdateExpression:    aws.String("SET currentBatch = :batch, waveSize = :wave, waveCompleted = :zero, updatedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(pk) AND currentBatch < :batch"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":batch": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", nextBatch)},
			":wave":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", waveSize)},
			":zero":  &types.AttributeValueMemberN{Value: "0"},
			":now":   &types.AttributeValueMemberS{Value: now},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if isConditionalCheckFailed(err) {
		return s.GetBatchWorkflow(ctx, workflowID)
	}
	if err != nil {
		return nil, classifyErr(err, "advance batch workflow wave")
	}
	var item workflowItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, apperrors.NewInternalError(err, "unmarshal batch workflow")
	}
	model := item.toModel()
	return &model, nil
}

func (s *DynamoDBStore) MarkBatchWorkflowStatus(ctx context.Context, workflowID string, status models.Status) error {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: workflowPK(workflowID)},
			"sk": &types.AttributeValueMemberS{Value: workflowSK},
		},
	})
	if err != nil {
		return classifyErr(err, "get batch workflow")
	}
	if out.Item == nil {
		return apperrors.NewConflictError(fmt.Sprintf("batch workflow %q not found", workflowID))
	}
	var existing workflowItem
	if err := attributevalue.UnmarshalMap(out.Item, &existing); err != nil {
		return apperrors.NewInternalError(err, "unmarshal batch workflow")
	}
	current := models.Status(existing.Status)
	if current != status && !current.CanTransitionTo(status) {
		return apperrors.NewConflictError(
			fmt.Sprintf("illegal status transition for batch workflow %q: %s -> %s", workflowID, current, status))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: workflowPK(workflowID)},
			"sk": &types.AttributeValueMemberS{Value: workflowSK},
		},
		UpdateExpression:    aws.String("SET #status = :status, updatedAt = :now, gsi1pk = :gsi1pk, gsi1sk = :now"),
		ConditionExpression: aws.String("attribute_exists(pk)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
			":now":    &types.AttributeValueMemberS{Value: now},
			":gsi1pk": &types.AttributeValueMemberS{Value: statusGSIPK(status)},
		},
	})
	if isConditionalCheckFailed(err) {
		return apperrors.NewConflictError(fmt.Sprintf("batch workflow %q not found", workflowID))
	}
	return classifyErr(err, "update batch workflow status")
}
