package metastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// Single-table design (spec §6 "Persisted state layout"):
//
//	pk=USER#{userId}    sk=PREFERENCES                  (latest preferences)
//	pk=USER#{userId}    sk=REQUEST#{requestId}
//	pk=USER#{userId}    sk=STORY#{storyId}
//	pk=STORY#{storyId}  sk=EPISODE#{NNN}
//
// GSIs:
//
//	by-status:     gsi1pk=STATUS#{status}       gsi1sk=updatedAt
//	by-entity-id:  gsi2pk=ENTITY#{entityId}     gsi2sk=pk
const (
	gsiByStatus   = "by-status"
	gsiByEntityID = "by-entity-id"
)

// DynamoDBStore is the production MetaStore adapter.
type DynamoDBStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamoDBStore wraps an already-configured dynamodb.Client.
func NewDynamoDBStore(client *dynamodb.Client, tableName string) *DynamoDBStore {
	return &DynamoDBStore{client: client, tableName: tableName}
}

func userPK(userID string) string     { return "USER#" + userID }
func storyPK(storyID string) string   { return "STORY#" + storyID }
func requestSK(requestID string) string { return "REQUEST#" + requestID }
func storySK(storyID string) string   { return "STORY#" + storyID }
func episodeSK(n int) string          { return fmt.Sprintf("EPISODE#%03d", n) }
func statusGSIPK(s models.Status) string { return "STATUS#" + string(s) }
func entityGSIPK(entityID string) string { return "ENTITY#" + entityID }

type requestItem struct {
	PK           string  `dynamodbav:"pk"`
	SK           string  `dynamodbav:"sk"`
	GSI1PK       string  `dynamodbav:"gsi1pk"`
	GSI1SK       string  `dynamodbav:"gsi1sk"`
	GSI2PK       string  `dynamodbav:"gsi2pk"`
	RequestID    string  `dynamodbav:"requestId"`
	UserID       string  `dynamodbav:"userId"`
	Type         string  `dynamodbav:"type"`
	Status       string  `dynamodbav:"status"`
	RelatedID    string  `dynamodbav:"relatedEntityId"`
	CreatedAt    string  `dynamodbav:"createdAt"`
	UpdatedAt    string  `dynamodbav:"updatedAt"`
	ErrorMessage *string `dynamodbav:"errorMessage,omitempty"`
	Progress     *int    `dynamodbav:"progress,omitempty"`
	CurrentStep  *string `dynamodbav:"currentStep,omitempty"`
}

func (it requestItem) toModel() models.GenerationRequest {
	createdAt, _ := time.Parse(time.RFC3339, it.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, it.UpdatedAt)
	return models.GenerationRequest{
		RequestID:       it.RequestID,
		UserID:          it.UserID,
		Type:            models.RequestType(it.Type),
		Status:          models.Status(it.Status),
		RelatedEntityID: it.RelatedID,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
		ErrorMessage:    it.ErrorMessage,
		Progress:        it.Progress,
		CurrentStep:     it.CurrentStep,
	}
}

func (s *DynamoDBStore) CreateRequest(ctx context.Context, req models.GenerationRequest) error {
	item := requestItem{
		PK:        userPK(req.UserID),
		SK:        requestSK(req.RequestID),
		GSI1PK:    statusGSIPK(req.Status),
		GSI1SK:    req.UpdatedAt.Format(time.RFC3339),
		GSI2PK:    entityGSIPK(req.RequestID),
		RequestID: req.RequestID,
		UserID:    req.UserID,
		Type:      string(req.Type),
		Status:    string(req.Status),
		RelatedID: req.RelatedEntityID,
		CreatedAt: req.CreatedAt.Format(time.RFC3339),
		UpdatedAt: req.UpdatedAt.Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewInternalError(err, "marshal generation request")
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if isConditionalCheckFailed(err) {
		return nil // already created: idempotent
	}
	return classifyErr(err, "create generation request")
}

func (s *DynamoDBStore) UpdateRequestStatus(ctx context.Context, requestID string, status models.Status, update RequestUpdate) error {
	// Locate the owning partition via the by-entity-id GSI, then apply a
	// conditional UpdateItem against the canonical item.
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(gsiByEntityID),
		KeyConditionExpression: aws.String("gsi2pk = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: entityGSIPK(requestID)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return classifyErr(err, "locate generation request")
	}
	if len(out.Items) == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("generation request %q not found", requestID))
	}

	var existing requestItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &existing); err != nil {
		return apperrors.NewInternalError(err, "unmarshal generation request")
	}

	current := models.Status(existing.Status)
	if current != status && !current.CanTransitionTo(status) {
		return apperrors.NewConflictError(
			fmt.Sprintf("illegal status transition for request %q: %s -> %s", requestID, current, status))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: existing.PK},
			"sk": &types.AttributeValueMemberS{Value: existing.SK},
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
		return apperrors.NewConflictError(fmt.Sprintf("generation request %q not found", requestID))
	}
	return classifyErr(err, "update generation request status")
}

func (s *DynamoDBStore) GetRequestByUserAndId(ctx context.Context, userID, requestID string) (*models.GenerationRequest, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: userPK(userID)},
			"sk": &types.AttributeValueMemberS{Value: requestSK(requestID)},
		},
	})
	if err != nil {
		return nil, classifyErr(err, "get generation request")
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError("generation request")
	}
	var item requestItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewInternalError(err, "unmarshal generation request")
	}
	model := item.toModel()
	return &model, nil
}

// classifyErr maps a raw AWS SDK error to the Transient/Internal split
// required by spec §4.1: throttling and network errors are retryable,
// everything else is treated as internal.
func classifyErr(err error, operation string) error {
	if err == nil {
		return nil
	}
	var throttled *types.ProvisionedThroughputExceededException
	var internalServer *types.InternalServerError
	if errors.As(err, &throttled) || errors.As(err, &internalServer) {
		return apperrors.NewTransientError(err, operation)
	}
	return apperrors.NewInternalError(err, operation)
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
