package chatlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"flowchat/internal/promptflow"
)

const skMeta = "META#"

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore keeps one META# item per chat in a single table.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
}

// NewDynamoStore creates a store backed by tableName.
func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("chatlist: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("chatlist: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName}, nil
}

func chatPK(id string) string {
	return "CHAT#" + id
}

func (s *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: chatPK(id)},
		"SK": &types.AttributeValueMemberS{Value: skMeta},
	}
}

func (s *DynamoStore) Get(ctx context.Context, id string) (Chat, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Chat{}, fmt.Errorf("chatlist: Get: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return Chat{}, ErrNotFound
	}
	chat, err := itemToChat(out.Item)
	if err != nil {
		return Chat{}, fmt.Errorf("chatlist: Get decode: %w", err)
	}
	return chat, nil
}

func (s *DynamoStore) Save(ctx context.Context, chat Chat) error {
	if chat.ID == "" {
		return errors.New("chatlist: Save: id is required")
	}
	item, err := chatItem(chat)
	if err != nil {
		return fmt.Errorf("chatlist: Save encode: %w", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("chatlist: Save: %w", err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, id string) error {
	out, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.tableName),
		Key:          s.key(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("chatlist: Delete: %w", err)
	}
	if out == nil || len(out.Attributes) == 0 {
		return ErrNotFound
	}
	return nil
}

// List scans every META# item, following pagination.
func (s *DynamoStore) List(ctx context.Context) ([]Chat, error) {
	var (
		chats []Chat
		start map[string]types.AttributeValue
	)
	for {
		out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.tableName),
			FilterExpression: aws.String("SK = :sk AND begins_with(PK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":sk":     &types.AttributeValueMemberS{Value: skMeta},
				":prefix": &types.AttributeValueMemberS{Value: "CHAT#"},
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("chatlist: List scan: %w", err)
		}
		for _, item := range out.Items {
			chat, err := itemToChat(item)
			if err != nil {
				return nil, fmt.Errorf("chatlist: List decode: %w", err)
			}
			chats = append(chats, chat)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		start = out.LastEvaluatedKey
	}
	sortByUpdated(chats)
	return chats, nil
}

func chatItem(chat Chat) (map[string]types.AttributeValue, error) {
	msgs, err := json.Marshal(chat.Messages)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{
		"PK":       &types.AttributeValueMemberS{Value: chatPK(chat.ID)},
		"SK":       &types.AttributeValueMemberS{Value: skMeta},
		"chatId":   &types.AttributeValueMemberS{Value: chat.ID},
		"title":    &types.AttributeValueMemberS{Value: chat.Title},
		"flowId":   &types.AttributeValueMemberS{Value: chat.FlowIdentifier},
		"messages": &types.AttributeValueMemberS{Value: string(msgs)},
		"updated":  &types.AttributeValueMemberS{Value: chat.Updated.UTC().Format(time.RFC3339Nano)},
	}, nil
}

func itemToChat(item map[string]types.AttributeValue) (Chat, error) {
	id, err := strAttr(item, "chatId")
	if err != nil {
		return Chat{}, err
	}
	title, _ := strAttr(item, "title")   // allow empty
	flowID, _ := strAttr(item, "flowId") // allow empty
	chat := Chat{ID: id, Title: title, FlowIdentifier: flowID}
	if raw, err := strAttr(item, "messages"); err == nil && raw != "" {
		var msgs []promptflow.Message
		if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
			return Chat{}, fmt.Errorf("attribute %q: %w", "messages", err)
		}
		chat.Messages = msgs
	}
	if raw, err := strAttr(item, "updated"); err == nil && raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Chat{}, fmt.Errorf("attribute %q: %w", "updated", err)
		}
		chat.Updated = ts
	}
	return chat, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", key)
	}
	return s.Value, nil
}
