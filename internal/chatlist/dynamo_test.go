package chatlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"flowchat/internal/flow"
	"flowchat/internal/promptflow"
)

type fakeDynamo struct {
	items      map[string]map[string]types.AttributeValue
	getErr     error
	putErr     error
	scanPages  []*dynamodb.ScanOutput
	scanCalls  int
	lastPut    *dynamodb.PutItemInput
	lastGet    *dynamodb.GetItemInput
	scanInputs []*dynamodb.ScanInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func pkOf(key map[string]types.AttributeValue) string {
	return key["PK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGet = in
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dynamodb.GetItemOutput{Item: f.items[pkOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPut = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.items[pkOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	pk := pkOf(in.Key)
	old := f.items[pk]
	delete(f.items, pk)
	return &dynamodb.DeleteItemOutput{Attributes: old}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanInputs = append(f.scanInputs, in)
	if f.scanCalls >= len(f.scanPages) {
		return &dynamodb.ScanOutput{}, nil
	}
	out := f.scanPages[f.scanCalls]
	f.scanCalls++
	return out, nil
}

func mustNewDynamoStore(t *testing.T, db *fakeDynamo) *DynamoStore {
	t.Helper()
	s, err := NewDynamoStore(db, "chats")
	require.NoError(t, err)
	return s
}

func TestNewDynamoStore_Validation(t *testing.T) {
	_, err := NewDynamoStore(nil, "chats")
	require.Error(t, err)
	_, err = NewDynamoStore(newFakeDynamo(), "  ")
	require.Error(t, err)
}

func TestDynamoStore_SaveAndGet(t *testing.T) {
	db := newFakeDynamo()
	s := mustNewDynamoStore(t, db)
	ctx := context.Background()
	updated := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	err := s.Save(ctx, Chat{
		ID:             "abc",
		Title:          "Deploy plan",
		FlowIdentifier: "F1",
		Messages:       []promptflow.Message{{ID: "m1", Role: flow.RoleUser, Content: "deploy?"}},
		Updated:        updated,
	})
	require.NoError(t, err)
	require.Equal(t, "CHAT#abc", db.lastPut.Item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, skMeta, db.lastPut.Item["SK"].(*types.AttributeValueMemberS).Value)

	chat, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, "Deploy plan", chat.Title)
	require.Equal(t, "F1", chat.FlowIdentifier)
	require.Len(t, chat.Messages, 1)
	require.Equal(t, "deploy?", chat.Messages[0].Content)
	require.True(t, chat.Updated.Equal(updated))
	require.True(t, *db.lastGet.ConsistentRead)
}

func TestDynamoStore_GetMissingAndError(t *testing.T) {
	db := newFakeDynamo()
	s := mustNewDynamoStore(t, db)
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	db.getErr = errors.New("throttled")
	_, err = s.Get(context.Background(), "missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "chatlist: Get")
}

func TestDynamoStore_SaveRequiresID(t *testing.T) {
	s := mustNewDynamoStore(t, newFakeDynamo())
	require.Error(t, s.Save(context.Background(), Chat{}))
}

func TestDynamoStore_ListPaginates(t *testing.T) {
	db := newFakeDynamo()
	older, err := chatItem(Chat{ID: "a", Title: "A", Updated: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	newer, err := chatItem(Chat{ID: "b", Title: "B", Updated: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	db.scanPages = []*dynamodb.ScanOutput{
		{Items: []map[string]types.AttributeValue{older}, LastEvaluatedKey: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "CHAT#a"}}},
		{Items: []map[string]types.AttributeValue{newer}},
	}
	s := mustNewDynamoStore(t, db)

	chats, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 2)
	require.Equal(t, "b", chats[0].ID)
	require.Equal(t, "a", chats[1].ID)
	require.Len(t, db.scanInputs, 2)
	require.Nil(t, db.scanInputs[0].ExclusiveStartKey)
	require.NotNil(t, db.scanInputs[1].ExclusiveStartKey)
}

func TestDynamoStore_Delete(t *testing.T) {
	db := newFakeDynamo()
	s := mustNewDynamoStore(t, db)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, Chat{ID: "x"}))
	require.NoError(t, s.Delete(ctx, "x"))
	require.ErrorIs(t, s.Delete(ctx, "x"), ErrNotFound)
}

func TestDynamoStore_BackedList(t *testing.T) {
	ctx := context.Background()
	l := New(mustNewDynamoStore(t, newFakeDynamo()))
	require.NoError(t, l.Record(ctx, "c9", "F1", []promptflow.Message{{Role: flow.RoleUser, Content: "status of build"}}))
	require.Equal(t, "status of build", New(l.Store()).GetChatTitle(ctx, "c9"))
}
