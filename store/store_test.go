package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/ledger/internal/ddbfake"
	"github.com/jacentio/ledger/store"
)

// --- Test Entity Types ---

// Wallet is keyed by owner and type.
type Wallet struct {
	OwnerID string
	Kind    string
}

func (w Wallet) EntityType() string { return "wallet" }
func (w Wallet) Identity() store.Identity {
	return store.Identity{OwnerID: w.OwnerID, AccountType: w.Kind}
}

// Holder is keyed by owner only.
type Holder struct {
	OwnerID string
}

func (h Holder) EntityType() string { return "holder" }
func (h Holder) Identity() store.Identity {
	return store.Identity{OwnerID: h.OwnerID}
}

func testRegistry() *store.Registry {
	r := store.NewRegistry()
	r.Register("wallet", func(id store.Identity) store.PK {
		return store.PK{
			"pk": store.String("W#" + id.OwnerID),
			"sk": store.String("T#" + id.AccountType),
		}
	})
	r.Register("holder", func(id store.Identity) store.PK {
		return store.PK{
			"pk": store.String("H#" + id.OwnerID),
			"sk": store.String("HOLDER"),
		}
	})
	return r
}

func makeItem(pk, sk, kind string, attrs map[string]types.AttributeValue) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"pk":   store.String(pk),
		"sk":   store.String(sk),
		"__en": store.String(kind),
	}
	for k, v := range attrs {
		item[k] = v
	}
	return item
}

func newTestStore() (*store.Store, *ddbfake.Client) {
	client := ddbfake.New()
	return store.NewWithRegistry(client, store.DefaultConfig(), testRegistry()), client
}

func TestDefaultConfig(t *testing.T) {
	cfg := store.DefaultConfig()

	if cfg.TableName != "ledger" {
		t.Errorf("expected TableName 'ledger', got %q", cfg.TableName)
	}
	if cfg.EntityAttr != "__en" {
		t.Errorf("expected EntityAttr '__en', got %q", cfg.EntityAttr)
	}
}

func TestNewStore(t *testing.T) {
	s := store.New(ddbfake.New(), store.Config{})

	if s.TableName() != "ledger" {
		t.Errorf("expected empty TableName to default to 'ledger', got %q", s.TableName())
	}
	if s.EntityAttr() != "__en" {
		t.Errorf("expected empty EntityAttr to default to '__en', got %q", s.EntityAttr())
	}
	if s.Registry() != nil {
		t.Error("expected nil registry")
	}
}

func TestNewWithRegistry(t *testing.T) {
	r := testRegistry()
	s := store.NewWithRegistry(ddbfake.New(), store.Config{TableName: "accounts"}, r)

	if s.Registry() != r {
		t.Error("expected registry to be set")
	}
	if s.TableName() != "accounts" {
		t.Errorf("expected TableName 'accounts', got %q", s.TableName())
	}
}

func TestStore_SetRegistry(t *testing.T) {
	s := store.New(ddbfake.New(), store.DefaultConfig())

	if _, err := s.Key(Holder{OwnerID: "1"}); !errors.Is(err, store.ErrNoRegistry) {
		t.Errorf("expected ErrNoRegistry, got %v", err)
	}

	s.SetRegistry(testRegistry())
	key, err := s.Key(Holder{OwnerID: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key["pk"].(*types.AttributeValueMemberS).Value != "H#1" {
		t.Errorf("expected pk 'H#1', got %v", key["pk"])
	}
}

func TestStore_Key(t *testing.T) {
	s, _ := newTestStore()

	key, err := s.Key(Wallet{OwnerID: "1337", Kind: "Checking"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key["pk"].(*types.AttributeValueMemberS).Value != "W#1337" {
		t.Errorf("unexpected pk %v", key["pk"])
	}
	if key["sk"].(*types.AttributeValueMemberS).Value != "T#Checking" {
		t.Errorf("unexpected sk %v", key["sk"])
	}
}

type unregistered struct{}

func (unregistered) EntityType() string       { return "ghost" }
func (unregistered) Identity() store.Identity { return store.Identity{} }

func TestStore_Key_UnknownEntity(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.Key(unregistered{})
	if !errors.Is(err, store.ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
}

func setAdmin() expression.UpdateBuilder {
	return expression.Set(expression.Name("admin"), expression.Value(true))
}

func hasName(names map[string]string, attr string) bool {
	for _, v := range names {
		if v == attr {
			return true
		}
	}
	return false
}

// --- Get / Update ---

func TestStore_Get(t *testing.T) {
	s, client := newTestStore()
	client.Seed(makeItem("H#1", "HOLDER", "holder", map[string]types.AttributeValue{"count": store.Number(3)}))

	key, _ := s.Key(Holder{OwnerID: "1"})
	item, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item["count"].(*types.AttributeValueMemberN).Value != "3" {
		t.Errorf("expected count 3, got %v", item["count"])
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	s, _ := newTestStore()

	key, _ := s.Key(Holder{OwnerID: "missing"})
	_, err := s.Get(context.Background(), key)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Get_ClientError(t *testing.T) {
	s, client := newTestStore()
	client.Failure = errors.New("throttled")

	key, _ := s.Key(Holder{OwnerID: "1"})
	_, err := s.Get(context.Background(), key)
	if err == nil || errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected client error, got %v", err)
	}
}

func TestStore_Update(t *testing.T) {
	s, client := newTestStore()
	client.Seed(makeItem("H#1", "HOLDER", "holder", map[string]types.AttributeValue{"admin": store.Bool(false)}))

	key, _ := s.Key(Holder{OwnerID: "1"})
	err := s.Update(context.Background(), key, setAdmin(), expression.AttributeExists(expression.Name("pk")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item := client.Item("H#1", "HOLDER")
	if !item["admin"].(*types.AttributeValueMemberBOOL).Value {
		t.Error("expected admin to be true")
	}
}

func TestStore_Update_ConditionFailed(t *testing.T) {
	s, client := newTestStore()

	key, _ := s.Key(Holder{OwnerID: "missing"})
	err := s.Update(context.Background(), key, setAdmin(), expression.AttributeExists(expression.Name("pk")))
	if !errors.Is(err, store.ErrConditionFailed) {
		t.Errorf("expected ErrConditionFailed, got %v", err)
	}
	if client.Len() != 0 {
		t.Errorf("expected no item to be created, got %d", client.Len())
	}
}

// --- Query ---

func TestStore_Query(t *testing.T) {
	s, client := newTestStore()
	client.Seed(
		makeItem("W#1", "T#a", "wallet", nil),
		makeItem("W#1", "T#b", "wallet", nil),
		makeItem("W#1", "T#c", "wallet", nil),
		makeItem("W#2", "T#a", "wallet", nil),
	)

	page, err := s.Query(context.Background(), store.QueryInput{
		KeyCondition: expression.Key("pk").Equal(expression.Value("W#1")),
		Limit:        2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	if page.LastKey == nil {
		t.Fatal("expected a continuation key")
	}

	page, err = s.Query(context.Background(), store.QueryInput{
		KeyCondition: expression.Key("pk").Equal(expression.Value("W#1")),
		Limit:        2,
		StartKey:     page.LastKey,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 {
		t.Errorf("expected 1 item, got %d", len(page.Items))
	}
	if page.LastKey != nil {
		t.Errorf("expected no continuation key, got %v", page.LastKey)
	}
}

func TestStore_Query_Input(t *testing.T) {
	s, client := newTestStore()

	_, err := s.Query(context.Background(), store.QueryInput{
		IndexName:        "by-kind",
		KeyCondition:     expression.Key("pk").Equal(expression.Value("W#1")),
		Filter:           []expression.ConditionBuilder{expression.Name("balance").GreaterThan(expression.Value(0))},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := client.QueryCalls[0]
	if aws.ToString(in.TableName) != "ledger" {
		t.Errorf("expected table 'ledger', got %q", aws.ToString(in.TableName))
	}
	if aws.ToString(in.IndexName) != "by-kind" {
		t.Errorf("expected index 'by-kind', got %q", aws.ToString(in.IndexName))
	}
	if in.KeyConditionExpression == nil || in.FilterExpression == nil {
		t.Fatalf("expected key condition and filter, got %v / %v", in.KeyConditionExpression, in.FilterExpression)
	}
	if !hasName(in.ExpressionAttributeNames, "pk") || !hasName(in.ExpressionAttributeNames, "balance") {
		t.Errorf("expected shared name placeholders, got %v", in.ExpressionAttributeNames)
	}
	if len(in.ExpressionAttributeValues) != 2 {
		t.Errorf("expected 2 value placeholders, got %v", in.ExpressionAttributeValues)
	}
	if in.Limit != nil {
		t.Errorf("expected no limit, got %d", *in.Limit)
	}
}

// --- Scan ---

func seedWallets(client *ddbfake.Client, owners ...string) {
	for _, o := range owners {
		client.Seed(makeItem("W#"+o, "T#a", "wallet", nil))
	}
}

func walletFilter() []expression.ConditionBuilder {
	return []expression.ConditionBuilder{expression.Name("__en").Equal(expression.Value("wallet"))}
}

func TestStore_Scan_NoLimitReadsOnePage(t *testing.T) {
	s, client := newTestStore()
	client.MaxPageSize = 2
	seedWallets(client, "a", "b", "c", "d", "e")

	page, err := s.Scan(context.Background(), store.ScanInput{Filter: walletFilter()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.ScanCalls) != 1 {
		t.Errorf("expected 1 scan call, got %d", len(client.ScanCalls))
	}
	if len(page.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(page.Items))
	}
	if page.LastKey == nil {
		t.Error("expected a continuation key")
	}
	if client.ScanCalls[0].Limit != nil {
		t.Errorf("expected no request limit, got %d", *client.ScanCalls[0].Limit)
	}
}

func TestStore_Scan_RequestsRemainingBudget(t *testing.T) {
	s, client := newTestStore()
	client.MaxPageSize = 1
	seedWallets(client, "a", "b", "c", "d")

	page, err := s.Scan(context.Background(), store.ScanInput{Filter: walletFilter(), Limit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 3 {
		t.Errorf("expected 3 items, got %d", len(page.Items))
	}
	if page.LastKey == nil {
		t.Error("expected a continuation key")
	}

	want := []int32{3, 2, 1}
	if len(client.ScanCalls) != len(want) {
		t.Fatalf("expected %d scan calls, got %d", len(want), len(client.ScanCalls))
	}
	for i, call := range client.ScanCalls {
		if aws.ToInt32(call.Limit) != want[i] {
			t.Errorf("call %d: expected limit %d, got %d", i, want[i], aws.ToInt32(call.Limit))
		}
	}
}

func TestStore_Scan_StopsWhenExhausted(t *testing.T) {
	s, client := newTestStore()
	client.MaxPageSize = 1
	seedWallets(client, "a", "b", "c")

	page, err := s.Scan(context.Background(), store.ScanInput{Filter: walletFilter(), Limit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.ScanCalls) != 3 {
		t.Errorf("expected 3 scan calls, got %d", len(client.ScanCalls))
	}
	if len(page.Items) != 3 {
		t.Errorf("expected 3 items, got %d", len(page.Items))
	}
	if page.LastKey != nil {
		t.Errorf("expected no continuation key, got %v", page.LastKey)
	}
}

func TestStore_Scan_FilteredPagesKeepBudget(t *testing.T) {
	s, client := newTestStore()
	client.Seed(
		makeItem("A#1", "x", "other", nil),
		makeItem("A#2", "x", "other", nil),
		makeItem("A#3", "x", "other", nil),
	)
	seedWallets(client, "a", "b", "c")

	page, err := s.Scan(context.Background(), store.ScanInput{Filter: walletFilter(), Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	for _, item := range page.Items {
		if item["__en"].(*types.AttributeValueMemberS).Value != "wallet" {
			t.Errorf("unexpected item kind %v", item["__en"])
		}
	}
	// The first page holds only "other" items, so its budget carries over.
	if len(client.ScanCalls) != 3 {
		t.Errorf("expected 3 scan calls, got %d", len(client.ScanCalls))
	}
}

func TestStore_Scan_Resume(t *testing.T) {
	s, client := newTestStore()
	seedWallets(client, "a", "b", "c", "d", "e")

	first, err := s.Scan(context.Background(), store.ScanInput{Filter: walletFilter(), Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rest, err := s.Scan(context.Background(), store.ScanInput{Filter: walletFilter(), Limit: 10, StartKey: first.LastKey})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Items)+len(rest.Items) != 5 {
		t.Errorf("expected 5 items across both reads, got %d", len(first.Items)+len(rest.Items))
	}
	if rest.LastKey != nil {
		t.Errorf("expected no continuation key, got %v", rest.LastKey)
	}
}

func TestStore_Scan_ClientError(t *testing.T) {
	s, client := newTestStore()
	client.Failure = errors.New("throttled")

	if _, err := s.Scan(context.Background(), store.ScanInput{Limit: 5}); err == nil {
		t.Error("expected error")
	}
}

// --- Transactions ---

func TestStore_Commit_Empty(t *testing.T) {
	s, client := newTestStore()

	if err := s.Commit(context.Background(), s.NewTx()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.TransactCalls) != 0 {
		t.Errorf("expected no transaction call, got %d", len(client.TransactCalls))
	}
}

func TestStore_Commit(t *testing.T) {
	s, client := newTestStore()
	client.Seed(makeItem("H#1", "HOLDER", "holder", map[string]types.AttributeValue{"count": store.Number(1)}))

	holderKey, _ := s.Key(Holder{OwnerID: "1"})
	tx := s.NewTx()
	tx.Update(holderKey,
		expression.Add(expression.Name("count"), expression.Value(1)),
		expression.Name("count").LessThan(expression.Value(2)),
	)
	tx.Put(makeItem("W#1", "T#a", "wallet", nil), expression.AttributeNotExists(expression.Name("pk")))

	if err := s.Commit(context.Background(), tx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v := client.Item("H#1", "HOLDER")["count"].(*types.AttributeValueMemberN).Value; v != "2" {
		t.Errorf("expected count 2, got %s", v)
	}
	if client.Item("W#1", "T#a") == nil {
		t.Error("expected wallet to be created")
	}
	for _, ti := range client.TransactCalls[0].TransactItems {
		var table *string
		switch {
		case ti.Put != nil:
			table = ti.Put.TableName
		case ti.Update != nil:
			table = ti.Update.TableName
		}
		if aws.ToString(table) != "ledger" {
			t.Errorf("expected table 'ledger', got %q", aws.ToString(table))
		}
	}
}

func TestStore_Commit_AllOrNothing(t *testing.T) {
	s, client := newTestStore()
	client.Seed(
		makeItem("H#1", "HOLDER", "holder", map[string]types.AttributeValue{"count": store.Number(1)}),
		makeItem("W#1", "T#a", "wallet", nil),
	)

	holderKey, _ := s.Key(Holder{OwnerID: "1"})
	tx := s.NewTx()
	tx.Update(holderKey, expression.Add(expression.Name("count"), expression.Value(1)))
	putIdx := tx.Put(makeItem("W#1", "T#a", "wallet", nil), expression.AttributeNotExists(expression.Name("pk")))

	err := s.Commit(context.Background(), tx)
	idx, ok := store.ConditionFailedAt(err)
	if !ok {
		t.Fatalf("expected a condition failure, got %v", err)
	}
	if idx != putIdx {
		t.Errorf("expected failure at write %d, got %d", putIdx, idx)
	}
	if v := client.Item("H#1", "HOLDER")["count"].(*types.AttributeValueMemberN).Value; v != "1" {
		t.Errorf("expected count to stay 1, got %s", v)
	}
}

func TestStore_Commit_Delete(t *testing.T) {
	s, client := newTestStore()
	client.Seed(makeItem("W#1", "T#a", "wallet", map[string]types.AttributeValue{"balance": store.Number(0)}))

	walletKey, _ := s.Key(Wallet{OwnerID: "1", Kind: "a"})
	tx := s.NewTx()
	idx := tx.Delete(walletKey, expression.Name("balance").Equal(expression.Value(0)))
	if idx != 0 {
		t.Errorf("expected index 0, got %d", idx)
	}

	if err := s.Commit(context.Background(), tx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Item("W#1", "T#a") != nil {
		t.Error("expected wallet to be deleted")
	}
}

func TestStore_Commit_InvalidExpression(t *testing.T) {
	s, client := newTestStore()

	holderKey, _ := s.Key(Holder{OwnerID: "1"})
	tx := s.NewTx()
	tx.Update(holderKey, expression.Set(expression.Name(""), expression.Value(1)))
	if tx.Err() == nil {
		t.Error("expected the build error to be recorded")
	}

	err := s.Commit(context.Background(), tx)
	if !errors.Is(err, store.ErrInvalidExpression) {
		t.Errorf("expected ErrInvalidExpression, got %v", err)
	}
	if len(client.TransactCalls) != 0 {
		t.Errorf("expected no transaction call, got %d", len(client.TransactCalls))
	}
}

// --- Placeholders ---

func TestStore_Scan_SimilarAttributeNamesKeepDistinctPlaceholders(t *testing.T) {
	s, client := newTestStore()
	client.Seed(
		makeItem("W#1", "T#a", "wallet", map[string]types.AttributeValue{"a_b": store.String("x"), "ab": store.String("y")}),
		makeItem("W#2", "T#a", "wallet", map[string]types.AttributeValue{"a_b": store.String("y"), "ab": store.String("y")}),
	)

	page, err := s.Scan(context.Background(), store.ScanInput{
		Filter: []expression.ConditionBuilder{
			expression.Name("a_b").Equal(expression.Value("x")),
			expression.Name("ab").Equal(expression.Value("y")),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := client.ScanCalls[0]
	if len(in.ExpressionAttributeNames) != 2 || !hasName(in.ExpressionAttributeNames, "a_b") || !hasName(in.ExpressionAttributeNames, "ab") {
		t.Errorf("expected distinct name placeholders, got %v", in.ExpressionAttributeNames)
	}
	if len(in.ExpressionAttributeValues) != 2 {
		t.Errorf("expected distinct value placeholders, got %v", in.ExpressionAttributeValues)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}
	if page.Items[0]["pk"].(*types.AttributeValueMemberS).Value != "W#1" {
		t.Errorf("expected W#1, got %v", page.Items[0]["pk"])
	}
}

func TestStore_Update_SharesPlaceholdersAcrossUpdateAndCondition(t *testing.T) {
	s, client := newTestStore()
	client.Seed(makeItem("W#1", "T#a", "wallet", map[string]types.AttributeValue{"balance": store.Number(100)}))

	key, _ := s.Key(Wallet{OwnerID: "1", Kind: "a"})
	err := s.Update(context.Background(), key,
		expression.Add(expression.Name("balance"), expression.Value(-30)),
		expression.Name("balance").GreaterThanEqual(expression.Value(30)),
		expression.AttributeExists(expression.Name("pk")),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := client.Item("W#1", "T#a")["balance"].(*types.AttributeValueMemberN).Value; v != "70" {
		t.Errorf("expected balance 70, got %s", v)
	}

	err = s.Update(context.Background(), key,
		expression.Add(expression.Name("balance"), expression.Value(-80)),
		expression.Name("balance").GreaterThanEqual(expression.Value(80)),
	)
	if !errors.Is(err, store.ErrConditionFailed) {
		t.Errorf("expected ErrConditionFailed, got %v", err)
	}
}
