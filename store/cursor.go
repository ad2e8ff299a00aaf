package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EncodeCursor turns a continuation key into an opaque, URL-safe token.
// The token is base64 over the DynamoDB JSON form of the key; encoding/json sorts map keys,
// so equal keys always yield equal tokens. A nil or empty key encodes to "".
func EncodeCursor(key PK) (string, error) {
	if len(key) == 0 {
		return "", nil
	}

	image := make(map[string]events.DynamoDBAttributeValue, len(key))
	for name, v := range key {
		switch v := v.(type) {
		case *types.AttributeValueMemberS:
			image[name] = events.NewStringAttribute(v.Value)
		case *types.AttributeValueMemberN:
			image[name] = events.NewNumberAttribute(v.Value)
		case *types.AttributeValueMemberB:
			image[name] = events.NewBinaryAttribute(v.Value)
		default:
			return "", fmt.Errorf("%w: unsupported key attribute type for %q", ErrInvalidCursor, name)
		}
	}

	raw, err := json.Marshal(image)
	if err != nil {
		return "", fmt.Errorf("%w: marshal failed: %w", ErrInvalidCursor, err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor reverses EncodeCursor. An empty token decodes to a nil key.
func DecodeCursor(cursor string) (PK, error) {
	if cursor == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: decode failed: %w", ErrInvalidCursor, err)
	}

	var image map[string]events.DynamoDBAttributeValue
	if err := json.Unmarshal(raw, &image); err != nil {
		return nil, fmt.Errorf("%w: unmarshal failed: %w", ErrInvalidCursor, err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidCursor)
	}

	key, err := keyFromImage(image)
	if err != nil {
		return nil, err
	}
	return key, nil
}

// keyFromImage converts a DynamoDB JSON key image to a PK.
func keyFromImage(image map[string]events.DynamoDBAttributeValue) (PK, error) {
	result := make(PK, len(image))
	for k, v := range image {
		switch v.DataType() {
		case events.DataTypeString:
			result[k] = &types.AttributeValueMemberS{Value: v.String()}
		case events.DataTypeNumber:
			result[k] = &types.AttributeValueMemberN{Value: v.Number()}
		case events.DataTypeBinary:
			result[k] = &types.AttributeValueMemberB{Value: v.Binary()}
		default:
			return nil, fmt.Errorf("%w: unsupported key attribute type for %q", ErrInvalidCursor, k)
		}
	}
	return result, nil
}
