package s3blob

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
)

func httpError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("api error"),
		},
	}
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no such key", fmt.Errorf("get: %w", &types.NoSuchKey{}), true},
		{"head not found", &types.NotFound{}, true},
		{"bare 404", httpError(http.StatusNotFound), true},
		{"forbidden", httpError(http.StatusForbidden), false},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func TestObjectKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "archive/positions/2025-01.jsonl", objectKey("/archive/positions/2025-01.jsonl"))
	assert.Equal(t, "archive/positions/", objectKey("archive/positions/"))
}

func TestBlobInfo(t *testing.T) {
	t.Parallel()

	modified := time.Date(2025, 2, 1, 3, 0, 0, 0, time.FixedZone("EST", -5*3600))
	info := blobInfo(types.Object{
		Key:          aws.String("archive/positions/2025-01.jsonl"),
		Size:         aws.Int64(2048),
		LastModified: &modified,
	})
	assert.Equal(t, "archive/positions/2025-01.jsonl", info.Path)
	assert.Equal(t, int64(2048), info.Size)
	assert.Equal(t, time.UTC, info.LastModified.Location())
	assert.True(t, modified.Equal(info.LastModified))

	assert.True(t, blobInfo(types.Object{Key: aws.String("x")}).LastModified.IsZero())
}
