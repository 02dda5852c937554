package sweepsink_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/illmade-knight/go-doccache/pkg/sweepsink"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGCSReporter_Report(t *testing.T) {
	ctx := context.Background()
	cfg := sweepsink.GCSConfig{BucketName: "test-bucket", ObjectPrefix: "sweeps"}

	t.Run("archives the record under a dated path", func(t *testing.T) {
		// Arrange
		client := newMockGCSClient(nil)
		reporter, err := sweepsink.NewGCSReporter(client, cfg, "rag", zerolog.Nop())
		require.NoError(t, err)

		// Act
		err = reporter.Report(ctx, sampleReport)

		// Assert
		require.NoError(t, err)
		bucket := client.Bucket("test-bucket").(*mockGCSBucketHandle)
		bucket.mu.Lock()
		defer bucket.mu.Unlock()
		require.Len(t, bucket.objects, 1)

		obj, ok := bucket.objects["sweeps/rag/2025/06/14/sweep-123.json"]
		require.True(t, ok, "object path is incorrect")
		assert.True(t, obj.writer.closed, "writer must be closed to commit the object")

		var rec sweepsink.SweepRecord
		require.NoError(t, json.Unmarshal(obj.writer.Bytes(), &rec))
		assert.Equal(t, "sweep-123", rec.SweepID)
		assert.Equal(t, 7, rec.Remaining)
	})

	t.Run("close failure is returned", func(t *testing.T) {
		closeErr := errors.New("upload rejected")
		reporter, err := sweepsink.NewGCSReporter(newMockGCSClient(closeErr), cfg, "rag", zerolog.Nop())
		require.NoError(t, err)

		err = reporter.Report(ctx, sampleReport)
		assert.ErrorIs(t, err, closeErr)
	})

	t.Run("bucket name is required", func(t *testing.T) {
		_, err := sweepsink.NewGCSReporter(newMockGCSClient(nil), sweepsink.GCSConfig{}, "rag", zerolog.Nop())
		assert.Error(t, err)
	})
}
