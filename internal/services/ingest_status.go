package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/docchat/backend-go/internal/logger"
)

// 接入状态
const (
	IngestStateProcessing = "processing"
	IngestStateCompleted  = "completed"
	IngestStateFailed     = "failed"
)

// IngestStatus 单个文档的接入进度
type IngestStatus struct {
	FileName    string `json:"file_name"`
	OwnerID     string `json:"owner_id"`
	State       string `json:"state"`
	ChunkTotal  int    `json:"chunk_total"`
	ChunkStored int    `json:"chunk_stored"`
	Error       string `json:"error,omitempty"`
}

// IngestStatusTracker Redis接入状态跟踪器。
// Redis未配置时所有操作静默跳过，不影响接入主流程。
type IngestStatusTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIngestStatusTracker 创建状态跟踪器
func NewIngestStatusTracker(client *redis.Client, ttl time.Duration) *IngestStatusTracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &IngestStatusTracker{client: client, ttl: ttl}
}

func (t *IngestStatusTracker) enabled() bool {
	return t != nil && t.client != nil
}

func (t *IngestStatusTracker) key(ownerID, fileName string) string {
	return fmt.Sprintf("docchat:ingest:%s:%s", ownerID, fileName)
}

func (t *IngestStatusTracker) write(ctx context.Context, status IngestStatus) {
	if !t.enabled() {
		return
	}

	key := t.key(status.OwnerID, status.FileName)
	data := map[string]interface{}{
		"file_name":    status.FileName,
		"owner_id":     status.OwnerID,
		"state":        status.State,
		"chunk_total":  status.ChunkTotal,
		"chunk_stored": status.ChunkStored,
		"error":        status.Error,
	}

	if err := t.client.HSet(ctx, key, data).Err(); err != nil {
		logger.Warn("Failed to write ingest status", zap.Error(err))
		return
	}
	if err := t.client.Expire(ctx, key, t.ttl).Err(); err != nil {
		logger.Warn("Failed to set TTL for ingest status", zap.Error(err))
	}
}

// MarkProcessing 标记开始处理
func (t *IngestStatusTracker) MarkProcessing(ctx context.Context, ownerID, fileName string, chunkTotal int) {
	t.write(ctx, IngestStatus{
		FileName:   fileName,
		OwnerID:    ownerID,
		State:      IngestStateProcessing,
		ChunkTotal: chunkTotal,
	})
}

// MarkProgress 更新已入库块数
func (t *IngestStatusTracker) MarkProgress(ctx context.Context, ownerID, fileName string, chunkTotal, chunkStored int) {
	t.write(ctx, IngestStatus{
		FileName:    fileName,
		OwnerID:     ownerID,
		State:       IngestStateProcessing,
		ChunkTotal:  chunkTotal,
		ChunkStored: chunkStored,
	})
}

// MarkCompleted 标记处理完成
func (t *IngestStatusTracker) MarkCompleted(ctx context.Context, ownerID, fileName string, chunkTotal int) {
	t.write(ctx, IngestStatus{
		FileName:    fileName,
		OwnerID:     ownerID,
		State:       IngestStateCompleted,
		ChunkTotal:  chunkTotal,
		ChunkStored: chunkTotal,
	})
}

// MarkFailed 标记处理失败
func (t *IngestStatusTracker) MarkFailed(ctx context.Context, ownerID, fileName string, reason string) {
	t.write(ctx, IngestStatus{
		FileName: fileName,
		OwnerID:  ownerID,
		State:    IngestStateFailed,
		Error:    reason,
	})
}

// Get 查询接入状态，未启用或不存在时返回nil
func (t *IngestStatusTracker) Get(ctx context.Context, ownerID, fileName string) (*IngestStatus, error) {
	if !t.enabled() {
		return nil, nil
	}

	values, err := t.client.HGetAll(ctx, t.key(ownerID, fileName)).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	status := &IngestStatus{
		FileName: values["file_name"],
		OwnerID:  values["owner_id"],
		State:    values["state"],
		Error:    values["error"],
	}
	fmt.Sscanf(values["chunk_total"], "%d", &status.ChunkTotal)
	fmt.Sscanf(values["chunk_stored"], "%d", &status.ChunkStored)
	return status, nil
}
