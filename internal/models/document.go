package models

import "time"

// 文档处理状态
const (
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// Document 已接入的文档。文档ID即对象存储中的文件名，
// 上传+解析成功后创建，之后不再修改。
type Document struct {
	ID         uint      `gorm:"primaryKey;column:id" json:"id"`
	FileName   string    `gorm:"column:file_name;size:500;not null;index" json:"file_name"`
	OwnerID    string    `gorm:"column:owner_id;size:255;not null;index" json:"owner_id"`
	Status     string    `gorm:"column:status;size:20;default:processing" json:"status"`
	ChunkCount int       `gorm:"column:chunk_count;default:0" json:"chunk_count"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

// DocumentChunk 文档分块。只追加写入，自增主键即插入顺序，
// 检索平分时按该顺序返回。Embedding以JSON数组文本存储。
type DocumentChunk struct {
	ID         uint      `gorm:"primaryKey;column:id" json:"id"`
	DocumentID string    `gorm:"column:document_id;size:500;not null;index" json:"document_id"`
	OwnerID    string    `gorm:"column:owner_id;size:255;not null;index" json:"owner_id"`
	ChunkIndex int       `gorm:"column:chunk_index;not null" json:"chunk_index"`
	Content    string    `gorm:"column:content;type:text;not null" json:"content"`
	Embedding  string    `gorm:"column:embedding;type:text;not null" json:"-"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
