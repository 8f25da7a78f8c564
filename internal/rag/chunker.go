package rag

import "strings"

const (
	// DefaultChunkSize 默认单块目标字符数
	DefaultChunkSize = 1000
	// DefaultChunkOverlap 默认块间重叠词数
	DefaultChunkOverlap = 200
)

// Chunker 文本分块器。按空白切词后逐词累积，
// 缓冲达到目标字符数即产出一块，并以末尾若干词作为下一块的重叠起始。
type Chunker struct {
	chunkSize    int // 字符数
	chunkOverlap int // 词数
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
	}
}

// Split 将文本切分为有序的块序列。块边界对齐到词，不会从词中间截断。
// 空文本产出零块。
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	current := ""

	for i, word := range words {
		current += word + " "
		if len(current) < c.chunkSize && i != len(words)-1 {
			continue
		}

		chunk := strings.TrimSpace(current)
		// 剩余词数少于重叠词数时，末块可能与上一块完全相同，此处去重
		if chunk != "" && (len(chunks) == 0 || chunk != chunks[len(chunks)-1]) {
			chunks = append(chunks, chunk)
		}
		if i == len(words)-1 {
			break
		}

		// 取刚产出块的最后 chunkOverlap 个词作为下一块的起始
		emitted := strings.Fields(current)
		start := len(emitted) - c.chunkOverlap
		if start < 0 {
			start = 0
		}
		current = strings.Join(emitted[start:], " ") + " "
	}

	return chunks
}

// ChunkSize 返回目标块大小（字符）
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// ChunkOverlap 返回重叠词数
func (c *Chunker) ChunkOverlap() int {
	return c.chunkOverlap
}
