package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cppla/nuobot/utils"
)

// Summarizer is the text-generation capability the consolidator folds buffers with.
// One request, one response; no retries at this layer.
type Summarizer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Job is one consolidation round: a buffered snapshot plus the keys it belongs to.
type Job struct {
	ID      string
	TempKey string
	LongKey string
	IsGroup bool
	Turns   []Turn
}

const consolidateTimeout = 60 * time.Second

// Consolidator folds temp buffers into long-term profiles on a bounded worker
// pool. Submission never blocks the reply path: when the queue is full the
// round is dropped and logged.
type Consolidator struct {
	kv       KV
	sum      Summarizer
	jobs     chan Job
	workers  sync.WaitGroup
	pending  sync.WaitGroup
	inFlight atomic.Int64

	// mu orders Submit against Close: a submission holds the read side, so
	// Close cannot mark the pool closed and drain between the closed check
	// and the channel send.
	mu     sync.RWMutex
	closed bool
}

// NewConsolidator starts the worker pool.
func NewConsolidator(kv KV, sum Summarizer, workers, queueSize int) *Consolidator {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	c := &Consolidator{
		kv:   kv,
		sum:  sum,
		jobs: make(chan Job, queueSize),
	}
	for i := 0; i < workers; i++ {
		c.workers.Add(1)
		go c.run()
	}
	return c
}

// Submit queues a consolidation round. Returns false when the queue is full or
// the pool is shutting down; the snapshot is lost in that case.
func (c *Consolidator) Submit(job Job) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	c.pending.Add(1)
	c.inFlight.Add(1)
	select {
	case c.jobs <- job:
		return true
	default:
		c.inFlight.Add(-1)
		c.pending.Done()
		if utils.Sugar != nil {
			utils.Sugar.Warnw("consolidation queue full, dropping round",
				"job", job.ID, "key", job.TempKey, "turns", len(job.Turns))
		}
		return false
	}
}

// InFlight reports queued plus running rounds.
func (c *Consolidator) InFlight() int64 {
	return c.inFlight.Load()
}

// Wait blocks until every submitted round has finished.
func (c *Consolidator) Wait() {
	c.pending.Wait()
}

// Close drains outstanding rounds and stops the workers.
func (c *Consolidator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.pending.Wait()
	close(c.jobs)
	c.workers.Wait()
}

func (c *Consolidator) run() {
	defer c.workers.Done()
	for job := range c.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), consolidateTimeout)
		if err := c.consolidate(ctx, job); err != nil {
			if utils.Sugar != nil {
				utils.Sugar.Errorw("consolidation failed",
					"job", job.ID, "key", job.TempKey, "error", err)
			}
		}
		cancel()
		c.inFlight.Add(-1)
		c.pending.Done()
	}
}

// consolidate deletes the buffer first, then merges the snapshot into the
// prior profile. Deleting early stops the same snapshot from being folded
// twice; it also means a crash mid-round loses this round's summary.
func (c *Consolidator) consolidate(ctx context.Context, job Job) error {
	if len(job.Turns) == 0 {
		return nil
	}

	if _, err := c.kv.Del(ctx, job.TempKey); err != nil {
		return fmt.Errorf("clear temp buffer: %w", err)
	}

	prev, err := c.kv.Get(ctx, job.LongKey)
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}

	conversation := Transcript(job.Turns)
	if conversation == "" {
		return nil
	}

	summary, err := c.sum.Complete(ctx, summaryPrompt(conversation, prev, job.IsGroup))
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	if err := c.kv.Set(ctx, job.LongKey, strings.TrimSpace(summary)); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	if utils.Sugar != nil {
		utils.Sugar.Infow("profile updated", "job", job.ID, "key", job.LongKey, "group", job.IsGroup)
	}
	return nil
}

// summaryPrompt builds the incremental-merge prompt when a prior profile
// exists, and the synthesis prompt otherwise. Both cap the output at ~500
// characters; the cap is enforced by instruction, not by the storage layer.
func summaryPrompt(conversation, previous string, isGroup bool) string {
	contextType := "私聊"
	if isGroup {
		contextType = "群聊"
	}

	if previous != "" {
		return fmt.Sprintf(
			"你是一个记忆助手。以下是关于某个%s的历史画像：\n"+
				"--- 历史画像 ---\n%s\n--- 结束 ---\n\n"+
				"现在新增了以下对话内容：\n%s\n\n"+
				"请结合历史画像和新增对话，生成一个**更新后的、更全面的%s画像**。\n"+
				"保留重要历史信息，融入新发现，删除过时内容。不超过500字。",
			contextType, previous, conversation, contextType)
	}
	return fmt.Sprintf(
		"你是一个记忆助手。请基于以下%s的对话内容，生成一个详细的%s画像。"+
			"包括但不限于兴趣、偏好、重要背景信息等，确保所有推断都是合理的。不超过500字。\n\n"+
			"对话内容：\n%s",
		contextType, contextType, conversation)
}
