package repository

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"profitops-go/internal/model"
	"profitops-go/pkg/log"
)

const (
	// DefaultMaxConversations 是保留的命名会话上限。
	DefaultMaxConversations = 50
	// DefaultMaxTranscript 是实时对话缓存保留的消息条数。
	DefaultMaxTranscript = 50

	previewMaxRunes = 100
	previewFallback = "Conversación sin mensajes"
	isoFormat       = "2006-01-02T15:04:05.000Z07:00"
)

// ConversationRepository 定义了命名会话与实时对话缓存的操作接口。
// 存储失败不会返回错误：读取退化为空集合，写入失败只记录日志。
type ConversationRepository interface {
	List(ctx context.Context) []model.SavedConversation
	Save(ctx context.Context, name string, messages []model.SavedMessage) model.SavedConversation
	Get(ctx context.Context, id string) (model.SavedConversation, bool)
	Delete(ctx context.Context, id string)
	Update(ctx context.Context, id string, messages []model.SavedMessage) bool

	SaveTranscript(ctx context.Context, sessionID string, messages []model.Message)
	LoadTranscript(ctx context.Context, sessionID string) []model.Message
}

// ConversationStoreOptions 配置键名、上限以及可替换的时钟。
type ConversationStoreOptions struct {
	ConversationsKey string
	TranscriptKey    string
	MaxConversations int
	MaxTranscript    int
	Now              func() time.Time
}

type kvConversationRepository struct {
	kv   KVStore
	opts ConversationStoreOptions
	// 串行化同一进程内的整集合读-改-写；跨进程仍是最后写入者生效。
	mu sync.Mutex
}

// NewConversationRepository 创建一个基于 KVStore 的 ConversationRepository。
func NewConversationRepository(kv KVStore, opts ConversationStoreOptions) ConversationRepository {
	if opts.ConversationsKey == "" {
		opts.ConversationsKey = "profitops_conversations"
	}
	if opts.TranscriptKey == "" {
		opts.TranscriptKey = "profitops_chat_history"
	}
	if opts.MaxConversations <= 0 {
		opts.MaxConversations = DefaultMaxConversations
	}
	if opts.MaxTranscript <= 0 {
		opts.MaxTranscript = DefaultMaxTranscript
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &kvConversationRepository{kv: kv, opts: opts}
}

// List 返回按新到旧排列的会话集合，存储缺失或数据损坏时返回空集合。
func (r *kvConversationRepository) List(ctx context.Context) []model.SavedConversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *kvConversationRepository) load(ctx context.Context) []model.SavedConversation {
	raw, ok := r.kv.Read(ctx, r.opts.ConversationsKey)
	if !ok || raw == "" {
		return []model.SavedConversation{}
	}
	var convs []model.SavedConversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		log.Warnw("saved conversations unreadable, treating as empty", "key", r.opts.ConversationsKey, "error", err)
		return []model.SavedConversation{}
	}
	if convs == nil {
		return []model.SavedConversation{}
	}
	return convs
}

func (r *kvConversationRepository) persist(ctx context.Context, convs []model.SavedConversation) {
	data, err := json.Marshal(convs)
	if err != nil {
		log.Warnw("failed to marshal saved conversations", "error", err)
		return
	}
	if !r.kv.Write(ctx, r.opts.ConversationsKey, string(data)) {
		log.Warnf("saved conversations were not persisted (%d records)", len(convs))
	}
}

// Save 生成新记录并插入到集合头部，超过上限时丢弃最旧的记录。
func (r *kvConversationRepository) Save(ctx context.Context, name string, messages []model.SavedMessage) model.SavedConversation {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.Now()
	conv := model.SavedConversation{
		ID:       newConversationID(now),
		Nombre:   name,
		Fecha:    now.UTC().Format(isoFormat),
		Mensajes: cloneMessages(messages),
		Preview:  buildPreview(messages),
	}

	convs := append([]model.SavedConversation{conv}, r.load(ctx)...)
	if len(convs) > r.opts.MaxConversations {
		convs = convs[:r.opts.MaxConversations]
	}
	r.persist(ctx, convs)
	return conv
}

// Get 按 id 线性查找会话。
func (r *kvConversationRepository) Get(ctx context.Context, id string) (model.SavedConversation, bool) {
	for _, c := range r.List(ctx) {
		if c.ID == id {
			return c, true
		}
	}
	return model.SavedConversation{}, false
}

// Delete 删除匹配的会话；id 不存在时什么也不做。
func (r *kvConversationRepository) Delete(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	convs := r.load(ctx)
	kept := make([]model.SavedConversation, 0, len(convs))
	for _, c := range convs {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(convs) {
		return
	}
	r.persist(ctx, kept)
}

// Update 替换消息并刷新 fecha，preview 保持不变。id 不存在时不会创建记录。
func (r *kvConversationRepository) Update(ctx context.Context, id string, messages []model.SavedMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	convs := r.load(ctx)
	for i := range convs {
		if convs[i].ID != id {
			continue
		}
		convs[i].Mensajes = cloneMessages(messages)
		convs[i].Fecha = r.opts.Now().UTC().Format(isoFormat)
		r.persist(ctx, convs)
		return true
	}
	return false
}

func (r *kvConversationRepository) transcriptKey(sessionID string) string {
	return r.opts.TranscriptKey + ":" + sessionID
}

// SaveTranscript 整体覆盖实时对话缓存，只保留最近 MaxTranscript 条。
func (r *kvConversationRepository) SaveTranscript(ctx context.Context, sessionID string, messages []model.Message) {
	if len(messages) > r.opts.MaxTranscript {
		messages = messages[len(messages)-r.opts.MaxTranscript:]
	}
	data, err := json.Marshal(messages)
	if err != nil {
		log.Warnw("failed to marshal transcript", "session", sessionID, "error", err)
		return
	}
	if !r.kv.Write(ctx, r.transcriptKey(sessionID), string(data)) {
		log.Warnf("transcript for session %s was not persisted", sessionID)
	}
}

// LoadTranscript 读取实时对话缓存，不存在或损坏时返回 nil。
func (r *kvConversationRepository) LoadTranscript(ctx context.Context, sessionID string) []model.Message {
	raw, ok := r.kv.Read(ctx, r.transcriptKey(sessionID))
	if !ok || raw == "" {
		return nil
	}
	var msgs []model.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		log.Warnw("transcript cache unreadable", "session", sessionID, "error", err)
		return nil
	}
	return msgs
}

// newConversationID 生成基于时间戳加随机后缀的 id。
func newConversationID(now time.Time) string {
	return "conv_" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

// buildPreview 取第一条非空用户消息的前 100 个字符。
func buildPreview(messages []model.SavedMessage) string {
	for _, m := range messages {
		if m.Role != model.RoleUser || strings.TrimSpace(m.Content) == "" {
			continue
		}
		runes := []rune(m.Content)
		if len(runes) > previewMaxRunes {
			runes = runes[:previewMaxRunes]
		}
		return string(runes)
	}
	return previewFallback
}

func cloneMessages(messages []model.SavedMessage) []model.SavedMessage {
	out := make([]model.SavedMessage, len(messages))
	copy(out, messages)
	return out
}
