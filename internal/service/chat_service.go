package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"profitops-go/internal/model"
	"profitops-go/internal/prompt"
	"profitops-go/internal/repository"
	"profitops-go/pkg/log"
	"profitops-go/pkg/webhook"
)

// WelcomeMessage 是每个新对话的第一条助手消息。
const WelcomeMessage = "Hola Alan, soy tu Coach de Ventas B2B. Estoy aquí para ayudarte a cerrar más deals, " +
	"analizar tu pipeline y optimizar tu estrategia. ¿En qué puedo ayudarte hoy?"

const apologyMessage = "Lo siento, hubo un error al procesar tu mensaje. Por favor, intenta de nuevo en unos momentos."

// QuickActions 是界面上的快捷提问。
var QuickActions = []string{
	"Analiza las alertas de mi pipeline",
	"Crea un plan de acción para esta semana",
	"¿Qué deals tengo más cerca de cerrar?",
}

var (
	ErrEmptyMessage   = errors.New("el mensaje no puede estar vacío")
	ErrSendInProgress = errors.New("ya hay un mensaje en proceso para esta sesión")
	// ErrSessionReset 表示请求返回前对话已被重置，回复被丢弃。
	ErrSessionReset = errors.New("la conversación fue reiniciada mientras se esperaba la respuesta")
)

// ChatSender 是聊天 webhook 的最小依赖。
type ChatSender interface {
	SendChat(ctx context.Context, req webhook.ChatRequest) (string, error)
}

// SnapshotSource 提供最近一次的 pipeline 快照。
type SnapshotSource interface {
	Latest() (*model.DashboardData, time.Time)
}

// ChatService 定义了销售教练对话的操作。每个 session 同时只允许一个发送。
type ChatService interface {
	// Send 追加用户消息并请求回复，返回更新后的对话。
	// 回复失败时对话末尾是一条致歉消息，同时返回 *webhook.SendError。
	Send(ctx context.Context, sessionID, text string) ([]model.Message, error)
	Transcript(ctx context.Context, sessionID string) []model.Message
	Reset(ctx context.Context, sessionID string) []model.Message
	// Replace 用给定消息替换对话，用于加载已保存的会话。
	Replace(ctx context.Context, sessionID string, messages []model.Message) []model.Message
}

// ChatOptions 配置 prompt 与历史窗口。
type ChatOptions struct {
	BasePrompt    string
	HistoryWindow int
	// MaxSessions 是内存中保留的会话数上限，超出时淘汰最久未使用的空闲会话。
	MaxSessions int
	Now         func() time.Time
}

// DefaultMaxSessions 是 MaxSessions 未配置时的上限。
const DefaultMaxSessions = 1000

type coachSession struct {
	mu         sync.Mutex
	messages   []model.Message
	busy       bool
	generation uint64

	// lastUsed 由 chatService.mu 保护
	lastUsed uint64
}

type chatService struct {
	sender    ChatSender
	snapshots SnapshotSource
	repo      repository.ConversationRepository
	activity  ActivityRecorder
	opts      ChatOptions

	mu       sync.Mutex
	sessions map[string]*coachSession
	clock    uint64
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(sender ChatSender, snapshots SnapshotSource, repo repository.ConversationRepository, activity ActivityRecorder, opts ChatOptions) ChatService {
	if opts.BasePrompt == "" {
		opts.BasePrompt = prompt.DefaultBasePrompt
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = webhook.MaxHistory
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if activity == nil {
		activity = NopRecorder{}
	}
	return &chatService{
		sender:    sender,
		snapshots: snapshots,
		repo:      repo,
		activity:  activity,
		opts:      opts,
		sessions:  make(map[string]*coachSession),
	}
}

// session 返回会话状态；第一次访问时从对话缓存恢复。缓存读取不持有全局锁。
func (s *chatService) session(ctx context.Context, id string) *coachSession {
	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		s.touch(sess)
		s.mu.Unlock()
		return sess
	}
	s.mu.Unlock()

	loaded := s.repo.LoadTranscript(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	// 读缓存期间可能已有其他请求创建了该会话
	if sess, ok := s.sessions[id]; ok {
		s.touch(sess)
		return sess
	}
	sess := &coachSession{messages: loaded}
	if len(sess.messages) == 0 {
		sess.messages = []model.Message{s.welcome()}
	} else {
		log.Infof("会话 %s 已从缓存恢复 %d 条消息", id, len(sess.messages))
	}
	s.evictIdle()
	s.touch(sess)
	s.sessions[id] = sess
	return sess
}

func (s *chatService) touch(sess *coachSession) {
	s.clock++
	sess.lastUsed = s.clock
}

// evictIdle 在会话数达到上限时淘汰最久未使用且没有进行中发送的会话。
// 被淘汰的会话下次访问时从对话缓存恢复。调用方需持有 s.mu。
func (s *chatService) evictIdle() {
	for len(s.sessions) >= s.opts.MaxSessions {
		var (
			oldestID string
			oldest   *coachSession
		)
		for id, sess := range s.sessions {
			// 锁被占用说明会话正在使用，跳过以免持有 s.mu 等待
			if !sess.mu.TryLock() {
				continue
			}
			busy := sess.busy
			sess.mu.Unlock()
			if busy {
				continue
			}
			if oldest == nil || sess.lastUsed < oldest.lastUsed {
				oldestID, oldest = id, sess
			}
		}
		if oldest == nil {
			return
		}
		delete(s.sessions, oldestID)
	}
}

func (s *chatService) Send(ctx context.Context, sessionID, text string) ([]model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	sess := s.session(ctx, sessionID)

	sess.mu.Lock()
	if sess.busy {
		sess.mu.Unlock()
		return nil, ErrSendInProgress
	}
	sess.busy = true
	gen := sess.generation
	history := model.ToChatHistory(sess.messages, s.opts.HistoryWindow)
	sess.messages = append(sess.messages, s.newMessage(model.RoleUser, text))
	s.persist(ctx, sessionID, sess.messages)
	sess.mu.Unlock()

	snapshot, _ := s.snapshots.Latest()
	reply, sendErr := s.sender.SendChat(ctx, webhook.ChatRequest{
		Message:      text,
		History:      history,
		System:       prompt.Build(s.opts.BasePrompt, snapshot, s.opts.Now()),
		PipelineData: snapshot,
	})

	sess.mu.Lock()
	if gen != sess.generation {
		transcript := cloneTranscript(sess.messages)
		sess.mu.Unlock()
		return transcript, ErrSessionReset
	}
	sess.busy = false

	if sendErr != nil {
		log.Errorf("Error sending chat message (session %s): %v", sessionID, sendErr)
		sess.messages = append(sess.messages, s.newMessage(model.RoleAssistant, apologyMessage))
	} else {
		sess.messages = append(sess.messages, s.newMessage(model.RoleAssistant, reply))
	}
	s.persist(ctx, sessionID, sess.messages)
	transcript := cloneTranscript(sess.messages)
	sess.mu.Unlock()

	s.activity.Record(ctx, exchangeActivity(sessionID, text, sendErr))
	return transcript, sendErr
}

func (s *chatService) Transcript(ctx context.Context, sessionID string) []model.Message {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return cloneTranscript(sess.messages)
}

func (s *chatService) Reset(ctx context.Context, sessionID string) []model.Message {
	return s.Replace(ctx, sessionID, nil)
}

func (s *chatService) Replace(ctx context.Context, sessionID string, messages []model.Message) []model.Message {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	// 进行中的发送返回时会发现 generation 已变化并丢弃回复
	sess.generation++
	sess.busy = false
	if len(messages) == 0 {
		sess.messages = []model.Message{s.welcome()}
		s.repo.SaveTranscript(ctx, sessionID, []model.Message{})
	} else {
		sess.messages = cloneTranscript(messages)
		s.persist(ctx, sessionID, sess.messages)
	}
	return cloneTranscript(sess.messages)
}

// persist 只在对话超过欢迎消息时覆盖缓存。
func (s *chatService) persist(ctx context.Context, sessionID string, messages []model.Message) {
	if len(messages) > 1 {
		s.repo.SaveTranscript(ctx, sessionID, messages)
	}
}

func (s *chatService) welcome() model.Message {
	return s.newMessage(model.RoleAssistant, WelcomeMessage)
}

func (s *chatService) newMessage(role, content string) model.Message {
	return model.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.opts.Now().Format("15:04"),
	}
}

func cloneTranscript(msgs []model.Message) []model.Message {
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out
}

func exchangeActivity(sessionID, text string, err error) model.Activity {
	a := model.Activity{
		Kind:      model.ActivityChatExchange,
		SessionID: sessionID,
		Subject:   truncate(text, 120),
		Success:   err == nil,
	}
	if err != nil {
		a.Detail = fmt.Sprintf("%v", err)
	}
	return a
}
